package models

import (
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

// Position is the derived holding of one ticker at one institution. The
// average price is the ticker-wide weighted average, shared by every
// institution holding the ticker.
type Position struct {
	ID          int64           `json:"id,omitempty"`
	Ticker      string          `json:"ticker"`
	AssetClass  AssetClass      `json:"assetClass"`
	Quantity    decimal.Decimal `json:"quantity"`
	AvgPrice    decimal.Decimal `json:"avgPrice"`
	Currency    Currency        `json:"currency"`
	TotalCost   decimal.Decimal `json:"totalCost"`
	Institution string          `json:"institution"`
	Fingerprint string          `json:"fingerprint,omitempty"`
}

func (p Position) IsOpen() bool { return p.Quantity.IsPositive() }

// Key identifies the position as TICKER@INSTITUTION.
func (p Position) Key() string { return p.Ticker + "@" + p.Institution }

func (p Position) ComputeFingerprint() string {
	return fingerprint(map[string]string{
		"ticker":      p.Ticker,
		"asset_class": string(p.AssetClass),
		"quantity":    money.QuantityString(p.Quantity),
		"avg_price":   money.MonetaryString(p.AvgPrice),
		"currency":    string(p.Currency),
		"total_cost":  money.MonetaryString(p.TotalCost),
		"institution": p.Institution,
	})
}

func (p Position) Sealed() Position {
	p.Fingerprint = p.ComputeFingerprint()
	return p
}

// Custodian records which institution holds how many shares of a ticker.
type Custodian struct {
	ID          int64           `json:"id,omitempty"`
	Ticker      string          `json:"ticker"`
	Institution string          `json:"institution"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// CustodiansFrom lists the open positions as custodian rows.
func CustodiansFrom(positions []Position) []Custodian {
	out := make([]Custodian, 0, len(positions))
	for _, p := range positions {
		if !p.IsOpen() {
			continue
		}
		out = append(out, Custodian{Ticker: p.Ticker, Institution: p.Institution, Quantity: p.Quantity})
	}
	return out
}
