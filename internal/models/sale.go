package models

import (
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

// SaleEvent is the realized result of one SELL, priced at the ticker-wide
// average cost at the moment of the sale.
type SaleEvent struct {
	Ticker     string          `json:"ticker"`
	Date       time.Time       `json:"date"`
	TradeType  TradeType       `json:"tradeType"`
	AssetClass AssetClass      `json:"assetClass"`
	Quantity   decimal.Decimal `json:"quantity"`
	SalePrice  decimal.Decimal `json:"salePrice"`
	AvgCost    decimal.Decimal `json:"avgCost"`
	Proceeds   decimal.Decimal `json:"proceeds"`
	CostOfSold decimal.Decimal `json:"costOfSold"`
	GainLoss   decimal.Decimal `json:"gainLoss"`
	Currency   Currency        `json:"currency"`
	FXRate     decimal.Decimal `json:"fxRate"`
}

// ProceedsBRL is the proceeds converted with the sale's FX rate and rounded
// on its own.
func (s SaleEvent) ProceedsBRL() decimal.Decimal {
	return money.Monetary(s.Proceeds.Mul(s.FXRate))
}

// GainLossBRL is the gain/loss converted with the sale's FX rate and rounded
// on its own, never derived from ProceedsBRL.
func (s SaleEvent) GainLossBRL() decimal.Decimal {
	return money.Monetary(s.GainLoss.Mul(s.FXRate))
}

// Month returns the YYYY-MM reference the sale is taxed in.
func (s SaleEvent) Month() string { return s.Date.Format(MonthLayout) }
