package models

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

// DateLayout is the day-precision layout used for transaction dates.
const DateLayout = "2006-01-02"

// MonthLayout formats the month reference of tax results.
const MonthLayout = "2006-01"

// Transaction is a single entry of the portfolio log, the source of truth
// every cached position and tax figure is derived from.
type Transaction struct {
	ID          int64           `json:"id"`
	Ticker      string          `json:"ticker"`
	AssetClass  AssetClass      `json:"assetClass"`
	Type        TransactionType `json:"type"`
	TradeType   TradeType       `json:"tradeType"`
	Date        time.Time       `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Currency    Currency        `json:"currency"`
	FXRate      decimal.Decimal `json:"fxRate"`
	Institution string          `json:"institution"`
	Notes       string          `json:"notes,omitempty"`
	Fingerprint string          `json:"fingerprint,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Normalized returns a copy with canonical precision: quantity and FX rate
// at 8 decimals, price at 2, date truncated to the UTC day and the ticker
// upper-cased.
func (t Transaction) Normalized() Transaction {
	t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))
	t.Institution = strings.TrimSpace(t.Institution)
	t.Date = Day(t.Date)
	t.Quantity = money.Quantity(t.Quantity)
	t.Price = money.Monetary(t.Price)
	t.FXRate = money.FX(t.FXRate)
	return t
}

// TotalValue is quantity × price in the transaction currency.
func (t Transaction) TotalValue() decimal.Decimal {
	return money.Monetary(t.Quantity.Mul(t.Price))
}

// TotalValueBRL converts TotalValue with the transaction's FX rate.
func (t Transaction) TotalValueBRL() decimal.Decimal {
	return money.Monetary(t.TotalValue().Mul(t.FXRate))
}

func (t Transaction) DateKey() string { return t.Date.Format(DateLayout) }

// ComputeFingerprint hashes the economic fields of the transaction. The id,
// notes and timestamps are excluded.
func (t Transaction) ComputeFingerprint() string {
	return fingerprint(map[string]string{
		"ticker":      t.Ticker,
		"asset_class": string(t.AssetClass),
		"type":        string(t.Type),
		"trade_type":  string(t.TradeType),
		"date":        t.DateKey(),
		"quantity":    money.QuantityString(t.Quantity),
		"price":       money.MonetaryString(t.Price),
		"currency":    string(t.Currency),
		"fx_rate":     money.FXString(t.FXRate),
		"institution": t.Institution,
	})
}

// Sealed returns a copy carrying its fingerprint.
func (t Transaction) Sealed() Transaction {
	t.Fingerprint = t.ComputeFingerprint()
	return t
}

// CompareTransactions orders by (date, id) ascending, the order the position
// engine requires.
func CompareTransactions(a, b Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortTransactions sorts txs in place by (date, id).
func SortTransactions(txs []Transaction) {
	slices.SortStableFunc(txs, CompareTransactions)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}
