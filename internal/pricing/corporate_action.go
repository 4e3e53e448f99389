package pricing

import (
	"fmt"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

// DefaultDeviationThreshold flags moves above 30% of the average price.
var DefaultDeviationThreshold = decimal.RequireFromString("0.30")

// CorporateActionAlert reports a price far enough from the average cost to
// suggest an unrecorded split, inplit or bonus.
type CorporateActionAlert struct {
	Ticker    string          `json:"ticker"`
	Currency  models.Currency `json:"currency"`
	AvgPrice  decimal.Decimal `json:"avgPrice"`
	Price     decimal.Decimal `json:"price"`
	Deviation decimal.Decimal `json:"deviation"`
	Message   string          `json:"message"`
}

// Deviation returns |price - expected| / expected, or false when expected
// is not positive.
func Deviation(expected, price decimal.Decimal) (decimal.Decimal, bool) {
	if !expected.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(expected).Abs().Div(expected), true
}

// CheckCorporateAction compares a position's average price with quote. It
// returns nil unless the deviation strictly exceeds threshold.
func CheckCorporateAction(p models.Position, quote Quote, threshold decimal.Decimal) *CorporateActionAlert {
	dev, ok := Deviation(p.AvgPrice, quote.Price)
	if !ok || !dev.GreaterThan(threshold) {
		return nil
	}
	pct := dev.Mul(decimal.NewFromInt(100)).StringFixed(1)
	return &CorporateActionAlert{
		Ticker:    p.Ticker,
		Currency:  p.Currency,
		AvgPrice:  p.AvgPrice,
		Price:     quote.Price,
		Deviation: dev.Round(4),
		Message: fmt.Sprintf("possible corporate action on %s: average %s, last price %s (%s%% move)",
			p.Ticker, money.Format(p.AvgPrice, string(p.Currency)), money.Format(quote.Price, string(p.Currency)), pct),
	}
}
