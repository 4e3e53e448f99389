package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Precision used across the engines. Rounding is half-up (away from zero).
const (
	MonetaryPlaces int32 = 2
	QuantityPlaces int32 = 8
	FXPlaces       int32 = 8
)

// Zero is the shared zero value.
var Zero = decimal.Zero

// Monetary rounds an amount to 2 decimal places.
func Monetary(d decimal.Decimal) decimal.Decimal {
	return d.Round(MonetaryPlaces)
}

// Quantity rounds a share quantity to 8 decimal places.
func Quantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityPlaces)
}

// FX rounds an exchange rate to 8 decimal places.
func FX(d decimal.Decimal) decimal.Decimal {
	return d.Round(FXPlaces)
}

// Ratio returns round2(num / den), or zero when den is not strictly positive.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return Zero
	}
	return Monetary(num.Div(den))
}

// MonetaryString renders an amount with exactly 2 decimals.
func MonetaryString(d decimal.Decimal) string { return Monetary(d).StringFixed(MonetaryPlaces) }

// QuantityString renders a quantity with exactly 8 decimals.
func QuantityString(d decimal.Decimal) string { return Quantity(d).StringFixed(QuantityPlaces) }

// FXString renders an FX rate with exactly 8 decimals.
func FXString(d decimal.Decimal) string { return FX(d).StringFixed(FXPlaces) }

// Parse reads a plain decimal such as "1234.56".
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Zero, fmt.Errorf("empty decimal")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid decimal %q: %w", raw, err)
	}
	return d, nil
}

// ParseBR reads a decimal in Brazilian notation: "." groups thousands and
// "," separates decimals ("1.234,56").
func ParseBR(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ".", "")
	return Parse(strings.ReplaceAll(s, ",", "."))
}

// Format renders amount in the currency's display convention, e.g. R$1.234,56.
func Format(amount decimal.Decimal, currency string) string {
	code := strings.ToUpper(currency)
	if gomoney.GetCurrency(code) == nil {
		return MonetaryString(amount) + " " + code
	}
	minor := Monetary(amount).Shift(MonetaryPlaces).IntPart()
	return gomoney.New(minor, code).Display()
}
