package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRoundingHalfUp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		round func(decimal.Decimal) decimal.Decimal
		in    string
		want  string
	}{
		{"monetary up", Monetary, "10.555", "10.56"},
		{"monetary half", Monetary, "10.545", "10.55"},
		{"monetary down", Monetary, "10.544", "10.54"},
		{"monetary negative", Monetary, "-10.545", "-10.55"},
		{"quantity", Quantity, "100.123456789", "100.12345679"},
		{"quantity exact", Quantity, "150", "150"},
		{"fx", FX, "5.123456789", "5.12345679"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.round(dec(tt.in))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "32.00", MonetaryString(Ratio(dec("4800"), dec("150"))))
	assert.True(t, Ratio(dec("100"), decimal.Zero).IsZero())
	assert.True(t, Ratio(dec("100"), dec("-1")).IsZero())
	assert.Equal(t, "33.33", MonetaryString(Ratio(dec("100"), dec("3"))))
}

func TestCanonicalStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "150.00000000", QuantityString(dec("150")))
	assert.Equal(t, "3000.00", MonetaryString(dec("3000")))
	assert.Equal(t, "1.00000000", FXString(decimal.NewFromInt(1)))
}

func TestParse(t *testing.T) {
	t.Parallel()

	d, err := Parse(" 12.5 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("12.5")))

	_, err = Parse("")
	assert.Error(t, err)
	_, err = Parse("abc")
	assert.Error(t, err)

	d, err = ParseBR("1.234,56")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("1234.56")))

	d, err = ParseBR("1.000")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("1000")))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Format(dec("1234.56"), "BRL"), "1.234,56")
	assert.Contains(t, Format(dec("1234.56"), "usd"), "1,234.56")
	assert.Equal(t, "10.00 XXX1", Format(dec("10"), "XXX1"))
}
