// Package tax computes Brazilian capital-gains tax (IR) over realized sales.
package tax

import (
	"sort"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

var (
	SwingTradeRate = decimal.RequireFromString("0.15")
	DayTradeRate   = decimal.RequireFromString("0.20")

	// Withholding at source: 0.005% of proceeds on swing trades, 1% of the
	// gain on day trades.
	SwingWithholdingRate = decimal.RequireFromString("0.00005")
	DayWithholdingRate   = decimal.RequireFromString("0.01")

	// MonthlyExemptionLimit is the inclusive cap on swing-trade stock
	// proceeds below which the month is exempt.
	MonthlyExemptionLimit = decimal.RequireFromString("20000.00")
)

// LossLedger holds the accumulated loss per group. It belongs to the caller,
// who threads it through months in chronological order.
type LossLedger map[models.LossKey]decimal.Decimal

// Get returns the carried loss of key, zero when absent.
func (l LossLedger) Get(key models.LossKey) decimal.Decimal {
	if v, ok := l[key]; ok {
		return v
	}
	return money.Zero
}

// Calculator is stateless; the only state it touches is the ledger passed in.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

type group struct {
	key   models.LossKey
	sales []models.SaleEvent
}

// CalculateMonthlyTax computes one result per (asset class, trade type)
// group present in sales, in order of first appearance, and updates ledger
// in place. Groups absent from sales keep their ledger entries.
func (c *Calculator) CalculateMonthlyTax(sales []models.SaleEvent, ledger LossLedger, month string) []models.TaxResult {
	var groups []*group
	index := make(map[models.LossKey]*group)
	for _, s := range sales {
		key := models.LossKey{AssetClass: s.AssetClass, TradeType: s.TradeType}
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			groups = append(groups, g)
		}
		g.sales = append(g.sales, s)
	}

	results := make([]models.TaxResult, 0, len(groups))
	for _, g := range groups {
		results = append(results, c.groupTax(g, ledger, month))
	}
	return results
}

func (c *Calculator) groupTax(g *group, ledger LossLedger, month string) models.TaxResult {
	gain, proceeds := money.Zero, money.Zero
	for _, s := range g.sales {
		gain = gain.Add(s.GainLossBRL())
		proceeds = proceeds.Add(s.ProceedsBRL())
	}

	carried := ledger.Get(g.key)
	res := models.TaxResult{
		Month:          month,
		AssetClass:     g.key.AssetClass,
		TradeType:      g.key.TradeType,
		GrossGain:      gain,
		LossCarriedIn:  carried,
		TaxableGain:    money.Zero,
		TaxRate:        rate(g.key.TradeType),
		TaxDue:         money.Zero,
		Withheld:       money.Zero,
		NetPayable:     money.Zero,
		LossCarriedOut: carried,
		TotalProceeds:  proceeds,
	}

	// exemption neither consumes nor records losses
	if isExempt(g.key, proceeds) {
		res.Exempt = true
		return res
	}

	if gain.IsNegative() {
		res.LossCarriedOut = money.Monetary(carried.Add(gain.Abs()))
		ledger[g.key] = res.LossCarriedOut
		return res
	}

	taxable := money.Monetary(gain.Sub(carried))
	if taxable.IsNegative() {
		res.LossCarriedOut = money.Monetary(taxable.Abs())
		ledger[g.key] = res.LossCarriedOut
		return res
	}

	ledger[g.key] = money.Zero
	res.LossCarriedOut = money.Zero
	res.TaxableGain = taxable
	res.TaxDue = money.Monetary(taxable.Mul(res.TaxRate))
	res.Withheld = withholding(g.key.TradeType, proceeds, gain)
	res.NetPayable = money.Monetary(decimal.Max(res.TaxDue.Sub(res.Withheld), money.Zero))
	return res
}

// CalculateAll splits sales by month and runs CalculateMonthlyTax over the
// months in chronological order, threading ledger through them.
func (c *Calculator) CalculateAll(sales []models.SaleEvent, ledger LossLedger) []models.TaxResult {
	byMonth := make(map[string][]models.SaleEvent)
	for _, s := range sales {
		byMonth[s.Month()] = append(byMonth[s.Month()], s)
	}
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	var results []models.TaxResult
	for _, m := range months {
		results = append(results, c.CalculateMonthlyTax(byMonth[m], ledger, m)...)
	}
	return results
}

func rate(t models.TradeType) decimal.Decimal {
	if t == models.DayTrade {
		return DayTradeRate
	}
	return SwingTradeRate
}

func isExempt(key models.LossKey, proceeds decimal.Decimal) bool {
	return key.TradeType == models.SwingTrade &&
		key.AssetClass == models.AssetStock &&
		proceeds.LessThanOrEqual(MonthlyExemptionLimit)
}

func withholding(t models.TradeType, proceeds, gain decimal.Decimal) decimal.Decimal {
	if t == models.DayTrade {
		if gain.IsPositive() {
			return money.Monetary(gain.Mul(DayWithholdingRate))
		}
		return money.Zero
	}
	return money.Monetary(proceeds.Mul(SwingWithholdingRate))
}
