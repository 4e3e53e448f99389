package tax

import (
	"testing"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var stockSwing = models.LossKey{AssetClass: models.AssetStock, TradeType: models.SwingTrade}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDec(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "%s: want %s got %s", field, want, got)
}

func sale(gain, proceeds string, ac models.AssetClass, tt models.TradeType) models.SaleEvent {
	g, p := d(gain), d(proceeds)
	return models.SaleEvent{
		Ticker:     "TEST",
		Date:       time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		TradeType:  tt,
		AssetClass: ac,
		Quantity:   d("100"),
		SalePrice:  d("10"),
		AvgCost:    d("9"),
		Proceeds:   p,
		CostOfSold: p.Sub(g),
		GainLoss:   g,
		Currency:   models.BRL,
		FXRate:     decimal.NewFromInt(1),
	}
}

func stockSale(gain, proceeds string) models.SaleEvent {
	return sale(gain, proceeds, models.AssetStock, models.SwingTrade)
}

func single(t *testing.T, sales []models.SaleEvent, ledger LossLedger) models.TaxResult {
	t.Helper()
	results := NewCalculator().CalculateMonthlyTax(sales, ledger, "2025-03")
	require.Len(t, results, 1)
	assert.Equal(t, "2025-03", results[0].Month)
	return results[0]
}

func TestSwingTradeGain(t *testing.T) {
	t.Parallel()

	r := single(t, []models.SaleEvent{stockSale("1000.00", "25000.00")}, LossLedger{})
	assertDec(t, "1000.00", r.TaxableGain, "taxable")
	assertDec(t, "0.15", r.TaxRate, "rate")
	assertDec(t, "150.00", r.TaxDue, "tax due")
	assertDec(t, "1.25", r.Withheld, "withheld")
	assertDec(t, "148.75", r.NetPayable, "net")
	assert.False(t, r.Exempt)
}

func TestMonthlyExemptionBoundary(t *testing.T) {
	t.Parallel()

	ledger := LossLedger{stockSwing: d("300.00")}
	r := single(t, []models.SaleEvent{stockSale("500.00", "20000.00")}, ledger)
	assert.True(t, r.Exempt)
	assert.True(t, r.TaxDue.IsZero())
	assert.True(t, r.Withheld.IsZero())
	assert.True(t, r.NetPayable.IsZero())
	assertDec(t, "300.00", r.LossCarriedIn, "carried in")
	assertDec(t, "300.00", r.LossCarriedOut, "carried out")
	assertDec(t, "300.00", ledger[stockSwing], "ledger unchanged")

	ledger = LossLedger{}
	r = single(t, []models.SaleEvent{stockSale("500.00", "20000.01")}, ledger)
	assert.False(t, r.Exempt)
	assertDec(t, "500.00", r.TaxableGain, "taxable")
	assertDec(t, "75.00", r.TaxDue, "tax due")
}

func TestExemptionSumsProceedsAcrossSales(t *testing.T) {
	t.Parallel()

	r := single(t, []models.SaleEvent{
		stockSale("100.00", "12000.00"),
		stockSale("100.00", "9000.00"),
	}, LossLedger{})
	assert.False(t, r.Exempt)
	assertDec(t, "21000.00", r.TotalProceeds, "proceeds")
	assertDec(t, "200.00", r.GrossGain, "gain")
}

func TestExemptMonthWithLossKeepsLedger(t *testing.T) {
	t.Parallel()

	ledger := LossLedger{}
	r := single(t, []models.SaleEvent{stockSale("-800.00", "5000.00")}, ledger)
	assert.True(t, r.Exempt)
	_, recorded := ledger[stockSwing]
	assert.False(t, recorded, "exempt losses are not recorded")
}

func TestDayTrade(t *testing.T) {
	t.Parallel()

	r := single(t, []models.SaleEvent{sale("2000.00", "30000.00", models.AssetStock, models.DayTrade)}, LossLedger{})
	assertDec(t, "0.20", r.TaxRate, "rate")
	assertDec(t, "400.00", r.TaxDue, "tax due")
	assertDec(t, "20.00", r.Withheld, "withheld")
	assertDec(t, "380.00", r.NetPayable, "net")
}

func TestDayTradeNotExemptBelowLimit(t *testing.T) {
	t.Parallel()

	r := single(t, []models.SaleEvent{sale("100.00", "1000.00", models.AssetStock, models.DayTrade)}, LossLedger{})
	assert.False(t, r.Exempt)
	assertDec(t, "20.00", r.TaxDue, "tax due")
	assertDec(t, "1.00", r.Withheld, "withheld")
	assertDec(t, "19.00", r.NetPayable, "net")
}

func TestLossAccumulates(t *testing.T) {
	t.Parallel()

	ledger := LossLedger{stockSwing: d("100.00")}
	r := single(t, []models.SaleEvent{stockSale("-500.00", "25000.00")}, ledger)
	assert.True(t, r.TaxDue.IsZero())
	assert.True(t, r.Withheld.IsZero())
	assertDec(t, "100.00", r.LossCarriedIn, "carried in")
	assertDec(t, "600.00", r.LossCarriedOut, "carried out")
	assertDec(t, "600.00", ledger[stockSwing], "ledger")
}

func TestLossOffset(t *testing.T) {
	t.Parallel()

	ledger := LossLedger{stockSwing: d("300.00")}
	r := single(t, []models.SaleEvent{stockSale("1000.00", "25000.00")}, ledger)
	assertDec(t, "700.00", r.TaxableGain, "taxable")
	assertDec(t, "105.00", r.TaxDue, "tax due")
	assert.True(t, r.LossCarriedOut.IsZero())
	assert.True(t, ledger[stockSwing].IsZero())
}

func TestLossExceedsGain(t *testing.T) {
	t.Parallel()

	ledger := LossLedger{stockSwing: d("2000.00")}
	r := single(t, []models.SaleEvent{stockSale("500.00", "25000.00")}, ledger)
	assert.True(t, r.TaxableGain.IsZero())
	assert.True(t, r.TaxDue.IsZero())
	assertDec(t, "1500.00", r.LossCarriedOut, "carried out")
	assertDec(t, "1500.00", ledger[stockSwing], "ledger")
}

func TestRealEstateFundHasNoExemption(t *testing.T) {
	t.Parallel()

	r := single(t, []models.SaleEvent{sale("500.00", "15000.00", models.AssetRealEstateFund, models.SwingTrade)}, LossLedger{})
	assert.False(t, r.Exempt)
	assertDec(t, "500.00", r.TaxableGain, "taxable")
	assertDec(t, "75.00", r.TaxDue, "tax due")
}

func TestWithholdingNeverMakesNetNegative(t *testing.T) {
	t.Parallel()

	// gain 0.10 on 25000 proceeds: tax 0.02, withholding 1.25
	r := single(t, []models.SaleEvent{stockSale("0.10", "25000.00")}, LossLedger{})
	assertDec(t, "0.02", r.TaxDue, "tax due")
	assertDec(t, "1.25", r.Withheld, "withheld")
	assert.True(t, r.NetPayable.IsZero())
}

func TestRoundThenSum(t *testing.T) {
	t.Parallel()

	usd := func(gain, proceeds string) models.SaleEvent {
		s := sale(gain, proceeds, models.AssetBDR, models.SwingTrade)
		s.Currency = models.USD
		s.FXRate = d("5.005")
		return s
	}
	// each gain converts to 0.005005 -> 0.01; summed-then-rounded would be 0.02
	r := single(t, []models.SaleEvent{usd("0.001", "1.00"), usd("0.001", "1.00"), usd("0.001", "1.00")}, LossLedger{})
	assertDec(t, "0.03", r.GrossGain, "gross gain")
	assertDec(t, "15.03", r.TotalProceeds, "proceeds")
}

func TestGroupsAreIndependent(t *testing.T) {
	t.Parallel()

	fiiKey := models.LossKey{AssetClass: models.AssetRealEstateFund, TradeType: models.SwingTrade}
	cryptoKey := models.LossKey{AssetClass: models.AssetCrypto, TradeType: models.DayTrade}
	ledger := LossLedger{cryptoKey: d("42.00")}

	results := NewCalculator().CalculateMonthlyTax([]models.SaleEvent{
		stockSale("1000.00", "25000.00"),
		sale("-200.00", "3000.00", models.AssetRealEstateFund, models.SwingTrade),
		stockSale("500.00", "1000.00"),
		sale("2000.00", "30000.00", models.AssetStock, models.DayTrade),
	}, ledger, "2025-03")

	require.Len(t, results, 3)
	assert.Equal(t, stockSwing, results[0].Key())
	assert.Equal(t, fiiKey, results[1].Key())
	assert.Equal(t, models.LossKey{AssetClass: models.AssetStock, TradeType: models.DayTrade}, results[2].Key())

	assertDec(t, "1500.00", results[0].GrossGain, "stock gain")
	assertDec(t, "200.00", ledger[fiiKey], "fii loss")
	assertDec(t, "42.00", ledger[cryptoKey], "absent group untouched")
}

func TestCalculateAllThreadsLedgerChronologically(t *testing.T) {
	t.Parallel()

	feb := stockSale("-300.00", "25000.00")
	feb.Date = time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	mar := stockSale("1000.00", "25000.00")
	jan := stockSale("200.00", "30000.00")
	jan.Date = time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	ledger := LossLedger{}
	results := NewCalculator().CalculateAll([]models.SaleEvent{mar, feb, jan}, ledger)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"2025-01", "2025-02", "2025-03"}, []string{results[0].Month, results[1].Month, results[2].Month})
	assertDec(t, "30.00", results[0].TaxDue, "january")
	assertDec(t, "300.00", results[1].LossCarriedOut, "february")
	assertDec(t, "700.00", results[2].TaxableGain, "march")
	assert.True(t, ledger.Get(stockSwing).IsZero())
}
