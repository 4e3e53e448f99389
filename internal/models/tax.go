package models

import "github.com/shopspring/decimal"

// LossKey groups sales and carried losses for tax purposes.
type LossKey struct {
	AssetClass AssetClass `json:"assetClass"`
	TradeType  TradeType  `json:"tradeType"`
}

func (k LossKey) String() string { return string(k.AssetClass) + "/" + string(k.TradeType) }

// TaxResult is the monthly tax computation of one (asset class, trade type)
// group.
type TaxResult struct {
	Month          string          `json:"month"`
	AssetClass     AssetClass      `json:"assetClass"`
	TradeType      TradeType       `json:"tradeType"`
	GrossGain      decimal.Decimal `json:"grossGain"`
	LossCarriedIn  decimal.Decimal `json:"lossCarriedIn"`
	TaxableGain    decimal.Decimal `json:"taxableGain"`
	TaxRate        decimal.Decimal `json:"taxRate"`
	TaxDue         decimal.Decimal `json:"taxDue"`
	Withheld       decimal.Decimal `json:"withheld"`
	NetPayable     decimal.Decimal `json:"netPayable"`
	LossCarriedOut decimal.Decimal `json:"lossCarriedOut"`
	TotalProceeds  decimal.Decimal `json:"totalProceeds"`
	Exempt         bool            `json:"exempt"`
}

func (r TaxResult) Key() LossKey { return LossKey{AssetClass: r.AssetClass, TradeType: r.TradeType} }

// TaxLoss is the persisted accumulated loss of a group at the end of a month.
type TaxLoss struct {
	ID              int64           `json:"id,omitempty"`
	AssetClass      AssetClass      `json:"assetClass"`
	TradeType       TradeType       `json:"tradeType"`
	AccumulatedLoss decimal.Decimal `json:"accumulatedLoss"`
	Month           string          `json:"month"`
}
