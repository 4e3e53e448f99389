package models

import (
	"fmt"
	"strings"
)

// AssetClass classifies what is being held. Tax grouping and the monthly
// exemption depend on it.
type AssetClass string

const (
	AssetStock          AssetClass = "ACAO"
	AssetRealEstateFund AssetClass = "FII"
	AssetETF            AssetClass = "ETF"
	AssetBDR            AssetClass = "BDR"
	AssetFixedIncome    AssetClass = "RENDA_FIXA"
	AssetCrypto         AssetClass = "CRIPTO"
)

// AssetClasses lists every supported asset class.
var AssetClasses = []AssetClass{AssetStock, AssetRealEstateFund, AssetETF, AssetBDR, AssetFixedIncome, AssetCrypto}

func (a AssetClass) Valid() bool {
	for _, c := range AssetClasses {
		if a == c {
			return true
		}
	}
	return false
}

// Label returns the Portuguese display name used in reports.
func (a AssetClass) Label() string {
	switch a {
	case AssetStock:
		return "Ações"
	case AssetRealEstateFund:
		return "Fundos Imobiliários"
	case AssetETF:
		return "ETFs"
	case AssetBDR:
		return "BDRs"
	case AssetFixedIncome:
		return "Renda Fixa"
	case AssetCrypto:
		return "Criptomoedas"
	}
	return string(a)
}

// TransactionType is the kind of event recorded in the log.
type TransactionType string

const (
	TxBuy      TransactionType = "BUY"
	TxSell     TransactionType = "SELL"
	TxSplit    TransactionType = "SPLIT"
	TxInplit   TransactionType = "INPLIT"
	TxDividend TransactionType = "DIVIDEND"
	TxJCP      TransactionType = "JCP"
	TxBonus    TransactionType = "BONUS"
)

var TransactionTypes = []TransactionType{TxBuy, TxSell, TxSplit, TxInplit, TxDividend, TxJCP, TxBonus}

func (t TransactionType) Valid() bool {
	for _, c := range TransactionTypes {
		if t == c {
			return true
		}
	}
	return false
}

// IsCorporateAction reports whether the quantity field carries a factor or a
// bonus amount instead of traded shares.
func (t TransactionType) IsCorporateAction() bool {
	return t == TxSplit || t == TxInplit || t == TxBonus
}

// TradeType separates swing trades from day trades for tax purposes.
type TradeType string

const (
	SwingTrade TradeType = "SWING_TRADE"
	DayTrade   TradeType = "DAY_TRADE"
)

func (t TradeType) Valid() bool { return t == SwingTrade || t == DayTrade }

// Currency of a transaction's price.
type Currency string

const (
	BRL Currency = "BRL"
	USD Currency = "USD"
)

func (c Currency) Valid() bool { return c == BRL || c == USD }

func ParseAssetClass(s string) (AssetClass, error) {
	v := AssetClass(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown asset class %q", s)
	}
	return v, nil
}

func ParseTransactionType(s string) (TransactionType, error) {
	v := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return v, nil
}

func ParseTradeType(s string) (TradeType, error) {
	v := TradeType(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown trade type %q", s)
	}
	return v, nil
}

func ParseCurrency(s string) (Currency, error) {
	v := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("unknown currency %q", s)
	}
	return v, nil
}
