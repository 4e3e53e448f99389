package service

import (
	"context"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/marcusaleks/Portfolio-Manager/internal/position"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// HoldingValue marks one ticker, summed across institutions, to market.
type HoldingValue struct {
	Ticker         string          `json:"ticker"`
	Currency       models.Currency `json:"currency"`
	Quantity       decimal.Decimal `json:"quantity"`
	AvgPrice       decimal.Decimal `json:"avgPrice"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	Price          decimal.Decimal `json:"price"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
	Display        string          `json:"display"`
}

// Valuation totals are kept per currency; USD holdings are not converted.
type Valuation struct {
	Holdings    []HoldingValue                      `json:"holdings"`
	MarketValue map[models.Currency]decimal.Decimal `json:"marketValue"`
	TotalCost   map[models.Currency]decimal.Decimal `json:"totalCost"`
}

// DayValue is the portfolio value at the close of a day with activity.
type DayValue struct {
	Date   string                              `json:"date"`
	Values map[models.Currency]decimal.Decimal `json:"values"`
}

// Valuation prices the open positions with the latest quotes. Tickers
// without a quote are left out.
func (s *PortfolioService) Valuation(ctx context.Context) (Valuation, error) {
	open, err := s.store.ListOpenPositions(ctx)
	if err != nil {
		return Valuation{}, err
	}

	byTicker := map[string]*HoldingValue{}
	var order []string
	for _, p := range open {
		h, ok := byTicker[p.Ticker]
		if !ok {
			h = &HoldingValue{Ticker: p.Ticker, Currency: p.Currency, AvgPrice: p.AvgPrice, Quantity: money.Zero, TotalCost: money.Zero}
			byTicker[p.Ticker] = h
			order = append(order, p.Ticker)
		}
		h.Quantity = h.Quantity.Add(p.Quantity)
		h.TotalCost = h.TotalCost.Add(p.TotalCost)
	}

	out := Valuation{
		Holdings:    []HoldingValue{},
		MarketValue: map[models.Currency]decimal.Decimal{},
		TotalCost:   map[models.Currency]decimal.Decimal{},
	}
	for _, ticker := range order {
		h := byTicker[ticker]
		quote, err := s.priceSvc.GetLatestPrice(ctx, ticker)
		if err != nil {
			s.logger.WithError(err).WithField("ticker", ticker).Warn("price lookup failed")
			continue
		}
		h.Price = quote.Price
		h.MarketValue = money.Monetary(quote.Price.Mul(h.Quantity))
		h.UnrealizedGain = money.Monetary(h.MarketValue.Sub(h.TotalCost))
		h.Display = money.Format(h.MarketValue, string(h.Currency))

		out.Holdings = append(out.Holdings, *h)
		out.MarketValue[h.Currency] = out.MarketValue[h.Currency].Add(h.MarketValue)
		out.TotalCost[h.Currency] = out.TotalCost[h.Currency].Add(h.TotalCost)
	}
	return out, nil
}

// History values the holdings at the end of every day that has
// transactions, using historical prices.
func (s *PortfolioService) History(ctx context.Context) ([]DayValue, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	eng := position.New()
	currencies := map[string]models.Currency{}
	var tickers []string
	result := []DayValue{}
	for i, tx := range txs {
		eng.Process(tx)
		if _, ok := currencies[tx.Ticker]; !ok {
			tickers = append(tickers, tx.Ticker)
		}
		currencies[tx.Ticker] = tx.Currency

		if i+1 < len(txs) && txs[i+1].Date.Equal(tx.Date) {
			continue
		}
		values := map[models.Currency]decimal.Decimal{}
		for _, ticker := range tickers {
			totals, ok := eng.Totals(ticker)
			if !ok || !totals.Quantity.IsPositive() {
				continue
			}
			price, err := s.priceSvc.GetHistoricalPrice(ctx, ticker, tx.Date)
			if err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{"ticker": ticker, "date": tx.DateKey()}).Warn("failed to fetch historical price, skipping")
				continue
			}
			cur := currencies[ticker]
			values[cur] = money.Monetary(values[cur].Add(price.Mul(totals.Quantity)))
		}
		result = append(result, DayValue{Date: tx.DateKey(), Values: values})
	}
	return result, nil
}
