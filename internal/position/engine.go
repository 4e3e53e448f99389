// Package position replays the transaction log into per-institution holdings
// priced at the ticker-wide weighted average cost.
//
// Brazilian tax rules define the average price of a ticker across every
// custodian holding it, so the engine keeps two tables: one row per
// (ticker, institution) and one aggregate per ticker. Every transaction that
// moves the aggregate propagates its average back to all rows of the ticker.
//
// An Engine is not safe for concurrent use. Transactions must be fed in
// ascending (date, id) order; the engine never sorts.
package position

import (
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/shopspring/decimal"
)

type rowKey struct {
	ticker      string
	institution string
}

// row is the holding at one institution. Its avgPrice is a cached copy of
// the aggregate's; the aggregate is found by ticker lookup, never by pointer.
type row struct {
	ticker      string
	institution string
	assetClass  models.AssetClass
	currency    models.Currency
	quantity    decimal.Decimal
	avgPrice    decimal.Decimal
	totalCost   decimal.Decimal
}

// aggregate is the ticker-wide total across institutions.
type aggregate struct {
	quantity  decimal.Decimal
	totalCost decimal.Decimal
	avgPrice  decimal.Decimal
}

// Engine is the stateful cost-basis calculator.
type Engine struct {
	rows    map[rowKey]*row
	order   []rowKey
	globals map[string]*aggregate
	// byTicker indexes the keys of rows per ticker. Rows are owned by rows.
	byTicker map[string][]rowKey
}

// New returns an empty engine.
func New() *Engine {
	e := &Engine{}
	e.Reset()
	return e
}

// Reset drops every position and aggregate.
func (e *Engine) Reset() {
	e.rows = make(map[rowKey]*row)
	e.order = nil
	e.globals = make(map[string]*aggregate)
	e.byTicker = make(map[string][]rowKey)
}

// Process applies one transaction and returns the sale event for a SELL,
// nil otherwise.
func (e *Engine) Process(tx models.Transaction) *models.SaleEvent {
	r := e.row(tx)

	switch tx.Type {
	case models.TxBuy:
		e.buy(r, tx)
	case models.TxSell:
		return e.sell(r, tx)
	case models.TxSplit:
		e.split(r, tx)
	case models.TxInplit:
		e.inplit(r, tx)
	case models.TxBonus:
		e.bonus(r, tx)
	case models.TxDividend, models.TxJCP:
		// no position effect
	}
	return nil
}

// Replay processes txs in the given order and collects the sale events.
func (e *Engine) Replay(txs []models.Transaction) []models.SaleEvent {
	var sales []models.SaleEvent
	for _, tx := range txs {
		if sale := e.Process(tx); sale != nil {
			sales = append(sales, *sale)
		}
	}
	return sales
}

func (e *Engine) row(tx models.Transaction) *row {
	key := rowKey{ticker: tx.Ticker, institution: tx.Institution}
	if r, ok := e.rows[key]; ok {
		return r
	}
	r := &row{
		ticker:      tx.Ticker,
		institution: tx.Institution,
		assetClass:  tx.AssetClass,
		currency:    tx.Currency,
	}
	e.rows[key] = r
	e.order = append(e.order, key)
	e.byTicker[tx.Ticker] = append(e.byTicker[tx.Ticker], key)
	return r
}

func (e *Engine) global(ticker string) *aggregate {
	g, ok := e.globals[ticker]
	if !ok {
		g = &aggregate{}
		e.globals[ticker] = g
	}
	return g
}

func (e *Engine) buy(r *row, tx models.Transaction) {
	cost := money.Monetary(tx.Quantity.Mul(tx.Price))

	r.quantity = money.Quantity(r.quantity.Add(tx.Quantity))
	r.totalCost = money.Monetary(r.totalCost.Add(cost))

	g := e.global(tx.Ticker)
	g.quantity = money.Quantity(g.quantity.Add(tx.Quantity))
	g.totalCost = money.Monetary(g.totalCost.Add(cost))
	g.avgPrice = money.Ratio(g.totalCost, g.quantity)

	e.propagate(tx.Ticker)
}

func (e *Engine) sell(r *row, tx models.Transaction) *models.SaleEvent {
	g := e.global(tx.Ticker)
	avg := g.avgPrice

	costOfSold := money.Monetary(tx.Quantity.Mul(avg))
	proceeds := money.Monetary(tx.Quantity.Mul(tx.Price))
	gainLoss := money.Monetary(proceeds.Sub(costOfSold))

	if qty := money.Quantity(r.quantity.Sub(tx.Quantity)); qty.IsPositive() {
		r.quantity = qty
		r.totalCost = money.Monetary(qty.Mul(avg))
	} else {
		r.quantity = money.Zero
		r.totalCost = money.Zero
	}

	if qty := money.Quantity(g.quantity.Sub(tx.Quantity)); qty.IsPositive() {
		g.quantity = qty
		g.totalCost = money.Monetary(qty.Mul(avg))
	} else {
		g.quantity = money.Zero
		g.totalCost = money.Zero
		g.avgPrice = money.Zero
	}

	e.propagate(tx.Ticker)

	return &models.SaleEvent{
		Ticker:     tx.Ticker,
		Date:       tx.Date,
		TradeType:  tx.TradeType,
		AssetClass: tx.AssetClass,
		Quantity:   tx.Quantity,
		SalePrice:  tx.Price,
		AvgCost:    avg,
		Proceeds:   proceeds,
		CostOfSold: costOfSold,
		GainLoss:   gainLoss,
		Currency:   tx.Currency,
		FXRate:     tx.FXRate,
	}
}

// split multiplies the row's quantity by the factor carried in Quantity.
// The corporate action is recorded once per institution, so the aggregate
// is rebuilt from all rows of the ticker instead of applying a delta.
func (e *Engine) split(r *row, tx models.Transaction) {
	factor := tx.Quantity
	if !factor.IsPositive() {
		return
	}
	r.quantity = money.Quantity(r.quantity.Mul(factor))
	e.recompute(tx.Ticker)
}

// inplit is the reverse split: the row's quantity is divided by the factor.
func (e *Engine) inplit(r *row, tx models.Transaction) {
	factor := tx.Quantity
	if !factor.IsPositive() {
		return
	}
	r.quantity = money.Quantity(r.quantity.Div(factor))
	e.recompute(tx.Ticker)
}

// bonus adds shares at zero cost, lowering the average.
func (e *Engine) bonus(r *row, tx models.Transaction) {
	if !tx.Quantity.IsPositive() {
		return
	}
	r.quantity = money.Quantity(r.quantity.Add(tx.Quantity))

	g := e.global(tx.Ticker)
	g.quantity = money.Quantity(g.quantity.Add(tx.Quantity))
	g.avgPrice = money.Ratio(g.totalCost, g.quantity)

	e.propagate(tx.Ticker)
}

// recompute rebuilds the ticker aggregate by summing its rows, then
// propagates the new average.
func (e *Engine) recompute(ticker string) {
	qty, cost := money.Zero, money.Zero
	for _, key := range e.byTicker[ticker] {
		r := e.rows[key]
		qty = money.Quantity(qty.Add(r.quantity))
		cost = money.Monetary(cost.Add(r.totalCost))
	}
	g := e.global(ticker)
	g.quantity = qty
	g.totalCost = cost
	g.avgPrice = money.Ratio(cost, qty)

	e.propagate(ticker)
}

// propagate copies the ticker's average to every row and reprices each
// row's cost as quantity × average.
func (e *Engine) propagate(ticker string) {
	g, ok := e.globals[ticker]
	if !ok {
		return
	}
	for _, key := range e.byTicker[ticker] {
		r := e.rows[key]
		r.avgPrice = g.avgPrice
		if r.quantity.IsPositive() {
			r.totalCost = money.Monetary(r.quantity.Mul(g.avgPrice))
		} else {
			r.totalCost = money.Zero
		}
	}
}
