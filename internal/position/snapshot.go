package position

import (
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/shopspring/decimal"
)

// Totals is the ticker-wide aggregate.
type Totals struct {
	Quantity  decimal.Decimal `json:"quantity"`
	TotalCost decimal.Decimal `json:"totalCost"`
	AvgPrice  decimal.Decimal `json:"avgPrice"`
}

// Positions returns every row in first-reference order, fingerprinted.
// Closed rows are included.
func (e *Engine) Positions() []models.Position {
	out := make([]models.Position, 0, len(e.order))
	for _, key := range e.order {
		out = append(out, e.rows[key].snapshot())
	}
	return out
}

// OpenPositions returns the rows holding a positive quantity.
func (e *Engine) OpenPositions() []models.Position {
	var out []models.Position
	for _, p := range e.Positions() {
		if p.IsOpen() {
			out = append(out, p)
		}
	}
	return out
}

// Position returns the row of ticker at institution.
func (e *Engine) Position(ticker, institution string) (models.Position, bool) {
	r, ok := e.rows[rowKey{ticker: ticker, institution: institution}]
	if !ok {
		return models.Position{}, false
	}
	return r.snapshot(), true
}

// Totals returns the aggregate of ticker across institutions.
func (e *Engine) Totals(ticker string) (Totals, bool) {
	g, ok := e.globals[ticker]
	if !ok {
		return Totals{}, false
	}
	return Totals{Quantity: g.quantity, TotalCost: g.totalCost, AvgPrice: g.avgPrice}, true
}

func (r *row) snapshot() models.Position {
	return models.Position{
		Ticker:      r.ticker,
		AssetClass:  r.assetClass,
		Quantity:    r.quantity,
		AvgPrice:    r.avgPrice,
		Currency:    r.currency,
		TotalCost:   r.totalCost,
		Institution: r.institution,
	}.Sealed()
}
