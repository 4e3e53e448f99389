package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/position"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/tax"
	"github.com/marcusaleks/Portfolio-Manager/internal/writequeue"
	"github.com/sirupsen/logrus"
)

// RebuildSummary reports what a full rebuild produced.
type RebuildSummary struct {
	RunID         string    `json:"runId"`
	Transactions  int       `json:"transactions"`
	Positions     int       `json:"positions"`
	OpenPositions int       `json:"openPositions"`
	Sales         int       `json:"sales"`
	TaxResults    int       `json:"taxResults"`
	CompletedAt   time.Time `json:"completedAt"`
}

// RebuildAll drops the derived tables and regenerates them from the
// transaction log in one write.
func (s *PortfolioService) RebuildAll(ctx context.Context) (RebuildSummary, error) {
	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)
	log.Info("rebuild started")

	summary, err := writequeue.Do(ctx, s.queue, "rebuild-all", func(ctx context.Context, st repository.Store) (RebuildSummary, error) {
		summary := RebuildSummary{RunID: runID}
		if err := st.ClearPositions(ctx); err != nil {
			return summary, err
		}
		if err := st.ClearTaxLosses(ctx); err != nil {
			return summary, err
		}

		txs, err := st.ListTransactions(ctx)
		if err != nil {
			return summary, err
		}
		eng := position.New()
		sales := eng.Replay(txs)

		positions := eng.Positions()
		for _, p := range positions {
			if err := st.UpsertPosition(ctx, p); err != nil {
				return summary, err
			}
		}
		open := eng.OpenPositions()
		if err := st.RebuildCustodians(ctx, models.CustodiansFrom(open)); err != nil {
			return summary, err
		}

		results := s.calc.CalculateAll(sales, tax.LossLedger{})
		for _, r := range results {
			if err := st.UpsertTaxLoss(ctx, models.TaxLoss{
				AssetClass:      r.AssetClass,
				TradeType:       r.TradeType,
				AccumulatedLoss: r.LossCarriedOut,
				Month:           r.Month,
			}); err != nil {
				return summary, err
			}
		}

		summary.Transactions = len(txs)
		summary.Positions = len(positions)
		summary.OpenPositions = len(open)
		summary.Sales = len(sales)
		summary.TaxResults = len(results)
		summary.CompletedAt = s.now()
		return summary, nil
	})
	if err != nil {
		log.WithError(err).Error("rebuild failed")
		return RebuildSummary{}, err
	}

	log.WithFields(logrus.Fields{
		"transactions": summary.Transactions,
		"positions":    summary.Positions,
		"tax_results":  summary.TaxResults,
	}).Info("rebuild completed")
	return summary, nil
}
