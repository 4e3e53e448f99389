package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/marcusaleks/Portfolio-Manager/internal/position"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/writequeue"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SaveTransaction inserts tx when its ID is zero and updates it otherwise.
// Sales are checked against the holding at their date. The positions of the
// ticker and the custodian table are refreshed in the same write.
func (s *PortfolioService) SaveTransaction(ctx context.Context, tx models.Transaction) (*models.Transaction, error) {
	tx, err := s.prepare(tx)
	if err != nil {
		return nil, err
	}

	return writequeue.Do(ctx, s.queue, "save-transaction", func(ctx context.Context, st repository.Store) (*models.Transaction, error) {
		tickers := []string{tx.Ticker}
		if tx.ID != 0 {
			existing, err := st.GetTransaction(ctx, tx.ID)
			if err != nil {
				return nil, err
			}
			if existing.Ticker != tx.Ticker {
				tickers = append(tickers, existing.Ticker)
			}
		}

		if tx.Type == models.TxSell {
			if err := s.checkFeasibility(ctx, st, tx); err != nil {
				return nil, err
			}
		}

		id := tx.ID
		if id == 0 {
			newID, err := st.InsertTransaction(ctx, tx)
			if err != nil {
				return nil, err
			}
			id = newID
		} else if err := st.UpdateTransaction(ctx, tx); err != nil {
			return nil, err
		}

		for _, ticker := range tickers {
			if err := s.recomputeTicker(ctx, st, ticker); err != nil {
				return nil, err
			}
		}
		if err := rebuildCustodians(ctx, st); err != nil {
			return nil, err
		}

		s.logger.WithFields(logrus.Fields{"id": id, "ticker": tx.Ticker, "type": tx.Type}).Info("transaction saved")
		return st.GetTransaction(ctx, id)
	})
}

// DeleteTransaction removes the transaction and refreshes its ticker.
func (s *PortfolioService) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := writequeue.Do(ctx, s.queue, "delete-transaction", func(ctx context.Context, st repository.Store) (struct{}, error) {
		existing, err := st.GetTransaction(ctx, id)
		if err != nil {
			return struct{}{}, err
		}
		if err := st.DeleteTransaction(ctx, id); err != nil {
			return struct{}{}, err
		}
		if err := s.recomputeTicker(ctx, st, existing.Ticker); err != nil {
			return struct{}{}, err
		}
		s.logger.WithFields(logrus.Fields{"id": id, "ticker": existing.Ticker}).Info("transaction deleted")
		return struct{}{}, rebuildCustodians(ctx, st)
	})
	return err
}

// prepare normalizes tx and applies the field rules.
func (s *PortfolioService) prepare(tx models.Transaction) (models.Transaction, error) {
	if tx.TradeType == "" {
		tx.TradeType = models.SwingTrade
	}
	if tx.Currency == "" {
		tx.Currency = models.BRL
	}
	tx = tx.Normalized()

	switch {
	case tx.Ticker == "":
		return tx, fmt.Errorf("%w: ticker is required", ErrValidation)
	case strings.TrimSpace(tx.Institution) == "":
		return tx, fmt.Errorf("%w: institution is required", ErrValidation)
	case tx.Date.IsZero():
		return tx, fmt.Errorf("%w: date is required", ErrValidation)
	case !tx.AssetClass.Valid():
		return tx, fmt.Errorf("%w: unknown asset class %q", ErrValidation, tx.AssetClass)
	case !tx.Type.Valid():
		return tx, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, tx.Type)
	case !tx.TradeType.Valid():
		return tx, fmt.Errorf("%w: unknown trade type %q", ErrValidation, tx.TradeType)
	case !tx.Currency.Valid():
		return tx, fmt.Errorf("%w: unknown currency %q", ErrValidation, tx.Currency)
	case !tx.Quantity.IsPositive():
		return tx, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	case tx.Price.IsNegative():
		return tx, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	case tx.FXRate.IsNegative():
		return tx, fmt.Errorf("%w: fx rate cannot be negative", ErrValidation)
	}

	if tx.Currency == models.BRL {
		tx.FXRate = decimal.NewFromInt(1)
		return tx, nil
	}
	if !tx.FXRate.IsPositive() {
		if s.opts.TaxStrictMode {
			return tx, fmt.Errorf("%w: strict mode requires the PTAX rate for USD transactions", ErrValidation)
		}
		s.logger.WithField("ticker", tx.Ticker).Warn("USD transaction without fx rate; BRL values will be zero")
	}
	return tx, nil
}

// checkFeasibility replays the institution's history of the ticker up to
// the sale date, leaving out the transaction being edited.
func (s *PortfolioService) checkFeasibility(ctx context.Context, st repository.Store, sale models.Transaction) error {
	all, err := st.ListTransactionsByTicker(ctx, sale.Ticker)
	if err != nil {
		return err
	}

	var history []models.Transaction
	for _, tx := range all {
		if tx.Institution == sale.Institution && tx.ID != sale.ID {
			history = append(history, tx)
		}
	}
	if len(history) == 0 {
		return fmt.Errorf("%w: no %s history at %s", ErrInsufficientPosition, sale.Ticker, sale.Institution)
	}

	eng := position.New()
	for _, tx := range history {
		if tx.Date.After(sale.Date) {
			break
		}
		eng.Process(tx)
	}

	held := money.Zero
	if p, ok := eng.Position(sale.Ticker, sale.Institution); ok {
		held = p.Quantity
	}
	s.logger.WithFields(logrus.Fields{
		"ticker": sale.Ticker, "institution": sale.Institution,
		"date": sale.DateKey(), "held": held.String(), "selling": sale.Quantity.String(),
	}).Debug("sell feasibility")

	if !held.IsPositive() {
		return fmt.Errorf("%w: no %s held at %s on %s", ErrInsufficientPosition, sale.Ticker, sale.Institution, sale.DateKey())
	}
	if sale.Quantity.GreaterThan(held) {
		return fmt.Errorf("%w: selling %s %s exceeds the %s held at %s on %s",
			ErrInsufficientPosition, sale.Quantity, sale.Ticker, held, sale.Institution, sale.DateKey())
	}
	return nil
}

// recomputeTicker replays the full history of ticker across institutions
// and stores the result. Rows the replay no longer produces are zeroed.
func (s *PortfolioService) recomputeTicker(ctx context.Context, st repository.Store, ticker string) error {
	txs, err := st.ListTransactionsByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	eng := position.New()
	eng.Replay(txs)

	fresh := eng.Positions()
	produced := make(map[string]struct{}, len(fresh))
	for _, p := range fresh {
		produced[p.Key()] = struct{}{}
		if err := st.UpsertPosition(ctx, p); err != nil {
			return err
		}
	}

	stored, err := st.ListPositionsByTicker(ctx, ticker)
	if err != nil {
		return err
	}
	for _, p := range stored {
		if _, ok := produced[p.Key()]; ok {
			continue
		}
		p.Quantity, p.AvgPrice, p.TotalCost = money.Zero, money.Zero, money.Zero
		if err := st.UpsertPosition(ctx, p); err != nil {
			return err
		}
	}

	s.logger.WithFields(logrus.Fields{"ticker": ticker, "positions": len(fresh)}).Debug("ticker recomputed")
	return nil
}

func rebuildCustodians(ctx context.Context, st repository.Store) error {
	open, err := st.ListOpenPositions(ctx)
	if err != nil {
		return err
	}
	return st.RebuildCustodians(ctx, models.CustodiansFrom(open))
}
