package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/importer"
	"github.com/marcusaleks/Portfolio-Manager/internal/models"
	"github.com/marcusaleks/Portfolio-Manager/internal/money"
	"github.com/marcusaleks/Portfolio-Manager/internal/position"
	"github.com/marcusaleks/Portfolio-Manager/internal/pricing"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/tax"
	"github.com/marcusaleks/Portfolio-Manager/internal/writequeue"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultAuditLimit caps audit listings when the caller gives no limit.
const DefaultAuditLimit = 100

// TaxReport collates the monthly results of one month, or of every month
// when Month is empty.
type TaxReport struct {
	Month           string             `json:"month,omitempty"`
	Results         []models.TaxResult `json:"results"`
	TotalTaxDue     decimal.Decimal    `json:"totalTaxDue"`
	TotalWithheld   decimal.Decimal    `json:"totalWithheld"`
	TotalNetPayable decimal.Decimal    `json:"totalNetPayable"`
}

func (s *PortfolioService) ListTransactions(ctx context.Context, ticker string) ([]models.Transaction, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return s.store.ListTransactions(ctx)
	}
	return s.store.ListTransactionsByTicker(ctx, ticker)
}

func (s *PortfolioService) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *PortfolioService) ListPositions(ctx context.Context, openOnly bool) ([]models.Position, error) {
	if openOnly {
		return s.store.ListOpenPositions(ctx)
	}
	return s.store.ListPositions(ctx)
}

func (s *PortfolioService) Custodians(ctx context.Context) ([]models.Custodian, error) {
	return s.store.ListCustodians(ctx)
}

func (s *PortfolioService) TaxLosses(ctx context.Context) ([]models.TaxLoss, error) {
	return s.store.ListTaxLosses(ctx)
}

func (s *PortfolioService) Audit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.store.ListAudit(ctx, limit)
}

// TaxReport replays the whole log and returns the results of month
// (YYYY-MM). Earlier months are still computed so carried losses are right.
func (s *PortfolioService) TaxReport(ctx context.Context, month string) (TaxReport, error) {
	month = strings.TrimSpace(month)
	if month != "" {
		if _, err := time.Parse(models.MonthLayout, month); err != nil {
			return TaxReport{}, fmt.Errorf("%w: month must be YYYY-MM", ErrValidation)
		}
	}

	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return TaxReport{}, err
	}
	sales := position.New().Replay(txs)
	all := s.calc.CalculateAll(sales, tax.LossLedger{})

	report := TaxReport{
		Month:           month,
		Results:         []models.TaxResult{},
		TotalTaxDue:     money.Zero,
		TotalWithheld:   money.Zero,
		TotalNetPayable: money.Zero,
	}
	for _, r := range all {
		if month != "" && r.Month != month {
			continue
		}
		report.Results = append(report.Results, r)
		report.TotalTaxDue = report.TotalTaxDue.Add(r.TaxDue)
		report.TotalWithheld = report.TotalWithheld.Add(r.Withheld)
		report.TotalNetPayable = report.TotalNetPayable.Add(r.NetPayable)
	}
	return report, nil
}

// CorporateActions compares each open position's average with the latest
// quote. Failed lookups are logged and skipped.
func (s *PortfolioService) CorporateActions(ctx context.Context) ([]pricing.CorporateActionAlert, error) {
	open, err := s.store.ListOpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	alerts := []pricing.CorporateActionAlert{}
	checked := map[string]struct{}{}
	for _, p := range open {
		if !p.AvgPrice.IsPositive() {
			continue
		}
		// the average is shared by every institution of the ticker
		if _, seen := checked[p.Ticker]; seen {
			continue
		}
		checked[p.Ticker] = struct{}{}

		quote, err := s.priceSvc.GetLatestPrice(ctx, p.Ticker)
		if err != nil {
			s.logger.WithError(err).WithField("ticker", p.Ticker).Warn("price lookup failed")
			continue
		}
		if alert := pricing.CheckCorporateAction(p, quote, s.opts.CorporateActionThreshold); alert != nil {
			s.logger.WithFields(logrus.Fields{"ticker": p.Ticker, "deviation": alert.Deviation.String()}).Warn(alert.Message)
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

// PreviewB3 parses a B3 export without saving anything.
func (s *PortfolioService) PreviewB3(r io.Reader) (importer.Preview, error) {
	return s.importer.Parse(r)
}

// ImportTransactions saves a reviewed preview in date order and refreshes
// the affected tickers. Field rules apply; sales are not checked against
// holdings since the batch may carry their purchases.
func (s *PortfolioService) ImportTransactions(ctx context.Context, txs []models.Transaction) (int, error) {
	prepared := make([]models.Transaction, 0, len(txs))
	for i, tx := range txs {
		tx.ID = 0
		p, err := s.prepare(tx)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		prepared = append(prepared, p)
	}
	models.SortTransactions(prepared)

	return writequeue.Do(ctx, s.queue, "import-transactions", func(ctx context.Context, st repository.Store) (int, error) {
		var tickers []string
		for _, tx := range prepared {
			if _, err := st.InsertTransaction(ctx, tx); err != nil {
				return 0, err
			}
			if !slices.Contains(tickers, tx.Ticker) {
				tickers = append(tickers, tx.Ticker)
			}
		}
		for _, ticker := range tickers {
			if err := s.recomputeTicker(ctx, st, ticker); err != nil {
				return 0, err
			}
		}
		if err := rebuildCustodians(ctx, st); err != nil {
			return 0, err
		}
		s.logger.WithField("count", len(prepared)).Info("transactions imported")
		return len(prepared), nil
	})
}
