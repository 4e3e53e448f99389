package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/importer"
	"github.com/marcusaleks/Portfolio-Manager/internal/pricing"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/tax"
	"github.com/marcusaleks/Portfolio-Manager/internal/writequeue"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	ErrValidation = errors.New("validation_error")
	// ErrInsufficientPosition rejects a sale larger than the holding at the
	// sale date. It is a validation error.
	ErrInsufficientPosition = fmt.Errorf("%w: insufficient position", ErrValidation)
	ErrNotFound             = repository.ErrNotFound
)

// Options tunes validation and the corporate-action check.
type Options struct {
	// TaxStrictMode rejects USD transactions without an FX rate.
	TaxStrictMode bool
	// CorporateActionThreshold is the relative price move that raises an
	// alert. Zero uses pricing.DefaultDeviationThreshold.
	CorporateActionThreshold decimal.Decimal
}

// PortfolioService coordinates the transaction log, the derived position and
// tax tables and the price feed. Every write goes through the queue.
type PortfolioService struct {
	store    repository.Store
	queue    *writequeue.Queue
	priceSvc pricing.Service
	importer *importer.B3Importer
	calc     *tax.Calculator
	opts     Options
	now      func() time.Time
	logger   *logrus.Entry
}

func NewPortfolioService(store repository.Store, queue *writequeue.Queue, priceSvc pricing.Service, logger *logrus.Logger, opts Options) *PortfolioService {
	if !opts.CorporateActionThreshold.IsPositive() {
		opts.CorporateActionThreshold = pricing.DefaultDeviationThreshold
	}
	return &PortfolioService{
		store:    store,
		queue:    queue,
		priceSvc: priceSvc,
		importer: importer.NewB3Importer(logger),
		calc:     tax.NewCalculator(),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.WithField("component", "portfolio-service"),
	}
}
