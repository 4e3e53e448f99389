// Package app assembles the store, write queue and portfolio service from
// configuration. Both the HTTP server and the CLI start from here.
package app

import (
	"context"
	"fmt"

	"github.com/marcusaleks/Portfolio-Manager/internal/config"
	"github.com/marcusaleks/Portfolio-Manager/internal/pricing"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/memory"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/postgres"
	"github.com/marcusaleks/Portfolio-Manager/internal/repository/sqlite"
	"github.com/marcusaleks/Portfolio-Manager/internal/service"
	"github.com/marcusaleks/Portfolio-Manager/internal/writequeue"
	"github.com/sirupsen/logrus"
)

type App struct {
	Store   repository.Store
	Queue   *writequeue.Queue
	Service *service.PortfolioService

	closeStore func() error
}

// OpenStore connects the backend chosen by cfg.Store. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (repository.Store, func() error, error) {
	switch cfg.Store() {
	case config.StorePostgres:
		st, err := postgres.Open(ctx, cfg.DBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		log.Info("connected to postgres")
		return st, st.Close, nil
	case config.StoreSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		log.WithField("path", cfg.SQLitePath).Info("opened sqlite database")
		return st, st.Close, nil
	}
	log.Warn("DATABASE_URL and SQLITE_PATH not set, using in-memory store. Data will reset on restart.")
	return memory.New(), func() error { return nil }, nil
}

// New opens the store and starts the write queue.
func New(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	store, closeStore, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	queue := writequeue.New(store, log, cfg.WriteTimeout)
	queue.Start()

	svc := service.NewPortfolioService(store, queue, pricing.NewRandomPriceService(cfg.PriceTTL), log, service.Options{
		TaxStrictMode:            cfg.TaxStrictMode,
		CorporateActionThreshold: cfg.CorporateActionThreshold,
	})
	return &App{Store: store, Queue: queue, Service: svc, closeStore: closeStore}, nil
}

// Close drains the queue before releasing the store.
func (a *App) Close() error {
	a.Queue.Stop()
	return a.closeStore()
}
