package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/app"
	"github.com/marcusaleks/Portfolio-Manager/internal/config"
	"github.com/marcusaleks/Portfolio-Manager/internal/http"
	"github.com/marcusaleks/Portfolio-Manager/internal/logger"
	"github.com/marcusaleks/Portfolio-Manager/internal/scheduler"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to open store")
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Error("failed to close store")
		}
	}()

	cron := scheduler.New(log, ctx)
	if cfg.RebuildSchedule != "" {
		if _, err := cron.ScheduleRebuild(cfg.RebuildSchedule, a.Service); err != nil {
			log.WithError(err).Fatal("invalid REBUILD_SCHEDULE")
		}
		cron.Start()
		defer cron.Stop()
	}

	srv := &nethttp.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           http.Router(a.Service, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("portfolio service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.WithError(err).Error("server stopped")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
