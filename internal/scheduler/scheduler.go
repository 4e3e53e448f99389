// Package scheduler runs periodic maintenance jobs such as full rebuilds.
package scheduler

import (
	"context"
	"time"

	"github.com/marcusaleks/Portfolio-Manager/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Rebuilder is the part of the portfolio service the scheduler drives.
type Rebuilder interface {
	RebuildAll(ctx context.Context) (service.RebuildSummary, error)
}

// Scheduler wraps a seconds-precision cron. A job still running when its
// next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logrus.Entry
	baseCtx context.Context
}

func New(logger *logrus.Logger, baseCtx context.Context) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	entry := logger.WithField("component", "scheduler")
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.Recover(cron.PrintfLogger(entry)), cron.SkipIfStillRunning(cron.PrintfLogger(entry))),
		),
		logger:  entry,
		baseCtx: baseCtx,
	}
}

// Add registers job on a cron schedule. Failures are logged; they never stop the
// schedule.
func (s *Scheduler) Add(schedule, name string, job func(context.Context) error) (cron.EntryID, error) {
	return s.cron.AddFunc(schedule, func() {
		start := time.Now()
		log := s.logger.WithField("job", name)
		if err := job(s.baseCtx); err != nil {
			log.WithError(err).Error("scheduled job failed")
			return
		}
		log.WithField("took", time.Since(start).String()).Info("scheduled job finished")
	})
}

// ScheduleRebuild registers a full rebuild on schedule.
func (s *Scheduler) ScheduleRebuild(schedule string, svc Rebuilder) (cron.EntryID, error) {
	return s.Add(schedule, "rebuild", func(ctx context.Context) error {
		summary, err := svc.RebuildAll(ctx)
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"run_id":    summary.RunID,
			"positions": summary.Positions,
			"sales":     summary.Sales,
		}).Debug("scheduled rebuild summary")
		return nil
	})
}

// Entries is the number of registered jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.logger.Info("scheduler started")
	s.cron.Start()
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
