package tasks

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Expirer cancels entries left active from earlier service days.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// Scheduler runs the end-of-day sweep on a cron schedule with a seconds field.
type Scheduler struct {
	cron    *cron.Cron
	expirer Expirer
	logger  logrus.FieldLogger
	timeout time.Duration
}

func NewScheduler(expirer Expirer, logger logrus.FieldLogger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: expirer,
		logger:  logger,
		timeout: time.Minute,
	}
}

// InitSweep registers the stale-entry sweep under spec, e.g. "0 5 0 * * *".
func (s *Scheduler) InitSweep(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return errors.Wrapf(err, "tasks: schedule sweep %q", spec)
	}
	return nil
}

// Sweep expires stale entries once. Errors are logged; the next run retries.
func (s *Scheduler) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireStale(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("expired", n).Error("stale entry sweep failed")
		return
	}
	s.logger.WithField("expired", n).Info("stale entry sweep finished")
}

// Start runs the scheduler until ctx is done, then waits for a running sweep.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.Info("cron scheduler started")
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("cron scheduler stopped")
	}()
}

// Entries exposes the registered jobs, mostly for diagnostics.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}
