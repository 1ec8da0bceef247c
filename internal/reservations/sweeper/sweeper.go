// Package sweeper periodically expires bookings that stayed unconfirmed
// for longer than the pending TTL, returning their slots to availability.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"nailbook/pkg/logger"
)

type Expirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

type Sweeper struct {
	expirer  Expirer
	ttl      time.Duration
	timeout  time.Duration
	schedule string
	loc      *time.Location
	log      *logger.Logger
	now      func() time.Time
}

// New builds a sweeper running on a standard cron schedule (including
// descriptors such as "@every 5m"). Each run is bounded by timeout.
func New(expirer Expirer, schedule string, ttl, timeout time.Duration, loc *time.Location, log *logger.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		ttl:      ttl,
		timeout:  timeout,
		schedule: schedule,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}
}

// RunOnce expires every booking created more than ttl ago.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().UTC().Add(-s.ttl)
	n, err := s.expirer.ExpireStale(ctx, cutoff)
	if err != nil {
		s.log.Error("Sweep failed", "cutoff", cutoff, "expired", n, "error", err)
		return n, err
	}
	s.log.Debug("Sweep finished", "cutoff", cutoff, "expired", n)
	return n, nil
}

// Run schedules RunOnce and blocks until ctx is cancelled. Overlapping runs
// are skipped, and a run in progress is awaited before returning.
func (s *Sweeper) Run(ctx context.Context) error {
	cl := cronLogger{log: s.log}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(s.schedule, func() {
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}

	c.Start()
	s.log.Info("Sweeper started", "schedule", s.schedule, "pending_ttl", s.ttl)

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("Sweeper stopped")
	return ctx.Err()
}

// cronLogger routes cron's own logging into the service logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
