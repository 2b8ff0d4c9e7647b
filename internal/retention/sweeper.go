package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"attendtrack/internal/metrics"
)

// Purger hard-deletes students soft-deleted before a cutoff.
type Purger interface {
	PurgeDeletedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Sweeper empties recycle-bin entries older than the retention period.
type Sweeper struct {
	purger   Purger
	log      zerolog.Logger
	period   time.Duration
	interval time.Duration
	schedule cron.Schedule
	now      func() time.Time

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewSweeper creates a sweeper. Zero durations fall back to 30 days and 24 hours.
func NewSweeper(purger Purger, log zerolog.Logger, period, interval time.Duration) *Sweeper {
	if period <= 0 {
		period = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Sweeper{
		purger:   purger,
		log:      log,
		period:   period,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Sweep runs one pass and returns the number of students purged.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.period)
	ids, err := s.purger.PurgeDeletedBefore(ctx, cutoff)
	metrics.RetentionPurged.Add(float64(len(ids)))
	if err != nil {
		s.log.Error().Err(err).Int("purged", len(ids)).Msg("retention sweep failed")
		return len(ids), err
	}
	if len(ids) > 0 {
		s.log.Info().Int("purged", len(ids)).Time("cutoff", cutoff).Msg("retention sweep purged students")
	}
	return len(ids), nil
}

// Schedule switches the loop from the fixed interval to a five-field cron
// spec such as "0 3 * * *". Call it before Start.
func (s *Sweeper) Schedule(spec string) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("retention schedule %q: %w", spec, err)
	}
	s.schedule = sched
	return nil
}

// next is the wait before the following pass.
func (s *Sweeper) next() time.Duration {
	if s.schedule == nil {
		return s.interval
	}
	now := s.now()
	return s.schedule.Next(now).Sub(now)
}

// Start sweeps once immediately and then on every interval (or cron tick)
// until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
	ev := s.log.Info().Dur("period", s.period)
	if s.schedule != nil {
		ev = ev.Time("next", s.now().Add(s.next()))
	} else {
		ev = ev.Dur("interval", s.interval)
	}
	ev.Msg("retention sweeper started")
}

// Stop signals the loop to exit and waits for it.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.log.Info().Msg("retention sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	s.sweepOnce(ctx)
	timer := time.NewTimer(s.next())
	defer timer.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
			s.sweepOnce(ctx)
			timer.Reset(s.next())
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	_, _ = s.Sweep(ctx)
}
