package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler owns a Store and the single ticker goroutine that checks it.
// Construct one per process and pass it to the front ends.
type Scheduler struct {
	store    *Store
	alerter  *Alerter
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SchedulerOption func(*Scheduler)

// WithInterval sets the check interval. It must stay under a minute so no
// HH:MM boundary is skipped.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

func WithSchedulerLogger(l *zap.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

func NewScheduler(store *Store, alerter *Alerter, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:    store,
		alerter:  alerter,
		interval: DefaultInterval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	return s
}

// Store returns the scheduler's store.
func (s *Scheduler) Store() *Store {
	return s.store
}

func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Start stops any running ticker, checks once synchronously, then checks
// every interval until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	s.Check(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(runCtx, done)

	s.logger.Info("started", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels the ticker goroutine and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.logger.Info("stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check fires every reminder scheduled for the current minute that has not
// fired today, and returns them. The list is persisted once per check.
func (s *Scheduler) Check(ctx context.Context) []Reminder {
	now := s.store.Now()
	clock, dateKey := ClockTime(now), DateKey(now)

	due := s.store.markDue(ctx, clock, dateKey)
	if len(due) == 0 {
		return nil
	}

	s.logger.Info("reminders due", zap.Int("count", len(due)), zap.String("time", clock), zap.String("date", dateKey))
	for _, r := range due {
		s.alerter.Fire(ctx, r)
	}
	return due
}

// Add creates a reminder and checks immediately, so a reminder set for the
// current minute fires at once.
func (s *Scheduler) Add(ctx context.Context, medicine, clock string) (Reminder, error) {
	r, err := s.store.Add(ctx, medicine, clock)
	if err != nil {
		return r, err
	}
	s.Check(ctx)
	return r, nil
}

func (s *Scheduler) MarkTaken(ctx context.Context, id int64) (bool, error) {
	return s.store.MarkTaken(ctx, id)
}

func (s *Scheduler) Delete(ctx context.Context, id int64) (bool, error) {
	return s.store.Delete(ctx, id)
}

func (s *Scheduler) List() []Reminder {
	return s.store.List()
}
