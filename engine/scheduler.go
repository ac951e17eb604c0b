package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mskavach/kavach/model"
)

// DefaultTickInterval is the scheduler cadence (two evaluations per second).
const DefaultTickInterval = 500 * time.Millisecond

// SchedulerHooks are called from the scheduler goroutine. They must not
// call Arm or Stop on the same scheduler.
type SchedulerHooks struct {
	OnChange func(model.PhaseChange) // a timed transition fired
	OnStale  func(gen uint64)        // the armed generation was superseded
}

// Scheduler drives Engine.Tick while an escalation is in flight and goes
// idle once the phase is NORMAL or CONTROL_ALERT.
type Scheduler struct {
	eng      *Engine
	clock    Clock
	interval time.Duration
	hooks    SchedulerHooks
	logger   *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewScheduler creates an idle scheduler.
func NewScheduler(eng *Engine, clock Clock, interval time.Duration, hooks SchedulerHooks, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		eng:      eng,
		clock:    clock,
		interval: interval,
		hooks:    hooks,
		logger:   logger,
	}
}

// Arm starts ticking for generation gen, superseding any earlier run.
func (s *Scheduler) Arm(ctx context.Context, gen uint64) {
	s.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.running = true
	s.mu.Unlock()

	s.logger.Debug("scheduler armed", "generation", gen, "interval", s.interval)
	go s.run(runCtx, cancel, gen, done)
}

// Stop halts the current run, if any, and waits for it to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether a tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, cancel context.CancelFunc, gen uint64, done chan struct{}) {
	t := time.NewTicker(s.interval)
	defer func() {
		t.Stop()
		cancel()
		s.mu.Lock()
		if s.done == done || s.done == nil {
			s.running = false
		}
		s.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		if !s.eng.Current(gen) {
			s.logger.Debug("scheduler generation superseded", "generation", gen)
			if s.hooks.OnStale != nil {
				s.hooks.OnStale(gen)
			}
			return
		}

		if change, ok := s.eng.TickIfCurrent(gen, s.clock.Now()); ok && s.hooks.OnChange != nil {
			s.hooks.OnChange(change)
		}

		if !s.eng.Phase().Escalating() {
			s.logger.Debug("scheduler idle", "generation", gen, "phase", s.eng.Phase().String())
			return
		}
	}
}
