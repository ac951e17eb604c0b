package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/model"
)

// ErrAnalysisCanceled is returned by Analyze when a Reset lands while the
// frame is still being classified. The verdict is discarded.
var ErrAnalysisCanceled = errors.New("analysis canceled by reset")

// SessionConfig configures one device session.
type SessionConfig struct {
	Timings      Timings
	TickInterval time.Duration
	Cues         CueConfig
}

// Session wires the engine to its scheduler, cue notifier and metrics.
// It is the only writer of the engine for its lifetime.
type Session struct {
	ctx        context.Context
	eng        *Engine
	sched      *Scheduler
	notifier   *Notifier
	metrics    *Metrics
	classifier classifier.Classifier
	clock      Clock
	logger     *slog.Logger

	mu         sync.Mutex // serializes Submit/Reset with scheduler arming
	epoch      uint64     // bumped by Reset
	analyses   map[int]context.CancelFunc
	nextCancel int

	timerMu    sync.Mutex
	audioTimer *time.Timer
}

// NewSession creates a session in NORMAL. ctx bounds every scheduler run.
func NewSession(ctx context.Context, cfg SessionConfig, cls classifier.Classifier, clock Clock, logger *slog.Logger) *Session {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Session{
		ctx:        ctx,
		eng:        NewEngine(cfg.Timings, WithLogger(logger.With("component", "engine")), WithClock(clock)),
		notifier:   NewNotifier(cfg.Cues, logger.With("component", "cues")),
		metrics:    NewMetrics(),
		classifier: cls,
		clock:      clock,
		logger:     logger,
		analyses:   make(map[int]context.CancelFunc),
	}
	s.sched = NewScheduler(s.eng, clock, cfg.TickInterval, SchedulerHooks{
		OnChange: s.onTimedChange,
		OnStale:  func(uint64) { s.metrics.ObserveStale() },
	}, logger.With("component", "scheduler"))
	return s
}

// Engine returns the session's engine for read access (Snapshot, Subscribe).
func (s *Session) Engine() *Engine { return s.eng }

// Metrics returns the session's metrics.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Scheduler returns the session's tick scheduler.
func (s *Session) Scheduler() *Scheduler { return s.sched }

// Analyze classifies a frame and submits the verdict. A Reset while the
// classifier is running cancels it and the verdict is dropped.
func (s *Session) Analyze(ctx context.Context, f classifier.Frame) (model.TransitionResult, error) {
	if s.classifier == nil {
		return model.TransitionResult{}, fmt.Errorf("analyze %s: no classifier configured", f.ID)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	epoch := s.epoch
	id := s.nextCancel
	s.nextCancel++
	s.analyses[id] = cancel
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.analyses, id)
		s.mu.Unlock()
	}()

	res, err := s.classifier.Classify(ctx, f)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return model.TransitionResult{}, fmt.Errorf("analyze %s: %w", f.ID, ErrAnalysisCanceled)
	}
	if err != nil {
		return model.TransitionResult{}, fmt.Errorf("analyze %s: %w", f.ID, err)
	}
	return s.submit(model.EscalationEvent{
		Classification: res.Label,
		ObservedAt:     s.clock.Now(),
		Evidence:       res.Evidence,
	}), nil
}

// Submit applies a classified event. A DISTRESS fires the deterrence
// buzzer before anything else and arms the scheduler for the new cycle.
func (s *Session) Submit(ev model.EscalationEvent) model.TransitionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(ev)
}

func (s *Session) submit(ev model.EscalationEvent) model.TransitionResult {
	s.stopAudioTimer()
	res := s.eng.Submit(ev)
	s.metrics.ObserveClassification(ev.Classification)
	if res.Previous != res.Phase || ev.Classification == model.ClassDistress {
		s.metrics.ObserveChange(model.PhaseChange{From: res.Previous, To: res.Phase})
	}

	if ev.Classification == model.ClassDistress {
		s.fireCue(CueBuzzer, res.CycleID, ev.Evidence)
		s.sched.Arm(s.ctx, res.Generation)
	} else {
		s.sched.Stop()
	}
	return res
}

// Reset cancels any escalation and any analysis in flight, and clears the
// alert log.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	for id, cancel := range s.analyses {
		cancel()
		delete(s.analyses, id)
	}
	s.sched.Stop()
	s.stopAudioTimer()
	s.eng.Reset()
	s.metrics.ObserveReset()
}

// Close stops background work. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.Stop()
	s.stopAudioTimer()
}

func (s *Session) onTimedChange(c model.PhaseChange) {
	s.metrics.ObserveChange(c)
	if c.To == model.PhaseControlAlert {
		s.checkControlAudio(c.Generation, c.CycleID, c.At)
	}
}

// checkControlAudio fires the control-room cue now, or arms a one-shot
// timer for the remainder of the audio delay.
func (s *Session) checkControlAudio(gen uint64, cycle string, now time.Time) {
	if s.eng.ShouldFireControlAudio(now) {
		s.fireCue(CueControlRoom, cycle, s.eng.Snapshot().Evidence)
		return
	}
	st := s.eng.Snapshot()
	if st.Generation != gen || st.Phase != model.PhaseControlAlert || st.ControlAudioFired {
		return
	}
	wait := s.eng.Timings().ControlAudioDelay - now.Sub(st.DistressOnset)
	if wait <= 0 {
		return
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.audioTimer != nil {
		s.audioTimer.Stop()
	}
	s.audioTimer = time.AfterFunc(wait, func() {
		if !s.eng.Current(gen) {
			return
		}
		if s.eng.ShouldFireControlAudio(s.clock.Now()) {
			s.fireCue(CueControlRoom, cycle, s.eng.Snapshot().Evidence)
		}
	})
}

func (s *Session) stopAudioTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.audioTimer != nil {
		s.audioTimer.Stop()
		s.audioTimer = nil
	}
}

func (s *Session) fireCue(kind, cycle, evidence string) {
	s.metrics.ObserveCue(kind)
	dispatched := s.notifier.Cue(kind, map[string]string{
		"cycle":    cycle,
		"evidence": evidence,
	})
	s.logger.Info("cue fired", "cue", kind, "cycle", cycle, "command", dispatched)
}
