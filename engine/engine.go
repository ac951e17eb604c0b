package engine

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mskavach/kavach/model"
)

// Default escalation timings.
const (
	DefaultEdgeBuzzerTime    = 3 * time.Second
	DefaultEscalationDelay   = 5 * time.Second
	DefaultControlAudioDelay = 5 * time.Second
)

// Timings holds the elapsed-time thresholds of the escalation sequence.
type Timings struct {
	EdgeBuzzerTime    time.Duration // EDGE_ALERT -> ESCALATION
	EscalationDelay   time.Duration // ESCALATION -> CONTROL_ALERT
	ControlAudioDelay time.Duration // distress onset -> control-room audio
}

// DefaultTimings returns the stock 3s / 5s / 5s sequence.
func DefaultTimings() Timings {
	return Timings{
		EdgeBuzzerTime:    DefaultEdgeBuzzerTime,
		EscalationDelay:   DefaultEscalationDelay,
		ControlAudioDelay: DefaultControlAudioDelay,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the clock used to stamp reset notifications.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithCycleIDs replaces the escalation cycle ID generator.
func WithCycleIDs(next func() string) Option {
	return func(e *Engine) { e.newCycleID = next }
}

// Engine is the escalation state machine for one session.
// All mutations go through mu; observers read copies via Snapshot.
type Engine struct {
	mu      sync.Mutex
	timings Timings
	log     *AlertLog
	logger  *slog.Logger
	clock   Clock

	phase             model.Phase
	phaseEnteredAt    time.Time
	evidence          string
	controlAudioFired bool
	distressOnset     time.Time
	cycleID           string
	generation        uint64

	// lastAdvance is the instant of the last Tick-driven transition, so a
	// repeated Tick for the same instant cannot fire a second one.
	lastAdvance time.Time

	newCycleID func() string

	subMu  sync.Mutex
	subs   map[int]chan model.PhaseChange
	nextID int
}

// NewEngine creates an engine in NORMAL with an empty alert log.
func NewEngine(t Timings, opts ...Option) *Engine {
	e := &Engine{
		timings:    t,
		log:        NewAlertLog(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:      SystemClock{},
		newCycleID: uuid.NewString,
		subs:       make(map[int]chan model.PhaseChange),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Timings returns the thresholds the engine was built with.
func (e *Engine) Timings() Timings {
	return e.timings
}

// Submit applies a classified event. NORMAL ends any escalation; DISTRESS
// (re)starts the cycle at EDGE_ALERT. Concurrent distress events are not
// queued: the latest one wins.
func (e *Engine) Submit(ev model.EscalationEvent) model.TransitionResult {
	e.mu.Lock()
	prev := e.phase
	e.generation++

	if ev.Classification == model.ClassDistress {
		e.phase = model.PhaseEdgeAlert
		e.phaseEnteredAt = ev.ObservedAt
		e.distressOnset = ev.ObservedAt
		e.evidence = ev.Evidence
		if e.evidence == "" {
			e.evidence = model.EvidenceUnavailable
		}
		e.controlAudioFired = false
		e.cycleID = e.newCycleID()
		e.log.Append(model.LogEntry{Time: ev.ObservedAt, Type: model.LogTypeDistress, Status: model.StatusEscalated})
	} else {
		e.clearLocked()
		e.log.Append(model.LogEntry{Time: ev.ObservedAt, Type: model.LogTypeNormal, Status: model.StatusNoAlert})
	}
	e.lastAdvance = time.Time{}

	res := model.TransitionResult{
		Previous:   prev,
		Phase:      e.phase,
		Generation: e.generation,
		CycleID:    e.cycleID,
	}
	change := model.PhaseChange{
		From:       prev,
		To:         e.phase,
		At:         ev.ObservedAt,
		Generation: e.generation,
		CycleID:    e.cycleID,
	}
	// A distress restart from EDGE_ALERT is still a new cycle worth announcing.
	if prev != res.Phase || ev.Classification == model.ClassDistress {
		e.publish(change)
	}
	e.mu.Unlock()

	e.logger.Info("event submitted",
		"classification", ev.Classification.String(),
		"from", prev.String(),
		"phase", res.Phase.String(),
		"generation", res.Generation,
		"cycle", res.CycleID)
	return res
}

// Tick advances the state machine from elapsed time alone. At most one
// transition fires per call; a long pause needs further calls to cascade.
func (e *Engine) Tick(now time.Time) (model.PhaseChange, bool) {
	e.mu.Lock()
	change, ok := e.tickLocked(now)
	if ok {
		e.publish(change)
	}
	e.mu.Unlock()
	return change, ok
}

// TickIfCurrent is Tick guarded by a generation. A timer armed for an
// earlier Submit or Reset is discarded without touching state.
func (e *Engine) TickIfCurrent(gen uint64, now time.Time) (model.PhaseChange, bool) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return model.PhaseChange{}, false
	}
	change, ok := e.tickLocked(now)
	if ok {
		e.publish(change)
	}
	e.mu.Unlock()
	return change, ok
}

// Current reports whether gen is still the live generation.
func (e *Engine) Current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.generation
}

func (e *Engine) tickLocked(now time.Time) (model.PhaseChange, bool) {
	var (
		threshold time.Duration
		next      model.Phase
	)
	switch e.phase {
	case model.PhaseEdgeAlert:
		threshold, next = e.timings.EdgeBuzzerTime, model.PhaseEscalation
	case model.PhaseEscalation:
		threshold, next = e.timings.EscalationDelay, model.PhaseControlAlert
	default:
		return model.PhaseChange{}, false
	}

	if !e.lastAdvance.IsZero() && now.Equal(e.lastAdvance) {
		return model.PhaseChange{}, false
	}

	elapsed := now.Sub(e.phaseEnteredAt)
	if elapsed < 0 {
		e.logger.Debug("non-monotonic tick clamped",
			"phase", e.phase.String(),
			"entered", e.phaseEnteredAt,
			"now", now)
		elapsed = 0
	}
	if elapsed < threshold {
		return model.PhaseChange{}, false
	}

	change := model.PhaseChange{
		From:       e.phase,
		To:         next,
		At:         now,
		Generation: e.generation,
		CycleID:    e.cycleID,
	}
	e.phase = next
	e.phaseEnteredAt = now
	e.lastAdvance = now

	e.logger.Info("phase advanced",
		"from", change.From.String(),
		"to", change.To.String(),
		"elapsed", elapsed,
		"cycle", e.cycleID)
	return change, true
}

// ShouldFireControlAudio returns true exactly once per escalation cycle:
// in CONTROL_ALERT, once ControlAudioDelay has passed since distress onset.
func (e *Engine) ShouldFireControlAudio(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != model.PhaseControlAlert || e.controlAudioFired {
		return false
	}
	if now.Sub(e.distressOnset) < e.timings.ControlAudioDelay {
		return false
	}
	e.controlAudioFired = true
	return true
}

// Snapshot returns a copy of the engine state, alert log included.
func (e *Engine) Snapshot() model.EngineState {
	e.mu.Lock()
	st := model.EngineState{
		Phase:             e.phase,
		PhaseEnteredAt:    e.phaseEnteredAt,
		Evidence:          e.evidence,
		ControlAudioFired: e.controlAudioFired,
		DistressOnset:     e.distressOnset,
		Generation:        e.generation,
		CycleID:           e.cycleID,
		Log:               e.log.All(),
	}
	e.mu.Unlock()
	return st
}

// Phase returns the current phase.
func (e *Engine) Phase() model.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Reset cancels any escalation, clears the alert log and invalidates
// every timer armed for an earlier generation.
func (e *Engine) Reset() {
	e.mu.Lock()
	prev := e.phase
	e.clearLocked()
	e.generation++
	e.log.Clear()
	change := model.PhaseChange{From: prev, To: model.PhaseNormal, At: e.clock.Now(), Generation: e.generation}
	if prev != model.PhaseNormal {
		e.publish(change)
	}
	e.mu.Unlock()

	e.logger.Info("engine reset", "from", prev.String(), "generation", change.Generation)
}

func (e *Engine) clearLocked() {
	e.phase = model.PhaseNormal
	e.phaseEnteredAt = time.Time{}
	e.evidence = ""
	e.controlAudioFired = false
	e.distressOnset = time.Time{}
	e.cycleID = ""
	e.lastAdvance = time.Time{}
}

// Subscribe returns a channel of phase changes in the order they were
// applied. Delivery never blocks the engine: when the buffer is full the
// change is dropped for that subscriber. cancel closes the channel.
func (e *Engine) Subscribe(buffer int) (<-chan model.PhaseChange, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.PhaseChange, buffer)
	e.subMu.Lock()
	id := e.nextID
	e.nextID++
	e.subs[id] = ch
	e.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) publish(c model.PhaseChange) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
