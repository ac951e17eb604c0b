package engine

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mskavach/kavach/model"
)

// Scenario is a scripted sequence of classifications, ticks and resets
// replayed against a virtual clock.
type Scenario struct {
	Name    string        `yaml:"name"`
	Start   time.Time     `yaml:"start"`
	Cadence time.Duration `yaml:"cadence"` // virtual tick cadence between steps; 0 ticks only at steps
	Steps   []Step        `yaml:"steps"`
}

// Step is one scenario action at an offset from Start.
type Step struct {
	At       time.Duration         `yaml:"at"`
	Classify *model.Classification `yaml:"classify,omitempty"`
	Evidence string                `yaml:"evidence,omitempty"`
	Tick     bool                  `yaml:"tick,omitempty"`
	Reset    bool                  `yaml:"reset,omitempty"`
	Expect   *model.Phase          `yaml:"expect,omitempty"`
}

// LoadScenario decodes a YAML scenario and checks step ordering.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var sc Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks that steps are in time order and each does one thing.
func (sc *Scenario) Validate() error {
	if sc.Cadence < 0 {
		return fmt.Errorf("scenario %q: negative cadence %s", sc.Name, sc.Cadence)
	}
	var last time.Duration
	for i, st := range sc.Steps {
		if st.At < last {
			return fmt.Errorf("scenario %q: step %d at %s is before previous step at %s", sc.Name, i, st.At, last)
		}
		last = st.At
		actions := 0
		if st.Classify != nil {
			actions++
		}
		if st.Tick {
			actions++
		}
		if st.Reset {
			actions++
		}
		if actions > 1 {
			return fmt.Errorf("scenario %q: step %d has %d actions, want at most one", sc.Name, i, actions)
		}
	}
	return nil
}

// TranscriptEntry is one observable outcome of a replay.
type TranscriptEntry struct {
	Offset time.Duration `json:"offset"`
	Kind   string        `json:"kind"` // submit, tick, reset, audio
	From   model.Phase   `json:"from"`
	To     model.Phase   `json:"to"`
}

// Mismatch is a failed step expectation.
type Mismatch struct {
	Step int           `json:"step"`
	At   time.Duration `json:"at"`
	Want model.Phase   `json:"want"`
	Got  model.Phase   `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("step %d at %s: want %s, got %s", m.Step, m.At, m.Want, m.Got)
}

// Transcript is the result of replaying a scenario.
type Transcript struct {
	Scenario   string            `json:"scenario"`
	Entries    []TranscriptEntry `json:"entries"`
	Mismatches []Mismatch        `json:"mismatches,omitempty"`
	Final      model.EngineState `json:"final"`
}

// Passed reports whether every expectation held.
func (t *Transcript) Passed() bool {
	return len(t.Mismatches) == 0
}

// Player replays scenarios through a fresh engine per run.
type Player struct {
	timings Timings
}

// NewPlayer creates a player using the given thresholds.
func NewPlayer(t Timings) *Player {
	return &Player{timings: t}
}

// Play runs sc on a virtual clock and returns its transcript.
func (p *Player) Play(sc *Scenario) *Transcript {
	start := sc.Start
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	clock := NewManualClock(start)
	cycles := 0
	eng := NewEngine(p.timings, WithClock(clock), WithCycleIDs(func() string {
		cycles++
		return fmt.Sprintf("cycle-%d", cycles)
	}))

	tr := &Transcript{Scenario: sc.Name}
	var cursor time.Duration

	tick := func(at time.Duration) {
		clock.Set(start.Add(at))
		if c, ok := eng.Tick(clock.Now()); ok {
			tr.Entries = append(tr.Entries, TranscriptEntry{Offset: at, Kind: "tick", From: c.From, To: c.To})
		}
	}
	audio := func(at time.Duration) {
		if eng.ShouldFireControlAudio(start.Add(at)) {
			tr.Entries = append(tr.Entries, TranscriptEntry{Offset: at, Kind: "audio", From: model.PhaseControlAlert, To: model.PhaseControlAlert})
		}
	}

	for i, st := range sc.Steps {
		if sc.Cadence > 0 {
			for t := cursor + sc.Cadence; t < st.At; t += sc.Cadence {
				if eng.Phase().Escalating() {
					tick(t)
				}
				audio(t)
			}
		}
		cursor = st.At
		clock.Set(start.Add(st.At))

		switch {
		case st.Classify != nil:
			res := eng.Submit(model.EscalationEvent{
				Classification: *st.Classify,
				ObservedAt:     clock.Now(),
				Evidence:       st.Evidence,
			})
			tr.Entries = append(tr.Entries, TranscriptEntry{Offset: st.At, Kind: "submit", From: res.Previous, To: res.Phase})
		case st.Reset:
			from := eng.Phase()
			eng.Reset()
			tr.Entries = append(tr.Entries, TranscriptEntry{Offset: st.At, Kind: "reset", From: from, To: model.PhaseNormal})
		case st.Tick:
			tick(st.At)
		}
		audio(st.At)

		if st.Expect != nil {
			if got := eng.Phase(); got != *st.Expect {
				tr.Mismatches = append(tr.Mismatches, Mismatch{Step: i, At: st.At, Want: *st.Expect, Got: got})
			}
		}
	}

	tr.Final = eng.Snapshot()
	return tr
}
