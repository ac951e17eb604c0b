package model

import "time"

// EvidenceUnavailable marks a distress event that arrived without an image reference.
const EvidenceUnavailable = "evidence:unavailable"

// Log entry types and statuses as shown in the alert log table.
const (
	LogTypeNormal   = "Normal"
	LogTypeDistress = "Distress"

	StatusNoAlert   = "No Alert"
	StatusEscalated = "Alert Escalated"
)

// EscalationEvent is one classified frame submitted to the engine.
type EscalationEvent struct {
	Classification Classification `json:"classification" yaml:"classification"`
	ObservedAt     time.Time      `json:"observed_at" yaml:"observed_at"`
	Evidence       string         `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// LogEntry is an immutable record of a classification outcome.
type LogEntry struct {
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`
	Status string    `json:"status"`
}

// EngineState is a read-only copy of the escalation engine's state.
type EngineState struct {
	Phase             Phase      `json:"phase"`
	PhaseEnteredAt    time.Time  `json:"phase_entered_at,omitempty"`
	Evidence          string     `json:"evidence,omitempty"`
	ControlAudioFired bool       `json:"control_audio_fired"`
	DistressOnset     time.Time  `json:"distress_onset,omitempty"`
	Generation        uint64     `json:"generation"`
	CycleID           string     `json:"cycle_id,omitempty"`
	Log               []LogEntry `json:"log,omitempty"`
}

// PhaseChange is emitted whenever the engine moves between phases.
type PhaseChange struct {
	From       Phase     `json:"from"`
	To         Phase     `json:"to"`
	At         time.Time `json:"at"`
	Generation uint64    `json:"generation"`
	CycleID    string    `json:"cycle_id,omitempty"`
}

// TransitionResult reports the outcome of a Submit.
type TransitionResult struct {
	Previous   Phase  `json:"previous"`
	Phase      Phase  `json:"phase"`
	Generation uint64 `json:"generation"`
	CycleID    string `json:"cycle_id,omitempty"`
}
