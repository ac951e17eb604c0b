package model

import (
	"fmt"
	"strings"
)

// Phase is the escalation state of a session.
type Phase int

const (
	PhaseNormal       Phase = 0
	PhaseEdgeAlert    Phase = 1
	PhaseEscalation   Phase = 2
	PhaseControlAlert Phase = 3
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "NORMAL"
	case PhaseEdgeAlert:
		return "EDGE_ALERT"
	case PhaseEscalation:
		return "ESCALATION"
	case PhaseControlAlert:
		return "CONTROL_ALERT"
	}
	return "UNKNOWN"
}

// Escalating reports whether the phase still has a timed transition ahead.
func (p Phase) Escalating() bool {
	return p == PhaseEdgeAlert || p == PhaseEscalation
}

// MarshalText encodes the phase by name for JSON and YAML output.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ParsePhase accepts a phase name in any case.
func ParsePhase(s string) (Phase, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for p := PhaseNormal; p <= PhaseControlAlert; p++ {
		if p.String() == name {
			return p, nil
		}
	}
	return PhaseNormal, fmt.Errorf("unknown phase %q", s)
}

// UnmarshalText decodes a phase by name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Classification is the binary verdict of the event classifier.
type Classification int

const (
	ClassNormal   Classification = 0
	ClassDistress Classification = 1
)

func (c Classification) String() string {
	if c == ClassDistress {
		return "DISTRESS"
	}
	return "NORMAL"
}

// ParseClassification accepts "normal" or "distress" in any case.
func ParseClassification(s string) (Classification, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL":
		return ClassNormal, nil
	case "DISTRESS":
		return ClassDistress, nil
	}
	return ClassNormal, fmt.Errorf("unknown classification %q (expected normal or distress)", s)
}

// UnmarshalText lets scenario files spell classifications by name.
func (c *Classification) UnmarshalText(b []byte) error {
	v, err := ParseClassification(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// MarshalText encodes the classification by name.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
