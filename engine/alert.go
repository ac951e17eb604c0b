package engine

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// Cue kinds dispatched by the session.
const (
	CueBuzzer      = "buzzer"       // on-device deterrence buzzer
	CueControlRoom = "control_room" // control-room audible alert
)

const cueTimeout = 5 * time.Second

// CueConfig maps cue kinds to local shell commands.
type CueConfig struct {
	BuzzerCommand  string
	ControlCommand string
}

// Notifier dispatches deterrence and control-room cues.
// Commands run in their own goroutine so the caller is never delayed.
type Notifier struct {
	cfg    CueConfig
	logger *slog.Logger
	run    func(ctx context.Context, command string, env []string) error
}

// NewNotifier creates a notifier.
func NewNotifier(cfg CueConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier{cfg: cfg, logger: logger, run: runShell}
}

func (n *Notifier) command(kind string) string {
	switch kind {
	case CueBuzzer:
		return n.cfg.BuzzerCommand
	case CueControlRoom:
		return n.cfg.ControlCommand
	}
	return ""
}

// Cue fires the command bound to kind asynchronously. Returns false when no
// command is bound.
func (n *Notifier) Cue(kind string, payload interface{}) bool {
	command := n.command(kind)
	if command == "" {
		return false
	}
	go n.cue(kind, command, payload)
	return true
}

func (n *Notifier) cue(kind, command string, payload interface{}) {
	body := map[string]interface{}{
		"cue":     kind,
		"payload": payload,
		"ts":      time.Now().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		n.logger.Warn("cue marshal failed", "cue", kind, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cueTimeout)
	defer cancel()
	env := append(os.Environ(), "KAVACH_CUE="+kind, "KAVACH_PAYLOAD="+string(data))
	if err := n.run(ctx, command, env); err != nil {
		n.logger.Warn("cue command failed", "cue", kind, "err", err)
		return
	}
	n.logger.Debug("cue delivered", "cue", kind)
}

func runShell(ctx context.Context, command string, env []string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Env = env
	return cmd.Run()
}
