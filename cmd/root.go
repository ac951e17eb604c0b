package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/ui"
)

// Version is set at build time via ldflags.
var Version = "0.3.0"

// options holds flags shared by every command.
type options struct {
	configPath        string
	logLevel          string
	logFile           string
	edgeBuzzerTime    time.Duration
	escalationDelay   time.Duration
	controlAudioDelay time.Duration
	tickInterval      time.Duration
}

// Run parses the command line and starts the application.
func Run() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "kavach",
		Short: "Distress alert escalation console",
		Long: `kavach simulates the escalation pipeline of a camera-mounted safety device.

A DISTRESS frame triggers local deterrence immediately (EDGE_ALERT), escalates
over the network after the buzzer window (ESCALATION) and raises the
control-room alert after the escalation delay (CONTROL_ALERT). A NORMAL frame
or a reset cancels the cycle at any point.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (default: ~/.config/kavach/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	pf.DurationVar(&opts.edgeBuzzerTime, "edge-buzzer-time", 0, "Deterrence window before network escalation (default 3s)")
	pf.DurationVar(&opts.escalationDelay, "escalation-delay", 0, "Delay before control-room notification (default 5s)")
	pf.DurationVar(&opts.controlAudioDelay, "control-audio-delay", 0, "Delay from distress onset to control-room audio (default 5s)")
	pf.DurationVar(&opts.tickInterval, "tick-interval", 0, "Scheduler cadence while escalating (default 500ms)")

	root.AddCommand(newWatchCmd(opts), newReplayCmd(opts), newVersionCmd())
	return root
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.LogFile = opts.logFile
	}
	if opts.edgeBuzzerTime != 0 {
		cfg.EdgeBuzzerTime = opts.edgeBuzzerTime
	}
	if opts.escalationDelay != 0 {
		cfg.EscalationDelay = opts.escalationDelay
	}
	if opts.controlAudioDelay != 0 {
		cfg.ControlAudioDelay = opts.controlAudioDelay
	}
	if opts.tickInterval != 0 {
		cfg.TickInterval = opts.tickInterval
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newLogger builds the process logger. fallback receives logs when no
// log file is configured. The returned closer releases the file.
func newLogger(cfg config.Config, fallback io.Writer) (*slog.Logger, func(), error) {
	w := fallback
	closer := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closer = func() { _ = f.Close() }
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()})
	return slog.New(h), closer, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// runDashboard starts the interactive TUI.
func runDashboard(cmd *cobra.Command, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	// The TUI owns the terminal, so logs only go to a file.
	logger, closeLog, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cls := classifier.NewCatalog(classifier.DemoSamples, cfg.ProcessingDelay)
	session := engine.NewSession(ctx, cfg.Session(), cls, engine.SystemClock{}, logger)
	defer session.Close()

	logger.Info("dashboard started", "version", Version, "edge_buzzer_time", cfg.EdgeBuzzerTime, "escalation_delay", cfg.EscalationDelay)

	m := ui.NewModel(session, classifier.DemoSamples, ui.Options{
		RefreshInterval: 250 * time.Millisecond,
		Location:        cfg.Location,
		Version:         Version,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "kavach v%s\n", Version)
		},
	}
}
