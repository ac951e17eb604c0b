package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/model"
)

type watchOptions struct {
	metricsAddr string
	noMetrics   bool
	drain       bool
}

func newWatchCmd(opts *options) *cobra.Command {
	wo := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Headless console: read classifications from stdin and print phase changes",
		Long: `watch reads one command per line from stdin:

  distress [EVIDENCE]   submit a DISTRESS classification
  normal                submit a NORMAL classification
  frame ID              classify a demo frame (normal1, distress2, ...)
  reset                 cancel any escalation and clear the alert log
  status                print the current phase
  log                   print the alert log

Phase changes are printed as they happen. Prometheus metrics and a JSON
state snapshot are served on --metrics-addr (/metrics, /state).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = wo.metricsAddr
			}
			if wo.noMetrics {
				cfg.MetricsAddr = ""
			}
			logger, closeLog, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runWatch(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), cfg, wo.drain, logger)
		},
	}
	cmd.Flags().StringVar(&wo.metricsAddr, "metrics-addr", "", "Serve /metrics and /state on this address (default from config)")
	cmd.Flags().BoolVar(&wo.noMetrics, "no-metrics", false, "Do not start the metrics server")
	cmd.Flags().BoolVar(&wo.drain, "drain", true, "On end of input, wait for an in-flight escalation to settle")
	return cmd
}

// watchCommand is one parsed input line.
type watchCommand struct {
	kind    string // submit, frame, reset, status, log
	event   model.EscalationEvent
	frameID string
}

// parseWatchLine parses one input line. Blank lines and # comments yield
// ok=false with no error.
func parseWatchLine(line string, now time.Time) (watchCommand, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return watchCommand{}, false, nil
	}
	fields := strings.Fields(line)
	verb := strings.ToLower(fields[0])
	switch verb {
	case "reset", "status", "log":
		return watchCommand{kind: verb}, true, nil
	case "frame":
		if len(fields) != 2 {
			return watchCommand{}, false, fmt.Errorf("frame: want exactly one frame id")
		}
		return watchCommand{kind: "frame", frameID: fields[1]}, true, nil
	}

	class, err := model.ParseClassification(verb)
	if err != nil {
		return watchCommand{}, false, err
	}
	ev := model.EscalationEvent{Classification: class, ObservedAt: now}
	if len(fields) > 1 {
		ev.Evidence = strings.Join(fields[1:], " ")
	}
	return watchCommand{kind: "submit", event: ev}, true, nil
}

func runWatch(ctx context.Context, in io.Reader, out io.Writer, cfg config.Config, drain bool, logger *slog.Logger) error {
	clock := engine.SystemClock{}
	cls := classifier.NewCatalog(classifier.DemoSamples, cfg.ProcessingDelay)
	session := engine.NewSession(ctx, cfg.Session(), cls, clock, logger)
	defer session.Close()

	changes, unsubscribe := session.Engine().Subscribe(64)
	defer unsubscribe()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	fmt.Fprintf(out, " %s%s kavach v%s %s  %sbuzzer %s  escalation %s  tick %s%s\n",
		B, BBlu+FBWht, Version, R, D, cfg.EdgeBuzzerTime, cfg.EscalationDelay, cfg.TickInterval, R)
	fmt.Fprintln(out, hr())

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case c, ok := <-changes:
				if !ok {
					return nil
				}
				fmt.Fprintln(out, changeLine(c))
			}
		}
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           observerMux(session),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics server listening", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	// Scanner reads block on stdin and cannot be cancelled, so lines are
	// pumped from a goroutine outside the group.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-gctx.Done():
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	g.Go(func() error {
		defer stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					if err := <-readErr; err != nil {
						return fmt.Errorf("read input: %w", err)
					}
					if drain {
						waitSettled(gctx, session, cfg.TickInterval)
					}
					// Let the printer flush the last changes.
					time.Sleep(50 * time.Millisecond)
					return nil
				}
				handleWatchLine(gctx, out, session, line, clock.Now(), logger)
			}
		}
	})

	return g.Wait()
}

func handleWatchLine(ctx context.Context, out io.Writer, session *engine.Session, line string, now time.Time, logger *slog.Logger) {
	wc, ok, err := parseWatchLine(line, now)
	if err != nil {
		fmt.Fprintf(out, " %s!%s %v\n", FBYel, R, err)
		return
	}
	if !ok {
		return
	}
	switch wc.kind {
	case "submit":
		session.Submit(wc.event)
	case "frame":
		if _, err := session.Analyze(ctx, classifier.Frame{ID: wc.frameID, Image: frameImage(wc.frameID)}); err != nil {
			fmt.Fprintf(out, " %s!%s %v\n", FBYel, R, err)
			logger.Warn("frame analysis failed", "frame", wc.frameID, "err", err)
		}
	case "reset":
		session.Reset()
		fmt.Fprintf(out, " %sSystem reset.%s\n", FBGrn, R)
	case "status":
		st := session.Engine().Snapshot()
		fmt.Fprintf(out, " %s  gen=%d", phaseBadge(st.Phase), st.Generation)
		if st.Evidence != "" {
			fmt.Fprintf(out, "  evidence=%s", st.Evidence)
		}
		fmt.Fprintln(out)
	case "log":
		fmt.Fprintln(out, titleLine("ALERT LOG"))
		fmt.Fprint(out, logTable(session.Engine().Snapshot().Log))
	}
}

func frameImage(id string) string {
	for _, s := range classifier.DemoSamples {
		if s.Frame.ID == id {
			return s.Frame.Image
		}
	}
	return ""
}

// waitSettled blocks until no escalation is in flight.
func waitSettled(ctx context.Context, session *engine.Session, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for session.Scheduler().Running() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// observerMux exposes metrics and the engine snapshot to external observers.
func observerMux(session *engine.Session) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", session.Metrics().Handler())
	mux.HandleFunc("/state", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(session.Engine().Snapshot())
	})
	return mux
}
