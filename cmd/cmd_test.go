package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/model"
)

// syncBuffer is a bytes.Buffer safe for the watch printer and input loop.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "kavach v"+Version+"\n", out)
}

func TestParseWatchLine(t *testing.T) {
	now := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		line     string
		ok       bool
		wantErr  bool
		kind     string
		class    model.Classification
		evidence string
		frame    string
	}{
		{line: "", ok: false},
		{line: "   # comment", ok: false},
		{line: "distress", ok: true, kind: "submit", class: model.ClassDistress},
		{line: "DISTRESS cam 4.jpg", ok: true, kind: "submit", class: model.ClassDistress, evidence: "cam 4.jpg"},
		{line: "normal", ok: true, kind: "submit", class: model.ClassNormal},
		{line: "reset", ok: true, kind: "reset"},
		{line: "Status", ok: true, kind: "status"},
		{line: "log", ok: true, kind: "log"},
		{line: "frame distress2", ok: true, kind: "frame", frame: "distress2"},
		{line: "frame", wantErr: true},
		{line: "acknowledge", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.line, func(t *testing.T) {
			wc, ok, err := parseWatchLine(c.line, now)
			if c.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, c.kind, wc.kind)
			assert.Equal(t, c.frame, wc.frameID)
			if c.kind == "submit" {
				assert.Equal(t, c.class, wc.event.Classification)
				assert.Equal(t, c.evidence, wc.event.Evidence)
				assert.Equal(t, now, wc.event.ObservedAt)
			}
		})
	}
}

func fastConfig() config.Config {
	cfg := config.Default()
	cfg.EdgeBuzzerTime = 20 * time.Millisecond
	cfg.EscalationDelay = 20 * time.Millisecond
	cfg.ControlAudioDelay = 20 * time.Millisecond
	cfg.TickInterval = 5 * time.Millisecond
	cfg.ProcessingDelay = 0
	cfg.MetricsAddr = ""
	return cfg
}

func TestRunWatchDrainsToControlAlert(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := strings.NewReader("# demo\nframe distress2\nstatus\nbogus\n")
	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, runWatch(ctx, in, out, fastConfig(), true, logger))

	s := out.String()
	assert.Contains(t, s, "EDGE_ALERT")
	assert.Contains(t, s, "CONTROL_ALERT")
	assert.Contains(t, s, "evidence=assets/distress2.jpg")
	assert.Contains(t, s, `unknown classification "bogus"`)
}

func TestRunWatchResetAndLog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	in := strings.NewReader("normal\ndistress x.jpg\nlog\nreset\nlog\n")
	out := &syncBuffer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, runWatch(ctx, in, out, fastConfig(), false, logger))

	s := out.String()
	assert.Contains(t, s, "Alert Escalated")
	assert.Contains(t, s, "System reset.")
	assert.Contains(t, s, "No alerts recorded yet.")
}

func TestObserverMux(t *testing.T) {
	session := engine.NewSession(context.Background(), fastConfig().Session(),
		classifier.NewCatalog(classifier.DemoSamples, 0), engine.SystemClock{}, nil)
	defer session.Close()
	session.Submit(model.EscalationEvent{Classification: model.ClassNormal, ObservedAt: time.Now()})

	mux := observerMux(session)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/state", nil))
	require.Equal(t, 200, rec.Code)
	var st struct {
		Phase string           `json:"phase"`
		Log   []model.LogEntry `json:"log"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, "NORMAL", st.Phase)
	require.Len(t, st.Log, 1)
	assert.Equal(t, model.StatusNoAlert, st.Log[0].Status)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `kavach_classifications_total{type="NORMAL"} 1`)
}

func TestReplayScenarios(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	out, err := runRoot(t, append([]string{"replay"}, files...)...)
	require.NoError(t, err, out)
	assert.Equal(t, len(files), strings.Count(out, "PASS"))
	assert.NotContains(t, out, "FAIL")
}

func TestReplayJSON(t *testing.T) {
	out, err := runRoot(t, "replay", "--json", filepath.Join("..", "scenarios", "full_cycle.yaml"))
	require.NoError(t, err)

	var tr engine.Transcript
	require.NoError(t, json.Unmarshal([]byte(out), &tr))
	assert.Equal(t, "full cycle", tr.Scenario)
	assert.Equal(t, model.PhaseControlAlert, tr.Final.Phase)
	assert.True(t, tr.Passed())
}

func TestReplayReportsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	sc := "steps:\n  - at: 0s\n    classify: distress\n  - at: 1s\n    tick: true\n    expect: ESCALATION\n"
	require.NoError(t, os.WriteFile(path, []byte(sc), 0600))

	out, err := runRoot(t, "replay", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 scenarios failed")
	assert.Contains(t, out, "want ESCALATION, got EDGE_ALERT")
}

func TestReplayRejectsBadTimings(t *testing.T) {
	_, err := runRoot(t, "replay", "--edge-buzzer-time", "-1s", filepath.Join("..", "scenarios", "full_cycle.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EdgeBuzzerTime")
}

func TestRenderHelpers(t *testing.T) {
	at := time.Date(2026, 3, 1, 20, 0, 3, 0, time.UTC)
	line := changeLine(model.PhaseChange{From: model.PhaseEdgeAlert, To: model.PhaseEscalation, At: at, CycleID: "0123456789abcdef"})
	assert.Contains(t, line, "20:00:03.000")
	assert.Contains(t, line, "EDGE_ALERT")
	assert.Contains(t, line, "ESCALATION")
	assert.Contains(t, line, "cycle=01234567")
	assert.NotContains(t, line, "89abcdef")

	table := logTable([]model.LogEntry{
		{Time: at, Type: model.LogTypeDistress, Status: model.StatusEscalated},
		{Time: at, Type: model.LogTypeNormal, Status: model.StatusNoAlert},
	})
	assert.Contains(t, table, "01-03-2026 20:00:03")
	assert.Contains(t, table, "Alert Escalated")
	assert.Contains(t, table, "No Alert")

	assert.Contains(t, transcriptLine(engine.TranscriptEntry{Offset: 8100 * time.Millisecond, Kind: "audio"}), "8.1s")
}
