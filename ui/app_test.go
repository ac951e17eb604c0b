package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/model"
)

var testStart = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newTestModel(t *testing.T) (Model, *engine.Session, *engine.ManualClock) {
	t.Helper()
	clock := engine.NewManualClock(testStart)
	session := engine.NewSession(context.Background(), config.Default().Session(),
		classifier.NewCatalog(classifier.DemoSamples, 0), clock, nil)
	t.Cleanup(session.Close)

	m := NewModel(session, classifier.DemoSamples, Options{
		Location: config.Default().Location,
		Version:  "test",
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	return next.(Model), session, clock
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs any resulting command once, feeding its
// message back into the model.
func press(t *testing.T, m Model, k string) Model {
	t.Helper()
	next, cmd := m.Update(key(k))
	m = next.(Model)
	if cmd != nil {
		if msg := cmd(); msg != nil {
			next, _ = m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func TestViewBeforeResize(t *testing.T) {
	clock := engine.NewManualClock(testStart)
	session := engine.NewSession(context.Background(), config.Default().Session(), nil, clock, nil)
	defer session.Close()
	m := NewModel(session, classifier.DemoSamples, Options{})
	assert.Equal(t, "Loading...", m.View())
}

func TestAnalyzeDistressFrame(t *testing.T) {
	m, session, _ := newTestModel(t)

	m = press(t, m, "3")
	assert.False(t, m.processing)
	assert.Equal(t, 2, m.selected)
	assert.Equal(t, model.PhaseEdgeAlert, m.state.Phase)
	assert.Equal(t, model.PhaseEdgeAlert, session.Engine().Phase())

	view := m.View()
	assert.Contains(t, view, "ALERT TRIGGERED")
	assert.Contains(t, view, "EDGE_ALERT")
	assert.Contains(t, view, "distress1.jpg")
}

func TestAnalyzeNormalFrame(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "1")
	assert.Equal(t, model.PhaseNormal, m.state.Phase)
	assert.Contains(t, m.View(), "No alert generated")
}

func TestOutOfRangeFrameKeyIgnored(t *testing.T) {
	m, session, _ := newTestModel(t)
	next, cmd := m.Update(key("9"))
	assert.Nil(t, cmd)
	assert.Equal(t, -1, next.(Model).selected)
	assert.Empty(t, session.Engine().Snapshot().Log)
}

func TestFrameKeyIgnoredWhileProcessing(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, cmd := m.Update(key("3"))
	require.NotNil(t, cmd)
	m = next.(Model)
	require.True(t, m.processing)

	next, cmd = m.Update(key("1"))
	assert.Nil(t, cmd)
	assert.Equal(t, 2, next.(Model).selected)
}

func TestPageNavigation(t *testing.T) {
	m, _, _ := newTestModel(t)
	require.Equal(t, PageLive, m.page)

	m = press(t, m, "tab")
	assert.Equal(t, PageControl, m.page)
	assert.Contains(t, m.View(), "Monitoring active")

	m = press(t, m, "right")
	assert.Equal(t, PageLogs, m.page)
	assert.Contains(t, m.View(), "No alerts recorded yet.")

	m = press(t, m, "tab")
	assert.Equal(t, PageLive, m.page, "tab wraps")

	m = press(t, m, "left")
	assert.Equal(t, PageLogs, m.page)
}

func TestControlRoomShowsAlert(t *testing.T) {
	m, session, clock := newTestModel(t)
	m = press(t, m, "4")

	// Drive the engine directly on the manual clock.
	session.Engine().Tick(clock.Advance(3 * time.Second))
	session.Engine().Tick(clock.Advance(5 * time.Second))
	next, _ := m.Update(tickMsg(clock.Now()))
	m = next.(Model)
	require.Equal(t, model.PhaseControlAlert, m.state.Phase)

	m.page = PageControl
	view := m.View()
	assert.Contains(t, view, "CONTROL ROOM ALERT")
	assert.Contains(t, view, "assets/distress2.jpg")
	assert.Contains(t, view, "MVP Colony Junction, Visakhapatnam")
	assert.Contains(t, view, "17.7430, 83.3194")
	assert.Contains(t, view, "https://maps.google.com/?q=17.7430,83.3194")
}

func TestAlertLogPage(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, "1")
	m = press(t, m, "3")
	m.page = PageLogs

	view := m.View()
	assert.Contains(t, view, "Alert Escalated")
	assert.Contains(t, view, "No Alert")
	assert.Contains(t, view, "2 entries, 1 distress")
	assert.Less(t, strings.Index(view, "No Alert"), strings.Index(view, "Alert Escalated"), "insertion order")
}

func TestResetKey(t *testing.T) {
	m, session, _ := newTestModel(t)
	m = press(t, m, "3")
	require.Equal(t, model.PhaseEdgeAlert, m.state.Phase)

	m = press(t, m, "r")
	assert.Equal(t, model.PhaseNormal, m.state.Phase)
	assert.Equal(t, -1, m.selected)
	assert.False(t, m.hasResult)
	assert.Empty(t, session.Engine().Snapshot().Log)
	assert.Contains(t, m.View(), "System reset successfully")
}

func TestQuit(t *testing.T) {
	m, _, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestTickRefreshesSnapshot(t *testing.T) {
	m, session, clock := newTestModel(t)
	session.Submit(model.EscalationEvent{Classification: model.ClassDistress, ObservedAt: clock.Now(), Evidence: "e.jpg"})
	assert.Equal(t, model.PhaseNormal, m.state.Phase, "model reads only on refresh")

	next, cmd := m.Update(tickMsg(clock.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, model.PhaseEdgeAlert, next.(Model).state.Phase)
}

func TestCountdownBar(t *testing.T) {
	assert.Equal(t, 10, len([]rune(stripANSI(countdownBar(0, time.Second, 10)))))
	assert.Equal(t, strings.Repeat("█", 10), stripANSI(countdownBar(2*time.Second, time.Second, 10)))
	assert.Equal(t, strings.Repeat("█", 5)+strings.Repeat("░", 5), stripANSI(countdownBar(500*time.Millisecond, time.Second, 10)))
}

func stripANSI(s string) string {
	var sb strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func TestResetWhileProcessingDropsVerdict(t *testing.T) {
	clock := engine.NewManualClock(testStart)
	session := engine.NewSession(context.Background(), config.Default().Session(),
		classifier.NewCatalog(classifier.DemoSamples, 100*time.Millisecond), clock, nil)
	t.Cleanup(session.Close)
	m := NewModel(session, classifier.DemoSamples, Options{})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})
	m = next.(Model)

	next, cmd := m.Update(key("3"))
	require.NotNil(t, cmd)
	m = next.(Model)
	require.True(t, m.processing)

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	time.Sleep(20 * time.Millisecond)

	m = press(t, m, "r")
	assert.False(t, m.processing)

	msg := <-done
	next, _ = m.Update(msg)
	m = next.(Model)
	assert.False(t, m.hasResult)
	assert.Equal(t, model.PhaseNormal, m.state.Phase)
	assert.Equal(t, model.PhaseNormal, session.Engine().Phase())
	assert.Empty(t, session.Engine().Snapshot().Log)

	// A new frame can be analyzed straight away.
	m = press(t, m, "1")
	assert.False(t, m.processing)
	assert.True(t, m.hasResult)
}

func TestEventTimeComesFromAlertLog(t *testing.T) {
	m, _, clock := newTestModel(t)
	clock.Advance(7 * time.Second)
	m = press(t, m, "3")
	require.True(t, m.hasResult)
	assert.Equal(t, testStart.Add(7*time.Second), m.eventTime)
	assert.Contains(t, m.View(), "Event time: 01-03-2026 20:00:07")
}

func TestStaleAnalysisResultIgnored(t *testing.T) {
	m, _, _ := newTestModel(t)
	next, _ := m.Update(analyzeMsg{seq: m.seq + 5, frame: classifier.Frame{ID: "distress1"}})
	m = next.(Model)
	assert.False(t, m.hasResult)
}
