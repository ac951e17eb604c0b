package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mskavach/kavach/classifier"
	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/model"
)

// Page identifies a dashboard page.
type Page int

const (
	PageLive Page = iota
	PageControl
	PageLogs
	pageCount
)

var pageNames = []string{"Live Simulation", "Control Room", "Alert Log"}

func (p Page) String() string {
	if p >= 0 && p < pageCount {
		return pageNames[p]
	}
	return fmt.Sprintf("Page(%d)", int(p))
}

// statusTTL is how long a status-bar message stays visible.
const statusTTL = 3 * time.Second

type tickMsg time.Time

// analyzeMsg carries the outcome of one frame analysis.
type analyzeMsg struct {
	seq   int
	frame classifier.Frame
	res   model.TransitionResult
	err   error
}

// Options configures the dashboard.
type Options struct {
	RefreshInterval time.Duration
	Location        config.LocationConfig
	Version         string
}

// Model is the bubbletea model of the dashboard. It only reads the engine
// through Snapshot; all writes go through the session.
type Model struct {
	session *engine.Session
	samples []classifier.Sample
	opts    Options
	width   int
	height  int

	// Data
	state model.EngineState
	now   time.Time

	// Navigation
	page Page

	// Live simulation
	selected   int // index into samples, -1 when nothing selected
	processing bool
	seq        int // current analysis; bumped on start and reset
	lastFrame  classifier.Frame
	lastLabel  model.Classification
	hasResult  bool
	eventTime  time.Time
	lastErr    error

	// Status feedback
	statusMsg  string
	statusTime time.Time
}

// NewModel creates the dashboard model over session.
func NewModel(session *engine.Session, samples []classifier.Sample, opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 250 * time.Millisecond
	}
	return Model{
		session:  session,
		samples:  samples,
		opts:     opts,
		selected: -1,
		state:    session.Engine().Snapshot(),
		now:      time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	return tick(m.opts.RefreshInterval)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// analyze runs the classifier off the UI goroutine.
func analyze(session *engine.Session, seq int, f classifier.Frame) tea.Cmd {
	return func() tea.Msg {
		res, err := session.Analyze(context.Background(), f)
		return analyzeMsg{seq: seq, frame: f, res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		m.state = m.session.Engine().Snapshot()
		return m, tick(m.opts.RefreshInterval)

	case analyzeMsg:
		if msg.seq != m.seq || errors.Is(msg.err, engine.ErrAnalysisCanceled) {
			return m, nil
		}
		m.processing = false
		m.state = m.session.Engine().Snapshot()
		if msg.err != nil {
			m.lastErr = msg.err
			m.setStatus("Analysis failed: " + msg.err.Error())
			return m, nil
		}
		m.lastErr = nil
		m.lastFrame = msg.frame
		m.hasResult = true
		m.eventTime = m.now
		if n := len(m.state.Log); n > 0 {
			m.eventTime = m.state.Log[n-1].Time
		}
		if msg.res.Phase == model.PhaseNormal {
			m.lastLabel = model.ClassNormal
		} else {
			m.lastLabel = model.ClassDistress
		}
		m.setStatus("Processing completed")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right", "l":
		m.page = (m.page + 1) % pageCount
		return m, nil
	case "shift+tab", "left", "h":
		m.page = (m.page + pageCount - 1) % pageCount
		return m, nil
	case "r":
		m.session.Reset()
		m.state = m.session.Engine().Snapshot()
		m.selected = -1
		m.processing = false
		m.seq++
		m.hasResult = false
		m.lastErr = nil
		m.setStatus("System reset successfully")
		return m, nil
	}

	if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
		idx := int(key[0] - '1')
		if idx >= len(m.samples) {
			return m, nil
		}
		if m.processing {
			m.setStatus("Still processing the previous frame")
			return m, nil
		}
		m.selected = idx
		m.processing = true
		m.seq++
		m.page = PageLive
		m.setStatus("Processing " + m.samples[idx].Frame.ID + "...")
		return m, analyze(m.session, m.seq, m.samples[idx].Frame)
	}
	return m, nil
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusTime = m.now
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string
	switch m.page {
	case PageLive:
		content = renderLivePage(m, m.width)
	case PageControl:
		content = renderControlPage(m.state, m.opts.Location, m.now, m.width)
	case PageLogs:
		content = renderLogsPage(m.state.Log, m.width)
	}

	lines := strings.Split(m.renderHeader()+content, "\n")
	maxLines := m.height - 1
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n") + "\n" + m.renderStatusBar()
}

func (m Model) renderHeader() string {
	var sb strings.Builder
	title := titleStyle.Render("MS KAVACH") + dimStyle.Render(" · distress escalation console")
	if m.opts.Version != "" {
		title += dimStyle.Render(" v" + m.opts.Version)
	}
	sb.WriteString(" " + title + "   " + phaseBadge(m.state.Phase) + "\n")

	tabs := make([]string, 0, pageCount)
	for i := Page(0); i < pageCount; i++ {
		if i == m.page {
			tabs = append(tabs, activeTabStyle.Render(i.String()))
		} else {
			tabs = append(tabs, tabStyle.Render(i.String()))
		}
	}
	sb.WriteString(" " + strings.Join(tabs, " ") + "\n\n")
	return sb.String()
}

func (m Model) renderStatusBar() string {
	help := helpStyle.Render(fmt.Sprintf(" 1-%d analyze frame · r reset · tab/←→ page · q quit", len(m.samples)))
	if m.statusMsg != "" && m.now.Sub(m.statusTime) < statusTTL {
		return help + "   " + valueStyle.Render(m.statusMsg)
	}
	return help
}
