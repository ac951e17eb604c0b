package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mskavach/kavach/model"
)

func renderLivePage(m Model, width int) string {
	var sb strings.Builder
	iw := pageInnerW(width)

	sb.WriteString(titleStyle.Render(" LIVE SIMULATION"))
	sb.WriteString("\n")

	// === FRAMES ===
	var cells []string
	for i, s := range m.samples {
		cell := padRight(fmt.Sprintf("[%d] %s", i+1, filepath.Base(s.Frame.Image)), colFrame)
		if i == m.selected {
			cell = selectedStyle.Render(cell)
		} else {
			cell = valueStyle.Render(cell)
		}
		cells = append(cells, cell)
	}
	frameLines := []string{"  " + strings.Join(cells, "  ")}
	if len(m.samples) == 0 {
		frameLines = []string{dimStyle.Render("  No frames loaded")}
	}
	sb.WriteString(boxSection("CAMERA FRAMES", frameLines, iw))

	// === INPUT / PROCESSING / OUTPUT ===
	colW := (iw - 2) / 3
	input := []string{headerStyle.Render("Camera Input")}
	switch {
	case m.selected >= 0 && m.selected < len(m.samples):
		input = append(input,
			"Image received",
			dimStyle.Render(m.samples[m.selected].Frame.Image))
	default:
		input = append(input, dimStyle.Render("No frame selected"))
	}

	processing := []string{headerStyle.Render("Processing")}
	switch {
	case m.processing:
		processing = append(processing, warnStyle.Render("Processing the image..."))
	case m.lastErr != nil:
		processing = append(processing, critStyle.Render("Analysis failed"))
	case m.hasResult:
		processing = append(processing, okStyle.Render("Processing completed"))
	default:
		processing = append(processing, dimStyle.Render("Idle"))
	}

	output := []string{headerStyle.Render("System Output")}
	switch {
	case !m.hasResult:
		output = append(output, dimStyle.Render("Waiting for event trigger..."))
	case m.lastLabel == model.ClassNormal:
		output = append(output,
			"This is a normal situation.",
			okStyle.Render("No alert generated"),
			"Buzzer: OFF",
			"Alert transmission: NOT SENT")
	default:
		output = append(output,
			"Distress situation detected!",
			critStyle.Render("ALERT TRIGGERED"),
			warnStyle.Render("Deterrence buzzer activated"),
			"Alert sent to control room")
	}

	var rows []string
	rows = append(rows, joinColumns(colW, input, processing, output)...)
	if m.hasResult && !m.eventTime.IsZero() {
		rows = append(rows, "", dimStyle.Render("Event time: "+m.eventTime.Format("02-01-2006 15:04:05")))
	}
	sb.WriteString(boxSection("PIPELINE", rows, iw))

	// === ESCALATION ===
	sb.WriteString(boxSection("ESCALATION", escalationLines(m, iw), iw))
	return sb.String()
}

func escalationLines(m Model, iw int) []string {
	st := m.state
	t := m.session.Engine().Timings()
	lines := []string{kvLine("Phase", phaseStyle(st.Phase).Render(st.Phase.String()))}

	barW := iw - colKey - 16
	if barW < 10 {
		barW = 10
	}
	elapsed := m.now.Sub(st.PhaseEnteredAt)
	switch st.Phase {
	case model.PhaseNormal:
		lines = append(lines, kvLine("Status", okStyle.Render("Monitoring, no active escalation")))
		return lines
	case model.PhaseEdgeAlert:
		lines = append(lines, kvLine("Network escal.",
			countdownBar(elapsed, t.EdgeBuzzerTime, barW)+" "+
				dimStyle.Render(fmtSeconds(elapsed)+"/"+fmtSeconds(t.EdgeBuzzerTime))))
	case model.PhaseEscalation:
		lines = append(lines, kvLine("Control room",
			countdownBar(elapsed, t.EscalationDelay, barW)+" "+
				dimStyle.Render(fmtSeconds(elapsed)+"/"+fmtSeconds(t.EscalationDelay))))
	case model.PhaseControlAlert:
		lines = append(lines, kvLine("Control room", critStyle.Render("ALERT RAISED")))
	}

	lines = append(lines,
		kvLine("Since onset", valueStyle.Render(fmtSeconds(m.now.Sub(st.DistressOnset)))),
		kvLine("Evidence", valueStyle.Render(st.Evidence)))
	if st.CycleID != "" {
		lines = append(lines, kvLine("Cycle", dimStyle.Render(st.CycleID)))
	}
	return lines
}
