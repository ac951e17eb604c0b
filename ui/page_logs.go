package ui

import (
	"fmt"
	"strings"

	"github.com/mskavach/kavach/model"
)

func renderLogsPage(entries []model.LogEntry, width int) string {
	var sb strings.Builder
	iw := pageInnerW(width)

	sb.WriteString(titleStyle.Render(" ALERT LOG"))
	sb.WriteString("\n")

	var lines []string
	if len(entries) == 0 {
		lines = append(lines, dimStyle.Render("  No alerts recorded yet."))
		sb.WriteString(boxSection("ENTRIES", lines, iw))
		return sb.String()
	}

	distress := 0
	for _, e := range entries {
		if e.Type == model.LogTypeDistress {
			distress++
		}
	}

	lines = append(lines, fmt.Sprintf("  %s %s %s",
		styledPad(dimStyle.Render("TIME"), colTime),
		styledPad(dimStyle.Render("TYPE"), colType),
		dimStyle.Render("STATUS")))
	lines = append(lines, dimStyle.Render("  "+strings.Repeat("─", iw-4)))
	for _, e := range entries {
		row := fmt.Sprintf("%-*s %-*s %s", colTime, e.Time.Format("02-01-2006 15:04:05"), colType, e.Type, e.Status)
		if e.Type == model.LogTypeDistress {
			row = distressRowStyle.Render(row)
		}
		lines = append(lines, "  "+row)
	}
	lines = append(lines, "", dimStyle.Render(fmt.Sprintf("  %d entries, %d distress", len(entries), distress)))

	sb.WriteString(boxSection("ENTRIES", lines, iw))
	return sb.String()
}
