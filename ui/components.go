package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Column widths shared by the pages.
const (
	colKey   = 16 // detail key: "Phase:", "Evidence:", etc.
	colTime  = 21 // alert log timestamp
	colType  = 10 // alert log type
	colFrame = 14 // frame selector cell
)

// styledPad pads a styled string to the given visual width using spaces.
// Unlike fmt.Sprintf("%-Xs"), this accounts for ANSI escape codes.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// ─── BOX DRAWING HELPERS ─────────────────────────────────────────────────────

// boxTop renders the top border of a rounded box.
// Total visual width = innerW + 5 (1 indent + 1 corner + innerW+2 dashes + 1 corner).
func boxTop(innerW int) string {
	return " " + dimStyle.Render("╭"+strings.Repeat("─", innerW+2)+"╮")
}

// boxBot renders the bottom border of a rounded box.
func boxBot(innerW int) string {
	return " " + dimStyle.Render("╰"+strings.Repeat("─", innerW+2)+"╯")
}

// boxMid renders a horizontal divider inside a box.
func boxMid(innerW int) string {
	return " " + dimStyle.Render("├"+strings.Repeat("─", innerW+2)+"┤")
}

// boxRow renders one content line inside a box, padded to innerW.
func boxRow(content string, innerW int) string {
	visW := lipgloss.Width(content)
	pad := innerW - visW
	if pad < 0 {
		pad = 0
	}
	return " " + dimStyle.Render("│") + " " + content + strings.Repeat(" ", pad) + " " + dimStyle.Render("│")
}

// boxSection renders a titled section inside a bordered box.
func boxSection(title string, lines []string, innerW int) string {
	var sb strings.Builder
	sb.WriteString(boxTop(innerW) + "\n")
	sb.WriteString(boxRow(headerStyle.Render(title), innerW) + "\n")
	sb.WriteString(boxMid(innerW) + "\n")
	for _, line := range lines {
		sb.WriteString(boxRow(line, innerW) + "\n")
	}
	sb.WriteString(boxBot(innerW) + "\n")
	return sb.String()
}

// kvLine renders "key: value" with the key padded to colKey.
func kvLine(key, value string) string {
	return "  " + styledPad(dimStyle.Render(key+":"), colKey) + " " + value
}

// pageInnerW computes box inner width from terminal width.
func pageInnerW(termWidth int) int {
	w := termWidth - 6
	if w < 60 {
		w = 60
	}
	return w
}

// countdownBar renders progress toward a phase threshold.
func countdownBar(elapsed, total time.Duration, width int) string {
	if width < 1 {
		width = 10
	}
	if total <= 0 {
		return dimStyle.Render(strings.Repeat("░", width))
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ratio := float64(elapsed) / float64(total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case ratio >= 0.8:
		return critStyle.Render(b)
	case ratio >= 0.5:
		return warnStyle.Render(b)
	default:
		return okStyle.Render(b)
	}
}

// fmtSeconds renders a duration as seconds with one decimal.
func fmtSeconds(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func padRight(s string, width int) string {
	if len(s) >= width {
		if width > 3 {
			return s[:width-3] + "..."
		}
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// joinColumns places panels side by side, each padded to colW.
func joinColumns(colW int, panels ...[]string) []string {
	rows := 0
	for _, p := range panels {
		if len(p) > rows {
			rows = len(p)
		}
	}
	out := make([]string, rows)
	for r := 0; r < rows; r++ {
		var sb strings.Builder
		for i, p := range panels {
			cell := ""
			if r < len(p) {
				cell = p[r]
			}
			if i < len(panels)-1 {
				cell = styledPad(cell, colW)
			}
			sb.WriteString(cell)
		}
		out[r] = sb.String()
	}
	return out
}
