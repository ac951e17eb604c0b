package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/mskavach/kavach/engine"
	"github.com/mskavach/kavach/model"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn = "\033[36m"

	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBWht = "\033[97m"

	BRed = "\033[41m"
	BGrn = "\033[42m"
	BYel = "\033[43m"
	BBlu = "\033[44m"
)

func phaseBadge(p model.Phase) string {
	switch p {
	case model.PhaseNormal:
		return fmt.Sprintf("%s NORMAL %s", BGrn+B+FBWht, R)
	case model.PhaseEdgeAlert:
		return fmt.Sprintf("%s EDGE_ALERT %s", BYel+B+FBWht, R)
	case model.PhaseEscalation:
		return fmt.Sprintf("%s ESCALATION %s", BRed+B+FBWht, R)
	case model.PhaseControlAlert:
		return fmt.Sprintf("%s CONTROL_ALERT %s", BRed+B+FBWht, R)
	default:
		return p.String()
	}
}

func titleLine(t string) string {
	pad := 78 - len(t) - 2
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("%s%s== %s %s%s", B, FCyn, t, strings.Repeat("=", pad), R)
}

func hr() string {
	return fmt.Sprintf("%s%s%s", D, strings.Repeat("-", 78), R)
}

// fmtOffset renders a duration as seconds with one decimal.
func fmtOffset(d time.Duration) string {
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// changeLine renders one phase change for the headless console.
func changeLine(c model.PhaseChange) string {
	ts := c.At.Format("15:04:05.000")
	cycle := ""
	if c.CycleID != "" {
		cycle = fmt.Sprintf("  %scycle=%s%s", D, shortID(c.CycleID), R)
	}
	return fmt.Sprintf(" %s%s%s  %s -> %s%s", D, ts, R, phaseBadge(c.From), phaseBadge(c.To), cycle)
}

// transcriptLine renders one replay transcript entry.
func transcriptLine(e engine.TranscriptEntry) string {
	kind := fmt.Sprintf("%-6s", e.Kind)
	switch e.Kind {
	case "audio":
		return fmt.Sprintf(" %s  %s%s%s  %scontrol-room audio%s", fmtOffset(e.Offset), B+FBRed, kind, R, FBWht, R)
	case "reset":
		return fmt.Sprintf(" %s  %s%s%s  %s -> %s", fmtOffset(e.Offset), FBYel, kind, R, phaseBadge(e.From), phaseBadge(e.To))
	default:
		return fmt.Sprintf(" %s  %s%s%s  %s -> %s", fmtOffset(e.Offset), FCyn, kind, R, phaseBadge(e.From), phaseBadge(e.To))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// logTable renders alert log entries as a fixed-width table.
func logTable(entries []model.LogEntry) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(" %s%-19s  %-8s  %-16s%s\n", D, "TIME", "TYPE", "STATUS", R))
	sb.WriteString(" " + hr() + "\n")
	if len(entries) == 0 {
		sb.WriteString(fmt.Sprintf(" %sNo alerts recorded yet.%s\n", D, R))
		return sb.String()
	}
	for _, e := range entries {
		c := FBGrn
		if e.Type == model.LogTypeDistress {
			c = B + FBRed
		}
		sb.WriteString(fmt.Sprintf(" %-19s  %s%-8s%s  %s\n",
			e.Time.Format("02-01-2006 15:04:05"), c, e.Type, R, e.Status))
	}
	return sb.String()
}
