package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mskavach/kavach/config"
	"github.com/mskavach/kavach/model"
)

func renderControlPage(st model.EngineState, loc config.LocationConfig, now time.Time, width int) string {
	var sb strings.Builder
	iw := pageInnerW(width)

	sb.WriteString(titleStyle.Render(" CONTROL ROOM"))
	sb.WriteString("\n")

	if st.Phase != model.PhaseControlAlert {
		lines := []string{
			okStyle.Render("  Monitoring active"),
			"",
			"  All connected MS KAVACH devices are functioning normally.",
			dimStyle.Render("  - No active emergency alerts"),
			dimStyle.Render("  - No distress signals detected"),
			dimStyle.Render("  - Control room is in passive monitoring mode"),
		}
		if st.Phase.Escalating() {
			lines = append(lines, "", warnStyle.Render(fmt.Sprintf("  Incoming escalation from the field (%s)", st.Phase)))
		}
		sb.WriteString(boxSection("STATUS", lines, iw))
		return sb.String()
	}

	// Blink on a one-second period.
	banner := alarmStyle
	if now.UnixMilli()/500%2 == 1 {
		banner = alarmDimStyle
	}
	sb.WriteString(" " + banner.Width(iw+4).Render("CONTROL ROOM ALERT") + "\n")
	sb.WriteString(" " + banner.Width(iw+4).Render("Emergency signal received from MS KAVACH device") + "\n\n")

	audio := warnStyle.Render("pending")
	if st.ControlAudioFired {
		audio = critStyle.Render("played")
	}
	verify := []string{
		kvLine("Evidence", valueStyle.Render(st.Evidence)),
		kvLine("Received", valueStyle.Render(st.PhaseEnteredAt.Format("02-01-2006 15:04:05"))),
		kvLine("Audio alert", audio),
	}
	if st.CycleID != "" {
		verify = append(verify, kvLine("Cycle", dimStyle.Render(st.CycleID)))
	}
	sb.WriteString(boxSection("IMAGE VERIFICATION", verify, iw))

	location := []string{
		kvLine("Location", valueStyle.Render(loc.Name)),
		kvLine("Coordinates", valueStyle.Render(fmt.Sprintf("%.4f, %.4f", loc.Lat, loc.Lon))),
		kvLine("Map", valueStyle.Render(loc.MapsURL())),
	}
	sb.WriteString(boxSection("LOCATION DETAILS", location, iw))

	actions := []string{
		"  1. Operator verifies the incoming image",
		"  2. If distress is confirmed, response protocols are initiated",
		"  3. Camera location is identified",
		"  4. Alert is escalated to the nearest response units",
		"",
		dimStyle.Render("  Targets: local police, women safety units, emergency patrol"),
		orangeStyle.Render("  Simulation only. Communication actions and location are not real."),
	}
	sb.WriteString(boxSection("RESPONSE ACTIONS", actions, iw))
	return sb.String()
}
