package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mskavach/kavach/engine"
)

func newReplayCmd(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "replay SCENARIO.yaml...",
		Short: "Replay scripted scenarios against a virtual clock",
		Long: `replay runs each scenario file through a fresh engine on a virtual clock
and prints the resulting transitions. Steps with an "expect" phase are
checked; the command fails if any expectation does not hold.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			player := engine.NewPlayer(cfg.Timings())
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				tr, err := replayFile(player, path)
				if err != nil {
					return err
				}
				if asJSON {
					if err := writeTranscriptJSON(out, tr); err != nil {
						return err
					}
				} else {
					printTranscript(out, tr)
				}
				if !tr.Passed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scenarios failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print transcripts as JSON")
	return cmd
}

func replayFile(player *engine.Player, path string) (*engine.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	sc, err := engine.LoadScenario(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = path
	}
	return player.Play(sc), nil
}

func writeTranscriptJSON(w io.Writer, tr *engine.Transcript) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

func printTranscript(w io.Writer, tr *engine.Transcript) {
	fmt.Fprintln(w, titleLine("SCENARIO "+tr.Scenario))
	if len(tr.Entries) == 0 {
		fmt.Fprintf(w, " %sno transitions%s\n", D, R)
	}
	for _, e := range tr.Entries {
		fmt.Fprintln(w, transcriptLine(e))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, " final %s", phaseBadge(tr.Final.Phase))
	if tr.Final.Evidence != "" {
		fmt.Fprintf(w, "  evidence=%s", tr.Final.Evidence)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w)
	fmt.Fprint(w, logTable(tr.Final.Log))

	if tr.Passed() {
		fmt.Fprintf(w, "\n %sPASS%s\n\n", B+FBGrn, R)
		return
	}
	for _, m := range tr.Mismatches {
		fmt.Fprintf(w, " %sFAIL%s %s\n", B+FBRed, R, m)
	}
	fmt.Fprintln(w)
}
