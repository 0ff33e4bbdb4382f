package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/huarongfei/Event-Control-System/internal/simulate"
)

var ErrExpectationsFailed = errors.New("expectations failed")

// NewRunCommand replays a script and reports the final context. It fails when
// any step expectation does not hold.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.yaml>",
		Short: "Replay a match script",
		Long: `Replay a match script through a fresh scoring engine.

Event ids and timestamps are derived from the step number, so two runs of the
same script produce identical output.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := simulate.Load(args[0])
			if err != nil {
				return err
			}
			res, err := simulate.Run(s)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				err = writeJSON(w, res)
			} else {
				err = printResult(w, res)
			}
			if err != nil {
				return err
			}
			if !res.Passed() {
				return fmt.Errorf("%s: %d of %d steps: %w", res.Name, len(res.Failures), len(res.Steps), ErrExpectationsFailed)
			}
			return nil
		},
	}
}

func printResult(w io.Writer, res *simulate.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%s)\n", res.Name, res.Sport)
	fmt.Fprintln(tw, "STEP\tACTION\tEVENT\tSCORE\tNOTE")
	for _, st := range res.Steps {
		event, note := "-", st.Failure
		if st.Event != nil {
			event = string(st.Event.EventType)
			if !st.Event.IsValid && note == "" {
				note = "rejected: " + st.Event.ValidationError
			} else if st.Event.Warning != "" && note == "" {
				note = st.Event.Warning
			}
		}
		if st.Undone != "" {
			event = "undo " + st.Undone
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d-%d\t%s\n", st.Step, st.Action, event, st.Home, st.Away, note)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nfinal %d-%d, period %d, %d events, %d rejected\n",
		res.Context.HomeScore, res.Context.AwayScore, res.Context.CurrentPeriod,
		res.Summary.TotalEvents, res.Rejected)
	if res.Passed() {
		fmt.Fprintln(w, "✓ all expectations held")
		return nil
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "✗ %s\n", f)
	}
	return nil
}
