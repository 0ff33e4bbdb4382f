package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/huarongfei/Event-Control-System/internal/simulate"
)

type validateOutput struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Steps int    `json:"steps,omitempty"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand checks a script without replaying it.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "validate <script.yaml>",
		Short:        "Check a match script without running it",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := simulate.Load(args[0])
			out := validateOutput{Valid: err == nil}
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Name, out.Steps = s.Name, len(s.Steps)
			}

			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if werr := writeJSON(w, out); werr != nil {
					return werr
				}
			} else if err == nil {
				fmt.Fprintf(w, "✓ %s: %d steps\n", out.Name, out.Steps)
			} else {
				fmt.Fprintf(w, "✗ %s\n", out.Error)
			}
			return err
		},
	}
}
