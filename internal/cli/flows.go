package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/ir"
)

// FlowSummary is one live flow as listed by the flows command.
type FlowSummary struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id,omitempty"`
	DisplayName string `json:"display_name"`
	Fingerprint string `json:"fingerprint"`
	Tracked     bool   `json:"tracked"`
}

// NewFlowsCommand creates the flows command.
func NewFlowsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "flows <project>",
		Short: "List the live flows of a project",
		Long: `List the live flows of a project with their content fingerprints.

Tracked flows were created by a release and follow the repository; the
others were made by hand and are never touched by releases.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlows(rootOpts, args[0], cmd)
		},
	}
}

func runFlows(opts *RootOptions, projectID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := openApp(opts, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	live, err := a.store.LiveState(ctx, projectID)
	if err != nil {
		return formatter.Fail(err)
	}
	mapping, err := a.store.GetMapping(ctx, projectID)
	if err != nil {
		return formatter.Fail(err)
	}

	tracked := make(map[string]bool, len(mapping.Flows))
	for key := range mapping.Flows {
		if target, ok := mapping.TargetID(key); ok {
			tracked[target] = true
		}
	}

	summaries := make([]FlowSummary, 0, len(live.Flows))
	for _, f := range live.Flows {
		fp, err := ir.Fingerprint(f.Version)
		if err != nil {
			fp = "invalid: " + err.Error()
		}
		summaries = append(summaries, FlowSummary{
			ID:          f.ID,
			ExternalID:  f.ExternalID,
			DisplayName: f.Version.DisplayName,
			Fingerprint: fp,
			Tracked:     tracked[f.ID],
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}
	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No flows.")
		return nil
	}

	rows := [][]string{{"ID", "KEY", "NAME", "FINGERPRINT", "TRACKED"}}
	for _, s := range summaries {
		fp := s.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		rows = append(rows, []string{s.ID, s.ExternalID, s.DisplayName, fp, fmt.Sprint(s.Tracked)})
	}
	return formatter.Table(rows)
}
