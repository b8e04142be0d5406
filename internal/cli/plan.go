package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/release"
)

// requestFlags are the flags that pick the desired state of a release.
type requestFlags struct {
	Rollback string
	RepoID   string
	Select   []string
}

func (r *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.Rollback, "rollback", "", "roll back to this release id instead of releasing git")
	cmd.Flags().StringVar(&r.RepoID, "repo-id", "", "git repository id (defaults to the project's configured repository)")
	cmd.Flags().StringSliceVar(&r.Select, "select", nil, "release only these flow ids or keys")
}

// planRequest builds the request. An unset --select releases everything;
// --select= with no value releases nothing.
func (r *requestFlags) planRequest(cmd *cobra.Command) release.PlanRequest {
	req := release.PlanRequest{Type: ir.ReleaseGit, RepoID: r.RepoID}
	if r.Rollback != "" {
		req.Type = ir.ReleaseRollback
		req.ProjectReleaseID = r.Rollback
	}
	if cmd.Flags().Changed("select") {
		req.SelectedFlowsIDs = append([]string{}, r.Select...)
	}
	return req
}

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
	requestFlags
	User string
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan <project>",
		Short: "Preview a release",
		Long: `Show the operations a release would apply to a project, and the flows
it would skip, without changing anything.

With --verbose, every update is shown with a line diff of the flow.

Examples:
  promote plan shop --user u1
  promote plan shop --user u1 --select approve-order,notify
  promote plan shop --user u1 --rollback 0190c5a2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(opts, args[0], cmd)
		},
	}

	opts.requestFlags.register(cmd)
	cmd.Flags().StringVar(&opts.User, "user", "", "user requesting the preview")

	return cmd
}

func runPlan(opts *PlanOptions, projectID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	req := opts.planRequest(cmd)

	var plan diff.SyncPlan
	var updates []diff.UpdateFlow
	if opts.Verbose {
		res, err := a.service.Diff(ctx, projectID, req)
		if err != nil {
			return formatter.Fail(err)
		}
		plan = diff.ToPlan(res)
		for _, op := range res.Operations {
			if u, ok := op.(diff.UpdateFlow); ok {
				updates = append(updates, u)
			}
		}
	} else {
		plan, err = a.service.Plan(ctx, projectID, opts.User, req)
		if err != nil {
			return formatter.Fail(err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(plan)
	}

	fmt.Fprintf(formatter.Writer, "Plan for %s (%s)\n\n", projectID, req.Type)
	if err := writePlan(formatter, plan); err != nil {
		return err
	}
	for _, u := range updates {
		if err := writeContentDiff(formatter.Writer, u); err != nil {
			return err
		}
	}
	return nil
}

// writePlan renders operations, skipped flows and a summary line.
func writePlan(formatter *OutputFormatter, plan diff.SyncPlan) error {
	if len(plan.Operations) == 0 {
		fmt.Fprintln(formatter.Writer, "No changes.")
	} else {
		rows := [][]string{{"#", "OPERATION", "FLOW", "NAME", "TARGET"}}
		for i, op := range plan.Operations {
			target := ""
			if op.TargetFlow != nil {
				target = op.TargetFlow.ID
			}
			rows = append(rows, []string{strconv.Itoa(i + 1), string(op.Type), op.Flow.ID, op.Flow.DisplayName, target})
		}
		if err := formatter.Table(rows); err != nil {
			return err
		}
	}

	if len(plan.Errors) > 0 {
		fmt.Fprintln(formatter.Writer)
		fmt.Fprintln(formatter.Writer, "Skipped:")
		rows := [][]string{{"CODE", "FLOW", "KEY", "MESSAGE"}}
		for _, e := range plan.Errors {
			rows = append(rows, []string{string(e.Code), e.FlowID, e.Key, e.Message})
		}
		if err := formatter.Table(rows); err != nil {
			return err
		}
	}

	counts := plan.Counts()
	fmt.Fprintf(formatter.Writer, "\n%d to create, %d to update, %d to delete, %d skipped\n",
		counts[diff.OpCreateFlow], counts[diff.OpUpdateFlow], counts[diff.OpDeleteFlow], len(plan.Errors))
	return nil
}

func writeContentDiff(w io.Writer, u diff.UpdateFlow) error {
	text, err := diff.ContentDiff(u.ExistingFlow.Version, u.NewFlow.Version)
	if err != nil {
		return fmt.Errorf("diff %s: %w", u.Key, err)
	}
	fmt.Fprintf(w, "\n~ %s (%s -> %s)\n%s", u.Key, u.NewFlow.ID, u.ExistingFlow.ID, text)
	return nil
}
