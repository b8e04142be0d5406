package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/release"
)

// NewReleaseCommand creates the release command group.
func NewReleaseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Create and inspect releases",
	}
	cmd.AddCommand(newReleaseCreateCommand(rootOpts))
	cmd.AddCommand(newReleaseListCommand(rootOpts))
	cmd.AddCommand(newReleaseGetCommand(rootOpts))
	return cmd
}

// ReleaseCreateOptions holds flags for release create.
type ReleaseCreateOptions struct {
	*RootOptions
	requestFlags
	Name        string
	Description string
	Owner       string
	Importer    string
}

func newReleaseCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReleaseCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create <project>",
		Short: "Release git, or roll back, into a project",
		Long: `Apply a release to a project and record it.

Operations are applied in plan order. If one fails, the operations before
it stay applied and the release is not recorded; running the same command
again continues where it stopped.

Exit codes:
  0 - Release recorded
  1 - Release failed while changing the project, or lost a concurrent race
  2 - Command error (invalid request, unknown release, database not found, etc.)

Examples:
  promote release create shop --name "v1.4" --owner o1 --importer u1
  promote release create shop --name "undo v1.4" --owner o1 --importer u1 --rollback 0190c5a2-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReleaseCreate(opts, args[0], cmd)
		},
	}

	opts.requestFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Name, "name", "", "release name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "release description")
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner of the project")
	cmd.Flags().StringVar(&opts.Importer, "importer", "", "user performing the release")

	return cmd
}

func runReleaseCreate(opts *ReleaseCreateOptions, projectID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	plan := opts.planRequest(cmd)
	req := release.CreateRequest{
		Type:             plan.Type,
		RepoID:           plan.RepoID,
		ProjectReleaseID: plan.ProjectReleaseID,
		Name:             opts.Name,
		SelectedFlowsIDs: plan.SelectedFlowsIDs,
	}
	if cmd.Flags().Changed("description") {
		req.Description = &opts.Description
	}

	rel, err := a.service.Create(cmd.Context(), projectID, opts.Owner, opts.Importer, req)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(rel)
	}
	fmt.Fprintf(formatter.Writer, "✓ Release %s created\n", rel.ID)
	return writeRelease(formatter, rel)
}

// ReleaseListOptions holds flags for release list.
type ReleaseListOptions struct {
	*RootOptions
	Cursor string
	Limit  int
}

func newReleaseListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReleaseListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "list <project>",
		Short:         "List releases, newest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReleaseList(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "continue after a previous page")
	cmd.Flags().IntVar(&opts.Limit, "limit", 10, "page size")

	return cmd
}

func runReleaseList(opts *ReleaseListOptions, projectID string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	a, err := openApp(opts.RootOptions, formatter)
	if err != nil {
		return err
	}
	defer a.Close()

	page, err := a.service.List(cmd.Context(), projectID, opts.Cursor, opts.Limit)
	if err != nil {
		return formatter.Fail(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(page)
	}

	if len(page.Releases) == 0 {
		fmt.Fprintln(formatter.Writer, "No releases.")
		return nil
	}
	rows := [][]string{{"ID", "NAME", "TYPE", "CREATED", "IMPORTED BY"}}
	for _, r := range page.Releases {
		rows = append(rows, []string{r.ID, r.Name, string(r.Type), r.Created.Format(time.RFC3339), importerName(r)})
	}
	if err := formatter.Table(rows); err != nil {
		return err
	}
	if page.NextCursor != "" {
		fmt.Fprintf(formatter.Writer, "\nNext page: --cursor %s\n", page.NextCursor)
	}
	return nil
}

func newReleaseGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <project> <release-id>",
		Short:         "Show one release",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			rel, err := a.service.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return formatter.Fail(err)
			}
			if formatter.Format == "json" {
				return formatter.Success(rel)
			}
			return writeRelease(formatter, rel)
		},
	}
}

func writeRelease(formatter *OutputFormatter, rel ir.ProjectRelease) error {
	desc := ""
	if rel.Description != nil {
		desc = *rel.Description
	}
	return formatter.Table([][]string{
		{"FIELD", "VALUE"},
		{"id", rel.ID},
		{"project", rel.ProjectID},
		{"name", rel.Name},
		{"description", desc},
		{"type", string(rel.Type)},
		{"snapshot", rel.FileID},
		{"imported by", rel.ImportedBy},
		{"created", rel.Created.Format(time.RFC3339)},
	})
}

// importerName is the display name of a listed release's importer, falling
// back to the raw id for users no longer in the directory.
func importerName(r ir.ProjectRelease) string {
	u := r.ImportedByUser
	if u == nil {
		return r.ImportedBy
	}
	if u.FirstName != "" || u.LastName != "" {
		return fmt.Sprintf("%s %s <%s>", u.FirstName, u.LastName, u.Email)
	}
	return u.Email
}
