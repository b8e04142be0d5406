package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/promote/internal/idgen"
	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/source"
)

// NewRepoCommand creates the repo command group.
func NewRepoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Configure the git repository of a project",
	}
	cmd.AddCommand(newRepoSetCommand(rootOpts))
	cmd.AddCommand(newRepoShowCommand(rootOpts))
	return cmd
}

func newRepoSetCommand(rootOpts *RootOptions) *cobra.Command {
	var repoID string

	cmd := &cobra.Command{
		Use:   "set <project> <checkout-dir>",
		Short: "Point a project at a repository checkout",
		Long: `Configure the checkout a project's GIT releases read flows from.

The directory is loaded once to reject repositories with invalid flow
files. Replaces any repository configured before.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			dir, err := filepath.Abs(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "resolve path", err)
			}
			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("checkout directory not found: %s", dir), nil)
				return NewExitError(ExitCommandError, fmt.Sprintf("checkout directory not found: %s", dir))
			}

			state, err := source.LoadDir(dir)
			if err != nil && !errors.Is(err, source.ErrNoFlows) {
				_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
				return WrapExitError(ExitFailure, "invalid flow repository", err)
			}

			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			if repoID == "" {
				repoID = idgen.UUIDv7{}.Generate()
			}
			repo := ir.RepoConfig{ID: repoID, ProjectID: args[0], Path: dir}
			if err := a.store.SetGitRepo(cmd.Context(), repo); err != nil {
				return formatter.Fail(err)
			}

			if formatter.Format == "json" {
				return formatter.Success(repo)
			}
			fmt.Fprintf(formatter.Writer, "✓ Project %s reads %d flow(s) from %s (repo %s)\n", repo.ProjectID, len(state.Flows), dir, repo.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoID, "repo-id", "", "repository id (generated when empty)")
	return cmd
}

func newRepoShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <project>",
		Short:         "Show the repository configured for a project",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			a, err := openApp(rootOpts, formatter)
			if err != nil {
				return err
			}
			defer a.Close()

			repo, err := a.store.GitRepo(cmd.Context(), args[0])
			if errors.Is(err, ir.ErrNotFound) {
				_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("no repository configured for %s", args[0]), nil)
				return WrapExitError(ExitCommandError, "repository not found", err)
			}
			if err != nil {
				return formatter.Fail(err)
			}

			if formatter.Format == "json" {
				return formatter.Success(repo)
			}
			return formatter.Table([][]string{
				{"PROJECT", "REPO", "PATH"},
				{repo.ProjectID, repo.ID, repo.Path},
			})
		},
	}
}
