package source

import (
	"context"
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// RepoStore returns the git repository configured for a project.
type RepoStore interface {
	GitRepo(ctx context.Context, projectID string) (ir.RepoConfig, error)
}

// Git provides the desired state of a project from its configured repository.
type Git struct {
	repos RepoStore
}

// NewGit creates a Git source.
func NewGit(repos RepoStore) *Git {
	return &Git{repos: repos}
}

// GitState loads the desired state from the project's repository checkout.
// A non-empty repoID must name the configured repository; a project without
// one, or with another one, is ir.ErrNotFound.
func (g *Git) GitState(ctx context.Context, projectID, repoID string) (ir.ProjectState, error) {
	repo, err := g.repos.GitRepo(ctx, projectID)
	if err != nil {
		return ir.ProjectState{}, err
	}
	if repoID != "" && repo.ID != repoID {
		return ir.ProjectState{}, fmt.Errorf("git repo %s for project %s: %w", repoID, projectID, ir.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return ir.ProjectState{}, err
	}

	state, err := LoadDir(repo.Path)
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("git repo %s: %w", repo.ID, err)
	}
	return state, nil
}
