package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/promote/internal/ir"
)

// GitStates is an in-memory git source: the desired state of each project is
// whatever was last set.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type GitStates struct {
	mu     sync.Mutex
	states map[string]ir.ProjectState
	reads  int
}

// NewGitStates creates an empty git source.
func NewGitStates() *GitStates {
	return &GitStates{states: make(map[string]ir.ProjectState)}
}

// Set replaces the desired state of a project.
func (g *GitStates) Set(projectID string, state ir.ProjectState) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.states[projectID] = state
}

// Reads returns how many times GitState was called.
func (g *GitStates) Reads() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reads
}

// GitState returns the state set for the project, or ir.ErrNotFound.
// repoID is ignored.
func (g *GitStates) GitState(ctx context.Context, projectID, _ string) (ir.ProjectState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reads++
	state, ok := g.states[projectID]
	if !ok {
		return ir.ProjectState{}, fmt.Errorf("git repo for project %s: %w", projectID, ir.ErrNotFound)
	}
	return state, nil
}
