package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/idgen"
	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/release"
	"github.com/roach88/promote/internal/store"
	"github.com/roach88/promote/internal/testutil"
)

// ProjectID is the project every scenario runs in.
const ProjectID = "scenario"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Plan is the plan computed before any change.
	Plan diff.SyncPlan `json:"plan"`

	// Live and Mapping are the project after the release when the scenario
	// applies it, and before otherwise.
	Live    ir.ProjectState `json:"live"`
	Mapping ir.MappingState `json:"mapping"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// AddError records an assertion failure.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation:
//  1. import the live flows and seed the mapping
//  2. plan a GIT release of the desired state
//  3. apply it, if requested
//  4. evaluate assertions
//
// An error is returned only if the scenario could not be executed; failed
// assertions are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:",
		store.WithIDGenerator(idgen.NewSequence("live")),
		store.WithClock(testutil.NewClock().Now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := seed(ctx, st, scenario); err != nil {
		return nil, err
	}

	desired, err := toState(scenario.Desired)
	if err != nil {
		return nil, fmt.Errorf("desired state: %w", err)
	}
	git := testutil.NewGitStates()
	git.Set(ProjectID, desired)

	svc := release.New(release.Deps{
		Live:      st,
		Mappings:  st,
		Snapshots: st,
		Releases:  st,
		Users:     st,
		Git:       git,
	},
		release.WithIDGenerator(idgen.NewSequence("release")),
		release.WithClock(testutil.NewClock().Now),
		release.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	req := release.CreateRequest{
		Type:             ir.ReleaseGit,
		Name:             scenario.Name,
		SelectedFlowsIDs: scenario.Select,
	}

	result := &Result{Pass: true}
	result.Plan, err = svc.Plan(ctx, ProjectID, "harness", req.PlanRequest())
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	if scenario.Apply {
		if _, err := svc.Create(ctx, ProjectID, "harness", "harness", req); err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}
	}

	if result.Live, err = st.LiveState(ctx, ProjectID); err != nil {
		return nil, err
	}
	if result.Mapping, err = st.GetMapping(ctx, ProjectID); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// seed imports the scenario's live flows and mapping.
func seed(ctx context.Context, st *store.Store, scenario *Scenario) error {
	live, err := toState(scenario.Live)
	if err != nil {
		return fmt.Errorf("live state: %w", err)
	}
	for _, f := range live.Flows {
		if err := st.ImportFlow(ctx, ProjectID, f); err != nil {
			return fmt.Errorf("seed live flow %s: %w", f.ID, err)
		}
	}

	if len(scenario.Mapping) == 0 {
		return nil
	}
	if _, err := st.UpdateMapping(ctx, toMapping(ProjectID, scenario.Mapping)); err != nil {
		return fmt.Errorf("seed mapping: %w", err)
	}
	return nil
}
