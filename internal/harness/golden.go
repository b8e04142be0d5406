package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

// PlanJSON renders a plan as indented canonical JSON: keys sorted, one
// field per line, trailing newline. It is the golden file format.
func PlanJSON(plan diff.SyncPlan) ([]byte, error) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, err
	}
	v, err := ir.ParseValue(raw)
	if err != nil {
		return nil, fmt.Errorf("plan is not canonical: %w", err)
	}
	canonical, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, canonical, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario, fails t on assertion failures and
// compares the plan against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares a result's plan against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	planJSON, err := PlanJSON(result.Plan)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, planJSON)
	return nil
}
