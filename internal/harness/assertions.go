package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the plan to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Plan     diff.SyncPlan
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nPlan:\n")
	for i, op := range e.Plan.Operations {
		fmt.Fprintf(&buf, "  [%d] %s %s", i+1, op.Type, op.Flow.ID)
		if op.TargetFlow != nil {
			fmt.Fprintf(&buf, " -> %s", op.TargetFlow.ID)
		}
		buf.WriteByte('\n')
	}
	for _, e := range e.Plan.Errors {
		fmt.Fprintf(&buf, "  [!] %s %s\n", e.Code, e.FlowID)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertOperation:
		return assertOperation(result.Plan, a)
	case AssertOperationOrder:
		return assertOperationOrder(result.Plan, a)
	case AssertOperationCount:
		return assertOperationCount(result.Plan, a)
	case AssertError:
		return assertError(result.Plan, a)
	case AssertErrorCount:
		return assertErrorCount(result.Plan, a)
	case AssertLiveFlow:
		return assertLiveFlow(result, a)
	case AssertMappingEntry:
		return assertMappingEntry(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertOperation(plan diff.SyncPlan, a Assertion) error {
	for _, op := range plan.Operations {
		if op.Type != a.Op || op.Flow.ID != a.Flow {
			continue
		}
		if a.Target == "" || (op.TargetFlow != nil && op.TargetFlow.ID == a.Target) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s on %s", a.Op, a.Flow)
	if a.Target != "" {
		expected += " targeting " + a.Target
	}
	return &AssertionError{Type: AssertOperation, Expected: expected, Actual: "not found in plan", Plan: plan}
}

// assertOperationOrder checks that flows appear in the given order.
// Other operations may come in between.
func assertOperationOrder(plan diff.SyncPlan, a Assertion) error {
	positions := make(map[string]int)
	for i, op := range plan.Operations {
		if _, seen := positions[op.Flow.ID]; !seen {
			positions[op.Flow.ID] = i + 1
		}
	}

	for _, id := range a.Flows {
		if positions[id] == 0 {
			return &AssertionError{
				Type:     AssertOperationOrder,
				Expected: fmt.Sprintf("all flows present: %v", a.Flows),
				Actual:   fmt.Sprintf("missing flow: %s", id),
				Plan:     plan,
			}
		}
	}

	for i := 1; i < len(a.Flows); i++ {
		prev, curr := a.Flows[i-1], a.Flows[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertOperationOrder,
				Expected: fmt.Sprintf("flows in order: %v", a.Flows),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Plan: plan,
			}
		}
	}
	return nil
}

func assertOperationCount(plan diff.SyncPlan, a Assertion) error {
	count := 0
	for _, op := range plan.Operations {
		if a.Op == "" || op.Type == a.Op {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	what := "operations"
	if a.Op != "" {
		what = string(a.Op) + " operations"
	}
	return &AssertionError{
		Type:     AssertOperationCount,
		Expected: fmt.Sprintf("%d %s", a.Count, what),
		Actual:   fmt.Sprintf("%d %s", count, what),
		Plan:     plan,
	}
}

func assertError(plan diff.SyncPlan, a Assertion) error {
	for _, e := range plan.Errors {
		if e.Code == a.Code && e.FlowID == a.Flow {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("%s for %s", a.Code, a.Flow),
		Actual:   "not reported",
		Plan:     plan,
	}
}

func assertErrorCount(plan diff.SyncPlan, a Assertion) error {
	if len(plan.Errors) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorCount,
		Expected: fmt.Sprintf("%d errors", a.Count),
		Actual:   fmt.Sprintf("%d errors", len(plan.Errors)),
		Plan:     plan,
	}
}

func assertLiveFlow(result *Result, a Assertion) error {
	var found *ir.FlowState
	for i := range result.Live.Flows {
		if result.Live.Flows[i].ExternalID == a.Key {
			found = &result.Live.Flows[i]
			break
		}
	}

	switch {
	case a.Absent && found == nil:
		return nil
	case a.Absent:
		return &AssertionError{Type: AssertLiveFlow, Expected: fmt.Sprintf("no live flow for %s", a.Key), Actual: "found " + found.ID, Plan: result.Plan}
	case found == nil:
		return &AssertionError{Type: AssertLiveFlow, Expected: fmt.Sprintf("live flow for %s", a.Key), Actual: "not found", Plan: result.Plan}
	case a.DisplayName != "" && found.Version.DisplayName != a.DisplayName:
		return &AssertionError{
			Type:     AssertLiveFlow,
			Expected: fmt.Sprintf("%s named %q", a.Key, a.DisplayName),
			Actual:   fmt.Sprintf("named %q", found.Version.DisplayName),
			Plan:     result.Plan,
		}
	}
	return nil
}

func assertMappingEntry(result *Result, a Assertion) error {
	e, ok := result.Mapping.Flows[a.Key]
	expected := fmt.Sprintf("%s -> %s (deleted=%t)", a.Key, a.Target, a.Deleted)
	if !ok {
		return &AssertionError{Type: AssertMappingEntry, Expected: expected, Actual: "no entry", Plan: result.Plan}
	}
	if e.TargetID != a.Target || e.Deleted != a.Deleted {
		return &AssertionError{
			Type:     AssertMappingEntry,
			Expected: expected,
			Actual:   fmt.Sprintf("%s -> %s (deleted=%t)", a.Key, e.TargetID, e.Deleted),
			Plan:     result.Plan,
		}
	}
	return nil
}
