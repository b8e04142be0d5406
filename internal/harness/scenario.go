package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Live lists the flows present in the project before the release.
	Live []FlowSpec `yaml:"live,omitempty"`

	// Mapping seeds the identity mapping, keyed by external key.
	Mapping map[string]EntrySpec `yaml:"mapping,omitempty"`

	// Desired is the state the release promotes.
	Desired []FlowSpec `yaml:"desired"`

	// Select restricts the release to these flow ids or keys. Omitted
	// selects everything; an empty list selects nothing.
	Select []string `yaml:"select,omitempty"`

	// Apply runs the release after planning it.
	Apply bool `yaml:"apply,omitempty"`

	// Assertions validate the plan and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// FlowSpec is a flow as written in a scenario.
type FlowSpec struct {
	ID          string         `yaml:"id"`
	ExternalID  string         `yaml:"external_id,omitempty"`
	DisplayName string         `yaml:"display_name"`
	Definition  map[string]any `yaml:"definition,omitempty"`
	References  []string       `yaml:"references,omitempty"`
}

// EntrySpec is a mapping entry as written in a scenario.
type EntrySpec struct {
	// Source defaults to the key.
	Source  string `yaml:"source,omitempty"`
	Target  string `yaml:"target"`
	Deleted bool   `yaml:"deleted,omitempty"`
}

// Assertion validates the plan or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Op is an operation type (operation, operation_count).
	Op diff.OperationType `yaml:"op,omitempty"`

	// Flow is the flow id shown in the plan (operation, error).
	Flow string `yaml:"flow,omitempty"`

	// Target is the live flow an update overwrites (operation), or the
	// target id of a mapping entry (mapping_entry).
	Target string `yaml:"target,omitempty"`

	// Flows is the expected order of flow ids (operation_order).
	Flows []string `yaml:"flows,omitempty"`

	// Count is the expected number (operation_count, error_count).
	Count int `yaml:"count,omitempty"`

	// Code is the expected error code (error).
	Code diff.SyncErrorCode `yaml:"code,omitempty"`

	// Key is an external key (live_flow, mapping_entry).
	Key string `yaml:"key,omitempty"`

	// DisplayName is the expected display name (live_flow).
	DisplayName string `yaml:"display_name,omitempty"`

	// Absent expects no live flow with Key (live_flow).
	Absent bool `yaml:"absent,omitempty"`

	// Deleted expects a tombstone (mapping_entry).
	Deleted bool `yaml:"deleted,omitempty"`
}

// Assertion type constants.
const (
	AssertOperation      = "operation"
	AssertOperationOrder = "operation_order"
	AssertOperationCount = "operation_count"
	AssertError          = "error"
	AssertErrorCount     = "error_count"
	AssertLiveFlow       = "live_flow"
	AssertMappingEntry   = "mapping_entry"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateFlows("live", s.Live); err != nil {
		return err
	}
	if err := validateFlows("desired", s.Desired); err != nil {
		return err
	}
	for key, e := range s.Mapping {
		if e.Target == "" {
			return fmt.Errorf("mapping[%s]: target is required", key)
		}
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("at least one assertion is required")
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, s.Apply); err != nil {
			return err
		}
	}
	return nil
}

func validateFlows(section string, flows []FlowSpec) error {
	for i, f := range flows {
		if f.ID == "" {
			return fmt.Errorf("%s[%d]: id is required", section, i)
		}
		if f.DisplayName == "" {
			return fmt.Errorf("%s[%d]: display_name is required", section, i)
		}
	}
	return nil
}

func validateAssertion(index int, a Assertion, apply bool) error {
	switch a.Type {
	case AssertOperation:
		if a.Op == "" || a.Flow == "" {
			return fmt.Errorf("assertions[%d]: op and flow are required for operation", index)
		}
	case AssertOperationOrder:
		if len(a.Flows) == 0 {
			return fmt.Errorf("assertions[%d]: flows list is required for operation_order", index)
		}
	case AssertOperationCount, AssertErrorCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertError:
		if a.Code == "" || a.Flow == "" {
			return fmt.Errorf("assertions[%d]: code and flow are required for error", index)
		}
	case AssertLiveFlow:
		if !apply {
			return fmt.Errorf("assertions[%d]: live_flow requires apply", index)
		}
		if a.Key == "" {
			return fmt.Errorf("assertions[%d]: key is required for live_flow", index)
		}
	case AssertMappingEntry:
		if !apply {
			return fmt.Errorf("assertions[%d]: mapping_entry requires apply", index)
		}
		if a.Key == "" || a.Target == "" {
			return fmt.Errorf("assertions[%d]: key and target are required for mapping_entry", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// toState converts scenario flows to a project state.
func toState(flows []FlowSpec) (ir.ProjectState, error) {
	state := ir.ProjectState{Flows: make([]ir.FlowState, 0, len(flows))}
	for _, f := range flows {
		def, err := ir.ObjectFromGo(f.Definition)
		if err != nil {
			return ir.ProjectState{}, fmt.Errorf("flow %s: definition: %w", f.ID, err)
		}
		state.Flows = append(state.Flows, ir.FlowState{
			ID:         f.ID,
			ExternalID: f.ExternalID,
			Version: ir.FlowVersion{
				DisplayName: f.DisplayName,
				Definition:  def,
				References:  f.References,
			},
		})
	}
	return state, nil
}

// toMapping converts scenario entries to a mapping.
func toMapping(projectID string, entries map[string]EntrySpec) ir.MappingState {
	m := ir.NewMappingState(projectID)
	for key, e := range entries {
		source := e.Source
		if source == "" {
			source = key
		}
		m.Flows[key] = ir.MappingEntry{SourceID: source, TargetID: e.Target, Deleted: e.Deleted}
	}
	return m
}
