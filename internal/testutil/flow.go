package testutil

import "github.com/roach88/promote/internal/ir"

// Flow builds a flow whose definition carries a single "step" field, so two
// flows built with the same step have the same fingerprint.
func Flow(id, key, name, step string, refs ...string) ir.FlowState {
	return ir.FlowState{
		ID:         id,
		ExternalID: key,
		Version: ir.FlowVersion{
			DisplayName: name,
			Definition:  ir.Object{"step": ir.String(step)},
			References:  refs,
		},
	}
}

// State builds a project state from flows in order.
func State(flows ...ir.FlowState) ir.ProjectState {
	return ir.ProjectState{Flows: flows}
}

// Mapping builds a mapping from key/target id pairs.
func Mapping(projectID string, pairs ...string) ir.MappingState {
	if len(pairs)%2 != 0 {
		panic("testutil.Mapping: odd number of arguments")
	}
	m := ir.NewMappingState(projectID)
	for i := 0; i < len(pairs); i += 2 {
		m.Flows[pairs[i]] = ir.MappingEntry{SourceID: pairs[i], TargetID: pairs[i+1]}
	}
	return m
}

// Tombstone marks key as deleted in m.
func Tombstone(m ir.MappingState, key string) ir.MappingState {
	e := m.Flows[key]
	e.Deleted = true
	m.Flows[key] = e
	return m
}
