package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// marshalDefinition converts a flow definition to canonical JSON TEXT.
func marshalDefinition(def ir.Object) (string, error) {
	if def == nil {
		def = ir.Object{}
	}
	data, err := ir.MarshalCanonical(def)
	if err != nil {
		return "", fmt.Errorf("marshal definition: %w", err)
	}
	return string(data), nil
}

// marshalRefs converts a reference list to canonical JSON TEXT.
// Order is preserved: it is part of the flow's content.
func marshalRefs(refs []string) (string, error) {
	if refs == nil {
		refs = []string{}
	}
	data, err := ir.MarshalCanonical(refs)
	if err != nil {
		return "", fmt.Errorf("marshal references: %w", err)
	}
	return string(data), nil
}

// unmarshalVersion rebuilds a FlowVersion from its stored columns.
// Uses ir.Object.UnmarshalJSON, which keeps integers exact.
func unmarshalVersion(name, def, refs string) (ir.FlowVersion, error) {
	v := ir.FlowVersion{DisplayName: name}
	if def != "" && def != "{}" {
		if err := json.Unmarshal([]byte(def), &v.Definition); err != nil {
			return ir.FlowVersion{}, fmt.Errorf("unmarshal definition: %w", err)
		}
	}
	if refs != "" && refs != "[]" {
		if err := json.Unmarshal([]byte(refs), &v.References); err != nil {
			return ir.FlowVersion{}, fmt.Errorf("unmarshal references: %w", err)
		}
	}
	return v, nil
}
