package ir

import (
	"encoding/json"
	"fmt"
)

// snapshotDoc is the decoded form of a stored snapshot.
type snapshotDoc struct {
	Format    string      `json:"format"`
	ProjectID string      `json:"project_id"`
	Flows     []FlowState `json:"flows"`
}

// EncodeSnapshot serializes a project state as canonical JSON. The project id
// is part of the document, so equal states of different projects get
// different snapshot ids.
func EncodeSnapshot(projectID string, state ProjectState) ([]byte, error) {
	flows := make(Array, len(state.Flows))
	for i, f := range state.Flows {
		obj := Object{
			"id":      String(f.ID),
			"version": versionObject(f.Version, false),
		}
		if f.ExternalID != "" {
			obj["external_id"] = String(f.ExternalID)
		}
		flows[i] = obj
	}

	doc := Object{
		"format":     String(SnapshotFormat),
		"project_id": String(projectID),
		"flows":      flows,
	}
	data, err := MarshalCanonical(doc)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a document produced by EncodeSnapshot.
func DecodeSnapshot(data []byte) (string, ProjectState, error) {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", ProjectState{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Format != SnapshotFormat {
		return "", ProjectState{}, fmt.Errorf("decode snapshot: unsupported format %q", doc.Format)
	}
	state := ProjectState{Flows: doc.Flows}
	if state.Flows == nil {
		state.Flows = []FlowState{}
	}
	return doc.ProjectID, state.Normalize(), nil
}
