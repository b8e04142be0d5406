package ir

import (
	"slices"
	"time"
)

// FlowVersion is the content of a flow at one point in time.
type FlowVersion struct {
	DisplayName string `json:"display_name"`
	Definition  Object `json:"definition,omitempty"`

	// References lists the external keys of other flows this flow calls.
	References []string `json:"references,omitempty"`
}

// FlowState is one flow definition as seen by one environment.
type FlowState struct {
	// ID is environment-local: the source-side id for a desired state,
	// the target-side id for a live state.
	ID string `json:"id"`

	// ExternalID is the identity preserved across environments.
	ExternalID string `json:"external_id,omitempty"`

	Version FlowVersion `json:"version"`
}

// ProjectState is a point-in-time description of all flows in a project.
// Flow order is significant: diff output preserves it.
type ProjectState struct {
	Flows []FlowState `json:"flows"`
}

// FlowByID returns the flow with the given environment-local id.
func (s ProjectState) FlowByID(id string) (FlowState, bool) {
	for _, f := range s.Flows {
		if f.ID == id {
			return f, true
		}
	}
	return FlowState{}, false
}

// Normalize returns the state with empty definitions and reference lists set
// to nil so that decoded and constructed states compare equal.
func (s ProjectState) Normalize() ProjectState {
	out := ProjectState{Flows: make([]FlowState, len(s.Flows))}
	for i, f := range s.Flows {
		f.Version = f.Version.Normalize()
		out.Flows[i] = f
	}
	return out
}

// Normalize drops empty collections.
func (v FlowVersion) Normalize() FlowVersion {
	if len(v.Definition) == 0 {
		v.Definition = nil
	}
	if len(v.References) == 0 {
		v.References = nil
	} else {
		v.References = slices.Clone(v.References)
	}
	return v
}

// MappingEntry records which target-side flow a source-side flow became.
type MappingEntry struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`

	// Deleted marks a tombstone: the target flow was removed by a release.
	// The entry is kept so the key is never re-created under a fresh identity
	// without the engine knowing about it.
	Deleted bool `json:"deleted,omitempty"`
}

// MappingState is the cross-environment identity table of one project,
// keyed by external key. Entries are never removed.
type MappingState struct {
	ProjectID string                  `json:"project_id"`
	Flows     map[string]MappingEntry `json:"flows"`

	// Revision increases by one on every stored write. Writers pass back the
	// revision they read; a mismatch is a concurrency conflict.
	Revision int64     `json:"revision"`
	Updated  time.Time `json:"updated"`
}

// NewMappingState returns an empty mapping for a project.
func NewMappingState(projectID string) MappingState {
	return MappingState{ProjectID: projectID, Flows: map[string]MappingEntry{}}
}

// TargetID resolves an external key to a live target id. Tombstoned and
// unknown keys resolve to ("", false).
func (m MappingState) TargetID(key string) (string, bool) {
	e, ok := m.Flows[key]
	if !ok || e.Deleted || e.TargetID == "" {
		return "", false
	}
	return e.TargetID, true
}

// Tracks reports whether the key was ever materialized by a release.
func (m MappingState) Tracks(key string) bool {
	_, ok := m.Flows[key]
	return ok
}

// Clone returns a deep copy safe to mutate.
func (m MappingState) Clone() MappingState {
	c := m
	c.Flows = make(map[string]MappingEntry, len(m.Flows))
	for k, v := range m.Flows {
		c.Flows[k] = v
	}
	return c
}

// ReleaseType identifies where the desired state of a release comes from.
type ReleaseType string

const (
	ReleaseGit      ReleaseType = "GIT"
	ReleaseRollback ReleaseType = "ROLLBACK"
)

// Valid reports whether t is a known release type.
func (t ReleaseType) Valid() bool {
	return t == ReleaseGit || t == ReleaseRollback
}

// UserMeta is the display view of a user.
type UserMeta struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProjectRelease is the immutable audit record of one promotion.
type ProjectRelease struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"projectId"`
	ImportedBy  string      `json:"importedBy,omitempty"`
	FileID      string      `json:"fileId"`
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	Type        ReleaseType `json:"type"`
	Created     time.Time   `json:"created"`
	Updated     time.Time   `json:"updated"`

	// ImportedByUser is filled by listing only.
	ImportedByUser *UserMeta `json:"importedByUser,omitempty"`
}

// ReleasePage is one page of a project's releases, newest first.
// NextCursor is empty on the last page.
type ReleasePage struct {
	Releases   []ProjectRelease `json:"data"`
	NextCursor string           `json:"next,omitempty"`
}

// RepoConfig is the git source configured for a project.
type RepoConfig struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`

	// Path is the local checkout holding flow definition files.
	Path string `json:"path"`
}
