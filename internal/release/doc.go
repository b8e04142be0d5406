// Package release promotes flow definitions into a live project.
//
// Create resolves the desired state (a git checkout or the snapshot of an
// earlier release), diffs it against the live project through the project's
// identity mapping, applies the operations in plan order, persists the
// mapping, snapshots the resulting live state and records a release. Plan
// runs the same resolution and diff without applying anything.
//
// # Failure semantics
//
// NotFound and Validation errors are returned before anything is written.
// Apply is not transactional: if an operation fails, the operations before it
// stay applied, the mapping entries they produced are persisted so that a
// retry does not duplicate created flows, and no release is recorded.
// A mapping revision that moved since it was read is a ConcurrencyConflict;
// the whole release should be retried.
package release
