// Package store provides SQLite-backed storage for flow promotion.
//
// Tables:
//   - flows: live flow definitions of every project, ordered by seq
//   - project_mappings, mapping_entries: external key to live flow id, per project
//   - snapshots: immutable, content-addressed captures of a project's live flows
//   - project_releases: append-only release records
//   - git_repos, users: host-side collaborators
//
// # Critical Patterns
//
// Optimistic mapping writes:
//   - UpdateMapping succeeds only if the stored revision equals the revision read
//   - A mismatch returns ir.ErrMappingConflict and writes nothing
//
// Append/merge-only mapping:
//   - Entries are upserted and never deleted; deletes become tombstones
//   - A live target id belongs to at most one key (partial UNIQUE index)
//
// Content-addressed snapshots:
//   - The id is the SHA-256 of the canonical encoding (internal/ir)
//   - INSERT ... ON CONFLICT DO NOTHING makes saving idempotent
//
// Deterministic reads:
//   - Live state is ordered by seq ASC
//   - Releases are ordered by created DESC, seq DESC with a keyset cursor
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
