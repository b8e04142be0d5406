// Package ir provides the canonical representation shared by every other
// package: flow states, project states, the cross-environment mapping and
// release records, together with RFC 8785 canonical JSON and the content
// hashes built on top of it.
//
// Key design constraints:
//   - ir imports nothing internal
//   - NO float types in flow definitions - use int64 for numbers
//   - Persisted JSON uses snake_case; the release wire view uses camelCase
//   - Content fingerprints and snapshot ids are derived only from canonical JSON
package ir
