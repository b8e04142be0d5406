// Package diff computes the reconciliation plan between the live state of a
// project and a desired state.
//
// Diff is pure: it reads the two states and the identity mapping and returns
// an ordered list of operations plus the per-flow problems it found. The same
// inputs always produce the same output, so it is safe to call repeatedly for
// previews and concurrently from several goroutines.
//
// Operation is a closed sum type. Consumers handle it through Visitor, so a
// new operation kind breaks every consumer at compile time until handled.
package diff
