// Package lock serializes releases of the same project.
//
// A release reads the mapping, applies operations and writes the mapping
// back; two releases interleaving on one project would each miss the other's
// new entries. Holding a project lock for the whole release prevents that.
// The store's revision check still rejects a stale write if the lock is lost.
package lock

import "context"

// Locker grants exclusive access to a project.
type Locker interface {
	// Lock blocks until the project is held by the caller or ctx is done.
	// The returned function releases the lock and is safe to call once.
	Lock(ctx context.Context, projectID string) (unlock func(), err error)
}

// Nop grants every lock immediately. For single-process tools that rely on
// the store's revision check alone.
type Nop struct{}

// Lock implements Locker.
func (Nop) Lock(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
