package driven

import (
	"context"
	"time"
)

// DistributedLock provides named mutual exclusion across instances.
// The sync engine holds one lock per account so passes for the same account never overlap.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns true if the lock was acquired, false if already held by another holder.
	// The lock will automatically expire after TTL (implementation dependent).
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock.
	// Safe to call even if the lock is not held or has expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a currently held lock.
	// Returns error if the lock is not held by this holder.
	// Implementations without TTL (PostgreSQL advisory locks) treat this as a no-op.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

type lockHolderKey struct{}

// WithLockHolder tags ctx with the identity of one lock acquisition.
// Locks that record holders only let the same holder release or extend.
func WithLockHolder(ctx context.Context, holder string) context.Context {
	return context.WithValue(ctx, lockHolderKey{}, holder)
}

// LockHolder returns the holder set by WithLockHolder, or "".
func LockHolder(ctx context.Context) string {
	holder, _ := ctx.Value(lockHolderKey{}).(string)
	return holder
}
