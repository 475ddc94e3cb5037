package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL session advisory locks.
//
// Advisory locks belong to the session that took them, so each held lock pins
// its own connection from the pool until Release. The number of pinned
// connections is capped below the pool size so lock holders can still reach
// the account store. Limitations:
//   - TTL is ignored; a lock lives until Release or until its connection drops
//   - Extend is a no-op
type AdvisoryLock struct {
	db *DB

	mu sync.Mutex
	// conns maps held names to their pinned connection.
	// A nil entry is a reservation whose connection is still being taken.
	conns map[string]*sql.Conn
	// slots bounds pinned connections; nil means unbounded.
	slots chan struct{}
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
// maxHeld caps how many locks may be held at once. Zero derives the cap from
// the pool: half of MaxOpenConns, at least one, or unbounded for an unlimited pool.
func NewAdvisoryLock(db *DB, maxHeld int) *AdvisoryLock {
	if maxHeld <= 0 && db != nil && db.DB != nil {
		if open := db.Stats().MaxOpenConnections; open > 0 {
			maxHeld = max(open/2, 1)
		}
	}

	l := &AdvisoryLock{db: db, conns: make(map[string]*sql.Conn)}
	if maxHeld > 0 {
		l.slots = make(chan struct{}, maxHeld)
	}
	return l
}

// hashLockName converts a lock name to the 64-bit key pg advisory locks take.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("dropbox-connector:lock:" + name))
	return int64(h.Sum64())
}

// reserve claims name and a connection slot. It never blocks.
func (l *AdvisoryLock) reserve(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.conns[name]; held {
		return false
	}
	if l.slots != nil {
		select {
		case l.slots <- struct{}{}:
		default:
			return false
		}
	}
	l.conns[name] = nil
	return true
}

// unreserve drops a reservation that did not become a held lock.
func (l *AdvisoryLock) unreserve(name string) {
	l.mu.Lock()
	delete(l.conns, name)
	l.mu.Unlock()
	l.freeSlot()
}

func (l *AdvisoryLock) freeSlot() {
	if l.slots != nil {
		<-l.slots
	}
}

// Acquire tries pg_try_advisory_lock on a dedicated connection.
// It reports false without waiting when the name is held in this process or
// every lock slot is in use. Waiting for a pool connection happens outside the
// mutex, so Release is never blocked behind it.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if !l.reserve(name) {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		l.unreserve(name)
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		l.unreserve(name)
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		conn.Close()
		l.unreserve(name)
		return false, nil
	}

	l.mu.Lock()
	l.conns[name] = conn
	l.mu.Unlock()
	return true, nil
}

// Release unlocks on the connection that holds the lock and returns it to the pool.
// Safe to call even if the lock is not held.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	conn, held := l.conns[name]
	if !held || conn == nil {
		l.mu.Unlock()
		return nil
	}
	delete(l.conns, name)
	l.mu.Unlock()

	defer l.freeSlot()
	defer conn.Close()

	var released bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released); err != nil {
		// Discard the connection so its session, and the lock with it, ends.
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend is a no-op: advisory locks have no TTL.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
