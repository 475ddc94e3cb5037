package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

type lease struct {
	holder string
	expiry time.Time
}

// Lock is a process-local DistributedLock with TTL expiry.
// It only serialises work inside one process.
//
// Each lease records the holder from driven.LockHolder, so a pass that
// outlived its TTL cannot release or extend the lease of the pass that
// took over. Callers without a holder share the empty one.
type Lock struct {
	mu     sync.Mutex
	leases map[string]lease
	clock  clockwork.Clock
}

// NewLock creates a process-local lock using the wall clock.
func NewLock() *Lock {
	return NewLockWithClock(clockwork.NewRealClock())
}

// NewLockWithClock creates a process-local lock with an injected clock (for tests).
func NewLockWithClock(clock clockwork.Clock) *Lock {
	return &Lock{leases: make(map[string]lease), clock: clock}
}

// live returns the unexpired lease for name. Callers hold l.mu.
func (l *Lock) live(name string) (lease, bool) {
	ls, ok := l.leases[name]
	if !ok || !l.clock.Now().Before(ls.expiry) {
		return lease{}, false
	}
	return ls, true
}

// Acquire takes name for ttl unless an unexpired lease exists.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.live(name); ok {
		return false, nil
	}
	l.leases[name] = lease{holder: driven.LockHolder(ctx), expiry: l.clock.Now().Add(ttl)}
	return true, nil
}

// Release drops name if the caller still holds it.
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ls, ok := l.leases[name]; ok && ls.holder == driven.LockHolder(ctx) {
		delete(l.leases, name)
	}
	return nil
}

// Extend pushes the expiry of the caller's unexpired lease out to ttl from now.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ls, ok := l.live(name)
	if !ok || ls.holder != driven.LockHolder(ctx) {
		return fmt.Errorf("lock %s not held", name)
	}
	ls.expiry = l.clock.Now().Add(ttl)
	l.leases[name] = ls
	return nil
}

func (l *Lock) Ping(ctx context.Context) error {
	return nil
}
