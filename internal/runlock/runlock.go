// Package runlock provides short-lived, keyed mutual exclusion for callers
// that must not run the same operation twice at once, such as two task
// assignments for one user.
//
// Locks expire after their TTL so a crashed holder cannot block a key
// forever. Release only deletes the lock if the caller still owns it.
package runlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned by Acquire when another holder owns the key.
var ErrLocked = errors.New("runlock: already locked")

// Release gives up a lock. Releasing an expired or stolen lock is a no-op.
type Release func(ctx context.Context) error

// Locker acquires keyed locks.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	clock func() time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemory returns an empty MemoryLocker.
func NewMemory() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]memoryLock), clock: time.Now}
}

// Acquire implements Locker.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if l, ok := m.held[key]; ok && now.Before(l.expires) {
		return nil, ErrLocked
	}
	token := uuid.NewString()
	m.held[key] = memoryLock{token: token, expires: now.Add(ttl)}

	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.held[key]; ok && l.token == token {
			delete(m.held, key)
		}
		return nil
	}, nil
}

// Nop is a Locker that never contends.
type Nop struct{}

// Acquire implements Locker.
func (Nop) Acquire(context.Context, string, time.Duration) (Release, error) {
	return func(context.Context) error { return nil }, nil
}
