// Package lock serializes mutations of a single entity (room, tournament, user)
// while letting unrelated entities proceed in parallel.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a lock cannot be acquired before the context ends
var ErrLockTimeout = errors.New("lock acquisition timeout")

// keyMutex is a channel-backed mutex with a reference count so idle keys
// can be dropped from the table
type keyMutex struct {
	ch       chan struct{}
	refCount int
}

// Keyed provides one mutex per string key
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyMutex
}

// NewKeyed creates an empty lock table
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyMutex)}
}

// Key joins a namespace and id, e.g. Key("room", id) == "room:<id>"
func Key(namespace, id string) string {
	return namespace + ":" + id
}

func (k *Keyed) acquireRef(key string) *keyMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &keyMutex{ch: make(chan struct{}, 1)}
		k.locks[key] = m
	}
	m.refCount++
	return m
}

func (k *Keyed) releaseRef(key string, m *keyMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	m.refCount--
	if m.refCount == 0 {
		delete(k.locks, key)
	}
}

// Lock blocks until the key is held
func (k *Keyed) Lock(key string) {
	m := k.acquireRef(key)
	m.ch <- struct{}{}
}

// Unlock releases the key. Unlocking a key that is not held panics.
func (k *Keyed) Unlock(key string) {
	k.mu.Lock()
	m, ok := k.locks[key]
	k.mu.Unlock()
	if !ok {
		panic("lock: unlock of unlocked key " + key)
	}
	<-m.ch
	k.releaseRef(key, m)
}

// TryLock acquires the key without blocking
func (k *Keyed) TryLock(key string) bool {
	m := k.acquireRef(key)
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		k.releaseRef(key, m)
		return false
	}
}

// LockContext blocks until the key is held or ctx is done
func (k *Keyed) LockContext(ctx context.Context, key string) error {
	m := k.acquireRef(key)
	select {
	case m.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		k.releaseRef(key, m)
		return ErrLockTimeout
	}
}

// WithLock executes fn while holding the key
func (k *Keyed) WithLock(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// WithLockContext executes fn while holding the key, giving up if ctx ends
// before the key is acquired
func (k *Keyed) WithLockContext(ctx context.Context, key string, fn func() error) error {
	if err := k.LockContext(ctx, key); err != nil {
		return err
	}
	defer k.Unlock(key)
	return fn()
}

// Size returns the number of keys currently held or waited on
func (k *Keyed) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
