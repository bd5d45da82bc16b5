// Package nfsstore implements the network-safe IndexStore variant: a
// decorator that wraps any indexstore.Store and serializes every call
// behind an external, bounded-lifetime file lock, so a process that
// crashes while holding the lock does not wedge its peers forever.
//
// The lock itself is github.com/gofrs/flock, used with a
// try-lock-with-deadline idiom bounded by a default lifetime rather than
// a one-shot timeout.
package nfsstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/kluzzebass/logspan/internal/indexstore"
)

// DefaultLockLifetime is the bound on how long a call waits to acquire the
// lock; past it the call gives up and returns an error.
const DefaultLockLifetime = 600 * time.Second

// Store wraps an indexstore.Store with an external file lock.
type Store struct {
	inner    indexstore.Store
	lock     *flock.Flock
	lifetime time.Duration

	// mu serializes calls within this process: a flock.Flock that already
	// holds the lock reports success to a second TryLock.
	mu sync.Mutex
}

var _ indexstore.Store = (*Store)(nil)

// Wrap returns a Store that guards every call to inner with lockPath,
// using lifetime as the acquisition deadline (DefaultLockLifetime if
// zero).
func Wrap(inner indexstore.Store, lockPath string, lifetime time.Duration) *Store {
	if lifetime <= 0 {
		lifetime = DefaultLockLifetime
	}
	return &Store{inner: inner, lock: flock.New(lockPath), lifetime: lifetime}
}

// withLock acquires the external lock, runs fn, and releases it. Add and
// Remove commit (via the inner store) before the lock is released.
func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.lifetime)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire index lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("timed out acquiring index lock %s after %s", s.lock.Path(), s.lifetime)
	}
	defer s.lock.Unlock()

	return fn()
}

func (s *Store) Add(path string, minTime, maxTime time.Time) error {
	return s.withLock(func() error { return s.inner.Add(path, minTime, maxTime) })
}

func (s *Store) Remove(path string) error {
	return s.withLock(func() error { return s.inner.Remove(path) })
}

func (s *Store) Indexed(path string) (bool, error) {
	var ok bool
	err := s.withLock(func() error {
		var innerErr error
		ok, innerErr = s.inner.Indexed(path)
		return innerErr
	})
	return ok, err
}

func (s *Store) Query(begin, end *time.Time) ([]indexstore.Row, error) {
	var rows []indexstore.Row
	err := s.withLock(func() error {
		var innerErr error
		rows, innerErr = s.inner.Query(begin, end)
		return innerErr
	})
	return rows, err
}

func (s *Store) Clean() error {
	return s.withLock(func() error { return s.inner.Clean() })
}

func (s *Store) ModTime() (time.Time, error) {
	var t time.Time
	err := s.withLock(func() error {
		var innerErr error
		t, innerErr = s.inner.ModTime()
		return innerErr
	})
	return t, err
}

func (s *Store) Close() error {
	return s.inner.Close()
}
