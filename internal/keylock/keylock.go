// Package keylock provides per-key mutual exclusion with a fixed acquisition
// order for multi-key sections.
package keylock

import (
	"context"
	"sort"
	"sync"
)

type entry struct {
	ch   chan struct{} // cap 1: token held = locked
	refs int
}

// Locker hands out one lock per key. Entries are dropped once no goroutine
// holds or waits on them.
type Locker struct {
	mu sync.Mutex
	m  map[string]*entry
}

func New() *Locker {
	return &Locker{m: make(map[string]*entry)}
}

func (l *Locker) acquireRef(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.m[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) releaseRef(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, key)
	}
}

// Lock blocks until key is held or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (unlock func(), err error) {
	e := l.acquireRef(key)
	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.releaseRef(key, e)
		}, nil
	case <-ctx.Done():
		l.releaseRef(key, e)
		return nil, ctx.Err()
	}
}

// LockAll acquires every key in ascending order (duplicates collapsed) and
// releases them in reverse. Callers that always go through LockAll cannot
// deadlock against each other.
func (l *Locker) LockAll(ctx context.Context, keys []string) (unlock func(), err error) {
	ordered := SortedUnique(keys)
	unlocks := make([]func(), 0, len(ordered))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, k := range ordered {
		u, err := l.Lock(ctx, k)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, u)
	}
	return release, nil
}

// Len is the number of live entries.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func SortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
