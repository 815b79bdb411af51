// Package query is the console's cache table: one entry per resource key,
// at most one request in flight per key, and explicit invalidation.
package query

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key is a resource name followed by its parameters, e.g.
// subscriptions/team_1.
type Key []string

func NewKey(resource string, params ...string) Key {
	return append(Key{resource}, params...)
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix matches whole segments: subscriptions covers
// subscriptions/team_1 but not subscription-members/sub_1.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

type entry struct {
	key       Key
	value     interface{}
	version   uint64
	fetchedAt time.Time
}

// Entry is a read-only view of a cached value.
type Entry struct {
	Value     interface{}
	Version   uint64
	FetchedAt time.Time
}

type Table struct {
	mu          sync.Mutex
	entries     map[string]*entry
	generations map[string]uint64
	keys        map[string]Key
	version     uint64
	group       singleflight.Group
	staleTime   time.Duration
	now         func() time.Time
}

// NewTable builds an empty table. With staleTime 0 a cached value stays
// fresh until it is invalidated.
func NewTable(staleTime time.Duration) *Table {
	return &Table{
		entries:     map[string]*entry{},
		generations: map[string]uint64{},
		keys:        map[string]Key{},
		staleTime:   staleTime,
		now:         time.Now,
	}
}

func (t *Table) fresh(e *entry) bool {
	return t.staleTime <= 0 || t.now().Sub(e.fetchedAt) < t.staleTime
}

// Peek returns the cached entry for key without fetching.
func (t *Table) Peek(key Key) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key.String()]
	if !ok {
		return Entry{}, false
	}
	return Entry{Value: e.value, Version: e.version, FetchedAt: e.fetchedAt}, true
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Invalidate drops every entry under prefix and returns how many were
// dropped. Requests already in flight for those keys still answer their
// callers but their results are not stored.
func (t *Table) Invalidate(prefix Key) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s, k := range t.keys {
		if k.HasPrefix(prefix) {
			t.generations[s]++
		}
	}

	dropped := 0
	for s, e := range t.entries {
		if e.key.HasPrefix(prefix) {
			delete(t.entries, s)
			dropped++
		}
	}
	return dropped
}

// Fetch returns the cached value for key, or calls fn. Concurrent callers of
// the same key share one call. A failed call leaves any previous value in
// place.
//
// The shared call runs detached from any one caller's cancellation; each
// caller stops waiting when its own ctx is done. fn is expected to bound
// itself (the remote client carries a timeout).
func Fetch[T any](ctx context.Context, t *Table, key Key, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	s := key.String()

	t.mu.Lock()
	if e, ok := t.entries[s]; ok && t.fresh(e) {
		t.mu.Unlock()
		v, ok := e.value.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached %T, want %T", s, e.value, zero)
		}
		return v, nil
	}
	if _, ok := t.keys[s]; !ok {
		t.keys[s] = append(Key(nil), key...)
	}
	gen := t.generations[s]
	t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return zero, err
	}
	flightCtx := context.WithoutCancel(ctx)

	// The generation is part of the flight key so a caller arriving after an
	// invalidation never joins the stale request.
	ch := t.group.DoChan(s+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		v, err := fn(flightCtx)
		if err != nil {
			return nil, err
		}

		t.mu.Lock()
		if t.generations[s] == gen {
			t.version++
			t.entries[s] = &entry{key: t.keys[s], value: v, version: t.version, fetchedAt: t.now()}
		}
		t.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
