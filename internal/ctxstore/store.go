// Package ctxstore implements the shared state store steps exchange data
// through: a thread-safe key/value map with per-key write attribution,
// monotonic versions, and an append-only history of every mutation.
//
// A single mutex guards both the current values and the history log so
// that every Set appends exactly one history record atomically with the
// value update; history order is therefore always consistent with the
// per-key version order. Cross-key snapshot consistency is deliberately
// not offered — callers observe the latest value per key at call time.
package ctxstore

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is the current value of a key together with its attribution.
type Entry struct {
	Key     string
	Value   any
	Who     string
	Version int
	At      time.Time
}

// HistoryRecord describes one mutation in the append-only log.
type HistoryRecord struct {
	Seq      int
	Key      string
	OldValue any
	NewValue any
	Who      string
	Version  int
	At       time.Time
}

// Store is the shared, attributed, history-tracked state of one recipe
// run. A fresh Store is created per invocation (and per sub-recipe
// invocation) and discarded when the run completes.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
	history []HistoryRecord
	seq     int
}

// New returns an empty store.
func New() *Store {
	return &Store{entries: make(map[string]Entry)}
}

// NewChild returns a fresh store seeded with the given values. Seeded
// writes are attributed to who and recorded in the child's history; the
// child shares no mutable state with any parent store.
func NewChild(seed map[string]any, who string) *Store {
	child := New()
	keys := make([]string, 0, len(seed))
	for k := range seed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		child.Set(k, seed[k], who)
	}
	return child
}

// Set writes a value under key, attributed to who. It never fails on
// valid inputs. Concurrent writers to the same key are serialized and the
// resulting version order matches the history log order.
func (s *Store) Set(key string, value any, who string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	old, existed := s.entries[key]
	version := 1
	var oldValue any
	if existed {
		version = old.Version + 1
		oldValue = old.Value
	}

	s.seq++
	s.history = append(s.history, HistoryRecord{
		Seq:      s.seq,
		Key:      key,
		OldValue: oldValue,
		NewValue: value,
		Who:      who,
		Version:  version,
		At:       now,
	})
	s.entries[key] = Entry{Key: key, Value: value, Who: who, Version: version, At: now}
}

// Get returns the latest value for key, or a KeyNotFoundError if absent.
func (s *Store) Get(key string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, &KeyNotFoundError{Key: key}
	}
	return entry.Value, nil
}

// GetDefault returns the latest value for key, or def if absent.
func (s *Store) GetDefault(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return def
	}
	return entry.Value
}

// Contains reports whether key is present.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[key]
	return ok
}

// Entry returns the full current entry for key, including attribution.
func (s *Store) Entry(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	return entry, ok
}

// Keys returns all present keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ByPrefix returns the current values of all keys sharing the given
// dot-segmented prefix. The prefix itself matches exactly or as "prefix.".
func (s *Store) ByPrefix(prefix string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any)
	for k, entry := range s.entries {
		if k == prefix || strings.HasPrefix(k, prefix+".") {
			out[k] = entry.Value
		}
	}
	return out
}

// History returns a copy of the append-only mutation log in order.
func (s *Store) History() []HistoryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HistoryRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot returns a copy of the current key/value mapping.
func (s *Store) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]any, len(s.entries))
	for k, entry := range s.entries {
		out[k] = entry.Value
	}
	return out
}

// Len returns the number of present keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
