package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// MergePolicy selects how a fetched collection is folded into a store.
// Call sites pick one explicitly.
type MergePolicy int

const (
	// PolicyAppendNew keeps existing entries and appends unseen ids
	PolicyAppendNew MergePolicy = iota
	// PolicyReplace discards the store contents first
	PolicyReplace
)

func (p MergePolicy) String() string {
	switch p {
	case PolicyAppendNew:
		return "append"
	case PolicyReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// ParseMergePolicy accepts "append" or "replace"
func ParseMergePolicy(s string) (MergePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "append":
		return PolicyAppendNew, nil
	case "replace":
		return PolicyReplace, nil
	default:
		return 0, fmt.Errorf("invalid merge policy %q: must be append or replace", s)
	}
}

// StoreStats are simple counters for store behavior.
// These are intended for diagnostics and monitoring.
type StoreStats struct {
	Hits     int64 `json:"hits"`
	Misses   int64 `json:"misses"`
	Inserts  int64 `json:"inserts"`
	Updates  int64 `json:"updates"`
	Removes  int64 `json:"removes"`
	Rejected int64 `json:"rejected"`
	Size     int   `json:"size"`
}

// EntityStore is an in-memory, id-keyed collection of server-sourced
// entities. Entries keep insertion order and ids are unique.
type EntityStore[T Entity] struct {
	name  string
	items []T
	index map[string]int // id -> position in items
	mu    sync.RWMutex

	// counters
	hits     int64
	misses   int64
	inserts  int64
	updates  int64
	removes  int64
	rejected int64
}

func NewEntityStore[T Entity](name string) *EntityStore[T] {
	return &EntityStore[T]{
		name:  name,
		index: make(map[string]int),
	}
}

func (s *EntityStore[T]) Name() string {
	return s.name
}

func validateEntities[T Entity](items []T) error {
	for i, item := range items {
		if item.EntityID() == "" {
			return fmt.Errorf("%w (item %d)", ErrInvalidEntity, i)
		}
	}
	return nil
}

func (s *EntityStore[T]) reject(err error) error {
	atomic.AddInt64(&s.rejected, 1)
	return fmt.Errorf("%s store: %w", s.name, err)
}

// appendLocked inserts item if its id is new
func (s *EntityStore[T]) appendLocked(item T) bool {
	id := item.EntityID()
	if _, exists := s.index[id]; exists {
		return false
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, item)
	return true
}

// ReplaceAll discards the current contents and stores items in order.
// If items repeats an id, the first occurrence wins.
func (s *EntityStore[T]) ReplaceAll(items []T) error {
	if err := validateEntities(items); err != nil {
		return s.reject(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]T, 0, len(items))
	s.index = make(map[string]int, len(items))
	for _, item := range items {
		s.appendLocked(item)
	}

	atomic.AddInt64(&s.inserts, int64(len(s.items)))
	return nil
}

// MergeNew appends the items whose id is not in the store yet.
// Existing entries are never overwritten.
func (s *EntityStore[T]) MergeNew(items []T) (int, error) {
	if err := validateEntities(items); err != nil {
		return 0, s.reject(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, item := range items {
		if s.appendLocked(item) {
			added++
		}
	}

	atomic.AddInt64(&s.inserts, int64(added))
	return added, nil
}

// Add inserts item if its id is new; it is a no-op otherwise
func (s *EntityStore[T]) Add(item T) (bool, error) {
	if item.EntityID() == "" {
		return false, s.reject(ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.appendLocked(item) {
		return false, nil
	}
	atomic.AddInt64(&s.inserts, 1)
	return true, nil
}

// Update replaces the entry with the same id in place.
// It reports false, without error, when there is no such entry.
func (s *EntityStore[T]) Update(item T) (bool, error) {
	id := item.EntityID()
	if id == "" {
		return false, s.reject(ErrInvalidEntity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return false, nil
	}
	s.items[pos] = item

	atomic.AddInt64(&s.updates, 1)
	return true, nil
}

// Remove deletes the entry with the given id, if any
func (s *EntityStore[T]) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, exists := s.index[id]
	if !exists {
		return false
	}

	s.items = slices.Delete(s.items, pos, pos+1)
	delete(s.index, id)
	for i := pos; i < len(s.items); i++ {
		s.index[s.items[i].EntityID()] = i
	}

	atomic.AddInt64(&s.removes, 1)
	return true
}

// RemoveItem deletes the entry matching item's id
func (s *EntityStore[T]) RemoveItem(item T) (bool, error) {
	id := item.EntityID()
	if id == "" {
		return false, s.reject(ErrInvalidEntity)
	}
	return s.Remove(id), nil
}

// Get returns the entry with the given id, or ErrNotFound
func (s *EntityStore[T]) Get(id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, exists := s.index[id]
	if !exists {
		atomic.AddInt64(&s.misses, 1)
		var zero T
		return zero, ErrNotFound
	}

	atomic.AddInt64(&s.hits, 1)
	return s.items[pos], nil
}

// All returns a copy of the entries in store order
func (s *EntityStore[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Apply folds items into the store with the given policy and returns how
// many entries were stored
func (s *EntityStore[T]) Apply(policy MergePolicy, items []T) (int, error) {
	switch policy {
	case PolicyReplace:
		if err := s.ReplaceAll(items); err != nil {
			return 0, err
		}
		return s.Len(), nil
	case PolicyAppendNew:
		return s.MergeNew(items)
	default:
		return 0, fmt.Errorf("%s store: unknown merge policy %d", s.name, policy)
	}
}

func (s *EntityStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes all entries
func (s *EntityStore[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
}

func (s *EntityStore[T]) Stats() StoreStats {
	return StoreStats{
		Hits:     atomic.LoadInt64(&s.hits),
		Misses:   atomic.LoadInt64(&s.misses),
		Inserts:  atomic.LoadInt64(&s.inserts),
		Updates:  atomic.LoadInt64(&s.updates),
		Removes:  atomic.LoadInt64(&s.removes),
		Rejected: atomic.LoadInt64(&s.rejected),
		Size:     s.Len(),
	}
}

// Stores groups the three entity caches of a client.
// Their contents are never persisted.
type Stores struct {
	Events    *EntityStore[Event]
	Locations *EntityStore[Location]
	Users     *EntityStore[User]
}

func NewStores() *Stores {
	return &Stores{
		Events:    NewEntityStore[Event]("events"),
		Locations: NewEntityStore[Location]("locations"),
		Users:     NewEntityStore[User]("users"),
	}
}

// Clear empties every store, e.g. after logout
func (s *Stores) Clear() {
	s.Events.Clear()
	s.Locations.Clear()
	s.Users.Clear()
}
