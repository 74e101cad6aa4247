package cache

import (
	"bytes"
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store with LRU eviction and per-entry TTL.
type MemoryStore struct {
	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List // front = most recently used
	onEvict  func(key string)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEvictCallback registers a callback run for every entry evicted by capacity
// or expiry. Explicit Delete calls do not trigger it.
func WithEvictCallback(fn func(key string)) MemoryOption {
	return func(s *MemoryStore) { s.onEvict = fn }
}

// NewMemoryStore creates a store holding at most capacity entries.
// Panics on non-positive capacity or ttl, the same way a misconfigured LRU would.
func NewMemoryStore(capacity int, defaultTTL time.Duration, opts ...MemoryOption) *MemoryStore {
	if capacity <= 0 {
		panic("cache: capacity must be positive")
	}
	if defaultTTL <= 0 {
		panic("cache: default TTL must be positive")
	}
	s := &MemoryStore{
		capacity:   capacity,
		defaultTTL: defaultTTL,
		now:        time.Now,
		items:      make(map[string]*list.Element, capacity),
		eviction:   list.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	entry := elem.Value.(*memoryEntry)
	if !s.now().Before(entry.expiresAt) {
		s.evict(elem)
		return nil, false, nil
	}
	s.eviction.MoveToFront(elem)
	return bytes.Clone(entry.value), true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	if elem, ok := s.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = bytes.Clone(value)
		entry.expiresAt = expiresAt
		s.eviction.MoveToFront(elem)
		return nil
	}

	s.items[key] = s.eviction.PushFront(&memoryEntry{
		key:       key,
		value:     bytes.Clone(value),
		expiresAt: expiresAt,
	})
	if s.eviction.Len() > s.capacity {
		if oldest := s.eviction.Back(); oldest != nil {
			s.evict(oldest)
		}
	}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		if elem, ok := s.items[key]; ok {
			s.eviction.Remove(elem)
			delete(s.items, key)
		}
	}
	return nil
}

// Len returns the number of entries, expired ones included until they are touched.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eviction.Len()
}

// Must be called with lock held.
func (s *MemoryStore) evict(elem *list.Element) {
	s.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(s.items, entry.key)
	if s.onEvict != nil {
		s.onEvict(entry.key)
	}
}
