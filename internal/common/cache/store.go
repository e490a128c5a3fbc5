package cache

import (
	"container/list"
	"fmt"
	"strings"
	"sync"
	"time"

	"failover-cache/internal/common/errors"
)

// Entry is a stored value with its lifecycle metadata
type Entry struct {
	Value     interface{}   `json:"value"`
	ExpiresAt time.Time     `json:"expires_at"`
	CreatedAt time.Time     `json:"created_at"`
	TTL       time.Duration `json:"ttl"`
}

// ExpiredAt reports whether the entry is logically absent at now
func (e Entry) ExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// storeItem is the list element payload; the key is kept so eviction can start from a list node
type storeItem struct {
	key   string
	entry Entry
}

// Store is a concurrency-safe, capacity-bounded key-value store with
// per-entry TTL and least-recently-used eviction.
//
// A map gives O(1) lookup and a doubly-linked list keeps recency order
// (front = most recently used). One mutex guards both, since a successful
// Get reorders the list.
type Store struct {
	mu sync.Mutex

	capacity   int
	defaultTTL time.Duration
	now        func() time.Time

	items map[string]*list.Element
	lru   *list.List

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64
}

// NewStore creates a store from cfg. A capacity of 0 yields a pass-through
// store that never retains anything.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Store{
		capacity:   cfg.Capacity,
		defaultTTL: cfg.DefaultTTL,
		now:        now,
		items:      make(map[string]*list.Element, cfg.Capacity),
		lru:        list.New(),
	}, nil
}

// Get returns the value for key and promotes it to most-recently-used.
// Expired entries are removed and reported as a miss.
func (s *Store) Get(key string) (interface{}, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		item := el.Value.(*storeItem)
		if !item.entry.ExpiredAt(now) {
			s.lru.MoveToFront(el)
			s.hits++
			return item.entry.Value, true
		}
		s.removeElementLocked(el)
		s.expirations++
	}

	s.misses++
	return nil, false
}

// Set stores value under key with the default TTL
func (s *Store) Set(key string, value interface{}) bool {
	return s.SetWithTTL(key, value, s.defaultTTL)
}

// SetWithTTL stores value under key, expiring ttl from now. A ttl <= 0 stores
// an already-expired entry: it occupies a slot until the next Get or sweep.
func (s *Store) SetWithTTL(key string, value interface{}, ttl time.Duration) bool {
	now := s.now()
	entry := Entry{
		Value:     value,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		TTL:       ttl,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capacity == 0 {
		return true
	}

	if el, ok := s.items[key]; ok {
		el.Value.(*storeItem).entry = entry
		s.lru.MoveToFront(el)
		return true
	}

	// Evict strictly before inserting so the bound holds at every instant
	if len(s.items) >= s.capacity {
		s.evictOldestLocked()
	}

	s.items[key] = s.lru.PushFront(&storeItem{key: key, entry: entry})
	s.checkCapacityLocked()
	return true
}

// Delete removes key and reports whether it was present
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return false
	}
	s.removeElementLocked(el)
	return true
}

// Clear removes every entry. Counters describe lifetime traffic and are kept.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*list.Element, s.capacity)
	s.lru.Init()
}

// ClearMatching removes every key containing substring and returns how many were removed.
// An empty substring matches every key.
func (s *Store) ClearMatching(substring string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*list.Element, 0)
	for key, el := range s.items {
		if strings.Contains(key, substring) {
			matched = append(matched, el)
		}
	}

	for _, el := range matched {
		s.removeElementLocked(el)
	}
	return len(matched)
}

// SweepExpired removes all entries whose expiry has passed, accessed or not
func (s *Store) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]*list.Element, 0)
	for _, el := range s.items {
		if el.Value.(*storeItem).entry.ExpiredAt(now) {
			expired = append(expired, el)
		}
	}

	for _, el := range expired {
		s.removeElementLocked(el)
	}
	s.expirations += uint64(len(expired))
	return len(expired)
}

// Stats returns the current counters. The hit ratio is computed on every call.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreStats{
		Size:        len(s.items),
		Capacity:    s.capacity,
		Hits:        s.hits,
		Misses:      s.misses,
		HitRatio:    hitRatio(s.hits, s.misses),
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}

// Inspect returns a copy of the entry for key without touching recency or
// counters. Expired entries that have not been removed yet are returned as well.
func (s *Store) Inspect(key string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return Entry{}, false
	}
	return el.Value.(*storeItem).entry, true
}

// Keys returns the stored keys from most to least recently used
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, s.lru.Len())
	for el := s.lru.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*storeItem).key)
	}
	return keys
}

// Len returns the number of stored entries, expired-but-unswept ones included
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Capacity returns the configured maximum number of entries
func (s *Store) Capacity() int {
	return s.capacity
}

// DefaultTTL returns the TTL used by Set
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Now returns the store's clock reading
func (s *Store) Now() time.Time {
	return s.now()
}

// evictOldestLocked removes the least recently used entry (caller must hold lock)
func (s *Store) evictOldestLocked() {
	el := s.lru.Back()
	if el == nil {
		return
	}
	s.removeElementLocked(el)
	s.evictions++
}

// removeElementLocked unlinks el from both the index and the list (caller must hold lock)
func (s *Store) removeElementLocked(el *list.Element) {
	delete(s.items, el.Value.(*storeItem).key)
	s.lru.Remove(el)
}

func (s *Store) checkCapacityLocked() {
	if len(s.items) > s.capacity || len(s.items) != s.lru.Len() {
		panic(errors.InvariantViolation(fmt.Sprintf(
			"store holds %d entries (list %d) with capacity %d", len(s.items), s.lru.Len(), s.capacity)))
	}
}
