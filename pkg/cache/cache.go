// Package cache keeps a bounded, per-screen list of persistent caches so that
// repeated prediction and display of a screen can reuse earlier work.
//
// A Store is confined to the UI thread and does no locking.
package cache

import (
	"reflect"

	"github.com/go-drift/screens/pkg/telemetry"
)

// RootKey is the key of the top-level entry inside a Persistent cache.
const RootKey = 0

// Persistent is opaque state a screen callback preserves across invocations.
type Persistent map[any]any

// Root returns the top-level entry, or nil if there is none.
func (p Persistent) Root() Persistent {
	if p == nil {
		return nil
	}
	root, _ := p[RootKey].(Persistent)
	return root
}

// Owner is the definition a bucket belongs to.
type Owner interface {
	// SupportsCache reports whether the owner keeps persistent caches at all.
	SupportsCache() bool
	// CacheLabel names the owner in metrics.
	CacheLabel() string
}

// Entry is one cached call.
type Entry struct {
	Args   []any
	Kwargs map[string]any
	Cache  Persistent
}

// Store maps each Owner to its FIFO bucket of entries.
type Store struct {
	size    int
	buckets map[Owner][]*Entry
	metrics *telemetry.Metrics
}

// NewStore creates a store whose buckets hold at most size entries.
// Sizes below one are treated as one.
func NewStore(size int, metrics *telemetry.Metrics) *Store {
	if size < 1 {
		size = 1
	}
	return &Store{
		size:    size,
		buckets: make(map[Owner][]*Entry),
		metrics: metrics,
	}
}

// Size returns the per-owner bound.
func (s *Store) Size() int {
	return s.size
}

// Get returns the cache to use when owner is evaluated with args and kwargs.
//
// An entry whose positional arguments equal args is removed and its cache
// returned. Keyword arguments are stored but not compared. Without a match,
// a full bucket gives up its oldest entry for reuse, and a bucket with room
// returns an empty cache and is left untouched.
func (s *Store) Get(owner Owner, args []any, kwargs map[string]any) Persistent {
	if owner == nil || !owner.SupportsCache() {
		return Persistent{}
	}
	label := owner.CacheLabel()
	bucket := s.buckets[owner]
	if len(bucket) == 0 {
		s.metrics.CacheMiss(label)
		return Persistent{}
	}

	for i, e := range bucket {
		if argsEqual(e.Args, args) {
			s.buckets[owner] = append(bucket[:i:i], bucket[i+1:]...)
			s.metrics.CacheHit(label)
			return nonNil(e.Cache)
		}
	}

	if len(bucket) < s.size {
		s.metrics.CacheMiss(label)
		return Persistent{}
	}

	oldest := bucket[0]
	s.buckets[owner] = bucket[1:]
	s.metrics.CacheMiss(label)
	s.metrics.CacheEvict(label)
	return nonNil(oldest.Cache)
}

// Put appends an entry for owner, dropping the oldest entry if the bucket
// would exceed its bound.
func (s *Store) Put(owner Owner, args []any, kwargs map[string]any, c Persistent) {
	if owner == nil || !owner.SupportsCache() {
		return
	}
	bucket := append(s.buckets[owner], &Entry{Args: args, Kwargs: kwargs, Cache: c})
	for len(bucket) > s.size {
		bucket = bucket[1:]
		s.metrics.CacheEvict(owner.CacheLabel())
	}
	s.buckets[owner] = bucket
}

// Entries returns a copy of owner's bucket, oldest first.
func (s *Store) Entries(owner Owner) []Entry {
	bucket := s.buckets[owner]
	out := make([]Entry, len(bucket))
	for i, e := range bucket {
		out[i] = *e
	}
	return out
}

// Len returns the number of entries held for owner.
func (s *Store) Len(owner Owner) int {
	return len(s.buckets[owner])
}

// Clear drops every bucket.
func (s *Store) Clear() {
	clear(s.buckets)
}

func argsEqual(a, b []any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func nonNil(c Persistent) Persistent {
	if c == nil {
		return Persistent{}
	}
	return c
}
