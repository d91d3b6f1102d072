// Package shardmap provides a generic, concurrency-safe map used
// throughout the core for the case-folded indices described in spec
// section 3 (uid -> User, name -> Channel, sid -> ServerEntry, ...).
//
// The implementation generalizes btnmasher-dircd's hand-specialized
// ChanMap/UserMap/ConnMap into a single generic type, in the same
// spirit as btnmasher-dircd/shared/concurrentmap but sharded so that a
// single hot map (the global nick index, for example) does not
// serialize every lookup behind one mutex.
package shardmap

import "sync"

const defaultShards = 16

// Map is a sharded, concurrency-safe map keyed by a comparable key.
// Per the locking discipline in spec section 5, callers must only hold
// a shard lock long enough to copy out or install a value -- never
// across a suspending operation.
type Map[K comparable, V any] struct {
	shards []*shard[K, V]
	hash   func(K) uint32
}

type shard[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// New constructs a Map with the default shard count, hashing keys with
// hashFn. Callers that index by a case-folded string typically pass a
// simple FNV-1a hash of the already-folded string.
func New[K comparable, V any](hashFn func(K) uint32) *Map[K, V] {
	m := &Map[K, V]{
		shards: make([]*shard[K, V], defaultShards),
		hash:   hashFn,
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{data: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[m.hash(key)%uint32(len(m.shards))]
}

// Get returns the value for key and whether it was present.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set installs value under key, overwriting any existing entry.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// SetIfAbsent installs value under key only if key is not already
// present. It reports whether the insert happened. This is the atomic
// "insert if absent" primitive spec section 4.3 requires for nick
// claims.
func (m *Map[K, V]) SetIfAbsent(key K, value V) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false
	}
	s.data[key] = value
	return true
}

// Delete removes key, reporting whether it was present.
func (m *Map[K, V]) Delete(key K) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists {
		return false
	}
	delete(s.data, key)
	return true
}

// Exists reports whether key is present.
func (m *Map[K, V]) Exists(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the total number of entries across all shards.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.RLock()
		total += len(s.data)
		s.mu.RUnlock()
	}
	return total
}

// ForEach calls do for every entry. Per the locking discipline, do must
// not suspend (no channel sends, no further map operations that could
// block) since the shard lock is held for the duration of its shard's
// iteration.
func (m *Map[K, V]) ForEach(do func(K, V)) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.data {
			do(k, v)
		}
		s.mu.RUnlock()
	}
}

// Snapshot copies out all values, releasing every shard lock before
// returning. Use this (rather than ForEach) when the caller needs to
// suspend while processing entries -- e.g. broadcast fan-out, per the
// "collect handles, then send" rule in spec section 5.
func (m *Map[K, V]) Snapshot() []V {
	out := make([]V, 0, m.Len())
	for _, s := range m.shards {
		s.mu.RLock()
		for _, v := range s.data {
			out = append(out, v)
		}
		s.mu.RUnlock()
	}
	return out
}

// Keys returns a snapshot of all keys.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, 0, m.Len())
	for _, s := range m.shards {
		s.mu.RLock()
		for k := range s.data {
			out = append(out, k)
		}
		s.mu.RUnlock()
	}
	return out
}

// FNV32a is the default string hash used to shard case-folded keys.
func FNV32a(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
