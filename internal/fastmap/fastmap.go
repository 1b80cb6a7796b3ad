// Package fastmap provides a small open-addressing hash map for uint32 keys.
// Uses fibonacci hashing for better distribution of sequential keys, which
// suits stream type identifiers: a handful of small values plus a few
// vendor-range ones with high bits set.
package fastmap

// Uint32Map is a hash map from uint32 to V.
// Uses open addressing with linear probing and fibonacci hashing.
// The zero value is an empty map ready to use.
type Uint32Map[V any] struct {
	buckets []bucket[V]
	count   int
	mask    uint32
}

type bucket[V any] struct {
	key   uint32
	value V
	used  bool // Needed because key=0 might be valid
}

// Fibonacci hash constant: 2^32 / golden ratio
const fibHash32 = 2654435769

// hash computes a fast hash using fibonacci hashing
func (m *Uint32Map[V]) hash(key uint32) uint32 {
	return key * fibHash32
}

// Get returns the value for the given key and whether it was present.
func (m *Uint32Map[V]) Get(key uint32) (V, bool) {
	var zero V
	if len(m.buckets) == 0 {
		return zero, false
	}
	idx := m.hash(key) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			return zero, false
		}
		if b.key == key {
			return b.value, true
		}
		idx = (idx + 1) & m.mask
	}
}

// set stores a key-value pair, replacing any previous value.
func (m *Uint32Map[V]) set(key uint32, value V) {
	m.insert(key, value, true)
}

// SetIfAbsent stores a key-value pair only if key is not present yet.
// It reports whether the value was stored.
func (m *Uint32Map[V]) SetIfAbsent(key uint32, value V) bool {
	return m.insert(key, value, false)
}

func (m *Uint32Map[V]) insert(key uint32, value V, replace bool) bool {
	if len(m.buckets) == 0 {
		m.buckets = make([]bucket[V], 16)
		m.mask = 15
	} else if m.count >= len(m.buckets)*3/4 {
		m.grow()
	}

	idx := m.hash(key) & m.mask
	for {
		b := &m.buckets[idx]
		if !b.used {
			b.key = key
			b.value = value
			b.used = true
			m.count++
			return true
		}
		if b.key == key {
			if replace {
				b.value = value
			}
			return replace
		}
		idx = (idx + 1) & m.mask
	}
}

// grow doubles the hash table size
func (m *Uint32Map[V]) grow() {
	oldBuckets := m.buckets
	newSize := len(oldBuckets) * 2
	m.buckets = make([]bucket[V], newSize)
	m.mask = uint32(newSize - 1)
	m.count = 0

	for i := range oldBuckets {
		if oldBuckets[i].used {
			m.insert(oldBuckets[i].key, oldBuckets[i].value, true)
		}
	}
}

// forEach iterates over all key-value pairs in unspecified order.
func (m *Uint32Map[V]) forEach(fn func(uint32, V)) {
	for i := range m.buckets {
		if m.buckets[i].used {
			fn(m.buckets[i].key, m.buckets[i].value)
		}
	}
}

// Len returns the number of entries.
func (m *Uint32Map[V]) Len() int {
	return m.count
}
