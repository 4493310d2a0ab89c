package scene

import "iter"

// Table is an insertion-ordered map whose lookups create missing entries.
// Iteration follows the order in which keys were first vivified, which is
// the order both codecs emit entries in.
type Table[K comparable, V any] struct {
	keys []K
	m    map[K]V
	newV func() V
}

// NewTable returns an empty table that creates values with newV.
func NewTable[K comparable, V any](newV func() V) *Table[K, V] {
	return &Table[K, V]{m: make(map[K]V), newV: newV}
}

// Vivify returns the value for k, creating and inserting an empty one if k
// is absent.
func (t *Table[K, V]) Vivify(k K) V {
	if v, ok := t.m[k]; ok {
		return v
	}
	v := t.newV()
	t.m[k] = v
	t.keys = append(t.keys, k)
	return v
}

// Put stores v under k. A key already present keeps its position.
func (t *Table[K, V]) Put(k K, v V) {
	if _, ok := t.m[k]; !ok {
		t.keys = append(t.keys, k)
	}
	t.m[k] = v
}

// Get returns the value for k without creating it.
func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.m[k]
	return v, ok
}

func (t *Table[K, V]) Len() int { return len(t.keys) }

// Keys returns the keys in vivification order.
func (t *Table[K, V]) Keys() []K {
	return append([]K(nil), t.keys...)
}

// All iterates entries in vivification order.
func (t *Table[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range t.keys {
			if !yield(k, t.m[k]) {
				return
			}
		}
	}
}

// retain drops every entry for which keep returns false.
func (t *Table[K, V]) retain(keep func(K, V) bool) {
	kept := t.keys[:0]
	for _, k := range t.keys {
		if keep(k, t.m[k]) {
			kept = append(kept, k)
		} else {
			delete(t.m, k)
		}
	}
	t.keys = kept
}
