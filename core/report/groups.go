package report

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap is a string-keyed map that remembers the order in which keys were first set.
// It serializes to a JSON object in that order.
type OrderedMap[V any] struct {
	*orderedmap.OrderedMap[string, V]
}

func NewOrderedMap[V any](keys ...string) *OrderedMap[V] {
	m := &OrderedMap[V]{orderedmap.New[string, V](len(keys))}
	var zero V
	for _, k := range keys {
		m.Set(k, zero)
	}
	return m
}

// GetOrInit returns the value under key, storing init() first when the key is new.
func (m *OrderedMap[V]) GetOrInit(key string, init func() V) V {
	if v, ok := m.Get(key); ok {
		return v
	}
	v := init()
	m.Set(key, v)
	return v
}

func (m *OrderedMap[V]) Keys() []string {
	keys := make([]string, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	if m.OrderedMap == nil {
		m.OrderedMap = orderedmap.New[string, V]()
	}
	return m.OrderedMap.UnmarshalJSON(data)
}

// counter is an OrderedMap of counts.
type counter = OrderedMap[int]

func newCounter(keys ...string) *counter {
	return NewOrderedMap[int](keys...)
}

func (m *OrderedMap[V]) incr(key string, add func(V) V) {
	v, _ := m.Get(key)
	m.Set(key, add(v))
}

func inc(n int) int { return n + 1 }
