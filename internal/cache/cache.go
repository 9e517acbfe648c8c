package cache

import (
	"sync"
	"time"
)

// Cache loads values lazily and reloads them after ttl. Entries untouched for
// ten ttl periods are dropped by Clean.
type Cache[K comparable, V any] struct {
	m      sync.Map
	ttl    time.Duration
	loader func(key K) V
}

type entry[V any] struct {
	mx    sync.Mutex
	value V
	ts    time.Time
}

func NewWithTTL[K comparable, V any](ttl time.Duration, loader func(key K) V) *Cache[K, V] {
	return &Cache[K, V]{
		m:      sync.Map{},
		ttl:    ttl,
		loader: loader,
	}
}

func (c *Cache[K, V]) Clean() {
	c.m.Range(func(key, value any) bool {
		e := value.(*entry[V])

		if !e.mx.TryLock() {
			return true
		}

		defer e.mx.Unlock()

		if time.Since(e.ts) > c.ttl*10 {
			c.m.Delete(key)
		}

		return true
	})
}

// Invalidate forces the next Load of key to call the loader.
func (c *Cache[K, V]) Invalidate(key K) {
	c.m.Delete(key)
}

func (c *Cache[K, V]) Load(key K) V {
	var e *entry[V]

	if v, ok := c.m.Load(key); ok {
		e = v.(*entry[V])
	} else {
		v1, _ := c.m.LoadOrStore(key, new(entry[V]))
		e = v1.(*entry[V])
	}

	e.mx.Lock()
	defer e.mx.Unlock()

	if e.ts.IsZero() || time.Since(e.ts) > c.ttl {
		e.value = c.loader(key)
		e.ts = time.Now()
	}

	return e.value
}
