package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

// MemL2 is an in-memory L2 double used by unit tests in place of Redis.
type MemL2 struct {
	mu sync.Mutex
	m  map[string]entry
}

// NewMemL2 returns an empty MemL2.
func NewMemL2() *MemL2 {
	return &MemL2{m: make(map[string]entry)}
}

func (c *MemL2) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.m[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(c.m, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (c *MemL2) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.m[key] = entry{value: value, expires: exp}
	return nil
}

func (c *MemL2) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
	return nil
}
