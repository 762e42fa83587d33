package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// Memory is a thread-safe in-process cache with per-entry TTL.
// It backs development setups without Redis and the service tests.
type Memory struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemory creates an in-memory cache. Expired entries are swept every
// sweepEvery; a zero value disables the sweeper (entries still expire on read).
func NewMemory(sweepEvery time.Duration) *Memory {
	c := &Memory{
		items: make(map[string]entry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweep(sweepEvery)
	}
	return c
}

// Get retrieves a value. Returns false if not found or expired.
func (c *Memory) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Set stores a value for ttl.
func (c *Memory) Set(_ context.Context, key, value string, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return true
}

// Delete removes a value.
func (c *Memory) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
	return true
}

// DeleteMany removes every key under one lock.
func (c *Memory) DeleteMany(_ context.Context, keys ...string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, k := range keys {
		delete(c.items, k)
	}
	return true
}

// Ping always succeeds.
func (c *Memory) Ping(context.Context) error {
	return nil
}

// Close stops the sweeper.
func (c *Memory) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Memory) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for k, v := range c.items {
				if now.After(v.expiresAt) {
					delete(c.items, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
