// Package memory provides in-process cache implementations. The scanner runs
// one cycle at a time, so the cool-down cache here needs only light locking
// to support the status API reading concurrently.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/acremel/arbscan/internal/domain"
)

// CoolDown implements domain.CoolDownCache with a plain map. Entries are
// evicted lazily on lookup once their TTL has elapsed.
type CoolDown struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

type entry struct {
	at      time.Time
	expires time.Time
}

// NewCoolDown creates an empty in-memory cool-down cache.
func NewCoolDown() *CoolDown {
	return &CoolDown{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// LastReportedAt returns when the identity was last reported, or ErrNotFound
// when it was never reported or its entry has expired.
func (c *CoolDown) LastReportedAt(_ context.Context, identityKey string) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[identityKey]
	if !ok {
		return time.Time{}, domain.ErrNotFound
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, identityKey)
		return time.Time{}, domain.ErrNotFound
	}
	return e.at, nil
}

// MarkReported records the identity's report time. A ttl of zero keeps the
// entry until overwritten.
func (c *CoolDown) MarkReported(_ context.Context, identityKey string, at time.Time, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{at: at}
	if ttl > 0 {
		e.expires = at.Add(ttl)
	}
	c.entries[identityKey] = e
	return nil
}

// Len reports the number of live entries, for tests and status output.
func (c *CoolDown) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Compile-time interface check.
var _ domain.CoolDownCache = (*CoolDown)(nil)
