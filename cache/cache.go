package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

type entry struct {
	body        []byte
	contentType string
	storedAt    time.Time
}

// PageCache keeps rendered pages in memory, keyed by an xxHash of the page
// path and the query parameters it depends on. Posts never change while the
// process runs, so entries only leave the cache through max age or Clear.
type PageCache struct {
	mu      sync.RWMutex
	maxAge  time.Duration
	entries map[uint64]entry
}

func New(maxAge time.Duration) *PageCache {
	return &PageCache{maxAge: maxAge, entries: make(map[uint64]entry)}
}

// Key returns the cache key for a request URI
func Key(uri string) uint64 {
	return xxhash.Sum64String(uri)
}

// Read returns the cached page for uri if it exists and is not expired
func (p *PageCache) Read(uri string) ([]byte, string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[Key(uri)]
	if !ok {
		return nil, "", false
	}
	if p.maxAge > 0 && time.Since(e.storedAt) > p.maxAge {
		return nil, "", false
	}
	return e.body, e.contentType, true
}

// Write stores body for uri, replacing any earlier copy.
func (p *PageCache) Write(uri, contentType string, body []byte) {
	stored := make([]byte, len(body))
	copy(stored, body)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[Key(uri)] = entry{body: stored, contentType: contentType, storedAt: time.Now()}
}

// Clear drops every cached page.
func (p *PageCache) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = make(map[uint64]entry)
}

// ClearOld removes entries older than the max age and returns how many went.
func (p *PageCache) ClearOld() int {
	if p.maxAge <= 0 {
		return 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, e := range p.entries {
		if time.Since(e.storedAt) > p.maxAge {
			delete(p.entries, key)
			removed++
		}
	}
	return removed
}

// Len is the number of stored pages, expired ones included.
func (p *PageCache) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Sweep calls ClearOld every interval until ctx is done.
func (p *PageCache) Sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ClearOld()
		}
	}
}
