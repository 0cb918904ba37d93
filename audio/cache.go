package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/lixenwraith/quicksound/log"
)

// CachingDecoder memoizes decoded PCM per locator so channels added at
// play time skip the decode. Failed decodes are not cached.
type CachingDecoder struct {
	next  Decoder
	store *cache.Cache
	mu    sync.Mutex // Serializes decodes of missing entries

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachingDecoder wraps next; ttl of 0 keeps entries until invalidated
func NewCachingDecoder(next Decoder, ttl time.Duration) *CachingDecoder {
	cleanup := 2 * ttl
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &CachingDecoder{
		next:  next,
		store: cache.New(ttl, cleanup),
	}
}

// Decode returns cached PCM or decodes on demand
func (c *CachingDecoder) Decode(locator string) (PCM, error) {
	if v, ok := c.store.Get(locator); ok {
		c.hits.Add(1)
		return v.(PCM), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring lock
	if v, ok := c.store.Get(locator); ok {
		c.hits.Add(1)
		return v.(PCM), nil
	}

	c.misses.Add(1)
	pcm, err := c.next.Decode(locator)
	if err != nil {
		return PCM{}, err
	}
	c.store.SetDefault(locator, pcm)
	log.Debug(log.CatAudio, "Decoded asset cached", "locator", locator, "bytes", pcm.Len(), "duration", pcm.Duration())
	return pcm, nil
}

// Invalidate drops a locator so the next Decode reads it again
func (c *CachingDecoder) Invalidate(locator string) {
	c.store.Delete(locator)
}

// Purge drops every entry
func (c *CachingDecoder) Purge() {
	c.store.Flush()
}

// Stats returns hit, miss and entry counts
func (c *CachingDecoder) Stats() (hits, misses uint64, entries int) {
	return c.hits.Load(), c.misses.Load(), c.store.ItemCount()
}
