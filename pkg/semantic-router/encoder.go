package semanticrouter

import (
	"context"
	"fmt"
	"sync"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

// CachedEncoder wraps another encoder and keeps results in memory.
//
// Misses within one call are de-duplicated and sent to the wrapped encoder
// in a single batch. CachedEncoder is safe for concurrent use.
type CachedEncoder struct {
	encoder Encoder

	mu    sync.RWMutex
	cache map[string]vector.Vector

	hits   uint64
	misses uint64
}

// NewCachedEncoder creates a new cached encoder.
func NewCachedEncoder(encoder Encoder) *CachedEncoder {
	return &CachedEncoder{
		encoder: encoder,
		cache:   make(map[string]vector.Vector),
	}
}

// Encode returns cached vectors where available and encodes the rest.
func (c *CachedEncoder) Encode(ctx context.Context, inputs []string) ([]vector.Vector, error) {
	out := make([]vector.Vector, len(inputs))
	pending := make(map[string][]int) // text -> positions in inputs
	var missing []string

	c.mu.RLock()
	for i, text := range inputs {
		if v, ok := c.cache[text]; ok {
			out[i] = v
			continue
		}
		if _, seen := pending[text]; !seen {
			missing = append(missing, text)
		}
		pending[text] = append(pending[text], i)
	}
	c.mu.RUnlock()

	c.mu.Lock()
	c.hits += uint64(len(inputs) - countPositions(pending))
	c.misses += uint64(len(missing))
	c.mu.Unlock()

	if len(missing) == 0 {
		return out, nil
	}

	encoded, err := c.encoder.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(encoded) != len(missing) {
		return nil, fmt.Errorf("cached encoder: got %d vectors for %d inputs", len(encoded), len(missing))
	}

	c.mu.Lock()
	for i, text := range missing {
		c.cache[text] = encoded[i]
		for _, pos := range pending[text] {
			out[pos] = encoded[i]
		}
	}
	c.mu.Unlock()

	return out, nil
}

func countPositions(pending map[string][]int) int {
	n := 0
	for _, positions := range pending {
		n += len(positions)
	}
	return n
}

// Len returns the number of cached embeddings.
func (c *CachedEncoder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Stats returns the hit and miss counters.
func (c *CachedEncoder) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear empties the cache.
func (c *CachedEncoder) Clear() {
	c.mu.Lock()
	c.cache = make(map[string]vector.Vector)
	c.mu.Unlock()
}
