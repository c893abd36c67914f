// Package ai provides gateway wrappers shared by the concrete AI adapters.
package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"github.com/Raghav-madderla/AIMI/internal/domain"
)

// embedCacheGateway wraps a LanguageModelGateway and caches embedding
// vectors by text hash. Retrieval queries repeat the same phrasing across
// sessions, so caching them saves an upstream call per question. Generate
// and GenerateJSON pass through untouched.
//
// Safe for concurrent use; eviction is FIFO.
type embedCacheGateway struct {
	base     domain.LanguageModelGateway
	capacity int
	mu       sync.RWMutex
	m        map[string][]float32
	ord      []string
}

// NewEmbedCache wraps base with an embedding cache of the given capacity
// (number of entries). If capacity <= 0, base is returned unmodified.
func NewEmbedCache(base domain.LanguageModelGateway, capacity int) domain.LanguageModelGateway {
	if capacity <= 0 || base == nil {
		return base
	}
	return &embedCacheGateway{base: base, capacity: capacity, m: make(map[string][]float32), ord: make([]string, 0, capacity)}
}

func (c *embedCacheGateway) Embed(ctx domain.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	missIdx := make([]int, 0)
	missTexts := make([]string, 0)
	for i, t := range texts {
		k := keyFor(t)
		c.mu.RLock()
		v, ok := c.m[k]
		c.mu.RUnlock()
		if ok {
			res[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}
	if len(missIdx) > 0 {
		vecs, err := c.base.Embed(ctx, missTexts)
		if err != nil {
			return nil, err
		}
		for j, idx := range missIdx {
			res[idx] = vecs[j]
			c.put(missTexts[j], vecs[j])
		}
	}
	return res, nil
}

func (c *embedCacheGateway) Generate(ctx domain.Context, req domain.GenerateRequest) (string, error) {
	return c.base.Generate(ctx, req)
}

func (c *embedCacheGateway) GenerateJSON(ctx domain.Context, req domain.GenerateRequest) (map[string]any, error) {
	return c.base.GenerateJSON(ctx, req)
}

func (c *embedCacheGateway) put(text string, vec []float32) {
	k := keyFor(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.m[k]; exists {
		c.m[k] = vec
		return
	}
	if len(c.ord) >= c.capacity {
		old := c.ord[0]
		c.ord = c.ord[1:]
		delete(c.m, old)
	}
	c.m[k] = vec
	c.ord = append(c.ord, k)
}

func keyFor(text string) string {
	s := strings.TrimSpace(text)
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
