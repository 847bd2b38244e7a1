package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/raine/room-design-studio/internal/design"
	"github.com/raine/room-design-studio/internal/prompt"
	"github.com/rs/zerolog/log"
)

// BOQCache persists parsed bills of quantities by prompt hash.
type BOQCache interface {
	GetBOQCache(ctx context.Context, hash string) ([]design.LineItem, error)
	SetBOQCache(ctx context.Context, hash string, items []design.LineItem) error
}

// CachedExtractor wraps a text provider with a BOQ cache.
type CachedExtractor struct {
	inner Provider
	cache BOQCache
}

func NewCachedExtractor(inner Provider, cache BOQCache) *CachedExtractor {
	return &CachedExtractor{inner: inner, cache: cache}
}

// hashPrompt keys the cache on provider name and the exact prompt text.
func hashPrompt(provider, text string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedExtractor) Kind() Kind   { return c.inner.Kind() }
func (c *CachedExtractor) Name() string { return c.inner.Name() }

// GenerateDesign implements Provider with caching. Only results with at
// least one parsed item are stored.
func (c *CachedExtractor) GenerateDesign(ctx context.Context, req design.Request) design.Result {
	hash := hashPrompt(c.inner.Name(), prompt.BuildBOQPrompt(req))

	if c.cache != nil {
		items, err := c.cache.GetBOQCache(ctx, hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check boq cache")
		} else if len(items) > 0 {
			log.Debug().Str("hash", hash[:16]).Msg("boq cache hit")
			return design.Result{Success: true, Furniture: items, Provider: c.inner.Name()}
		}
	}

	res := c.inner.GenerateDesign(ctx, req)

	if c.cache != nil && res.Success && len(res.Furniture) > 0 {
		if err := c.cache.SetBOQCache(ctx, hash, res.Furniture); err != nil {
			log.Warn().Err(err).Msg("failed to cache boq result")
		} else {
			log.Debug().Str("hash", hash[:16]).Msg("cached boq result")
		}
	}

	return res
}
