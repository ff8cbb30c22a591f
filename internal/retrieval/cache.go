package retrieval

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/briefdesk/contract-engine/internal/cache"
	"github.com/briefdesk/contract-engine/internal/observability"
)

// ContextCache caches assembled context strings per document and question.
// Cache failures are logged and treated as misses, never surfaced.
type ContextCache struct {
	client cache.Client
	logger *observability.Logger
	ttl    time.Duration
}

// NewContextCache creates a context cache. A nil client disables caching.
func NewContextCache(client cache.Client, logger *observability.Logger, ttl time.Duration) *ContextCache {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ContextCache{client: client, logger: logger, ttl: ttl}
}

func (c *ContextCache) key(documentID uuid.UUID, question string) string {
	return cache.DocumentCacheKey(documentID.String(), "context", question)
}

// Get returns a cached context and whether it was found.
func (c *ContextCache) Get(ctx context.Context, documentID uuid.UUID, question string) (string, bool) {
	if c.client == nil {
		return "", false
	}

	value, err := c.client.Get(ctx, c.key(documentID, question))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Msg("Context cache read failed")
		}
		return "", false
	}
	return string(value), true
}

// Set stores an assembled context. Empty contexts are not cached so a
// transient failure does not pin an empty answer.
func (c *ContextCache) Set(ctx context.Context, documentID uuid.UUID, question, assembled string) {
	if c.client == nil || assembled == "" {
		return
	}
	if err := c.client.Set(ctx, c.key(documentID, question), []byte(assembled), c.ttl); err != nil {
		c.logger.Warn().Err(err).Msg("Context cache write failed")
	}
}

// InvalidateDocument drops every cached context for a document. Called on
// reingest and delete.
func (c *ContextCache) InvalidateDocument(ctx context.Context, documentID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.DeleteByPrefix(ctx, "doc:"+documentID.String()+":"); err != nil {
		c.logger.Warn().Err(err).Str("document_id", documentID.String()).Msg("Context cache invalidation failed")
	}
}
