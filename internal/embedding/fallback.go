package embedding

import (
	"context"

	"github.com/briefdesk/contract-engine/internal/observability"
)

// ZeroFallback wraps an embedder so that embedding failures during ingestion
// degrade to zero vectors instead of failing the document. Chunks embedded
// with zero vectors stay searchable by keyword and get real vectors on the
// next reingest.
type ZeroFallback struct {
	inner  Embedder
	logger *observability.Logger
}

// NewZeroFallback wraps inner with zero-vector degradation.
func NewZeroFallback(inner Embedder, logger *observability.Logger) *ZeroFallback {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ZeroFallback{inner: inner, logger: logger}
}

// EmbedQuery passes through to the inner embedder. Query embedding failures
// must surface to the caller, only passage embedding degrades.
func (z *ZeroFallback) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return z.inner.EmbedQuery(ctx, text)
}

// EmbedPassages embeds texts, substituting zero vectors for the whole batch
// when the inner embedder fails or is unavailable.
func (z *ZeroFallback) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if z.inner.Available() {
		embeddings, err := z.inner.EmbedPassages(ctx, texts)
		if err == nil {
			return embeddings, nil
		}
		z.logger.Warn().
			Err(err).
			Int("texts", len(texts)).
			Msg("Passage embedding failed, substituting zero vectors")
	}

	zeros := make([][]float32, len(texts))
	for i := range zeros {
		zeros[i] = make([]float32, z.inner.Dimension())
	}
	return zeros, nil
}

// Model returns the inner model name.
func (z *ZeroFallback) Model() string {
	return z.inner.Model()
}

// Dimension returns the inner embedding dimension.
func (z *ZeroFallback) Dimension() int {
	return z.inner.Dimension()
}

// Available always reports true: the fallback can produce vectors even when
// the inner embedder cannot.
func (z *ZeroFallback) Available() bool {
	return true
}
