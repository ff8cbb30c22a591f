package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefdesk/contract-engine/internal/cache"
	"github.com/briefdesk/contract-engine/internal/config"
	"github.com/briefdesk/contract-engine/internal/embedding"
	"github.com/briefdesk/contract-engine/internal/retrieval"
	"github.com/briefdesk/contract-engine/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Retrieval.CacheResults = true
	cfg.Ingestion.ChunkSize = 60
	cfg.Ingestion.ChunkOverlap = 10

	e := NewWithComponents(cfg, Components{
		Embedder: embedding.NewMockClient(16),
		Index:    retrieval.NewMemoryIndex(16),
		Cache:    cache.NewMemoryClient(100),
	})
	t.Cleanup(func() { _ = e.Close() })
	return e
}

const saleAgreement = `AGREEMENT TO SELL

The vendor agrees to sell the flat to the purchaser together with possession of the premises on the terms below.

The payment schedule for the said flat shall be as follows:
On Booking Rs. 1,00,000/-
On Possession Rs. 2,00,000/-

The builder shall deliver the apartment with all fittings in working order. The purchaser shall bear registration charges and stamp duty as applicable under law.`

func TestEngine_EndToEndScheduleQuestion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := uuid.New()

	result, err := e.Ingest(ctx, doc, "Sale Agreement", saleAgreement)
	require.NoError(t, err)
	require.Positive(t, result.ChunksCreated)

	out := e.RetrieveContext(ctx, doc, "What is the payment schedule?")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Rs. 1,00,000/-")
	assert.Contains(t, out, "Rs. 2,00,000/-")
	assert.Contains(t, out, "TOTAL: 300000")

	// Second ask hits the context cache and must match.
	again := e.RetrieveContext(ctx, doc, "What is the payment schedule?")
	assert.Equal(t, out, again)
}

func TestEngine_GeneralQuestion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := uuid.New()

	_, err := e.Ingest(ctx, doc, "Sale Agreement", saleAgreement)
	require.NoError(t, err)

	out := e.RetrieveContext(ctx, doc, "Who delivers the apartment?")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "builder")
}

func TestEngine_ReingestInvalidatesCache(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := uuid.New()

	_, err := e.Ingest(ctx, doc, "Sale Agreement", saleAgreement)
	require.NoError(t, err)

	before := e.RetrieveContext(ctx, doc, "What is the payment schedule?")
	require.Contains(t, before, "Rs. 1,00,000/-")

	amended := "The payment schedule for the said flat shall be as follows:\nOn Booking Rs. 5,00,000/-\nOn Possession Rs. 5,00,000/-\nThe purchaser accepts possession of the premises in the flat from the vendor."
	_, err = e.Reingest(ctx, doc, "Sale Agreement", amended)
	require.NoError(t, err)

	after := e.RetrieveContext(ctx, doc, "What is the payment schedule?")
	assert.Contains(t, after, "Rs. 5,00,000/-")
	assert.NotContains(t, after, "Rs. 1,00,000/-")
}

func TestEngine_DeleteRemovesEverything(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	doc := uuid.New()

	_, err := e.Ingest(ctx, doc, "Sale Agreement", saleAgreement)
	require.NoError(t, err)
	require.NoError(t, e.Delete(ctx, doc))

	_, err = e.Document(ctx, doc)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, stats.Vectors)
}

func TestEngine_StatsAndDocuments(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Ingest(ctx, uuid.New(), "A", saleAgreement)
	require.NoError(t, err)
	_, err = e.Ingest(ctx, uuid.New(), "B", "A short unrelated note about nothing in particular.")
	require.NoError(t, err)

	docs, err := e.Documents(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Positive(t, stats.Chunks)
	assert.Equal(t, int64(stats.Chunks), stats.Vectors)
}

func TestEngine_UnknownDocumentReturnsEmpty(t *testing.T) {
	e := newTestEngine(t)
	out := e.RetrieveContext(context.Background(), uuid.New(), "What is the payment schedule?")
	assert.Equal(t, "", out)
}
