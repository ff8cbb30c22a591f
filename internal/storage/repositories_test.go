package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *ChunkRepository {
	t.Helper()

	db, err := Open(context.Background(), OpenConfig{
		Driver:          "sqlite",
		DSN:             ":memory:",
		MaxOpenConns:    1,
		CreateSchemaNow: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewChunkRepository(db)
}

func TestChunkRepository_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	docID := uuid.New()

	section := "SECTION 3: PAYMENT TERMS"
	meta, _ := json.Marshal(ChunkMetadata{AmountCount: 2})

	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{
			DocumentID:     docID,
			ChunkIndex:     0,
			Content:        "The purchase price is [CURRENCY_USD: $5,000.00].",
			WordCount:      7,
			CharacterCount: 48,
			Kind:           ChunkKindLegalSection,
			SectionTitle:   &section,
			HasEmbedding:   true,
			Embedding:      []float32{0.1, 0.2, 0.3},
			Metadata:       meta,
		},
		{DocumentID: docID, ChunkIndex: 1, Content: "Possession on completion.", Kind: ChunkKindText},
	}))

	chunks, err := repo.GetByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	first := chunks[0]
	assert.Equal(t, 0, first.ChunkIndex)
	assert.Equal(t, ChunkKindLegalSection, first.Kind)
	require.NotNil(t, first.SectionTitle)
	assert.Equal(t, section, *first.SectionTitle)
	assert.True(t, first.HasEmbedding)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, first.Embedding)

	var gotMeta ChunkMetadata
	require.NoError(t, json.Unmarshal(first.Metadata, &gotMeta))
	assert.Equal(t, 2, gotMeta.AmountCount)
}

func TestChunkRepository_UpsertIsIdempotentPerIndex(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	docID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "first"},
	}))
	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "replaced"},
	}))

	count, err := repo.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	chunks, err := repo.GetByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, "replaced", chunks[0].Content)
}

func TestChunkRepository_GetByIndexes(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	docID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "a"},
		{DocumentID: docID, ChunkIndex: 1, Content: "b"},
		{DocumentID: docID, ChunkIndex: 2, Content: "c"},
	}))

	chunks, err := repo.GetByIndexes(ctx, docID, []int{2, 0, 7})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 2, chunks[1].ChunkIndex)

	empty, err := repo.GetByIndexes(ctx, docID, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestChunkRepository_SearchContent(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	docID := uuid.New()
	otherDoc := uuid.New()

	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "The PAYMENT SCHEDULE follows."},
		{DocumentID: docID, ChunkIndex: 1, Content: "Termination clause."},
		{DocumentID: otherDoc, ChunkIndex: 0, Content: "payment schedule of another contract"},
	}))

	chunks, err := repo.SearchContent(ctx, docID, []string{"payment schedule"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, docID, chunks[0].DocumentID)
}

func TestChunkRepository_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	repo := newTestDB(t)
	docID := uuid.New()

	require.NoError(t, repo.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "a"},
		{DocumentID: docID, ChunkIndex: 1, Content: "b"},
	}))
	require.NoError(t, repo.DeleteByDocument(ctx, docID))

	count, err := repo.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentRepository_Roundtrip(t *testing.T) {
	ctx := context.Background()

	db, err := Open(ctx, OpenConfig{
		Driver:          "sqlite",
		DSN:             ":memory:",
		MaxOpenConns:    1,
		CreateSchemaNow: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewDocumentRepository(db)

	doc := &Document{Title: "Sale Agreement", ContentHash: "deadbeef", ChunkCount: 3, WordCount: 1200}
	require.NoError(t, repo.Upsert(ctx, doc))

	got, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sale Agreement", got.Title)
	assert.Equal(t, 3, got.ChunkCount)

	// Upsert with the same id updates in place.
	doc.ChunkCount = 5
	require.NoError(t, repo.Upsert(ctx, doc))
	got, err = repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.ChunkCount)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
