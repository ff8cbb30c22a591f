package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryChunkStore_UpsertReplacesByIndex(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChunkStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "first draft"},
		{DocumentID: docID, ChunkIndex: 1, Content: "second"},
	}))

	// Re-upserting index 0 replaces the row, never duplicates it.
	require.NoError(t, store.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "revised"},
	}))

	chunks, err := store.GetByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "revised", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestMemoryChunkStore_GetByIndexes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChunkStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "a"},
		{DocumentID: docID, ChunkIndex: 1, Content: "b"},
		{DocumentID: docID, ChunkIndex: 2, Content: "c"},
	}))

	// Out-of-order request with an unknown index comes back ascending,
	// unknown index skipped.
	chunks, err := store.GetByIndexes(ctx, docID, []int{2, 99, 0})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, 2, chunks[1].ChunkIndex)
}

func TestMemoryChunkStore_SearchContent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChunkStore()
	docID := uuid.New()
	otherDoc := uuid.New()

	require.NoError(t, store.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "The Buyer shall pay the deposit."},
		{DocumentID: docID, ChunkIndex: 1, Content: "Possession is handed over on completion."},
		{DocumentID: otherDoc, ChunkIndex: 0, Content: "deposit elsewhere"},
	}))

	chunks, err := store.SearchContent(ctx, docID, []string{"DEPOSIT"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Equal(t, docID, chunks[0].DocumentID)
}

func TestMemoryChunkStore_DeleteByDocument(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChunkStore()
	docID := uuid.New()

	require.NoError(t, store.Upsert(ctx, []*Chunk{
		{DocumentID: docID, ChunkIndex: 0, Content: "a"},
	}))
	require.NoError(t, store.DeleteByDocument(ctx, docID))

	count, err := store.CountByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryDocumentStore_Roundtrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDocumentStore()

	doc := &Document{Title: "Sale Agreement", ContentHash: "abc123", ChunkCount: 4}
	require.NoError(t, store.Upsert(ctx, doc))
	require.NotEqual(t, uuid.Nil, doc.ID)

	got, err := store.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sale Agreement", got.Title)
	assert.Equal(t, "abc123", got.ContentHash)

	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
