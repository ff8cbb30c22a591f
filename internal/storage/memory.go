package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDocumentStore implements DocumentStore in memory.
// Used in tests and for throwaway development runs.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*Document
}

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[uuid.UUID]*Document)}
}

// Upsert inserts or replaces a document record.
func (s *MemoryDocumentStore) Upsert(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

// GetByID retrieves a document by ID.
func (s *MemoryDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

// List returns all documents ordered by creation time.
func (s *MemoryDocumentStore) List(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

// Delete removes a document record.
func (s *MemoryDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
	return nil
}

// MemoryChunkStore implements ChunkStore in memory.
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[uuid.UUID]map[int]*Chunk // document -> chunk_index -> chunk
}

// NewMemoryChunkStore creates an empty in-memory chunk store.
func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{chunks: make(map[uuid.UUID]map[int]*Chunk)}
}

// Upsert inserts or replaces chunks keyed by (document_id, chunk_index).
func (s *MemoryChunkStore) Upsert(ctx context.Context, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now

		byIndex, ok := s.chunks[chunk.DocumentID]
		if !ok {
			byIndex = make(map[int]*Chunk)
			s.chunks[chunk.DocumentID] = byIndex
		}
		copied := *chunk
		byIndex[chunk.ChunkIndex] = &copied
	}
	return nil
}

// GetByDocument returns all chunks of a document ordered by chunk index.
func (s *MemoryChunkStore) GetByDocument(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byIndex := s.chunks[documentID]
	chunks := make([]*Chunk, 0, len(byIndex))
	for _, chunk := range byIndex {
		copied := *chunk
		chunks = append(chunks, &copied)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

// GetByIndexes returns the chunks with the given indexes, ordered ascending.
// Unknown indexes are silently skipped.
func (s *MemoryChunkStore) GetByIndexes(ctx context.Context, documentID uuid.UUID, indexes []int) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byIndex := s.chunks[documentID]
	var chunks []*Chunk
	for _, idx := range indexes {
		if chunk, ok := byIndex[idx]; ok {
			copied := *chunk
			chunks = append(chunks, &copied)
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

// SearchContent returns chunks whose content matches any term, case-insensitive.
func (s *MemoryChunkStore) SearchContent(ctx context.Context, documentID uuid.UUID, terms []string, limit int) ([]*Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []*Chunk
	for _, chunk := range s.chunks[documentID] {
		content := strings.ToLower(chunk.Content)
		for _, term := range terms {
			if strings.Contains(content, strings.ToLower(term)) {
				copied := *chunk
				chunks = append(chunks, &copied)
				break
			}
		}
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// CountByDocument returns the number of chunks stored for a document.
func (s *MemoryChunkStore) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks[documentID]), nil
}

// DeleteByDocument removes all chunks of a document.
func (s *MemoryChunkStore) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.chunks, documentID)
	return nil
}

// Interface checks.
var (
	_ DocumentStore = (*MemoryDocumentStore)(nil)
	_ ChunkStore    = (*MemoryChunkStore)(nil)
)
