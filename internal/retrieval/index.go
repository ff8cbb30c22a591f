// Package retrieval provides vector search, reranking and context assembly
// over ingested contract chunks.
package retrieval

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrVectorDimensionMismatch indicates a vector whose length does not
// match the index dimension.
var ErrVectorDimensionMismatch = errors.New("vector dimension mismatch")

// ChunkRef identifies a chunk by document and position.
type ChunkRef struct {
	DocumentID uuid.UUID
	ChunkIndex int
}

// Entry is one vector to be indexed.
type Entry struct {
	Ref    ChunkRef
	Vector []float32
}

// Result is one scored search hit.
type Result struct {
	Ref   ChunkRef
	Score float32
}

// Index defines vector similarity search over chunk embeddings.
//
// Search never returns an error: any internal failure yields an empty
// result so callers can fall back to keyword retrieval.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Search(ctx context.Context, query []float32, k int, documentID *uuid.UUID) []Result
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// MemoryIndex is an in-memory cosine similarity index. Vectors are
// normalized on insert so search reduces to a dot product.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[uuid.UUID]map[int][]float32
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex(dimension int) *MemoryIndex {
	if dimension <= 0 {
		dimension = 384
	}
	return &MemoryIndex{
		dimension: dimension,
		vectors:   make(map[uuid.UUID]map[int][]float32),
	}
}

// Upsert inserts or replaces vectors by chunk reference.
func (idx *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, e := range entries {
		if len(e.Vector) != idx.dimension {
			return ErrVectorDimensionMismatch
		}
		doc := idx.vectors[e.Ref.DocumentID]
		if doc == nil {
			doc = make(map[int][]float32)
			idx.vectors[e.Ref.DocumentID] = doc
		}
		doc[e.Ref.ChunkIndex] = normalizeVector(e.Vector)
	}
	return nil
}

// Search returns up to k hits ordered by descending score, ties broken by
// document ID then chunk index so unscoped searches order deterministically.
// Zero vectors score zero and sink to the bottom.
func (idx *MemoryIndex) Search(ctx context.Context, query []float32, k int, documentID *uuid.UUID) []Result {
	if len(query) == 0 || k <= 0 {
		return nil
	}
	q := normalizeVector(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var results []Result
	scan := func(docID uuid.UUID, chunks map[int][]float32) {
		for chunkIndex, vec := range chunks {
			if len(vec) != len(q) {
				continue
			}
			results = append(results, Result{
				Ref:   ChunkRef{DocumentID: docID, ChunkIndex: chunkIndex},
				Score: dot(q, vec),
			})
		}
	}

	if documentID != nil {
		if chunks, ok := idx.vectors[*documentID]; ok {
			scan(*documentID, chunks)
		}
	} else {
		for docID, chunks := range idx.vectors {
			scan(docID, chunks)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		if ri.Score != rj.Score {
			return ri.Score > rj.Score
		}
		if cmp := bytes.Compare(ri.Ref.DocumentID[:], rj.Ref.DocumentID[:]); cmp != 0 {
			return cmp < 0
		}
		return ri.Ref.ChunkIndex < rj.Ref.ChunkIndex
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// DeleteDocument removes every vector belonging to a document.
func (idx *MemoryIndex) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, documentID)
	return nil
}

// Count returns the number of indexed vectors.
func (idx *MemoryIndex) Count(ctx context.Context) (int64, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var n int64
	for _, chunks := range idx.vectors {
		n += int64(len(chunks))
	}
	return n, nil
}

// Close releases resources. The memory index has none.
func (idx *MemoryIndex) Close() error {
	return nil
}

func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		return out
	}
	norm := float32(1.0 / math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x * norm
	}
	return out
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ Index = (*MemoryIndex)(nil)
