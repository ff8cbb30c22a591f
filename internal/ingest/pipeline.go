// Package ingest provides the document ingestion pipeline: normalize,
// annotate, chunk, embed and index.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/briefdesk/contract-engine/internal/embedding"
	"github.com/briefdesk/contract-engine/internal/finance"
	"github.com/briefdesk/contract-engine/internal/observability"
	"github.com/briefdesk/contract-engine/internal/retrieval"
	"github.com/briefdesk/contract-engine/internal/storage"
	"github.com/briefdesk/contract-engine/internal/textnorm"
)

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	ChunkSize          int
	ChunkOverlap       int
	EmbeddingBatchSize int
	Workers            int
}

// Result summarizes one ingestion run.
type Result struct {
	DocumentID    uuid.UUID
	ChunksCreated int
	WordCount     int
	Skipped       bool
	Duration      time.Duration
}

// Pipeline orchestrates document ingestion. Reprocessing the same document
// is serialized through a per-document mutex; distinct documents ingest
// concurrently.
type Pipeline struct {
	logger    *observability.Logger
	chunker   *Chunker
	config    PipelineConfig
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	embedder  embedding.Embedder
	index     retrieval.Index
	cache     *retrieval.ContextCache

	locks    sync.Map // document ID -> *sync.Mutex
	progress func(done, total int)
}

// NewPipeline creates an ingestion pipeline. Passage embedding failures
// degrade to zero vectors rather than failing the document. The cache may
// be nil.
func NewPipeline(
	logger *observability.Logger,
	cfg PipelineConfig,
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	embedder embedding.Embedder,
	index retrieval.Index,
	contextCache *retrieval.ContextCache,
) *Pipeline {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if cfg.EmbeddingBatchSize <= 0 {
		cfg.EmbeddingBatchSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Pipeline{
		logger:    logger,
		chunker:   NewChunker(ChunkerConfig{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap}),
		config:    cfg,
		documents: documents,
		chunks:    chunks,
		embedder:  embedding.NewZeroFallback(embedder, logger),
		index:     index,
		cache:     contextCache,
	}
}

// SetProgress installs a progress callback invoked after each embedding
// batch with (batches done, batches total).
func (p *Pipeline) SetProgress(fn func(done, total int)) {
	p.progress = fn
}

// Ingest runs the full pipeline for one document. Re-ingesting unchanged
// content is skipped by fingerprint.
func (p *Pipeline) Ingest(ctx context.Context, documentID uuid.UUID, title, rawText string) (*Result, error) {
	unlock := p.lock(documentID)
	defer unlock()
	return p.ingestLocked(ctx, documentID, title, rawText, false)
}

// Reingest deletes all stored chunks and vectors for the document, drops
// cached contexts and ingests the text from scratch.
func (p *Pipeline) Reingest(ctx context.Context, documentID uuid.UUID, title, rawText string) (*Result, error) {
	unlock := p.lock(documentID)
	defer unlock()

	if err := p.purge(ctx, documentID); err != nil {
		return nil, err
	}
	return p.ingestLocked(ctx, documentID, title, rawText, true)
}

// Delete removes a document and all derived state.
func (p *Pipeline) Delete(ctx context.Context, documentID uuid.UUID) error {
	unlock := p.lock(documentID)
	defer unlock()

	if err := p.purge(ctx, documentID); err != nil {
		return err
	}
	if err := p.documents.Delete(ctx, documentID); err != nil && err != storage.ErrNotFound {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (p *Pipeline) purge(ctx context.Context, documentID uuid.UUID) error {
	if err := p.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := p.index.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if p.cache != nil {
		p.cache.InvalidateDocument(ctx, documentID)
	}
	return nil
}

func (p *Pipeline) lock(documentID uuid.UUID) func() {
	mu, _ := p.locks.LoadOrStore(documentID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (p *Pipeline) ingestLocked(ctx context.Context, documentID uuid.UUID, title, rawText string, force bool) (*Result, error) {
	started := time.Now()
	result := &Result{DocumentID: documentID}
	log := p.logger.WithDocument(documentID)

	normalized := textnorm.Normalize(rawText)
	if normalized == "" {
		log.Info().Msg("Empty document text, nothing to ingest")
		result.Duration = time.Since(started)
		return result, nil
	}

	fingerprint := contentFingerprint(normalized)
	if !force {
		if existing, err := p.documents.GetByID(ctx, documentID); err == nil &&
			existing.ContentHash == fingerprint && existing.ChunkCount > 0 {
			log.Info().Msg("Content unchanged, skipping ingestion")
			result.Skipped = true
			result.ChunksCreated = existing.ChunkCount
			result.WordCount = existing.WordCount
			result.Duration = time.Since(started)
			return result, nil
		}
	}

	annotated := finance.Annotate(normalized)
	annotated = finance.AppendExtractedTables(annotated)
	segments := p.chunker.Chunk(annotated)

	chunks := make([]*storage.Chunk, len(segments))
	texts := make([]string, len(segments))
	for i, seg := range segments {
		chunks[i] = &storage.Chunk{
			ID:             uuid.New(),
			DocumentID:     documentID,
			ChunkIndex:     i,
			Content:        seg.Content,
			WordCount:      wordCount(seg.Content),
			CharacterCount: len(seg.Content),
			Kind:           seg.Kind,
			SectionTitle:   seg.SectionTitle,
			Metadata:       chunkMetadata(seg.Content),
		}
		texts[i] = seg.Content
	}

	vectors, err := p.embedBatches(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	entries := make([]retrieval.Entry, 0, len(chunks))
	totalWords := 0
	for i, chunk := range chunks {
		chunk.Embedding = vectors[i]
		chunk.HasEmbedding = !isZeroVector(vectors[i])
		totalWords += chunk.WordCount
		entries = append(entries, retrieval.Entry{
			Ref:    retrieval.ChunkRef{DocumentID: documentID, ChunkIndex: i},
			Vector: vectors[i],
		})
	}

	if err := p.chunks.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}
	if err := p.index.Upsert(ctx, entries); err != nil {
		return nil, fmt.Errorf("index vectors: %w", err)
	}

	doc := &storage.Document{
		ID:          documentID,
		Title:       title,
		ContentHash: fingerprint,
		ChunkCount:  len(chunks),
		WordCount:   totalWords,
	}
	if err := p.documents.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if p.cache != nil {
		p.cache.InvalidateDocument(ctx, documentID)
	}

	result.ChunksCreated = len(chunks)
	result.WordCount = totalWords
	result.Duration = time.Since(started)

	log.Info().
		Int("chunks", result.ChunksCreated).
		Int("words", result.WordCount).
		Dur("elapsed", result.Duration).
		Msg("Document ingested")
	return result, nil
}

// embedBatches embeds texts in fixed-size batches across a small worker
// pool. Batch order is preserved in the returned vectors.
func (p *Pipeline) embedBatches(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type batch struct {
		index int
		texts []string
	}

	var batches []batch
	for i := 0; i < len(texts); i += p.config.EmbeddingBatchSize {
		end := i + p.config.EmbeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{index: len(batches), texts: texts[i:end]})
	}

	workChan := make(chan batch, len(batches))
	for _, b := range batches {
		workChan <- b
	}
	close(workChan)

	results := make([][][]float32, len(batches))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	done := 0

	workers := p.config.Workers
	if workers > len(batches) {
		workers = len(batches)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range workChan {
				vectors, err := p.embedder.EmbedPassages(ctx, b.texts)

				mu.Lock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				results[b.index] = vectors
				done++
				if p.progress != nil {
					p.progress(done, len(batches))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	vectors := make([][]float32, 0, len(texts))
	for _, rs := range results {
		vectors = append(vectors, rs...)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func contentFingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func chunkMetadata(content string) json.RawMessage {
	analysis := finance.Analyze(content)
	entities := finance.ExtractEntities(content)
	meta := storage.ChunkMetadata{
		AmountCount:   len(analysis.Amounts),
		ScheduleCount: len(analysis.Schedules),
		Dates:         entities.Dates,
		Parties:       entities.Parties,
		ClauseRefs:    entities.ClauseRefs,
	}
	for _, term := range analysis.Terms {
		meta.FinancialTerms = append(meta.FinancialTerms, term.Term)
	}

	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return raw
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
