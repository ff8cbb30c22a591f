// Package engine wires the contract engine together: storage, embedding,
// vector index, cache and the ingestion and retrieval pipelines. It is the
// library surface consumed by the CLI and by embedding applications.
package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/briefdesk/contract-engine/internal/cache"
	"github.com/briefdesk/contract-engine/internal/config"
	"github.com/briefdesk/contract-engine/internal/embedding"
	"github.com/briefdesk/contract-engine/internal/ingest"
	"github.com/briefdesk/contract-engine/internal/observability"
	"github.com/briefdesk/contract-engine/internal/retrieval"
	"github.com/briefdesk/contract-engine/internal/storage"
)

// Engine is the assembled contract engine.
type Engine struct {
	logger    *observability.Logger
	db        *sql.DB
	documents storage.DocumentStore
	chunks    storage.ChunkStore
	cacheC    cache.Client
	index     retrieval.Index
	pipeline  *ingest.Pipeline
	router    *retrieval.Router
}

// Components holds pre-built dependencies for NewWithComponents. Nil fields
// fall back to in-memory implementations.
type Components struct {
	Logger    *observability.Logger
	Documents storage.DocumentStore
	Chunks    storage.ChunkStore
	Cache     cache.Client
	Index     retrieval.Index
	Embedder  embedding.Embedder
	Reranker  retrieval.Reranker
}

// New builds an engine from configuration.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	var (
		db        *sql.DB
		documents storage.DocumentStore
		chunks    storage.ChunkStore
	)
	if cfg.DatabaseDSN() != "" {
		open := storage.OpenConfig{
			Driver:          cfg.Database.Driver,
			DSN:             cfg.DatabaseDSN(),
			CreateSchemaNow: true,
		}
		if cfg.Database.Driver == "sqlite" {
			open.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
			open.SQLiteJournal = cfg.Database.SQLite.JournalMode
		} else {
			open.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
			open.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		}
		var err error
		db, err = storage.Open(ctx, open)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		documents = storage.NewDocumentRepository(db)
		chunks = storage.NewChunkRepository(db)
	} else {
		documents = storage.NewMemoryDocumentStore()
		chunks = storage.NewMemoryChunkStore()
	}

	var cacheC cache.Client
	if cfg.Cache.Driver == "redis" {
		rc, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		cacheC = rc
	} else {
		cacheC = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}

	var embedder embedding.Embedder
	if cfg.Embedding.BaseURL != "" {
		client, err := embedding.NewClient(embedding.Config{
			BaseURL:   cfg.Embedding.BaseURL,
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		embedder = client
	} else {
		logger.Warn().Msg("No embedding backend configured, ingesting with zero vectors")
		embedder = embedding.NewDisabled(cfg.Embedding.Dimension)
	}

	var index retrieval.Index
	if cfg.Vector.Adapter == "pgvector" {
		pgIndex, err := retrieval.NewPGVectorIndex(db, cfg.Vector.Dimension, logger)
		if err != nil {
			return nil, fmt.Errorf("create pgvector index: %w", err)
		}
		index = pgIndex
	} else {
		memIndex := retrieval.NewMemoryIndex(cfg.Vector.Dimension)
		if err := rebuildIndex(ctx, memIndex, documents, chunks); err != nil {
			return nil, fmt.Errorf("rebuild memory index: %w", err)
		}
		index = memIndex
	}

	var reranker retrieval.Reranker = retrieval.NoopReranker{}
	if cfg.Reranker.Enabled && cfg.Reranker.BaseURL != "" {
		client, err := retrieval.NewCrossEncoderClient(retrieval.CrossEncoderConfig{
			BaseURL: cfg.Reranker.BaseURL,
			Model:   cfg.Reranker.Model,
			Timeout: cfg.Reranker.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create reranker client: %w", err)
		}
		reranker = client
	}

	var contextCache *retrieval.ContextCache
	if cfg.Retrieval.CacheResults {
		contextCache = retrieval.NewContextCache(cacheC, logger, cfg.Cache.TTL)
	}

	e := &Engine{
		logger:    logger,
		db:        db,
		documents: documents,
		chunks:    chunks,
		cacheC:    cacheC,
		index:     index,
	}
	e.wire(cfg, embedder, reranker, contextCache)
	return e, nil
}

// NewWithComponents builds an engine from pre-built dependencies, used by
// tests and by callers embedding the engine with custom backends.
func NewWithComponents(cfg *config.Config, components Components) *Engine {
	logger := components.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	documents := components.Documents
	if documents == nil {
		documents = storage.NewMemoryDocumentStore()
	}
	chunks := components.Chunks
	if chunks == nil {
		chunks = storage.NewMemoryChunkStore()
	}
	index := components.Index
	if index == nil {
		index = retrieval.NewMemoryIndex(cfg.Vector.Dimension)
	}
	embedder := components.Embedder
	if embedder == nil {
		embedder = embedding.NewDisabled(cfg.Embedding.Dimension)
	}
	reranker := components.Reranker
	if reranker == nil {
		reranker = retrieval.NoopReranker{}
	}

	var contextCache *retrieval.ContextCache
	if cfg.Retrieval.CacheResults && components.Cache != nil {
		contextCache = retrieval.NewContextCache(components.Cache, logger, cfg.Cache.TTL)
	}

	e := &Engine{
		logger:    logger,
		documents: documents,
		chunks:    chunks,
		cacheC:    components.Cache,
		index:     index,
	}
	e.wire(cfg, embedder, reranker, contextCache)
	return e
}

func (e *Engine) wire(cfg *config.Config, embedder embedding.Embedder, reranker retrieval.Reranker, contextCache *retrieval.ContextCache) {
	e.pipeline = ingest.NewPipeline(
		e.logger,
		ingest.PipelineConfig{
			ChunkSize:          cfg.Ingestion.ChunkSize,
			ChunkOverlap:       cfg.Ingestion.ChunkOverlap,
			EmbeddingBatchSize: cfg.Ingestion.EmbeddingBatchSize,
			Workers:            cfg.Ingestion.Workers,
		},
		e.documents,
		e.chunks,
		embedder,
		e.index,
		contextCache,
	)
	e.router = retrieval.NewRouter(
		e.logger,
		e.chunks,
		e.index,
		embedder,
		reranker,
		contextCache,
		retrieval.RouterConfig{
			GeneralPoolSize:       cfg.Retrieval.GeneralPoolSize,
			FinancialPoolSize:     cfg.Retrieval.FinancialPoolSize,
			GeneralBudget:         cfg.Retrieval.GeneralBudget,
			FinancialBudget:       cfg.Retrieval.FinancialBudget,
			MinContextChars:       cfg.Retrieval.MinContextChars,
			GeneralNeighborRadius: cfg.Retrieval.GeneralNeighborRadius,
			AmountNeighborRadius:  cfg.Retrieval.AmountNeighborRadius,
			KeywordNeighborRadius: cfg.Retrieval.KeywordNeighborRadius,
		},
	)
}

// rebuildIndex reloads stored chunk embeddings into a fresh memory index so
// vector search survives process restarts.
func rebuildIndex(ctx context.Context, index retrieval.Index, documents storage.DocumentStore, chunks storage.ChunkStore) error {
	docs, err := documents.List(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		stored, err := chunks.GetByDocument(ctx, doc.ID)
		if err != nil {
			return err
		}
		var entries []retrieval.Entry
		for _, chunk := range stored {
			if len(chunk.Embedding) == 0 {
				continue
			}
			entries = append(entries, retrieval.Entry{
				Ref:    retrieval.ChunkRef{DocumentID: doc.ID, ChunkIndex: chunk.ChunkIndex},
				Vector: chunk.Embedding,
			})
		}
		if len(entries) > 0 {
			if err := index.Upsert(ctx, entries); err != nil {
				return err
			}
		}
	}
	return nil
}

// Ingest processes raw document text under the given identifier.
func (e *Engine) Ingest(ctx context.Context, documentID uuid.UUID, title, text string) (*ingest.Result, error) {
	return e.pipeline.Ingest(ctx, documentID, title, text)
}

// Reingest drops all derived state for the document and ingests the text
// from scratch.
func (e *Engine) Reingest(ctx context.Context, documentID uuid.UUID, title, text string) (*ingest.Result, error) {
	return e.pipeline.Reingest(ctx, documentID, title, text)
}

// Delete removes a document and all derived state.
func (e *Engine) Delete(ctx context.Context, documentID uuid.UUID) error {
	return e.pipeline.Delete(ctx, documentID)
}

// RetrieveContext answers the query-time pipeline for one question. It
// never returns an error; "" means no context could be assembled.
func (e *Engine) RetrieveContext(ctx context.Context, documentID uuid.UUID, question string) string {
	return e.router.RetrieveContext(ctx, documentID, question)
}

// Documents lists all ingested documents.
func (e *Engine) Documents(ctx context.Context) ([]*storage.Document, error) {
	return e.documents.List(ctx)
}

// Document returns one document record.
func (e *Engine) Document(ctx context.Context, documentID uuid.UUID) (*storage.Document, error) {
	return e.documents.GetByID(ctx, documentID)
}

// Stats summarizes engine state.
type Stats struct {
	Documents int
	Chunks    int
	Vectors   int64
}

// Stats reports document, chunk and vector counts.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	docs, err := e.documents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	stats := &Stats{Documents: len(docs)}
	for _, doc := range docs {
		n, err := e.chunks.CountByDocument(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("count chunks: %w", err)
		}
		stats.Chunks += n
	}

	vectors, err := e.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	stats.Vectors = vectors
	return stats, nil
}

// SetProgress installs an ingestion progress callback.
func (e *Engine) SetProgress(fn func(done, total int)) {
	e.pipeline.SetProgress(fn)
}

// Close releases held resources.
func (e *Engine) Close() error {
	if err := e.index.Close(); err != nil {
		return err
	}
	if e.cacheC != nil {
		if err := e.cacheC.Close(); err != nil {
			return err
		}
	}
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}
