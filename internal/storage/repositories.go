package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record conflict")
)

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// DocumentStore handles document bookkeeping.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChunkStore handles chunk persistence. Implementations must keep
// (document_id, chunk_index) unique: re-upserting an existing index
// replaces the row rather than duplicating it.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []*Chunk) error
	GetByDocument(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error)
	GetByIndexes(ctx context.Context, documentID uuid.UUID, indexes []int) ([]*Chunk, error)
	SearchContent(ctx context.Context, documentID uuid.UUID, terms []string, limit int) ([]*Chunk, error)
	CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) error
}

// DocumentRepository implements DocumentStore on database/sql.
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert inserts or replaces a document record.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (id, title, content_hash, chunk_count, word_count, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content_hash = EXCLUDED.content_hash,
			chunk_count = EXCLUDED.chunk_count,
			word_count = EXCLUDED.word_count,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Title, doc.ContentHash, doc.ChunkCount, doc.WordCount,
		nullableJSON(doc.Metadata), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	query := `
		SELECT id, title, content_hash, chunk_count, word_count, metadata, created_at, updated_at
		FROM documents WHERE id = $1
	`
	doc := &Document{}
	var metadata sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.ContentHash, &doc.ChunkCount, &doc.WordCount,
		&metadata, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if metadata.Valid {
		doc.Metadata = json.RawMessage(metadata.String)
	}
	return doc, nil
}

// List returns all documents ordered by creation time.
func (r *DocumentRepository) List(ctx context.Context) ([]*Document, error) {
	query := `
		SELECT id, title, content_hash, chunk_count, word_count, metadata, created_at, updated_at
		FROM documents ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc := &Document{}
		var metadata sql.NullString
		if err := rows.Scan(
			&doc.ID, &doc.Title, &doc.ContentHash, &doc.ChunkCount, &doc.WordCount,
			&metadata, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if metadata.Valid {
			doc.Metadata = json.RawMessage(metadata.String)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes a document record.
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// ChunkRepository implements ChunkStore on database/sql.
// Works against both sqlite and postgres: $N placeholders, JSON as TEXT,
// lower(content) LIKE for keyword search.
type ChunkRepository struct {
	db DB
}

// NewChunkRepository creates a new chunk repository.
func NewChunkRepository(db DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Upsert inserts or replaces chunks keyed by (document_id, chunk_index).
func (r *ChunkRepository) Upsert(ctx context.Context, chunks []*Chunk) error {
	query := `
		INSERT INTO document_chunks (id, document_id, chunk_index, content, word_count,
			character_count, kind, section_title, has_embedding, embedding, metadata,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (document_id, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			word_count = EXCLUDED.word_count,
			character_count = EXCLUDED.character_count,
			kind = EXCLUDED.kind,
			section_title = EXCLUDED.section_title,
			has_embedding = EXCLUDED.has_embedding,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = now
		}
		chunk.UpdatedAt = now

		embedding, err := encodeEmbedding(chunk.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding for chunk %d: %w", chunk.ChunkIndex, err)
		}

		if _, err := r.db.ExecContext(ctx, query,
			chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.Content,
			chunk.WordCount, chunk.CharacterCount, string(chunk.Kind),
			chunk.SectionTitle, chunk.HasEmbedding, embedding,
			nullableJSON(chunk.Metadata), chunk.CreatedAt, chunk.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert chunk %d: %w", chunk.ChunkIndex, err)
		}
	}
	return nil
}

// GetByDocument returns all chunks of a document ordered by chunk index.
func (r *ChunkRepository) GetByDocument(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	query := chunkSelect + ` WHERE document_id = $1 ORDER BY chunk_index`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks by document: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetByIndexes returns the chunks with the given indexes, ordered ascending.
// Unknown indexes are silently skipped.
func (r *ChunkRepository) GetByIndexes(ctx context.Context, documentID uuid.UUID, indexes []int) ([]*Chunk, error) {
	if len(indexes) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(indexes))
	args := make([]interface{}, 0, len(indexes)+1)
	args = append(args, documentID)
	for i, idx := range indexes {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, idx)
	}

	query := chunkSelect + fmt.Sprintf(
		` WHERE document_id = $1 AND chunk_index IN (%s) ORDER BY chunk_index`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks by indexes: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// SearchContent returns chunks whose content matches any of the terms,
// case-insensitive, ordered by chunk index.
func (r *ChunkRepository) SearchContent(ctx context.Context, documentID uuid.UUID, terms []string, limit int) ([]*Chunk, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	conditions := make([]string, len(terms))
	args := make([]interface{}, 0, len(terms)+2)
	args = append(args, documentID)
	for i, term := range terms {
		conditions[i] = fmt.Sprintf("lower(content) LIKE $%d", i+2)
		args = append(args, "%"+strings.ToLower(term)+"%")
	}
	args = append(args, limit)

	query := chunkSelect + fmt.Sprintf(
		` WHERE document_id = $1 AND (%s) ORDER BY chunk_index LIMIT $%d`,
		strings.Join(conditions, " OR "), len(terms)+2,
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunk content: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// CountByDocument returns the number of chunks stored for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// DeleteByDocument removes all chunks of a document.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = $1`, documentID,
	); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

const chunkSelect = `
	SELECT id, document_id, chunk_index, content, word_count, character_count,
		kind, section_title, has_embedding, embedding, metadata, created_at, updated_at
	FROM document_chunks`

func scanChunks(rows *sql.Rows) ([]*Chunk, error) {
	var chunks []*Chunk
	for rows.Next() {
		chunk := &Chunk{}
		var (
			kind      string
			embedding sql.NullString
			metadata  sql.NullString
		)
		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content,
			&chunk.WordCount, &chunk.CharacterCount, &kind, &chunk.SectionTitle,
			&chunk.HasEmbedding, &embedding, &metadata, &chunk.CreatedAt, &chunk.UpdatedAt,
		); err != nil {
			return nil, err
		}
		chunk.Kind = ChunkKind(kind)
		if embedding.Valid && embedding.String != "" {
			vec, err := decodeEmbedding(embedding.String)
			if err != nil {
				return nil, fmt.Errorf("decode embedding for chunk %d: %w", chunk.ChunkIndex, err)
			}
			chunk.Embedding = vec
		}
		if metadata.Valid {
			chunk.Metadata = json.RawMessage(metadata.String)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// encodeEmbedding serializes a vector as JSON for the TEXT column.
func encodeEmbedding(vec []float32) (interface{}, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeEmbedding(data string) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil, err
	}
	return vec, nil
}

func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// Interface checks.
var (
	_ DocumentStore = (*DocumentRepository)(nil)
	_ ChunkStore    = (*ChunkRepository)(nil)
)
