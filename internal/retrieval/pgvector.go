package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/briefdesk/contract-engine/internal/observability"
)

// PGVectorIndex stores chunk embeddings in a Postgres table with the
// pgvector extension and searches with the cosine distance operator.
type PGVectorIndex struct {
	db        *sql.DB
	logger    *observability.Logger
	dimension int
}

// NewPGVectorIndex creates the index and its backing table. The pgvector
// extension must already be installed in the target database.
func NewPGVectorIndex(db *sql.DB, dimension int, logger *observability.Logger) (*PGVectorIndex, error) {
	if dimension <= 0 {
		dimension = 384
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	idx := &PGVectorIndex{db: db, logger: logger, dimension: dimension}
	if err := idx.createTable(context.Background()); err != nil {
		return nil, fmt.Errorf("create chunk_vectors table: %w", err)
	}
	return idx, nil
}

func (idx *PGVectorIndex) createTable(ctx context.Context) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS chunk_vectors (
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			embedding vector(%d) NOT NULL,
			PRIMARY KEY (document_id, chunk_index)
		)`, idx.dimension)
	_, err := idx.db.ExecContext(ctx, stmt)
	return err
}

// Upsert inserts or replaces vectors by chunk reference.
func (idx *PGVectorIndex) Upsert(ctx context.Context, entries []Entry) error {
	const stmt = `
		INSERT INTO chunk_vectors (document_id, chunk_index, embedding)
		VALUES ($1, $2, CAST($3 AS vector))
		ON CONFLICT (document_id, chunk_index)
		DO UPDATE SET embedding = EXCLUDED.embedding`

	for _, e := range entries {
		if _, err := idx.db.ExecContext(ctx, stmt,
			e.Ref.DocumentID.String(), e.Ref.ChunkIndex, vectorLiteral(e.Vector)); err != nil {
			return fmt.Errorf("upsert vector %s/%d: %w", e.Ref.DocumentID, e.Ref.ChunkIndex, err)
		}
	}
	return nil
}

// Search returns up to k hits by cosine distance, ties broken by lower
// chunk index. Failures are logged and yield an empty result.
func (idx *PGVectorIndex) Search(ctx context.Context, query []float32, k int, documentID *uuid.UUID) []Result {
	if len(query) == 0 || k <= 0 {
		return nil
	}

	stmt := `
		SELECT document_id, chunk_index, 1 - (embedding <=> CAST($1 AS vector)) AS score
		FROM chunk_vectors`
	args := []interface{}{vectorLiteral(query)}
	if documentID != nil {
		stmt += ` WHERE document_id = $2`
		args = append(args, documentID.String())
	}
	stmt += fmt.Sprintf(`
		ORDER BY embedding <=> CAST($1 AS vector) ASC, chunk_index ASC
		LIMIT %d`, k)

	rows, err := idx.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		idx.logger.Warn().Err(err).Msg("Vector search failed, returning empty result")
		return nil
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var docID string
		var r Result
		if err := rows.Scan(&docID, &r.Ref.ChunkIndex, &r.Score); err != nil {
			idx.logger.Warn().Err(err).Msg("Vector search scan failed, returning empty result")
			return nil
		}
		id, err := uuid.Parse(docID)
		if err != nil {
			continue
		}
		r.Ref.DocumentID = id
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		idx.logger.Warn().Err(err).Msg("Vector search iteration failed, returning empty result")
		return nil
	}
	return results
}

// DeleteDocument removes every vector belonging to a document.
func (idx *PGVectorIndex) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	_, err := idx.db.ExecContext(ctx,
		`DELETE FROM chunk_vectors WHERE document_id = $1`, documentID.String())
	return err
}

// Count returns the number of indexed vectors.
func (idx *PGVectorIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	err := idx.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_vectors`).Scan(&n)
	return n, err
}

// Close is a no-op: the index does not own the database handle.
func (idx *PGVectorIndex) Close() error {
	return nil
}

// vectorLiteral renders a float32 slice as a pgvector text literal.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

var _ Index = (*PGVectorIndex)(nil)
