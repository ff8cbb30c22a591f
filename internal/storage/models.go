// Package storage provides database models and repositories for the contract engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChunkKind classifies how a chunk was produced by the segmenter.
type ChunkKind string

const (
	ChunkKindPaymentSchedule ChunkKind = "payment_schedule"
	ChunkKindPropertyDetails ChunkKind = "property_details"
	ChunkKindLegalSection    ChunkKind = "legal_section"
	ChunkKindText            ChunkKind = "text"
)

// Document represents an ingested contract document.
type Document struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	ContentHash string          `json:"content_hash"`
	ChunkCount  int             `json:"chunk_count"`
	WordCount   int             `json:"word_count"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Chunk represents one contiguous slice of an annotated document.
// ChunkIndex is the 0-based position of the chunk within its document;
// (DocumentID, ChunkIndex) is the natural key.
type Chunk struct {
	ID             uuid.UUID       `json:"id"`
	DocumentID     uuid.UUID       `json:"document_id"`
	ChunkIndex     int             `json:"chunk_index"`
	Content        string          `json:"content"`
	WordCount      int             `json:"word_count"`
	CharacterCount int             `json:"character_count"`
	Kind           ChunkKind       `json:"kind"`
	SectionTitle   *string         `json:"section_title,omitempty"`
	HasEmbedding   bool            `json:"has_embedding"`
	Embedding      []float32       `json:"embedding,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ChunkMetadata is the structured metadata stored alongside each chunk.
type ChunkMetadata struct {
	AmountCount    int      `json:"amount_count,omitempty"`
	ScheduleCount  int      `json:"schedule_count,omitempty"`
	FinancialTerms []string `json:"financial_terms,omitempty"`
	Dates          []string `json:"dates,omitempty"`
	Parties        []string `json:"parties,omitempty"`
	ClauseRefs     []string `json:"clause_refs,omitempty"`
}
