package embedding

import (
	"context"
	"errors"
)

// ErrNotConfigured indicates no embedding backend is configured.
var ErrNotConfigured = errors.New("embedding backend not configured")

// Disabled is the embedder used when no backend is configured. Wrapped in a
// ZeroFallback it yields zero vectors at ingestion time; at query time its
// error surfaces and retrieval degrades to an empty context.
type Disabled struct {
	dimension int
}

// NewDisabled creates a disabled embedder with the given dimension.
func NewDisabled(dimension int) *Disabled {
	if dimension <= 0 {
		dimension = 384
	}
	return &Disabled{dimension: dimension}
}

func (d *Disabled) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (d *Disabled) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, ErrNotConfigured
}

func (d *Disabled) Model() string {
	return "disabled"
}

func (d *Disabled) Dimension() int {
	return d.dimension
}

func (d *Disabled) Available() bool {
	return false
}

var _ Embedder = (*Disabled)(nil)
