package embedding

import "context"

// MockClient provides a deterministic embedding client for testing. Equal
// texts always embed to equal vectors.
type MockClient struct {
	dimension int
	available bool
}

// NewMockClient creates a mock client with the given dimension.
func NewMockClient(dimension int) *MockClient {
	if dimension <= 0 {
		dimension = 384
	}
	return &MockClient{dimension: dimension, available: true}
}

// SetAvailable toggles availability so tests can simulate a missing model.
func (c *MockClient) SetAvailable(available bool) {
	c.available = available
}

// EmbedQuery embeds a query deterministically.
func (c *MockClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.hashEmbed(queryPrefix + text), nil
}

// EmbedPassages embeds passages deterministically.
func (c *MockClient) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, t := range texts {
		embeddings[i] = c.hashEmbed(passagePrefix + t)
	}
	return embeddings, nil
}

// hashEmbed folds characters into buckets, then normalizes. Similar texts
// produce similar vectors, which is enough for ranking tests.
func (c *MockClient) hashEmbed(text string) []float32 {
	v := make([]float32, c.dimension)
	for j, char := range text {
		v[(j+int(char))%c.dimension] += float32(char) / 1000.0
	}
	return normalize(v)
}

// Model returns the mock model name.
func (c *MockClient) Model() string {
	return "mock-embedding-model"
}

// Dimension returns the embedding dimension.
func (c *MockClient) Dimension() int {
	return c.dimension
}

// Available reports the configured availability.
func (c *MockClient) Available() bool {
	return c.available
}
