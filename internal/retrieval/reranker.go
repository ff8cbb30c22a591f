package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// rerankFloor is the minimum candidate pool handed to the reranker. Small
// k values still benefit from reranking over a wider pool.
const rerankFloor = 50

// candidatePool returns the vector-search pool size for a final cut of k.
func candidatePool(k int) int {
	pool := 6 * k
	if pool < rerankFloor {
		pool = rerankFloor
	}
	return pool
}

// Candidate is one chunk offered to the reranker.
type Candidate struct {
	Ref     ChunkRef
	Content string
}

// Reranker reorders candidates by cross-encoder relevance to the query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, k int) ([]ChunkRef, error)
	Available() bool
}

// CrossEncoderClient scores query/candidate pairs through an HTTP /rerank
// endpoint.
type CrossEncoderClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// CrossEncoderConfig holds reranker client configuration.
type CrossEncoderConfig struct {
	BaseURL string
	Model   string // Default: cross-encoder/ms-marco-MiniLM-L-6-v2
	Timeout time.Duration
}

// NewCrossEncoderClient creates a reranker client.
func NewCrossEncoderClient(cfg CrossEncoderConfig) (*CrossEncoderClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("reranker base URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = "cross-encoder/ms-marco-MiniLM-L-6-v2"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &CrossEncoderClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
	}, nil
}

// RerankRequest is the /rerank request payload.
type RerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// RerankResponse is the /rerank response payload.
type RerankResponse struct {
	Results []RerankResult `json:"results"`
	Error   *RerankError   `json:"error,omitempty"`
}

// RerankResult scores one document by input position.
type RerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

// RerankError represents an API error.
type RerankError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Rerank returns up to k chunk references ordered by descending relevance.
func (c *CrossEncoderClient) Rerank(ctx context.Context, query string, candidates []Candidate, k int) ([]ChunkRef, error) {
	if len(candidates) == 0 || k <= 0 {
		return nil, nil
	}

	documents := make([]string, len(candidates))
	for i, cand := range candidates {
		documents[i] = cand.Content
	}

	jsonBody, err := json.Marshal(RerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: documents,
		TopN:      k,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp RerankResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return nil, fmt.Errorf("API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var rerankResp RerankResponse
	if err := json.Unmarshal(body, &rerankResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := rerankResp.Results
	sort.Slice(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})

	refs := make([]ChunkRef, 0, k)
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			continue
		}
		refs = append(refs, candidates[r.Index].Ref)
		if len(refs) == k {
			break
		}
	}
	return refs, nil
}

// Available reports whether the client is configured to reach a backend.
func (c *CrossEncoderClient) Available() bool {
	return c.baseURL != ""
}

// NoopReranker preserves the incoming order and truncates to k. Used when
// reranking is disabled or no backend is configured.
type NoopReranker struct{}

// Rerank returns the first k candidates in their incoming order.
func (NoopReranker) Rerank(ctx context.Context, query string, candidates []Candidate, k int) ([]ChunkRef, error) {
	if k > len(candidates) {
		k = len(candidates)
	}
	refs := make([]ChunkRef, 0, k)
	for _, cand := range candidates[:k] {
		refs = append(refs, cand.Ref)
	}
	return refs, nil
}

// Available always reports true.
func (NoopReranker) Available() bool {
	return true
}

// Ensure implementations satisfy interface.
var (
	_ Reranker = (*CrossEncoderClient)(nil)
	_ Reranker = NoopReranker{}
)
