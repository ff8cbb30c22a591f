package retrieval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeCandidates(doc uuid.UUID, contents ...string) []Candidate {
	out := make([]Candidate, len(contents))
	for i, c := range contents {
		out[i] = Candidate{Ref: ChunkRef{DocumentID: doc, ChunkIndex: i}, Content: c}
	}
	return out
}

func TestCandidatePool(t *testing.T) {
	assert.Equal(t, 50, candidatePool(1))
	assert.Equal(t, 50, candidatePool(8))
	assert.Equal(t, 60, candidatePool(10))
}

func TestCrossEncoderClient_Rerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req RerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Documents, 3)

		// Score the last document highest.
		resp := RerankResponse{Results: []RerankResult{
			{Index: 0, RelevanceScore: 0.1},
			{Index: 1, RelevanceScore: 0.5},
			{Index: 2, RelevanceScore: 0.9},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewCrossEncoderClient(CrossEncoderConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	doc := uuid.New()
	candidates := makeCandidates(doc, "a", "b", "c")

	refs, err := client.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 2, refs[0].ChunkIndex)
	assert.Equal(t, 1, refs[1].ChunkIndex)
}

func TestCrossEncoderClient_RerankBound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Response references an out-of-range index, which must be ignored.
		resp := RerankResponse{Results: []RerankResult{
			{Index: 7, RelevanceScore: 0.9},
			{Index: 0, RelevanceScore: 0.4},
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client, err := NewCrossEncoderClient(CrossEncoderConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	doc := uuid.New()
	candidates := makeCandidates(doc, "a", "b")

	refs, err := client.Rerank(context.Background(), "q", candidates, 5)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, candidates[0].Ref, refs[0])
}

func TestCrossEncoderClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewCrossEncoderClient(CrossEncoderConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Rerank(context.Background(), "q", makeCandidates(uuid.New(), "a"), 1)
	require.Error(t, err)
}

func TestNoopReranker_PreservesOrder(t *testing.T) {
	doc := uuid.New()
	candidates := makeCandidates(doc, "a", "b", "c")

	refs, err := NoopReranker{}.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, 0, refs[0].ChunkIndex)
	assert.Equal(t, 1, refs[1].ChunkIndex)
}
