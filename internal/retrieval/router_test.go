package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefdesk/contract-engine/internal/embedding"
	"github.com/briefdesk/contract-engine/internal/observability"
	"github.com/briefdesk/contract-engine/internal/storage"
)

func TestClassifyQuery(t *testing.T) {
	tests := []struct {
		question string
		intent   Intent
		schedule bool
	}{
		{"What is the total payment amount?", IntentFinancial, false},
		{"What is the termination notice period?", IntentGeneral, false},
		{"What is the payment schedule?", IntentFinancial, true},
		{"How much is due on booking?", IntentFinancial, true},
		{"Who are the parties to this agreement?", IntentGeneral, false},
		{"", IntentGeneral, false},
	}

	for _, tc := range tests {
		t.Run(tc.question, func(t *testing.T) {
			got := ClassifyQuery(tc.question)
			assert.Equal(t, tc.intent, got.Intent)
			assert.Equal(t, tc.schedule, got.Schedule)
		})
	}
}

func TestCandidateSet(t *testing.T) {
	s := NewCandidateSet()
	s.AddWithNeighbors(1, 2)
	s.AddWithNeighbors(1, 2)
	s.Add(7)
	s.Add(-3)

	assert.Equal(t, []int{0, 1, 2, 3, 7}, s.Indexes())
	assert.Equal(t, 5, s.Len())
}

func TestAssembleContext(t *testing.T) {
	doc := uuid.New()
	chunks := []*storage.Chunk{
		{DocumentID: doc, ChunkIndex: 2, Content: "third"},
		{DocumentID: doc, ChunkIndex: 0, Content: "first"},
		{DocumentID: doc, ChunkIndex: 1, Content: "second"},
	}

	out := AssembleContext(chunks, 0)
	assert.Equal(t, "[Chunk 0]: first\n\n[Chunk 1]: second\n\n[Chunk 2]: third", out)
}

func TestAssembleContext_BudgetStopsChunksNotPrefix(t *testing.T) {
	doc := uuid.New()
	var chunks []*storage.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, &storage.Chunk{
			DocumentID: doc,
			ChunkIndex: i,
			Content:    fmt.Sprintf("chunk %d content padding padding padding", i),
		})
	}

	out := AssembleContext(chunks, 100, "PREFIX BLOCK")

	assert.Contains(t, out, "PREFIX BLOCK")
	assert.Contains(t, out, "[Chunk 0]:")
	assert.NotContains(t, out, "[Chunk 9]:")
}

type routerFixture struct {
	router *Router
	chunks *storage.MemoryChunkStore
	index  *MemoryIndex
	mock   *embedding.MockClient
	doc    uuid.UUID
}

func newRouterFixture(t *testing.T, contents []string, kinds []storage.ChunkKind) *routerFixture {
	t.Helper()
	ctx := context.Background()

	doc := uuid.New()
	chunkStore := storage.NewMemoryChunkStore()
	index := NewMemoryIndex(16)
	mock := embedding.NewMockClient(16)

	var chunks []*storage.Chunk
	var entries []Entry
	for i, content := range contents {
		kind := storage.ChunkKindText
		if kinds != nil {
			kind = kinds[i]
		}
		chunks = append(chunks, &storage.Chunk{
			ID:         uuid.New(),
			DocumentID: doc,
			ChunkIndex: i,
			Content:    content,
			Kind:       kind,
		})

		vec, err := mock.EmbedPassages(ctx, []string{content})
		require.NoError(t, err)
		entries = append(entries, Entry{
			Ref:    ChunkRef{DocumentID: doc, ChunkIndex: i},
			Vector: vec[0],
		})
	}
	require.NoError(t, chunkStore.Upsert(ctx, chunks))
	require.NoError(t, index.Upsert(ctx, entries))

	router := NewRouter(observability.NopLogger(), chunkStore, index, mock, NoopReranker{}, nil, RouterConfig{})
	return &routerFixture{router: router, chunks: chunkStore, index: index, mock: mock, doc: doc}
}

func TestRouter_ScheduleQueryEndToEnd(t *testing.T) {
	f := newRouterFixture(t,
		[]string{
			"This agreement covers the sale of the said flat between the parties.",
			"PAYMENT SCHEDULE:\nOn Booking [INDIAN_CURRENCY: Rs. 1,00,000/-]\nOn Possession [INDIAN_CURRENCY: Rs. 2,00,000/-]",
			"The purchaser shall take possession subject to clearance of all dues.",
		},
		[]storage.ChunkKind{
			storage.ChunkKindText,
			storage.ChunkKindPaymentSchedule,
			storage.ChunkKindText,
		},
	)

	out := f.router.RetrieveContext(context.Background(), f.doc, "What is the payment schedule?")

	require.NotEmpty(t, out)
	assert.Contains(t, out, "Rs. 1,00,000/-")
	assert.Contains(t, out, "Rs. 2,00,000/-")
	assert.Contains(t, out, "SYNTHESIZED PAYMENT SCHEDULE")
	assert.Contains(t, out, "TOTAL: 300000")
}

func TestRouter_GeneralQuery(t *testing.T) {
	f := newRouterFixture(t,
		[]string{
			"The lessor grants the lessee the said premises for a term of three years.",
			"Either party may terminate this agreement with sixty days written notice.",
			"The lessee shall keep the premises in good repair at all times.",
		},
		nil,
	)

	out := f.router.RetrieveContext(context.Background(), f.doc, "What is the termination notice period?")

	require.NotEmpty(t, out)
	assert.Contains(t, out, "[Chunk ")
	// Short documents always trip the fallback, so everything is present.
	assert.Contains(t, out, "sixty days")
}

func TestRouter_EmptyContextFallback(t *testing.T) {
	// No vector hits and no keyword hits: context assembly comes up short
	// and the fallback pulls every chunk.
	contents := make([]string, 20)
	for i := range contents {
		contents[i] = fmt.Sprintf("Clause %d covers obligations of the parties hereunder.", i)
	}
	f := newRouterFixture(t, contents, nil)

	// Empty the index so semantic search returns nothing.
	require.NoError(t, f.index.DeleteDocument(context.Background(), f.doc))

	out := f.router.RetrieveContext(context.Background(), f.doc, "zyx unrelated adversarial question")
	require.NotEmpty(t, out)
	assert.Contains(t, out, "[Chunk 0]:")
}

func TestRouter_EmbeddingFailureReturnsEmpty(t *testing.T) {
	f := newRouterFixture(t, []string{"Some chunk content for the document."}, nil)

	failing := &failingEmbedder{}
	router := NewRouter(observability.NopLogger(), f.chunks, f.index, failing, NoopReranker{}, nil, RouterConfig{})

	out := router.RetrieveContext(context.Background(), f.doc, "What are the obligations?")
	assert.Equal(t, "", out)
}

func TestRouter_EmptyQuestion(t *testing.T) {
	f := newRouterFixture(t, []string{"content"}, nil)
	assert.Equal(t, "", f.router.RetrieveContext(context.Background(), f.doc, "   "))
}

type failingEmbedder struct{}

func (f *failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (f *failingEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, fmt.Errorf("embedding backend down")
}

func (f *failingEmbedder) Model() string { return "failing" }

func (f *failingEmbedder) Dimension() int { return 16 }

func (f *failingEmbedder) Available() bool { return true }
