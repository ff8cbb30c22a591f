package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/briefdesk/contract-engine/internal/embedding"
	"github.com/briefdesk/contract-engine/internal/finance"
	"github.com/briefdesk/contract-engine/internal/observability"
	"github.com/briefdesk/contract-engine/internal/storage"
)

// RouterConfig holds retrieval tuning parameters.
type RouterConfig struct {
	// GeneralPoolSize is the vector-search cut for general questions.
	GeneralPoolSize int
	// FinancialPoolSize is the vector-search cut for financial questions.
	FinancialPoolSize int
	// GeneralBudget is the context character budget for general questions.
	GeneralBudget int
	// FinancialBudget is the context character budget for financial questions.
	FinancialBudget int
	// MinContextChars triggers the all-chunks fallback below this length.
	MinContextChars int
	// GeneralNeighborRadius expands each semantic hit for general questions.
	GeneralNeighborRadius int
	// AmountNeighborRadius expands each regex-amount hit.
	AmountNeighborRadius int
	// KeywordNeighborRadius expands each keyword-search hit.
	KeywordNeighborRadius int
}

// DefaultRouterConfig returns the standard tuning.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		GeneralPoolSize:       15,
		FinancialPoolSize:     25,
		GeneralBudget:         5000,
		FinancialBudget:       8000,
		MinContextChars:       500,
		GeneralNeighborRadius: 2,
		AmountNeighborRadius:  2,
		KeywordNeighborRadius: 1,
	}
}

func (c RouterConfig) withDefaults() RouterConfig {
	d := DefaultRouterConfig()
	if c.GeneralPoolSize <= 0 {
		c.GeneralPoolSize = d.GeneralPoolSize
	}
	if c.FinancialPoolSize <= 0 {
		c.FinancialPoolSize = d.FinancialPoolSize
	}
	if c.GeneralBudget <= 0 {
		c.GeneralBudget = d.GeneralBudget
	}
	if c.FinancialBudget <= 0 {
		c.FinancialBudget = d.FinancialBudget
	}
	if c.MinContextChars <= 0 {
		c.MinContextChars = d.MinContextChars
	}
	if c.GeneralNeighborRadius <= 0 {
		c.GeneralNeighborRadius = d.GeneralNeighborRadius
	}
	if c.AmountNeighborRadius <= 0 {
		c.AmountNeighborRadius = d.AmountNeighborRadius
	}
	if c.KeywordNeighborRadius <= 0 {
		c.KeywordNeighborRadius = d.KeywordNeighborRadius
	}
	return c
}

// amountScanPatterns mark a chunk as carrying monetary content during the
// financial regex scan. Annotated markers count alongside raw amounts so
// the scan works on both annotated and plain chunk text.
var amountScanPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[(?:INDIAN_CURRENCY|CURRENCY_USD|CURRENCY|WRITTEN_AMOUNT|PAYMENT_SCHEDULE|CALCULATION):`),
	regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`),
	regexp.MustCompile(`\d[\d,]*(?:\.\d{2})?\s*/-`),
	regexp.MustCompile(`(?i)\brs\.?\s*\d`),
	regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d{2})?\s*(?:USD|EUR|GBP|INR|rupees?)\b`),
	regexp.MustCompile(`\d[\d,]*(?:\.\d+)?\s*%`),
}

// financialSearchTerms feed the keyword candidate strategy.
var financialSearchTerms = []string{
	"payment", "fee", "cost", "charge", "amount", "total", "price", "sum",
	"deposit", "advance", "installment", "instalment", "interest", "penalty",
	"brokerage", "maintenance", "registration", "rent", "consideration",
	"stamp duty", "schedule",
}

// Router runs the query-time pipeline: classify, generate candidates,
// rerank, assemble.
type Router struct {
	logger   *observability.Logger
	chunks   storage.ChunkStore
	index    Index
	embedder embedding.Embedder
	reranker Reranker
	cache    *ContextCache
	config   RouterConfig
}

// NewRouter creates a router. The cache may be nil to disable caching.
func NewRouter(
	logger *observability.Logger,
	chunks storage.ChunkStore,
	index Index,
	embedder embedding.Embedder,
	reranker Reranker,
	contextCache *ContextCache,
	cfg RouterConfig,
) *Router {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if reranker == nil {
		reranker = NoopReranker{}
	}
	return &Router{
		logger:   logger,
		chunks:   chunks,
		index:    index,
		embedder: embedder,
		reranker: reranker,
		cache:    contextCache,
		config:   cfg.withDefaults(),
	}
}

// RetrieveContext runs the full query-time pipeline and returns the
// assembled context string. It never returns an error: any internal
// failure is logged and yields "", which callers treat as a valid
// low-confidence path.
func (r *Router) RetrieveContext(ctx context.Context, documentID uuid.UUID, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ""
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, documentID, question); ok {
			return cached
		}
	}

	started := time.Now()
	intent := ClassifyQuery(question)
	log := r.logger.WithDocument(documentID)

	assembled, err := r.retrieve(ctx, documentID, question, intent)
	if err != nil {
		log.Warn().
			Err(err).
			Str("intent", string(intent.Intent)).
			Msg("Context retrieval failed, returning empty context")
		return ""
	}

	log.Debug().
		Str("intent", string(intent.Intent)).
		Bool("schedule_query", intent.Schedule).
		Int("context_chars", len(assembled)).
		Dur("elapsed", time.Since(started)).
		Msg("Context assembled")

	if r.cache != nil {
		r.cache.Set(ctx, documentID, question, assembled)
	}
	return assembled
}

func (r *Router) retrieve(ctx context.Context, documentID uuid.UUID, question string, intent QueryIntent) (string, error) {
	var (
		chunks       []*storage.Chunk
		prefixBlocks []string
		budget       = r.config.GeneralBudget
		err          error
	)
	if intent.Intent == IntentFinancial {
		budget = r.config.FinancialBudget
		chunks, prefixBlocks, err = r.financialCandidates(ctx, documentID, question, intent.Schedule)
	} else {
		chunks, err = r.generalCandidates(ctx, documentID, question)
	}
	if err != nil {
		return "", err
	}

	// The fallback decision looks at the chunk concatenation alone: prefix
	// blocks survive the fallback, chunk selection gets widened.
	if len(AssembleContext(chunks, budget)) < r.config.MinContextChars {
		all, err := r.chunks.GetByDocument(ctx, documentID)
		if err != nil {
			return "", fmt.Errorf("fallback fetch: %w", err)
		}
		if len(all) > 0 {
			r.logger.Debug().
				Str("document_id", documentID.String()).
				Int("candidate_chunks", len(chunks)).
				Msg("Context below minimum, falling back to all chunks")
			chunks = all
		}
	}

	return AssembleContext(chunks, budget, prefixBlocks...), nil
}

// generalCandidates embeds the question, searches the document and expands
// each hit by the neighbor radius.
func (r *Router) generalCandidates(ctx context.Context, documentID uuid.UUID, question string) ([]*storage.Chunk, error) {
	refs, err := r.searchTopK(ctx, documentID, question, r.config.GeneralPoolSize)
	if err != nil {
		return nil, err
	}

	candidates := NewCandidateSet()
	for _, ref := range refs {
		candidates.AddWithNeighbors(ref.ChunkIndex, r.config.GeneralNeighborRadius)
	}

	chunks, err := r.chunks.GetByIndexes(ctx, documentID, candidates.Indexes())
	if err != nil {
		return nil, fmt.Errorf("fetch candidate chunks: %w", err)
	}
	return chunks, nil
}

// financialCandidates unions three candidate strategies and builds the
// synthesized schedule and financial summary prefix blocks.
func (r *Router) financialCandidates(ctx context.Context, documentID uuid.UUID, question string, scheduleQuery bool) ([]*storage.Chunk, []string, error) {
	candidates := NewCandidateSet()

	// Strategy 1: semantic search over a wider pool.
	refs, err := r.searchTopK(ctx, documentID, question, r.config.FinancialPoolSize)
	if err != nil {
		return nil, nil, err
	}
	for _, ref := range refs {
		candidates.Add(ref.ChunkIndex)
	}

	allChunks, err := r.chunks.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch document chunks: %w", err)
	}

	// Strategy 2: regex amount scan over every chunk.
	for _, chunk := range allChunks {
		if chunkHasAmounts(chunk.Content) {
			candidates.AddWithNeighbors(chunk.ChunkIndex, r.config.AmountNeighborRadius)
		}
	}

	// Strategy 3: keyword search over chunk content.
	hits, err := r.chunks.SearchContent(ctx, documentID, financialSearchTerms, r.config.FinancialPoolSize)
	if err != nil {
		return nil, nil, fmt.Errorf("keyword search: %w", err)
	}
	for _, chunk := range hits {
		candidates.AddWithNeighbors(chunk.ChunkIndex, r.config.KeywordNeighborRadius)
	}

	chunks, err := r.chunks.GetByIndexes(ctx, documentID, candidates.Indexes())
	if err != nil {
		return nil, nil, fmt.Errorf("fetch candidate chunks: %w", err)
	}

	var prefixBlocks []string
	if scheduleQuery {
		if table := SynthesizeSchedule(allChunks); table != "" {
			prefixBlocks = append(prefixBlocks, table)
		}
	}
	if summary := financialSummary(allChunks); summary != "" {
		prefixBlocks = append(prefixBlocks, summary)
	}
	return chunks, prefixBlocks, nil
}

// searchTopK embeds the question, vector-searches a widened candidate pool
// and reranks it down to k. A rerank failure degrades to vector order.
func (r *Router) searchTopK(ctx context.Context, documentID uuid.UUID, question string, k int) ([]ChunkRef, error) {
	vector, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	results := r.index.Search(ctx, vector, candidatePool(k), &documentID)
	if len(results) == 0 {
		return nil, nil
	}

	refs := make([]ChunkRef, len(results))
	indexes := make([]int, len(results))
	for i, res := range results {
		refs[i] = res.Ref
		indexes[i] = res.Ref.ChunkIndex
	}
	if len(refs) <= k || !r.reranker.Available() {
		return truncateRefs(refs, k), nil
	}

	chunks, err := r.chunks.GetByIndexes(ctx, documentID, indexes)
	if err != nil {
		return nil, fmt.Errorf("fetch rerank candidates: %w", err)
	}
	byIndex := make(map[int]*storage.Chunk, len(chunks))
	for _, chunk := range chunks {
		byIndex[chunk.ChunkIndex] = chunk
	}

	candidates := make([]Candidate, 0, len(refs))
	for _, ref := range refs {
		chunk, ok := byIndex[ref.ChunkIndex]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Ref: ref, Content: chunk.Content})
	}

	reranked, err := r.reranker.Rerank(ctx, question, candidates, k)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Rerank failed, keeping vector order")
		return truncateRefs(refs, k), nil
	}
	return reranked, nil
}

func truncateRefs(refs []ChunkRef, k int) []ChunkRef {
	if k < len(refs) {
		return refs[:k]
	}
	return refs
}

func chunkHasAmounts(content string) bool {
	for _, p := range amountScanPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}

// financialSummary renders the structured financial analysis of the whole
// document as a compact prefix block.
func financialSummary(chunks []*storage.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	for _, chunk := range chunks {
		b.WriteString(chunk.Content)
		b.WriteString("\n")
	}
	analysis := finance.Analyze(b.String())
	if len(analysis.Amounts) == 0 && len(analysis.Calculations) == 0 {
		return ""
	}

	const maxListed = 10
	var out strings.Builder
	out.WriteString("FINANCIAL SUMMARY:\n")
	fmt.Fprintf(&out, "Amounts found: %d\n", len(analysis.Amounts))
	for i, amount := range analysis.Amounts {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&out, "- %s\n", amount.Amount)
	}
	for i, calc := range analysis.Calculations {
		if i == maxListed {
			break
		}
		fmt.Fprintf(&out, "- %s\n", calc.Text)
	}
	return strings.TrimRight(out.String(), "\n")
}
