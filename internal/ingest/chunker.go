package ingest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/briefdesk/contract-engine/internal/finance"
	"github.com/briefdesk/contract-engine/internal/storage"
)

// Segment is one chunk-to-be produced by the chunker, in document order.
type Segment struct {
	Content      string
	Kind         storage.ChunkKind
	SectionTitle *string

	position int
}

// ChunkerConfig holds chunking parameters. Sizes are in words.
type ChunkerConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// Chunker splits normalized, annotated document text into segments. Three
// strategies apply in priority order: property-document extraction, legal
// section splitting, and a plain word-window fallback.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker creates a chunker. Zero or negative sizes fall back to a
// conservative default.
func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 5
	}
	return &Chunker{cfg: cfg}
}

// propertyIndicators are words whose presence marks a real-estate contract.
var propertyIndicators = []string{
	"flat", "apartment", "premises", "builder", "developer", "possession",
	"carpet area", "built-up area", "sale deed", "agreement to sell",
	"purchaser", "vendor", "allottee", "society", "maintenance charges",
	"registration charges", "stamp duty",
}

var paymentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brs\.?\s*\d`),
	regexp.MustCompile(`\d[\d,]*\s*/-`),
	regexp.MustCompile(`(?i)\bpayment\s+schedule\b`),
	regexp.MustCompile(`(?i)\binstallments?\b|\binstalments?\b`),
	regexp.MustCompile(`(?i)\bdown\s+payment\b`),
	regexp.MustCompile(`(?i)\[(?:INDIAN_CURRENCY|CURRENCY_USD|CURRENCY):`),
}

// sectionHeader matches legal section headings at line start, keeping the
// heading text as the section title.
var sectionHeader = regexp.MustCompile(`(?im)^\s*((?:ARTICLE|SECTION|CLAUSE|PARAGRAPH|SUBSECTION|PART|CHAPTER|SCHEDULE|APPENDIX)\s+[IVX\d]+[.:]?)`)

// propertySectionLeads mark the start of high-value sections in property
// contracts that should be kept whole where possible.
var propertySectionLeads = regexp.MustCompile(`(?i)\b(?:property\s+details|payment\s+terms|possession|maintenance|registration|brokerage|penalty|refund)\b`)

// Chunk splits text into ordered segments. Empty input yields no segments.
func (c *Chunker) Chunk(text string) []Segment {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if c.isPropertyDocument(text) {
		if segments := c.chunkPropertyDocument(text); len(segments) > 0 {
			return segments
		}
	}

	if segments := c.chunkByLegalSections(text); len(segments) > 0 {
		return segments
	}

	return c.chunkByWords(text, storage.ChunkKindText, nil, 0)
}

// isPropertyDocument applies the detection heuristic: three or more
// property indicator hits, or two or more payment pattern hits.
func (c *Chunker) isPropertyDocument(text string) bool {
	lower := strings.ToLower(text)

	indicators := 0
	for _, word := range propertyIndicators {
		if strings.Contains(lower, word) {
			indicators++
		}
	}
	if indicators >= 3 {
		return true
	}

	payments := 0
	for _, p := range paymentPatterns {
		if p.MatchString(text) {
			payments++
		}
	}
	return payments >= 2
}

// chunkPropertyDocument extracts payment-schedule blocks and named property
// sections as dedicated segments, then word-windows the remaining text.
// Segments come back in original document order.
func (c *Chunker) chunkPropertyDocument(text string) []Segment {
	var segments []Segment
	var taken []span

	analysis := finance.Analyze(text)
	for _, block := range analysis.Schedules {
		segments = append(segments, Segment{
			Content:  "PAYMENT SCHEDULE:\n" + block.Text,
			Kind:     storage.ChunkKindPaymentSchedule,
			position: block.Position,
		})
		taken = append(taken, span{block.Position, block.Position + len(block.Text)})
	}

	for _, sec := range c.propertySections(text) {
		if overlapsAny(sec.position, sec.position+len(sec.Content), taken) {
			continue
		}
		segments = append(segments, sec)
		taken = append(taken, span{sec.position, sec.position + len(sec.Content)})
	}

	// Word-window everything the dedicated segments did not claim.
	sort.Slice(taken, func(i, j int) bool { return taken[i].start < taken[j].start })
	cursor := 0
	for _, s := range taken {
		if s.start > cursor {
			gap := strings.TrimSpace(text[cursor:s.start])
			if gap != "" {
				segments = append(segments, c.chunkByWords(gap, storage.ChunkKindText, nil, cursor)...)
			}
		}
		if s.end > cursor {
			cursor = s.end
		}
	}
	if cursor < len(text) {
		if gap := strings.TrimSpace(text[cursor:]); gap != "" {
			segments = append(segments, c.chunkByWords(gap, storage.ChunkKindText, nil, cursor)...)
		}
	}

	sort.SliceStable(segments, func(i, j int) bool { return segments[i].position < segments[j].position })
	return segments
}

// propertySections finds paragraphs led by a property section phrase. The
// paragraph runs to the next blank line.
func (c *Chunker) propertySections(text string) []Segment {
	var sections []Segment
	lastEnd := -1
	for _, loc := range propertySectionLeads.FindAllStringIndex(text, -1) {
		if loc[0] < lastEnd {
			continue
		}
		end := paragraphEnd(text, loc[1])
		content := strings.TrimSpace(text[loc[0]:end])
		if len(content) < 50 {
			continue
		}
		title := titleCaseLead(text[loc[0]:loc[1]])
		sections = append(sections, Segment{
			Content:      content,
			Kind:         storage.ChunkKindPropertyDetails,
			SectionTitle: &title,
			position:     loc[0],
		})
		lastEnd = end
	}
	return sections
}

type span struct{ start, end int }

func overlapsAny(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.end && end > s.start {
			return true
		}
	}
	return false
}

// paragraphEnd returns the index of the next blank line after from, or the
// end of text.
func paragraphEnd(text string, from int) int {
	if idx := strings.Index(text[from:], "\n\n"); idx >= 0 {
		return from + idx
	}
	return len(text)
}

func titleCaseLead(lead string) string {
	words := strings.Fields(strings.ToLower(lead))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// chunkByLegalSections splits on legal section headings. Returns nil when
// the text carries no headings, letting the caller fall back.
func (c *Chunker) chunkByLegalSections(text string) []Segment {
	locs := sectionHeader.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}

	var segments []Segment

	// Preamble before the first heading.
	if lead := strings.TrimSpace(text[:locs[0][0]]); lead != "" {
		segments = append(segments, c.chunkByWords(lead, storage.ChunkKindText, nil, 0)...)
	}

	for i, loc := range locs {
		start := loc[0]
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		title := strings.TrimSpace(text[loc[2]:loc[3]])
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			continue
		}

		if wordCount(body) <= c.cfg.ChunkSize {
			segments = append(segments, Segment{
				Content:      body,
				Kind:         storage.ChunkKindLegalSection,
				SectionTitle: &title,
				position:     start,
			})
			continue
		}
		segments = append(segments, c.chunkBySentences(body, title, start)...)
	}
	return segments
}

var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// chunkBySentences accumulates whole sentences up to the chunk size,
// carrying the last overlap words into the next segment.
func (c *Chunker) chunkBySentences(text, title string, position int) []Segment {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var segments []Segment
	var words []string
	emit := func() {
		if len(words) == 0 {
			return
		}
		t := title
		segments = append(segments, Segment{
			Content:      strings.Join(words, " "),
			Kind:         storage.ChunkKindLegalSection,
			SectionTitle: &t,
			position:     position + len(segments),
		})
		if c.cfg.ChunkOverlap > 0 && len(words) > c.cfg.ChunkOverlap {
			words = append([]string(nil), words[len(words)-c.cfg.ChunkOverlap:]...)
		} else {
			words = nil
		}
	}

	for _, sentence := range sentences {
		sw := strings.Fields(sentence)
		if len(words)+len(sw) > c.cfg.ChunkSize && len(words) > 0 {
			emit()
		}
		words = append(words, sw...)

		// A sentence longer than the chunk size never meets a boundary,
		// so the buffer degrades to hard word-window splitting.
		for len(words) > c.cfg.ChunkSize {
			rest := words[c.cfg.ChunkSize:]
			words = words[:c.cfg.ChunkSize]
			emit()
			words = append(words, rest...)
		}
	}
	if len(words) > c.cfg.ChunkOverlap || len(segments) == 0 {
		emit()
	}
	return segments
}

// splitSentences splits text on sentence-ending punctuation followed by
// whitespace, keeping the punctuation with the sentence.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[last:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// chunkByWords is the fixed-window fallback: chunkSize words per segment,
// stepping by chunkSize minus overlap.
func (c *Chunker) chunkByWords(text string, kind storage.ChunkKind, title *string, position int) []Segment {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := c.cfg.ChunkSize - c.cfg.ChunkOverlap
	if step <= 0 {
		step = c.cfg.ChunkSize
	}

	var segments []Segment
	for start := 0; start < len(words); start += step {
		end := start + c.cfg.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		segments = append(segments, Segment{
			Content:      strings.Join(words[start:end], " "),
			Kind:         kind,
			SectionTitle: title,
			position:     position + start,
		})
		if end == len(words) {
			break
		}
	}
	return segments
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}
