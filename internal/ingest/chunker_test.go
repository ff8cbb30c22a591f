package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefdesk/contract-engine/internal/storage"
)

func syntheticWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestChunker_WordWindowOverlap(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})

	segments := chunker.Chunk(syntheticWords(500))
	require.True(t, len(segments) > 1)

	for i := 0; i < len(segments)-1; i++ {
		cur := strings.Fields(segments[i].Content)
		next := strings.Fields(segments[i+1].Content)
		require.True(t, len(cur) >= 20)
		assert.Equal(t, cur[len(cur)-20:], next[:20], "segments %d and %d", i, i+1)
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n  "))
}

func TestChunker_ShortInputSingleSegment(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})

	segments := chunker.Chunk("A short note with nothing special about it.")
	require.Len(t, segments, 1)
	assert.Equal(t, storage.ChunkKindText, segments[0].Kind)
}

func TestChunker_LegalSections(t *testing.T) {
	text := "This agreement is entered into by the undersigned.\n" +
		"SECTION 1. The term of this agreement shall be three years from the effective date.\n" +
		"SECTION 2. Either party may terminate with sixty days written notice to the other."

	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	segments := chunker.Chunk(text)

	var sections []Segment
	for _, seg := range segments {
		if seg.Kind == storage.ChunkKindLegalSection {
			sections = append(sections, seg)
		}
	}
	require.Len(t, sections, 2)
	require.NotNil(t, sections[0].SectionTitle)
	assert.Equal(t, "SECTION 1.", *sections[0].SectionTitle)
	assert.Contains(t, sections[0].Content, "three years")
	assert.Equal(t, "SECTION 2.", *sections[1].SectionTitle)
}

func TestChunker_OversizedSectionSplitsBySentence(t *testing.T) {
	var sentences []string
	for i := 0; i < 40; i++ {
		sentences = append(sentences, fmt.Sprintf("Clause item %d obligates the party to perform duty number %d without delay.", i, i))
	}
	text := "SECTION 1. " + strings.Join(sentences, " ")

	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	segments := chunker.Chunk(text)

	require.True(t, len(segments) > 1)
	for _, seg := range segments {
		assert.Equal(t, storage.ChunkKindLegalSection, seg.Kind)
		assert.LessOrEqual(t, len(strings.Fields(seg.Content)), 120)
	}
}

func TestChunker_OversizedSentenceHardSplits(t *testing.T) {
	// A single run-on sentence with no terminator cannot be split at
	// sentence boundaries and must fall back to word windows.
	text := "SECTION 1. " + syntheticWords(500)

	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	segments := chunker.Chunk(text)

	require.True(t, len(segments) > 1)
	for _, seg := range segments {
		assert.LessOrEqual(t, len(strings.Fields(seg.Content)), 100)
	}

	var joined strings.Builder
	for _, seg := range segments {
		joined.WriteString(seg.Content)
		joined.WriteString(" ")
	}
	assert.Contains(t, joined.String(), "word0")
	assert.Contains(t, joined.String(), "word499")
}

func TestChunker_PropertyDocument(t *testing.T) {
	text := "AGREEMENT TO SELL\n" +
		"The vendor agrees to sell the flat to the purchaser along with possession of the premises.\n" +
		"\n" +
		"The payment schedule for the said flat is set out below with " +
		"On Booking [INDIAN_CURRENCY: Rs. 1,00,000/-] and " +
		"On Possession [INDIAN_CURRENCY: Rs. 2,00,000/-] payable by the purchaser.\n" +
		"\n" +
		"The builder shall hand over the apartment in complete condition."

	chunker := NewChunker(ChunkerConfig{ChunkSize: 100, ChunkOverlap: 20})
	segments := chunker.Chunk(text)
	require.NotEmpty(t, segments)

	var scheduleSegments []Segment
	for _, seg := range segments {
		if seg.Kind == storage.ChunkKindPaymentSchedule {
			scheduleSegments = append(scheduleSegments, seg)
		}
	}
	require.Len(t, scheduleSegments, 1)
	assert.True(t, strings.HasPrefix(scheduleSegments[0].Content, "PAYMENT SCHEDULE:\n"))
	assert.Contains(t, scheduleSegments[0].Content, "Rs. 1,00,000/-")

	// Segments come back in document order.
	for i := 1; i < len(segments); i++ {
		assert.GreaterOrEqual(t, segments[i].position, segments[i-1].position)
	}
}

func TestChunker_IndexContiguityAfterIngest(t *testing.T) {
	// Position assignment happens in the pipeline; the chunker only
	// guarantees ordering. Verify no segment is empty.
	chunker := NewChunker(ChunkerConfig{ChunkSize: 50, ChunkOverlap: 10})
	segments := chunker.Chunk(syntheticWords(400))
	for _, seg := range segments {
		assert.NotEmpty(t, strings.TrimSpace(seg.Content))
	}
}
