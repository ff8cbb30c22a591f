package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/briefdesk/contract-engine/internal/storage"
)

// AssembleContext renders chunks into the prompt context string. Chunks are
// emitted in ascending chunk-index order, each prefixed with its position,
// and assembly stops once the character budget is reached. Prefix blocks
// (schedule synthesis, financial summaries) are prepended verbatim and do
// not count against the budget.
func AssembleContext(chunks []*storage.Chunk, budget int, prefixBlocks ...string) string {
	sorted := make([]*storage.Chunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ChunkIndex < sorted[j].ChunkIndex
	})

	var parts []string
	total := 0
	for _, chunk := range sorted {
		if budget > 0 && total >= budget {
			break
		}
		part := fmt.Sprintf("[Chunk %d]: %s", chunk.ChunkIndex, chunk.Content)
		parts = append(parts, part)
		total += len(part)
	}

	var blocks []string
	for _, block := range prefixBlocks {
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	blocks = append(blocks, parts...)
	return strings.Join(blocks, "\n\n")
}
