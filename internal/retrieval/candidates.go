package retrieval

import "sort"

// CandidateSet accumulates chunk indexes from multiple retrieval
// strategies, deduplicating as it goes.
type CandidateSet struct {
	indexes map[int]struct{}
}

// NewCandidateSet creates an empty candidate set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{indexes: make(map[int]struct{})}
}

// Add records a single chunk index. Negative indexes are ignored.
func (s *CandidateSet) Add(index int) {
	if index < 0 {
		return
	}
	s.indexes[index] = struct{}{}
}

// AddWithNeighbors records a chunk index plus radius neighbors on each
// side, clamped at zero.
func (s *CandidateSet) AddWithNeighbors(index, radius int) {
	for i := index - radius; i <= index+radius; i++ {
		s.Add(i)
	}
}

// Len returns the number of distinct indexes.
func (s *CandidateSet) Len() int {
	return len(s.indexes)
}

// Indexes returns the distinct chunk indexes in ascending order.
func (s *CandidateSet) Indexes() []int {
	out := make([]int, 0, len(s.indexes))
	for i := range s.indexes {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
