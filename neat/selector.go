package neat

import "math/rand"

// selectorEntry is one candidate of a roulette draw.
type selectorEntry struct {
	index       int
	score       float64
	probability float64 // Cumulative once normalized
}

// Selector draws indices with probability proportional to their score.
//
// Entries are added with AddEntry, NormalizeEntries turns scores into a
// cumulative distribution, and Pick samples it. Negative scores weigh zero.
// When every weight is zero the draw is uniform.
type Selector struct {
	rng     *rand.Rand
	entries []selectorEntry
}

// NewSelector creates an empty selector drawing from rng.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// AddEntry adds a candidate. Call NormalizeEntries before the next Pick.
func (s *Selector) AddEntry(index int, score float64) {
	s.entries = append(s.entries, selectorEntry{index: index, score: max(score, 0)})
}

// NormalizeEntries computes the cumulative probability of every entry.
func (s *Selector) NormalizeEntries() {
	total := 0.0
	for _, e := range s.entries {
		total += e.score
	}

	cumulative := 0.0
	n := float64(len(s.entries))
	for i := range s.entries {
		if total > 0 {
			cumulative += s.entries[i].score / total
		} else {
			cumulative += 1 / n
		}
		s.entries[i].probability = cumulative
	}
}

// Pick returns the index of the first entry whose cumulative probability
// exceeds a uniform draw. Rounding falls back to the last entry, and an
// empty selector returns 0.
func (s *Selector) Pick() int {
	if len(s.entries) == 0 {
		return 0
	}
	r := s.rng.Float64()
	for _, e := range s.entries {
		if r < e.probability {
			return e.index
		}
	}
	return s.entries[len(s.entries)-1].index
}

// Clear removes every entry.
func (s *Selector) Clear() {
	s.entries = s.entries[:0]
}

// Len returns the number of entries.
func (s *Selector) Len() int {
	return len(s.entries)
}
