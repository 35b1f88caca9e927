package neat

// Individual is a genome together with its evaluation score.
type Individual struct {
	Genome *Genome
	Score  float64
}

// HallOfFame keeps the best genomes ever offered, sorted by descending score.
// Stored genomes are clones, so later mutations of the offered genome do not
// reach them.
type HallOfFame struct {
	capacity int
	entries  []Individual
}

// NewHallOfFame creates a hall of fame holding at most capacity entries.
func NewHallOfFame(capacity int) *HallOfFame {
	return &HallOfFame{
		capacity: capacity,
		entries:  make([]Individual, 0, capacity+1),
	}
}

// Add offers a genome. It is inserted before the first entry with a lower
// score, or appended if there is room. The list is then trimmed to capacity.
// Add reports whether the genome was kept.
func (h *HallOfFame) Add(g *Genome, score float64) bool {
	if h.capacity <= 0 {
		return false
	}
	pos := len(h.entries)
	for i, e := range h.entries {
		if e.Score < score {
			pos = i
			break
		}
	}
	if pos >= h.capacity {
		return false
	}

	h.entries = append(h.entries, Individual{})
	copy(h.entries[pos+1:], h.entries[pos:])
	h.entries[pos] = Individual{Genome: g.Clone(), Score: score}
	if len(h.entries) > h.capacity {
		h.entries = h.entries[:h.capacity]
	}
	return true
}

// Best returns the top entry. ok is false when the hall of fame is empty.
func (h *HallOfFame) Best() (best Individual, ok bool) {
	if len(h.entries) == 0 {
		return Individual{}, false
	}
	return h.entries[0], true
}

// Entries returns the entries in descending score order. The genomes are
// shared with the hall of fame and must not be mutated.
func (h *HallOfFame) Entries() []Individual {
	return append([]Individual(nil), h.entries...)
}

// Len returns the number of entries.
func (h *HallOfFame) Len() int {
	return len(h.entries)
}

// Capacity returns the maximum number of entries.
func (h *HallOfFame) Capacity() int {
	return h.capacity
}

// restore replaces the entries, used when loading a checkpoint.
func (h *HallOfFame) restore(entries []Individual) {
	h.entries = h.entries[:0]
	for _, e := range entries {
		h.Add(e.Genome, e.Score)
	}
}
