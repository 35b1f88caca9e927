package neat

import (
	"cmp"
	"errors"
	"log/slog"
	"math/rand"
	"slices"
)

// ErrEmptyPopulation is returned when a generation is created from no individuals.
var ErrEmptyPopulation = errors.New("empty population")

// Evolver turns a scored population into the next generation.
//
// It owns the random source, the Mutator with its innovation counters, the
// Selector and the HallOfFame. It is not safe for concurrent use.
type Evolver struct {
	eliteRatio float64
	weights    WeightConfig

	rng        *rand.Rand
	mutator    *Mutator
	selector   *Selector
	hallOfFame *HallOfFame
	iteration  int

	logger  *slog.Logger
	metrics *Metrics
}

// EvolverOption configures an Evolver.
type EvolverOption func(*Evolver)

// WithLogger sets the logger used for progress reports.
func WithLogger(logger *slog.Logger) EvolverOption {
	return func(e *Evolver) {
		e.logger = logger
	}
}

// WithMetrics makes the evolver and its mutator report to m.
func WithMetrics(m *Metrics) EvolverOption {
	return func(e *Evolver) {
		e.metrics = m
		e.mutator.metrics = m
	}
}

// NewEvolver creates an evolver from the [NEAT], [DefaultGenome], [Mutation]
// and [Weights] sections of config.
func NewEvolver(config *Config, rng *rand.Rand, opts ...EvolverOption) *Evolver {
	e := &Evolver{
		eliteRatio: config.Neat.EliteRatio,
		weights:    config.Weights,
		rng:        rng,
		mutator:    NewMutator(config.Mutation, rng, config.Genome.NumInputs, config.Genome.NumOutputs),
		selector:   NewSelector(rng),
		hallOfFame: NewHallOfFame(config.Neat.HallOfFameSize),
		logger:     slog.Default().With("component", "evolver"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateNewGeneration returns exactly len(population) genomes.
//
// The population is sorted by descending score and its best genome is offered
// to the hall of fame. The top eliteRatio share is cloned unchanged. The
// bottom half is discarded and the rest of the generation is filled with
// mutated clones of roulette-picked survivors: one structural mutation, then
// one weight pass. The input genomes are never modified.
func (e *Evolver) CreateNewGeneration(population []Individual) ([]*Genome, error) {
	n := len(population)
	if n == 0 {
		return nil, ErrEmptyPopulation
	}

	// --- Step 1: Sort ---
	sorted := slices.Clone(population)
	slices.SortStableFunc(sorted, func(a, b Individual) int {
		return cmp.Compare(b.Score, a.Score)
	})
	best := sorted[0]

	// --- Step 2: Hall of fame ---
	e.hallOfFame.Add(best.Genome, best.Score)
	e.logger.Info("iteration best", "iteration", e.iteration, "score", best.Score)
	e.metrics.observeGeneration(best.Score, e.hallOfFame)

	// --- Step 3: Elitism ---
	next := make([]*Genome, 0, n)
	eliteCount := min(int(e.eliteRatio*float64(n)), n)
	for i := 0; i < eliteCount; i++ {
		next = append(next, sorted[i].Genome.Clone())
	}

	// --- Step 4: Truncation ---
	survivors := sorted[:max(1, n/2)]
	e.selector.Clear()
	for i, ind := range survivors {
		e.selector.AddEntry(i, ind.Score)
	}
	e.selector.NormalizeEntries()

	// --- Step 5: Offspring ---
	for len(next) < n {
		child := survivors[e.selector.Pick()].Genome.Clone()
		e.mutator.Mutate(child)
		MutateWeights(child, e.rng, e.weights)
		next = append(next, child)
	}

	e.iteration++
	return next, nil
}

// Iteration returns the number of generations created so far.
func (e *Evolver) Iteration() int {
	return e.iteration
}

// HallOfFame returns the hall of fame.
func (e *Evolver) HallOfFame() *HallOfFame {
	return e.hallOfFame
}

// Mutator returns the structural mutator.
func (e *Evolver) Mutator() *Mutator {
	return e.mutator
}
