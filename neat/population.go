package neat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"
)

// FitnessFunc is the type for the function provided by the user to evaluate genome fitness.
// It must write the score of genomes[i] into scores[i]. Genomes must not be modified.
type FitnessFunc func(ctx context.Context, genomes []*Genome, scores []float64) error

// Population holds the state of the evolutionary process.
type Population struct {
	Config  *Config
	Genomes []*Genome // Current generation, in evaluation order
	Seed    int64     // Seed of the random source owned by the evolver

	evolver *Evolver
	best    Individual // Best genome found so far, a clone
	solved  bool
	logger  *slog.Logger
}

// NewPopulation validates config and creates the first generation: genomes
// with only input and output nodes, fully wired when initial_connection is
// full_direct.
func NewPopulation(config *Config, opts ...EvolverOption) (*Population, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	seed := config.Neat.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p := newPopulation(config, seed, opts...)

	rng := p.evolver.rng
	p.Genomes = make([]*Genome, config.Neat.PopSize)
	for i := range p.Genomes {
		g := NewGenome(config.Genome.NumInputs, config.Genome.NumOutputs, config.Genome.Activation())
		if config.Genome.InitialConnection == "full_direct" {
			g.ConnectAll(rng, config.Weights.WeightRange)
		}
		p.Genomes[i] = g
	}
	return p, nil
}

func newPopulation(config *Config, seed int64, opts ...EvolverOption) *Population {
	evolver := NewEvolver(config, rand.New(rand.NewSource(seed)), opts...)
	return &Population{
		Config:  config,
		Seed:    seed,
		evolver: evolver,
		logger:  evolver.logger,
	}
}

// RunGeneration evaluates the current generation with fitnessFunc and then
// replaces it with the next one, unless the fitness threshold was reached.
func (p *Population) RunGeneration(ctx context.Context, fitnessFunc FitnessFunc) (GenerationStats, error) {
	if err := ctx.Err(); err != nil {
		return GenerationStats{}, err
	}
	scores := make([]float64, len(p.Genomes))
	if err := fitnessFunc(ctx, p.Genomes, scores); err != nil {
		return GenerationStats{}, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.evolver.Iteration(), err)
	}
	return p.Evolve(scores)
}

// Evolve consumes the scores of the current generation, scores[i] belonging
// to Genomes[i], and creates the next generation. When the fitness threshold
// is enabled and reached, the current generation is kept and Solved reports true.
func (p *Population) Evolve(scores []float64) (GenerationStats, error) {
	if len(scores) != len(p.Genomes) {
		return GenerationStats{}, fmt.Errorf("got %d scores for %d genomes", len(scores), len(p.Genomes))
	}
	start := time.Now()
	stats := computeStats(p.evolver.Iteration(), scores)

	individuals := make([]Individual, len(p.Genomes))
	bestIndex := 0
	for i, g := range p.Genomes {
		individuals[i] = Individual{Genome: g, Score: scores[i]}
		if scores[i] > scores[bestIndex] {
			bestIndex = i
		}
	}
	if len(individuals) > 0 && (p.best.Genome == nil || scores[bestIndex] > p.best.Score) {
		p.best = Individual{Genome: p.Genomes[bestIndex].Clone(), Score: scores[bestIndex]}
		p.logger.Info("new best genome", "iteration", stats.Iteration, "score", p.best.Score, "genome", p.best.Genome.String())
	}

	// Check fitness threshold termination
	if !p.Config.Neat.NoFitnessTermination && p.best.Genome != nil && p.best.Score >= p.Config.Neat.FitnessThreshold {
		p.solved = true
		return stats, nil
	}

	next, err := p.evolver.CreateNewGeneration(individuals)
	if err != nil {
		return stats, fmt.Errorf("reproduction failed in generation %d: %w", stats.Iteration, err)
	}
	p.Genomes = next
	p.logger.Info("generation finished", "iteration", stats.Iteration, "best", stats.Best, "mean", stats.Mean, "duration", time.Since(start))
	return stats, nil
}

// Best returns the best genome evaluated so far. ok is false before the first generation.
func (p *Population) Best() (best Individual, ok bool) {
	return p.best, p.best.Genome != nil
}

// Solved reports whether the fitness threshold was reached.
func (p *Population) Solved() bool {
	return p.solved
}

// Iteration returns the number of generations evolved so far.
func (p *Population) Iteration() int {
	return p.evolver.Iteration()
}

// Evolver returns the generation driver.
func (p *Population) Evolver() *Evolver {
	return p.evolver
}
