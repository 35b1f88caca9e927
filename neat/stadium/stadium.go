// Package stadium evaluates a population by running one simulation task per
// genome. Tasks are stepped in parallel with the population sharded into
// disjoint ranges, one per worker, so a compiled network is only ever touched
// by the goroutine that owns its range.
package stadium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/baldhumanity/walkneat/neat"
	"github.com/baldhumanity/walkneat/neat/nn"
	"github.com/baldhumanity/walkneat/neat/store"
)

// Task is one evaluation episode driven by a compiled network.
type Task interface {
	// Update advances the episode by dt simulated seconds.
	Update(dt float32)
	// Done reports whether the episode is over. Done tasks are not updated again.
	Done() bool
	// Score returns the fitness reached by the episode.
	Score() float64
}

// TaskFactory creates the task of the genome at index, driven by net.
// The task owns net.
type TaskFactory func(index int, net *nn.Network) Task

// Stadium runs the evaluation loop of a population.
type Stadium struct {
	population *neat.Population
	factory    TaskFactory
	config     neat.StadiumConfig
	runID      string
	store      store.Store
	logger     *slog.Logger
}

// Option configures a Stadium.
type Option func(*Stadium)

// WithStore records every generation and the hall of fame in s.
// s must already be initialized.
func WithStore(s store.Store) Option {
	return func(st *Stadium) {
		st.store = s
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(st *Stadium) {
		if logger != nil {
			st.logger = logger
		}
	}
}

// WithRunID overrides the generated run id, for instance to resume a run.
func WithRunID(id string) Option {
	return func(st *Stadium) {
		if id != "" {
			st.runID = id
		}
	}
}

// New creates a stadium evaluating population with tasks made by factory.
func New(population *neat.Population, factory TaskFactory, opts ...Option) (*Stadium, error) {
	if population == nil {
		return nil, errors.New("stadium: population is required")
	}
	if factory == nil {
		return nil, errors.New("stadium: task factory is required")
	}
	s := &Stadium{
		population: population,
		factory:    factory,
		config:     population.Config.Stadium,
		runID:      uuid.NewString(),
		logger:     slog.Default().With("component", "stadium"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("run_id", s.runID)
	return s, nil
}

// RunID identifies the run in the store.
func (s *Stadium) RunID() string {
	return s.runID
}

// Population returns the evaluated population.
func (s *Stadium) Population() *neat.Population {
	return s.population
}

// RunIteration evaluates the current generation and evolves the population.
// The best genome of the generation is written to best_<n>.bin in the output
// directory every best_save_period iterations, n counting completed iterations
// from 1.
func (s *Stadium) RunIteration(ctx context.Context) (neat.GenerationStats, error) {
	start := time.Now()
	genomes := s.population.Genomes
	tasks := make([]Task, len(genomes))
	for i, g := range genomes {
		tasks[i] = s.factory(i, g.GenerateNetwork())
	}

	if err := s.executeTasks(ctx, tasks); err != nil {
		return neat.GenerationStats{}, err
	}

	scores := make([]float64, len(tasks))
	for i, t := range tasks {
		scores[i] = t.Score()
	}
	stats, err := s.population.Evolve(scores)
	if err != nil {
		return stats, err
	}

	best := bestOf(genomes, scores)
	if err := s.saveBest(stats.Iteration+1, best); err != nil {
		return stats, err
	}
	if err := s.record(ctx, stats, best); err != nil {
		return stats, err
	}
	s.logger.Debug("iteration finished", "iteration", stats.Iteration, "best", stats.Best, "duration", time.Since(start))
	return stats, nil
}

// Run calls RunIteration until iterations have been run, the fitness
// threshold is reached or ctx is cancelled.
func (s *Stadium) Run(ctx context.Context, iterations int) error {
	for i := 0; i < iterations && !s.population.Solved(); i++ {
		stats, err := s.RunIteration(ctx)
		if err != nil {
			return err
		}
		s.logger.Info(stats.String())
	}
	return nil
}

func (s *Stadium) executeTasks(ctx context.Context, tasks []Task) error {
	dt := s.config.Dt
	maxTime := s.config.MaxIterationTime
	return Dispatch(ctx, len(tasks), s.config.Workers, func(start, end int) {
		shard := tasks[start:end]
		for t := 0.0; t < maxTime; t += dt {
			if ctx.Err() != nil {
				return
			}
			done := true
			for _, task := range shard {
				if !task.Done() {
					task.Update(float32(dt))
					done = false
				}
			}
			if done {
				return
			}
		}
	})
}

func bestOf(genomes []*neat.Genome, scores []float64) neat.Individual {
	var best neat.Individual
	for i, g := range genomes {
		if best.Genome == nil || scores[i] > best.Score {
			best = neat.Individual{Genome: g, Score: scores[i]}
		}
	}
	return best
}

func (s *Stadium) saveBest(iteration int, best neat.Individual) error {
	period := s.config.BestSavePeriod
	if period <= 0 || best.Genome == nil || iteration%period != 0 {
		return nil
	}
	if err := os.MkdirAll(s.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.config.OutputDir, fmt.Sprintf("best_%d.bin", iteration))
	if err := best.Genome.WriteToFile(path); err != nil {
		return err
	}
	s.logger.Info("saved best genome", "path", path, "score", best.Score)
	return nil
}

func (s *Stadium) record(ctx context.Context, stats neat.GenerationStats, best neat.Individual) error {
	if s.store == nil {
		return nil
	}
	rec := store.GenerationRecord{
		RunID:     s.runID,
		Iteration: stats.Iteration,
		Best:      stats.Best,
		Worst:     stats.Worst,
		Mean:      stats.Mean,
		Median:    stats.Median,
		Stdev:     stats.Stdev,
		CreatedAt: time.Now(),
	}
	if best.Genome != nil {
		payload, err := best.Genome.MarshalBinary()
		if err != nil {
			return err
		}
		rec.BestGenome = payload
	}
	if err := s.store.SaveGeneration(ctx, rec); err != nil {
		return fmt.Errorf("failed to record generation %d: %w", stats.Iteration, err)
	}

	entries := s.population.Evolver().HallOfFame().Entries()
	records := make([]store.GenomeRecord, len(entries))
	for i, e := range entries {
		payload, err := e.Genome.MarshalBinary()
		if err != nil {
			return err
		}
		records[i] = store.GenomeRecord{Rank: i, Score: e.Score, Payload: payload}
	}
	if err := s.store.SaveHallOfFame(ctx, s.runID, records); err != nil {
		return fmt.Errorf("failed to record hall of fame: %w", err)
	}
	return nil
}
