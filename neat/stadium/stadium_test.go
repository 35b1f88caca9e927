package stadium

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/walkneat/neat"
	"github.com/baldhumanity/walkneat/neat/nn"
	"github.com/baldhumanity/walkneat/neat/store"
)

func TestDispatchCoversEveryIndexOnce(t *testing.T) {
	for _, tc := range []struct{ count, workers int }{
		{10, 3}, {10, 1}, {3, 8}, {7, 0}, {16, 4},
	} {
		hits := make([]int32, tc.count)
		var calls int32
		err := Dispatch(context.Background(), tc.count, tc.workers, func(start, end int) {
			atomic.AddInt32(&calls, 1)
			assert.Less(t, start, end)
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		require.NoError(t, err)
		for i, h := range hits {
			assert.EqualValues(t, 1, h, "index %d of %d/%d", i, tc.count, tc.workers)
		}
		if tc.workers > 0 {
			assert.LessOrEqual(t, int(calls), tc.workers)
		}
	}
}

func TestDispatchEmptyAndCancelled(t *testing.T) {
	called := false
	require.NoError(t, Dispatch(context.Background(), 0, 4, func(int, int) { called = true }))
	assert.False(t, called)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Dispatch(ctx, 10, 2, func(int, int) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

// pulseTask feeds a constant input to its network and integrates the output
// for a fixed number of steps.
type pulseTask struct {
	net   *nn.Network
	limit int
	steps int
	score float64
}

func (p *pulseTask) Update(dt float32) {
	out, err := p.net.Activate([]float32{1, 0.5})
	if err != nil {
		panic(err)
	}
	p.score += float64(out[0]) * float64(dt)
	p.steps++
}

func (p *pulseTask) Done() bool {
	return p.steps >= p.limit
}

func (p *pulseTask) Score() float64 {
	return p.score
}

func stadiumConfig(t *testing.T) *neat.Config {
	t.Helper()
	cfg := neat.DefaultConfig()
	cfg.Neat.PopSize = 8
	cfg.Neat.Seed = 3
	cfg.Genome.NumInputs = 2
	cfg.Genome.NumOutputs = 1
	cfg.Genome.InitialConnection = "full_direct"
	cfg.Stadium.Workers = 3
	cfg.Stadium.Dt = 0.5
	cfg.Stadium.MaxIterationTime = 2
	cfg.Stadium.BestSavePeriod = 1
	cfg.Stadium.OutputDir = filepath.Join(t.TempDir(), "out")
	require.NoError(t, cfg.Validate())
	return cfg
}

func newStadium(t *testing.T, cfg *neat.Config, opts ...Option) (*Stadium, *[]*pulseTask) {
	t.Helper()
	p, err := neat.NewPopulation(cfg)
	require.NoError(t, err)
	tasks := new([]*pulseTask)
	factory := func(index int, net *nn.Network) Task {
		if index == 0 {
			*tasks = make([]*pulseTask, len(p.Genomes))
		}
		task := &pulseTask{net: net, limit: index%5 + 1}
		(*tasks)[index] = task
		return task
	}
	s, err := New(p, factory, opts...)
	require.NoError(t, err)
	return s, tasks
}

func TestRunIteration(t *testing.T) {
	ctx := context.Background()
	cfg := stadiumConfig(t)
	runs := store.NewMemoryStore()
	require.NoError(t, runs.Init(ctx))
	s, tasks := newStadium(t, cfg, WithStore(runs), WithRunID("walk-1"))
	assert.Equal(t, "walk-1", s.RunID())

	stats, err := s.RunIteration(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Iteration)
	assert.Equal(t, 1, s.Population().Iteration())

	best := -1.0
	for i, task := range *tasks {
		assert.Equal(t, min(i%5+1, 4), task.steps, "task %d stops when done or out of time", i)
		best = max(best, task.score)
	}
	assert.Equal(t, best, stats.Best)

	saved, err := neat.LoadFromFile(filepath.Join(cfg.Stadium.OutputDir, "best_1.bin"))
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Info.Inputs)

	records, err := runs.ListGenerations(ctx, "walk-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, stats.Best, records[0].Best)
	assert.Equal(t, stats.Mean, records[0].Mean)
	var g neat.Genome
	require.NoError(t, g.UnmarshalBinary(records[0].BestGenome))
	assert.Equal(t, saved.Connections, g.Connections)

	hof, ok, err := runs.GetHallOfFame(ctx, "walk-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, hof, 1)
	assert.Equal(t, stats.Best, hof[0].Score)
}

func TestRunStopsWhenSolved(t *testing.T) {
	cfg := stadiumConfig(t)
	cfg.Stadium.BestSavePeriod = 0
	cfg.Neat.NoFitnessTermination = false
	cfg.Neat.FitnessThreshold = -1
	s, _ := newStadium(t, cfg)

	require.NoError(t, s.Run(context.Background(), 10))
	assert.True(t, s.Population().Solved())
	assert.Zero(t, s.Population().Iteration())
	assert.NoDirExists(t, cfg.Stadium.OutputDir)
}

func TestRunIterations(t *testing.T) {
	cfg := stadiumConfig(t)
	cfg.Stadium.BestSavePeriod = 2
	s, _ := newStadium(t, cfg)

	require.NoError(t, s.Run(context.Background(), 4))
	assert.Equal(t, 4, s.Population().Iteration())
	assert.FileExists(t, filepath.Join(cfg.Stadium.OutputDir, "best_2.bin"))
	assert.FileExists(t, filepath.Join(cfg.Stadium.OutputDir, "best_4.bin"))
	assert.NoFileExists(t, filepath.Join(cfg.Stadium.OutputDir, "best_3.bin"))
}

func TestRunIterationCancelled(t *testing.T) {
	s, _ := newStadium(t, stadiumConfig(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.RunIteration(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.Population().Iteration())
}

func TestNewRequiresPopulationAndFactory(t *testing.T) {
	_, err := New(nil, func(int, *nn.Network) Task { return nil })
	assert.Error(t, err)

	p, err := neat.NewPopulation(stadiumConfig(t))
	require.NoError(t, err)
	_, err = New(p, nil)
	assert.Error(t, err)

	s, err := New(p, func(int, *nn.Network) Task { return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, s.RunID())
}
