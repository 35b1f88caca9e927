// Package store persists the history of training runs: one summary row per
// generation and the hall of fame of every run. Genomes are stored in the
// binary genome file format.
package store

import (
	"context"
	"time"
)

// GenerationRecord summarizes one evaluated generation of a run.
type GenerationRecord struct {
	RunID      string
	Iteration  int
	Best       float64
	Worst      float64
	Mean       float64
	Median     float64
	Stdev      float64
	BestGenome []byte // Best genome of the generation, genome file format
	CreatedAt  time.Time
}

// GenomeRecord is one ranked genome of a hall of fame.
type GenomeRecord struct {
	Rank    int
	Score   float64
	Payload []byte // Genome file format
}

// Store defines the persistence operations of a training run.
type Store interface {
	Init(ctx context.Context) error
	SaveGeneration(ctx context.Context, record GenerationRecord) error
	ListGenerations(ctx context.Context, runID string) ([]GenerationRecord, error)
	SaveHallOfFame(ctx context.Context, runID string, entries []GenomeRecord) error
	GetHallOfFame(ctx context.Context, runID string) ([]GenomeRecord, bool, error)
	Close() error
}
