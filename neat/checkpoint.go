package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
)

// PopulationSaveData is a helper struct to hold only the parts of Population needed for saving.
// The config is not saved; it is reloaded from the original file. Genomes are
// encoded with the genome file format, so hidden activations are restored as
// ReLU and output activations are re-linked from the config.
type PopulationSaveData struct {
	Genomes    []*Genome
	HallOfFame []Individual
	Best       Individual
	Mutator    MutatorState
	Iteration  int
	Seed       int64
	Solved     bool
}

// SaveCheckpoint saves the current state of the Population to a gzip compressed file.
func (p *Population) SaveCheckpoint(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	saveData := PopulationSaveData{
		Genomes:    p.Genomes,
		HallOfFame: p.evolver.hallOfFame.Entries(),
		Best:       p.best,
		Mutator:    p.evolver.mutator.State(),
		Iteration:  p.evolver.iteration,
		Seed:       p.Seed,
		Solved:     p.solved,
	}
	if err := gob.NewEncoder(gzWriter).Encode(saveData); err != nil {
		gzWriter.Close()
		file.Close()
		os.Remove(filePath)
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint file '%s': %w", filePath, err)
	}

	p.logger.Info("checkpoint saved", "path", filePath, "iteration", saveData.Iteration)
	return file.Close()
}

// LoadCheckpoint loads a Population state from a checkpoint file.
// It requires the original configuration file path to reconstruct the Config object.
func LoadCheckpoint(checkpointPath string, configPath string, opts ...EvolverOption) (*Population, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s' for checkpoint: %w", configPath, err)
	}

	file, err := os.Open(checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", checkpointPath, err)
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	saveData := PopulationSaveData{}
	if err := gob.NewDecoder(gzReader).Decode(&saveData); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}
	if len(saveData.Genomes) == 0 {
		return nil, fmt.Errorf("checkpoint '%s' holds no genomes: %w", checkpointPath, ErrEmptyPopulation)
	}

	// The random state is not saved: derive a fresh source from the seed and
	// the iteration so a resumed run is still reproducible.
	p := newPopulation(config, saveData.Seed+int64(saveData.Iteration), opts...)
	p.Seed = saveData.Seed
	p.Genomes = saveData.Genomes
	p.best = saveData.Best
	p.solved = saveData.Solved
	p.evolver.iteration = saveData.Iteration
	p.evolver.mutator.Restore(saveData.Mutator)

	// Re-link the configured output activation.
	outputActivation := config.Genome.Activation()
	for _, g := range p.Genomes {
		g.SetOutputActivation(outputActivation)
	}
	for _, e := range saveData.HallOfFame {
		e.Genome.SetOutputActivation(outputActivation)
	}
	if p.best.Genome != nil {
		p.best.Genome.SetOutputActivation(outputActivation)
	}
	p.evolver.hallOfFame.restore(saveData.HallOfFame)

	p.logger.Info("checkpoint loaded", "path", checkpointPath, "iteration", saveData.Iteration)
	return p, nil
}
