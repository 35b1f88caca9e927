package neat

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/baldhumanity/walkneat/neat/nn"
)

// Config stores the configuration parameters for a training run.
type Config struct {
	Neat     NeatConfig     `yaml:"neat"`
	Genome   GenomeConfig   `yaml:"genome"`
	Mutation MutationConfig `yaml:"mutation"`
	Weights  WeightConfig   `yaml:"weights"`
	Stadium  StadiumConfig  `yaml:"stadium"`
	Storage  StorageConfig  `yaml:"storage"`
}

// NeatConfig holds population level parameters.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size" yaml:"pop_size"`
	EliteRatio           float64 `ini:"elite_ratio" yaml:"elite_ratio"` // Share of the population cloned unchanged
	HallOfFameSize       int     `ini:"hall_of_fame_size" yaml:"hall_of_fame_size"`
	Seed                 int64   `ini:"seed" yaml:"seed"` // 0 picks a seed from the clock
	FitnessThreshold     float64 `ini:"fitness_threshold" yaml:"fitness_threshold"`
	NoFitnessTermination bool    `ini:"no_fitness_termination" yaml:"no_fitness_termination"`
}

// GenomeConfig describes the shape of freshly created genomes.
type GenomeConfig struct {
	NumInputs         int    `ini:"num_inputs" yaml:"num_inputs"`
	NumOutputs        int    `ini:"num_outputs" yaml:"num_outputs"`
	OutputActivation  string `ini:"output_activation" yaml:"output_activation"`
	InitialConnection string `ini:"initial_connection" yaml:"initial_connection"` // unconnected | full_direct

	outputActivation nn.Activation // Parsed by Validate
}

// Activation returns the parsed output activation. Valid after Validate.
func (gc *GenomeConfig) Activation() nn.Activation {
	return gc.outputActivation
}

// MutationConfig holds the structural mutation probabilities.
type MutationConfig struct {
	ConnAddProb         float64 `ini:"conn_add_prob" yaml:"conn_add_prob"`
	NodeAddProb         float64 `ini:"node_add_prob" yaml:"node_add_prob"`
	NewConnectionWeight float64 `ini:"new_connection_weight" yaml:"new_connection_weight"`
}

// WeightConfig holds the parameters of the weight and bias mutation pass.
type WeightConfig struct {
	WeightRange       float64 `ini:"weight_range" yaml:"weight_range"` // Initial and replacement weights are drawn in [-range, range)
	WeightPerturbRate float64 `ini:"weight_perturb_rate" yaml:"weight_perturb_rate"`
	WeightReplaceRate float64 `ini:"weight_replace_rate" yaml:"weight_replace_rate"`
	WeightMutatePower float64 `ini:"weight_mutate_power" yaml:"weight_mutate_power"`
	WeightMaxValue    float64 `ini:"weight_max_value" yaml:"weight_max_value"`

	BiasMutateRate  float64 `ini:"bias_mutate_rate" yaml:"bias_mutate_rate"`
	BiasReplaceRate float64 `ini:"bias_replace_rate" yaml:"bias_replace_rate"`
	BiasMutatePower float64 `ini:"bias_mutate_power" yaml:"bias_mutate_power"`
	BiasRange       float64 `ini:"bias_range" yaml:"bias_range"`
	BiasMaxValue    float64 `ini:"bias_max_value" yaml:"bias_max_value"`
}

// StadiumConfig holds the evaluation harness parameters.
type StadiumConfig struct {
	Workers          int     `ini:"workers" yaml:"workers"`                       // 0 uses GOMAXPROCS
	Dt               float64 `ini:"dt" yaml:"dt"`                                 // Simulated seconds per step
	MaxIterationTime float64 `ini:"max_iteration_time" yaml:"max_iteration_time"` // Simulated seconds per iteration
	BestSavePeriod   int     `ini:"best_save_period" yaml:"best_save_period"`     // 0 disables best genome dumps
	OutputDir        string  `ini:"output_dir" yaml:"output_dir"`
}

// StorageConfig selects where run history is persisted.
type StorageConfig struct {
	Backend    string `ini:"backend" yaml:"backend"` // memory | sqlite
	SQLitePath string `ini:"sqlite_path" yaml:"sqlite_path"`
}

// DefaultConfig returns the configuration used when a file leaves a key out.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:              1000,
			EliteRatio:           0.2,
			HallOfFameSize:       10,
			NoFitnessTermination: true,
		},
		Genome: GenomeConfig{
			OutputActivation:  "sigmoid",
			InitialConnection: "unconnected",
			outputActivation:  nn.Sigmoid,
		},
		Mutation: DefaultMutationConfig(),
		Weights:  DefaultWeightConfig(),
		Stadium: StadiumConfig{
			Dt:               1.0 / 60.0,
			MaxIterationTime: 100,
			BestSavePeriod:   20,
			OutputDir:        ".",
		},
		Storage: StorageConfig{
			Backend:    "memory",
			SQLitePath: "walkneat.db",
		},
	}
}

// DefaultMutationConfig returns the default structural mutation probabilities.
func DefaultMutationConfig() MutationConfig {
	return MutationConfig{
		ConnAddProb: 0.8,
		NodeAddProb: 0.1,
	}
}

// DefaultWeightConfig returns the default weight mutation parameters.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		WeightRange:       2,
		WeightPerturbRate: 0.9,
		WeightReplaceRate: 0.1,
		WeightMutatePower: 0.2,
		WeightMaxValue:    10,
		BiasMutateRate:    0.1,
		BiasReplaceRate:   0,
		BiasMutatePower:   3,
		BiasRange:         3,
		BiasMaxValue:      10,
	}
}

// LoadConfig loads configuration parameters from an INI file, or from a YAML
// file when the extension is .yaml or .yml. Keys missing from the file keep
// their DefaultConfig value.
func LoadConfig(filePath string) (*Config, error) {
	config := DefaultConfig()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", filePath, err)
		}
	default:
		cfg, err := ini.LoadSources(ini.LoadOptions{
			IgnoreInlineComment:         true, // Allow # comments starting with # or ;
			UnescapeValueCommentSymbols: true, // If # or ; appear in value, treat as value
		}, filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
		}
		if err := mapSections(cfg, config); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// mapSections copies every known INI section onto config.
func mapSections(cfg *ini.File, config *Config) error {
	sections := []struct {
		name   string
		target any
	}{
		{"NEAT", &config.Neat},
		{"DefaultGenome", &config.Genome},
		{"Mutation", &config.Mutation},
		{"Weights", &config.Weights},
		{"Stadium", &config.Stadium},
		{"Storage", &config.Storage},
	}
	for _, s := range sections {
		if err := cfg.Section(s.name).MapTo(s.target); err != nil {
			return fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	// --- Explicitly clean potentially problematic string values ---
	config.Genome.OutputActivation = cleanIniString(config.Genome.OutputActivation)
	config.Genome.InitialConnection = cleanIniString(config.Genome.InitialConnection)
	config.Stadium.OutputDir = cleanIniString(config.Stadium.OutputDir)
	config.Storage.Backend = cleanIniString(config.Storage.Backend)
	config.Storage.SQLitePath = cleanIniString(config.Storage.SQLitePath)
	return nil
}

// Validate checks value ranges and resolves named options.
func (c *Config) Validate() error {
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Neat.EliteRatio < 0 || c.Neat.EliteRatio > 1 {
		return fmt.Errorf("config error: elite_ratio must be between 0 and 1")
	}
	if c.Neat.HallOfFameSize < 0 {
		return fmt.Errorf("config error: hall_of_fame_size cannot be negative")
	}

	if c.Genome.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if c.Genome.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	activation, err := nn.ParseActivation(c.Genome.OutputActivation)
	if err != nil {
		return fmt.Errorf("config error: invalid output_activation: %w", err)
	}
	c.Genome.outputActivation = activation
	switch c.Genome.InitialConnection {
	case "unconnected", "full_direct":
	default:
		return fmt.Errorf("config error: invalid initial_connection type '%s'", c.Genome.InitialConnection)
	}

	if c.Mutation.ConnAddProb < 0 || c.Mutation.ConnAddProb > 1 {
		return fmt.Errorf("config error: conn_add_prob must be between 0 and 1")
	}
	if c.Mutation.NodeAddProb < 0 || c.Mutation.NodeAddProb > 1 {
		return fmt.Errorf("config error: node_add_prob must be between 0 and 1")
	}
	if c.Mutation.ConnAddProb+c.Mutation.NodeAddProb > 1 {
		return fmt.Errorf("config error: conn_add_prob + node_add_prob cannot exceed 1")
	}

	w := c.Weights
	if w.WeightRange < 0 || w.BiasRange < 0 {
		return fmt.Errorf("config error: weight_range and bias_range cannot be negative")
	}
	if w.WeightPerturbRate < 0 || w.WeightReplaceRate < 0 || w.WeightPerturbRate+w.WeightReplaceRate > 1 {
		return fmt.Errorf("config error: weight_perturb_rate + weight_replace_rate must be between 0 and 1")
	}
	if w.BiasMutateRate < 0 || w.BiasReplaceRate < 0 || w.BiasMutateRate+w.BiasReplaceRate > 1 {
		return fmt.Errorf("config error: bias_mutate_rate + bias_replace_rate must be between 0 and 1")
	}
	if w.WeightMaxValue <= 0 || w.BiasMaxValue <= 0 {
		return fmt.Errorf("config error: weight_max_value and bias_max_value must be positive")
	}

	if c.Stadium.Workers < 0 {
		return fmt.Errorf("config error: workers cannot be negative")
	}
	if c.Stadium.Dt <= 0 {
		return fmt.Errorf("config error: dt must be positive")
	}
	if c.Stadium.MaxIterationTime <= 0 {
		return fmt.Errorf("config error: max_iteration_time must be positive")
	}
	if c.Stadium.BestSavePeriod < 0 {
		return fmt.Errorf("config error: best_save_period cannot be negative")
	}

	switch c.Storage.Backend {
	case "memory":
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("config error: sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config error: invalid storage backend '%s'", c.Storage.Backend)
	}
	return nil
}

// cleanIniString removes inline comments and trims whitespace from a string read from INI.
func cleanIniString(s string) string {
	// Remove comments starting with # or ;
	if idx := strings.IndexAny(s, "#;"); idx != -1 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
