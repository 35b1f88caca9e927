package neat

import (
	"fmt"
	"math/rand"

	"github.com/baldhumanity/walkneat/neat/nn"
)

// --------------------------- NodeGene ---------------------------

// NodeGene represents a node (neuron) in the genome.
// Its position in Genome.Nodes is its index: inputs first, then outputs, then hidden nodes.
type NodeGene struct {
	Bias       float32
	Activation nn.Activation
}

// String returns a string representation of the NodeGene.
func (ng NodeGene) String() string {
	return fmt.Sprintf("NodeGene(Bias: %.3f, Activation: %s)", ng.Bias, ng.Activation)
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionGene represents a weighted connection between two nodes, by node index.
type ConnectionGene struct {
	From         int
	To           int
	Weight       float32
	Active       bool
	InnovationID uint32 // Minted by the Mutator; 0 for connections created outside of it.
}

// String returns a string representation of the ConnectionGene.
func (cg ConnectionGene) String() string {
	return fmt.Sprintf("ConnectionGene(%d -> %d, Weight: %.3f, Active: %t, Innovation: %d)",
		cg.From, cg.To, cg.Weight, cg.Active, cg.InnovationID)
}

// --------------------------- Attribute Helpers ---------------------------

// uniform draws a value in [-span, span).
func uniform(rng *rand.Rand, span float64) float64 {
	return (rng.Float64()*2 - 1) * span
}

// mutateFloatAttribute perturbs value with probability mutateRate, replaces it
// with a fresh value in [-replaceRange, replaceRange) with probability replaceRate,
// and leaves it alone otherwise. The result is clamped to [-limit, limit].
func mutateFloatAttribute(rng *rand.Rand, value float32, mutateRate, replaceRate, mutatePower, replaceRange, limit float64) float32 {
	r := rng.Float64()
	if r < mutateRate {
		// Perturb value
		return float32(clamp(float64(value)+uniform(rng, mutatePower), -limit, limit))
	}
	if r < mutateRate+replaceRate {
		// Replace value with a new one
		return float32(clamp(uniform(rng, replaceRange), -limit, limit))
	}
	// No mutation
	return value
}
