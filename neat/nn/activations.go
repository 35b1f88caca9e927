package nn

import (
	"fmt"
	"math"
	"strings"
)

// Activation selects the transfer function of a node.
type Activation uint8

const (
	Identity Activation = iota
	Sigmoid
	ReLU
	Tanh
)

// ActivationFunc is a pure, stateless transfer function.
type ActivationFunc func(x float32) float32

// activationFunctions maps each kind to its implementation, indexed by Activation.
var activationFunctions = [...]ActivationFunc{
	Identity: IdentityFunc,
	Sigmoid:  SigmoidFunc,
	ReLU:     ReLUFunc,
	Tanh:     TanhFunc,
}

// activationNames allows configuration files to name activations.
var activationNames = map[string]Activation{
	"identity": Identity,
	"none":     Identity, // Alias used for input nodes
	"sigmoid":  Sigmoid,
	"relu":     ReLU,
	"tanh":     Tanh,
}

// ParseActivation resolves an activation by name.
func ParseActivation(name string) (Activation, error) {
	if a, ok := activationNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("unknown activation function: %s", name)
}

// Func returns the transfer function for a. Unknown kinds behave like Identity.
func (a Activation) Func() ActivationFunc {
	if int(a) < len(activationFunctions) {
		return activationFunctions[a]
	}
	return IdentityFunc
}

// String implements fmt.Stringer.
func (a Activation) String() string {
	switch a {
	case Identity:
		return "identity"
	case Sigmoid:
		return "sigmoid"
	case ReLU:
		return "relu"
	case Tanh:
		return "tanh"
	default:
		return fmt.Sprintf("activation(%d)", uint8(a))
	}
}

// MarshalText lets activations appear by name in YAML and JSON.
func (a Activation) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Activation) UnmarshalText(text []byte) error {
	parsed, err := ParseActivation(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IdentityFunc returns x unchanged.
func IdentityFunc(x float32) float32 {
	return x
}

// SigmoidFunc is the logistic function with a steepness of 4.5.
func SigmoidFunc(x float32) float32 {
	return float32(1.0 / (1.0 + math.Exp(-4.5*float64(x))))
}

// ReLUFunc is max(0, x) written without a branch.
func ReLUFunc(x float32) float32 {
	return 0.5 * (x + float32(math.Abs(float64(x))))
}

// TanhFunc is the hyperbolic tangent.
func TanhFunc(x float32) float32 {
	return float32(math.Tanh(float64(x)))
}
