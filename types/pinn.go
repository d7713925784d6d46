package types

import (
	"fmt"
	"strings"
)

// ActivationType selects the nonlinearity used by every hidden layer of the
// approximator. Only activations with continuous derivatives through third
// order are included: the transport residual differentiates the network
// twice in space, and the parameter-gradient sweep needs one order more.
type ActivationType uint8

const (
	ActivationNone ActivationType = iota
	Tanh
	Sigmoid
	Sin
	Softplus
	Swish
)

func (at ActivationType) String() string {
	names := map[ActivationType]string{
		Tanh:     "Tanh",
		Sigmoid:  "Sigmoid",
		Sin:      "Sin",
		Softplus: "Softplus",
		Swish:    "Swish",
	}
	if name, ok := names[at]; ok {
		return name
	}
	return "Unknown"
}

var ActivationNameMap = map[string]ActivationType{
	"tanh":     Tanh,
	"sigmoid":  Sigmoid,
	"sin":      Sin,
	"sine":     Sin,
	"softplus": Softplus,
	"swish":    Swish,
	"silu":     Swish,
}

// ParseActivation converts an activation name to ActivationType, matching
// case-insensitively. Unknown names are an error, not a default: the
// residual math is only valid for the smooth activations listed here.
func ParseActivation(name string) (at ActivationType, err error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if at, ok := ActivationNameMap[lowerName]; ok {
		return at, nil
	}
	err = fmt.Errorf("unknown or non-smooth activation [%s], supported: tanh, sigmoid, sin, softplus, swish", name)
	return
}

// BCKind distinguishes the three boundary condition families on the domain
// edges. Mixed blends value and flux terms with a weight theta.
type BCKind uint8

const (
	BCNone BCKind = iota
	BCDirichlet
	BCNeumann
	BCMixed
)

func (bc BCKind) String() string {
	names := map[BCKind]string{
		BCNone:      "None",
		BCDirichlet: "Dirichlet",
		BCNeumann:   "Neumann",
		BCMixed:     "Mixed",
	}
	if name, ok := names[bc]; ok {
		return name
	}
	return "Unknown"
}

var BCNameMap = map[string]BCKind{
	"dirichlet": BCDirichlet,
	"value":     BCDirichlet,
	"neumann":   BCNeumann,
	"flux":      BCNeumann,
	"no_flux":   BCNeumann,
	"noflux":    BCNeumann,
	"mixed":     BCMixed,
	"robin":     BCMixed,
}

func ParseBCKind(name string) (bc BCKind, err error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if bc, ok := BCNameMap[lowerName]; ok {
		return bc, nil
	}
	err = fmt.Errorf("unknown boundary condition kind [%s]", name)
	return
}

// EdgeTag names the four edges of the rectangular spatial domain.
type EdgeTag uint8

const (
	EdgeNone EdgeTag = iota
	Left
	Right
	Bottom
	Top
)

func (e EdgeTag) String() string {
	names := map[EdgeTag]string{
		EdgeNone: "None",
		Left:     "Left",
		Right:    "Right",
		Bottom:   "Bottom",
		Top:      "Top",
	}
	if name, ok := names[e]; ok {
		return name
	}
	return "Unknown"
}

var EdgeNameMap = map[string]EdgeTag{
	"left":   Left,
	"west":   Left,
	"right":  Right,
	"east":   Right,
	"bottom": Bottom,
	"south":  Bottom,
	"top":    Top,
	"north":  Top,
}

func ParseEdgeTag(name string) (e EdgeTag, err error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if e, ok := EdgeNameMap[lowerName]; ok {
		return e, nil
	}
	err = fmt.Errorf("unknown edge tag [%s], expected left/right/bottom/top", name)
	return
}

// Normal returns the outward unit normal of the edge.
func (e EdgeTag) Normal() (nx, ny float64) {
	switch e {
	case Left:
		nx = -1
	case Right:
		nx = 1
	case Bottom:
		ny = -1
	case Top:
		ny = 1
	}
	return
}

// OptimizerType selects the parameter update rule.
type OptimizerType uint8

const (
	OptimizerNone OptimizerType = iota
	Adam
	SGD
)

func (ot OptimizerType) String() string {
	names := map[OptimizerType]string{
		Adam: "Adam",
		SGD:  "SGD",
	}
	if name, ok := names[ot]; ok {
		return name
	}
	return "Unknown"
}

var OptimizerNameMap = map[string]OptimizerType{
	"adam":     Adam,
	"sgd":      SGD,
	"momentum": SGD,
}

func ParseOptimizer(name string) (ot OptimizerType, err error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if ot, ok := OptimizerNameMap[lowerName]; ok {
		return ot, nil
	}
	err = fmt.Errorf("unknown optimizer [%s], supported: adam, sgd", name)
	return
}

// SchedulerType selects how the learning rate evolves over iterations.
type SchedulerType uint8

const (
	FixedLR SchedulerType = iota
	StepLR
	ExponentialLR
	CosineLR
)

func (st SchedulerType) String() string {
	names := map[SchedulerType]string{
		FixedLR:       "Fixed",
		StepLR:        "Step",
		ExponentialLR: "Exponential",
		CosineLR:      "Cosine",
	}
	if name, ok := names[st]; ok {
		return name
	}
	return "Unknown"
}

var SchedulerNameMap = map[string]SchedulerType{
	"fixed":       FixedLR,
	"constant":    FixedLR,
	"none":        FixedLR,
	"step":        StepLR,
	"exponential": ExponentialLR,
	"exp":         ExponentialLR,
	"cosine":      CosineLR,
}

func ParseScheduler(name string) (st SchedulerType, err error) {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	if st, ok := SchedulerNameMap[lowerName]; ok {
		return st, nil
	}
	err = fmt.Errorf("unknown learning rate scheduler [%s]", name)
	return
}

// SolverState tracks the training loop through its lifecycle. Transitions
// are strictly forward: Initializing -> Training -> one of the terminal
// outcomes -> Terminated.
type SolverState uint8

const (
	Initializing SolverState = iota
	Training
	Converged
	Diverged
	MaxIterationsReached
	Terminated
)

func (ss SolverState) String() string {
	names := map[SolverState]string{
		Initializing:         "Initializing",
		Training:             "Training",
		Converged:            "Converged",
		Diverged:             "Diverged",
		MaxIterationsReached: "MaxIterationsReached",
		Terminated:           "Terminated",
	}
	if name, ok := names[ss]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether the state is one of the training outcomes.
func (ss SolverState) Terminal() bool {
	switch ss {
	case Converged, Diverged, MaxIterationsReached:
		return true
	}
	return false
}

// RunStatus is the outcome reported to callers of a completed run.
type RunStatus uint8

const (
	StatusConverged RunStatus = iota
	StatusConvergenceFailure
	StatusDiverged
	StatusCancelled
)

func (rs RunStatus) String() string {
	names := map[RunStatus]string{
		StatusConverged:          "Converged",
		StatusConvergenceFailure: "ConvergenceFailure",
		StatusDiverged:           "Diverged",
		StatusCancelled:          "Cancelled",
	}
	if name, ok := names[rs]; ok {
		return name
	}
	return "Unknown"
}
