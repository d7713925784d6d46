package Transport2D

import (
	"fmt"
	"math"

	"github.com/hydronet/gopinn/types"
)

// Schedule yields the learning rate for an iteration, counted from zero
type Schedule interface {
	LearningRate(iter int) float64
}

type FixedLR struct {
	LR float64
}

func (s FixedLR) LearningRate(iter int) float64 { return s.LR }

// StepLR multiplies by Gamma after every Every iterations
type StepLR struct {
	LR, Gamma float64
	Every     int
}

func (s StepLR) LearningRate(iter int) float64 {
	return s.LR * math.Pow(s.Gamma, float64(iter/s.Every))
}

// ExponentialLR decays continuously, by a factor Gamma per Every
// iterations
type ExponentialLR struct {
	LR, Gamma float64
	Every     int
}

func (s ExponentialLR) LearningRate(iter int) float64 {
	return s.LR * math.Pow(s.Gamma, float64(iter)/float64(s.Every))
}

// CosineLR anneals from LR to Floor over Period iterations and stays at
// Floor afterwards
type CosineLR struct {
	LR, Floor float64
	Period    int
}

func (s CosineLR) LearningRate(iter int) float64 {
	if iter >= s.Period {
		return s.Floor
	}
	frac := float64(iter) / float64(s.Period)
	return s.Floor + 0.5*(s.LR-s.Floor)*(1+math.Cos(math.Pi*frac))
}

// NewSchedule builds the configured schedule. The cosine period spans
// the whole run, step and exponential use the configured interval
func NewSchedule(st types.SchedulerType, lr, gamma float64, every, maxIterations int) (Schedule, error) {
	switch st {
	case types.FixedLR:
		return FixedLR{LR: lr}, nil
	case types.StepLR:
		return StepLR{LR: lr, Gamma: gamma, Every: every}, nil
	case types.ExponentialLR:
		return ExponentialLR{LR: lr, Gamma: gamma, Every: every}, nil
	case types.CosineLR:
		return CosineLR{LR: lr, Floor: 0, Period: maxIterations}, nil
	default:
		return nil, fmt.Errorf("unsupported scheduler type %s", st)
	}
}
