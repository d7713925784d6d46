package Transport2D

import "math"

// Weights scales the terms of the composite objective
type Weights struct {
	Physics, Boundary, Initial, Data float64
}

// LossParts carries the unweighted mean square residual of each term
type LossParts struct {
	Physics, Boundary, Initial, Data float64
}

func (lp LossParts) Total(w Weights) float64 {
	return w.Physics*lp.Physics + w.Boundary*lp.Boundary +
		w.Initial*lp.Initial + w.Data*lp.Data
}

func (lp LossParts) Finite() bool {
	for _, v := range [4]float64{lp.Physics, lp.Boundary, lp.Initial, lp.Data} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Aggregator yields the term weights for an iteration. The static
// implementation covers configured runs, adaptive weighting schemes plug
// in through the same interface
type Aggregator interface {
	Weights(iter int) Weights
}

// StaticWeights holds the configured weights fixed for the whole run
type StaticWeights Weights

func (sw StaticWeights) Weights(iter int) Weights { return Weights(sw) }
