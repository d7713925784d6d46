package Transport2D

import (
	"fmt"

	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/utils"
)

// Predictor evaluates a trained surrogate at arbitrary points. It holds no
// training state, so one can be kept around long after the run that
// produced it
type Predictor struct {
	Net  *mlp.Network
	Dom  physics.Domain
	Span physics.TimeSpan

	// AllowExtrapolation permits queries outside the trained domain and
	// time window. The network extrapolates freely there and the values
	// carry no physics guarantee
	AllowExtrapolation bool
}

// Predictor wraps the current network state for queries. The returned
// predictor shares the network, training further invalidates it
func (c *Transport) Predictor() (p *Predictor) {
	p = &Predictor{
		Net:  c.Net,
		Dom:  c.Dom,
		Span: c.Span,
	}
	return
}

// LoadPredictor rebuilds a standalone predictor from a checkpoint bundle,
// without any of the training machinery
func LoadPredictor(path string) (p *Predictor, err error) {
	ck, err := ReadCheckpoint(path)
	if err != nil {
		return
	}
	nn, err := mlp.FromDescriptor(ck.Header.Network)
	if err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	if err = nn.SetParameters(ck.Weights); err != nil {
		return nil, &CheckpointError{Path: path, Op: "read", Err: err}
	}
	if ck.Header.Params == nil {
		return nil, &CheckpointError{Path: path, Op: "read",
			Err: fmt.Errorf("bundle carries no run parameters")}
	}
	ip := ck.Header.Params
	p = &Predictor{
		Net:  nn,
		Dom:  physics.Domain{XMin: ip.XMin, XMax: ip.XMax, YMin: ip.YMin, YMax: ip.YMax},
		Span: physics.TimeSpan{T0: ip.TimeStart, T1: ip.FinalTime},
	}
	return
}

func (p *Predictor) inRange(pt sampler.Point) bool {
	return p.Dom.Contains(pt.X, pt.Y) && pt.T >= p.Span.T0 && pt.T <= p.Span.T1
}

// PredictionResult pairs a query location with the concentration the
// surrogate assigns to it
type PredictionResult struct {
	Point sampler.Point
	C     float64
}

// PredictPoints evaluates the concentration at each query point and
// returns the paired results
func (p *Predictor) PredictPoints(pts []sampler.Point) (results []PredictionResult, err error) {
	C, err := p.Predict(pts)
	if err != nil {
		return
	}
	results = make([]PredictionResult, len(pts))
	for i, pt := range pts {
		results[i] = PredictionResult{Point: pt, C: C[i]}
	}
	return
}

// Predict evaluates the concentration at each query point
func (p *Predictor) Predict(pts []sampler.Point) (C []float64, err error) {
	if len(pts) == 0 {
		return
	}
	if !p.AllowExtrapolation {
		for i, pt := range pts {
			if !p.inRange(pt) {
				err = fmt.Errorf("point %d (%v,%v,%v) lies outside the trained domain [%v,%v]x[%v,%v], t in [%v,%v]",
					i, pt.X, pt.Y, pt.T,
					p.Dom.XMin, p.Dom.XMax, p.Dom.YMin, p.Dom.YMax, p.Span.T0, p.Span.T1)
				return
			}
		}
	}
	X := utils.NewMatrix(len(pts), 3)
	for i, pt := range pts {
		X.DataP[3*i], X.DataP[3*i+1], X.DataP[3*i+2] = pt.X, pt.Y, pt.T
	}
	C = append(C, p.Net.Forward(X).DataP...)
	return
}

// PredictGrid evaluates the concentration on a regular nx by ny lattice over
// the trained domain at time t, returned in row major order with x varying
// fastest
func (p *Predictor) PredictGrid(nx, ny int, t float64) (x, y, C []float64, err error) {
	if nx < 2 || ny < 2 {
		err = fmt.Errorf("grid must be at least 2x2, have %dx%d", nx, ny)
		return
	}
	if !p.AllowExtrapolation && (t < p.Span.T0 || t > p.Span.T1) {
		err = fmt.Errorf("time %v lies outside the trained window [%v,%v]", t, p.Span.T0, p.Span.T1)
		return
	}
	var (
		n  = nx * ny
		dx = p.Dom.Width() / float64(nx-1)
		dy = p.Dom.Height() / float64(ny-1)
		X  = utils.NewMatrix(n, 3)
	)
	x = make([]float64, n)
	y = make([]float64, n)
	for j := 0; j < ny; j++ {
		yv := p.Dom.YMin + dy*float64(j)
		for i := 0; i < nx; i++ {
			var (
				q  = j*nx + i
				xv = p.Dom.XMin + dx*float64(i)
			)
			x[q], y[q] = xv, yv
			X.DataP[3*q], X.DataP[3*q+1], X.DataP[3*q+2] = xv, yv, t
		}
	}
	C = append(C, p.Net.Forward(X).DataP...)
	return
}
