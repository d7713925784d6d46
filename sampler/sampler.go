package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
)

// Point is an immutable spatio-temporal sample.
type Point struct {
	X, Y, T float64
}

// NewPoint rejects non-finite coordinates at the door, so downstream code
// never has to re-check.
func NewPoint(x, y, t float64) (p Point, err error) {
	for _, v := range [3]float64{x, y, t} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = fmt.Errorf("point coordinate must be finite, have (%v,%v,%v)", x, y, t)
			return
		}
	}
	p = Point{X: x, Y: y, T: t}
	return
}

// Config sizes the collocation sets drawn per refresh.
type Config struct {
	NumInterior int
	NumBoundary int // total across edges, split proportionally to edge length
	NumInitial  int
	Seed        uint64
}

func (c Config) Validate() (err error) {
	if c.NumInterior < 1 || c.NumBoundary < 4 || c.NumInitial < 1 {
		err = fmt.Errorf("sample counts too small: interior %d, boundary %d (minimum 4), initial %d",
			c.NumInterior, c.NumBoundary, c.NumInitial)
	}
	return
}

// InteriorSet carries collocation points with the physical coefficients
// resolved once at sampling time. Excluded counts draws rejected because a
// coefficient field was undefined there.
type InteriorSet struct {
	X            utils.Matrix // N x 3, columns (x,y,t)
	D, Vx, Vy, S utils.Vector
	Excluded     int
}

func (s InteriorSet) Len() int { r, _ := s.X.Dims(); return r }

// BoundarySet carries boundary collocation points tagged with their edge.
type BoundarySet struct {
	X     utils.Matrix // N x 3
	Edges []types.EdgeTag
}

func (s BoundarySet) Len() int { r, _ := s.X.Dims(); return r }

// InitialSet carries points on the t = T0 slice.
type InitialSet struct {
	X utils.Matrix // N x 3 with the time column fixed at T0
}

func (s InitialSet) Len() int { r, _ := s.X.Dims(); return r }

// Sampler draws the collocation sets from a seeded PCG stream. The stream
// state serializes, so a resumed run continues the exact draw sequence.
type Sampler struct {
	Dom    physics.Domain
	Span   physics.TimeSpan
	Coeffs *physics.Coefficients
	Cfg    Config

	pcg *rand.PCG
	rng *rand.Rand
}

func New(dom physics.Domain, span physics.TimeSpan, coeffs *physics.Coefficients, cfg Config) (s *Sampler, err error) {
	if err = cfg.Validate(); err != nil {
		return
	}
	if err = dom.Validate(); err != nil {
		return
	}
	if err = span.Validate(); err != nil {
		return
	}
	pcg := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	s = &Sampler{
		Dom:    dom,
		Span:   span,
		Coeffs: coeffs,
		Cfg:    cfg,
		pcg:    pcg,
		rng:    rand.New(pcg),
	}
	return
}

// Interior draws NumInterior points uniform over domain x time span and
// resolves the coefficient fields at each. Draws landing where a field is
// undefined are rejected and redrawn; rejection of most of the domain is an
// error rather than a silent small set.
func (s *Sampler) Interior() (set InteriorSet, err error) {
	var (
		n        = s.Cfg.NumInterior
		attempts = 0
		maxTries = 100 * n
		accepted = 0
	)
	set.X = utils.NewMatrix(n, 3)
	set.D = utils.NewVector(n)
	set.Vx = utils.NewVector(n)
	set.Vy = utils.NewVector(n)
	set.S = utils.NewVector(n)
	for accepted < n {
		if attempts >= maxTries {
			err = fmt.Errorf("coefficient fields undefined over too much of the domain: %d accepted of %d after %d draws",
				accepted, n, attempts)
			return
		}
		attempts++
		var (
			x  = s.Dom.XMin + s.rng.Float64()*s.Dom.Width()
			y  = s.Dom.YMin + s.rng.Float64()*s.Dom.Height()
			tt = s.Span.T0 + s.rng.Float64()*s.Span.Duration()
		)
		D, ok := s.Coeffs.DiffusionAt(x, y)
		if !ok {
			continue
		}
		if D <= 0 {
			err = fmt.Errorf("diffusion field must be strictly positive, have %v at (%v,%v)", D, x, y)
			return
		}
		vx, vy, ok := s.Coeffs.VelocityAt(x, y, tt)
		if !ok {
			continue
		}
		src, ok := s.Coeffs.SourceAt(x, y, tt)
		if !ok {
			continue
		}
		set.X.DataP[accepted*3+0] = x
		set.X.DataP[accepted*3+1] = y
		set.X.DataP[accepted*3+2] = tt
		set.D.DataP[accepted] = D
		set.Vx.DataP[accepted] = vx
		set.Vy.DataP[accepted] = vy
		set.S.DataP[accepted] = src
		accepted++
	}
	set.Excluded = attempts - n
	return
}

// edgeOrder fixes the deterministic split of the boundary budget.
var edgeOrder = [4]types.EdgeTag{types.Left, types.Right, types.Bottom, types.Top}

// Boundary draws NumBoundary points, stratified across the four edges in
// proportion to their length, each with a uniform time coordinate.
func (s *Sampler) Boundary() (set BoundarySet) {
	var (
		n         = s.Cfg.NumBoundary
		perimeter = 2. * (s.Dom.Width() + s.Dom.Height())
		counts    [4]int
		total     int
	)
	for i, e := range edgeOrder {
		counts[i] = int(float64(n) * s.Dom.EdgeLength(e) / perimeter)
		total += counts[i]
	}
	for i := 0; total < n; i = (i + 1) % 4 { // leftover spread in edge order
		counts[i]++
		total++
	}
	set.X = utils.NewMatrix(n, 3)
	set.Edges = make([]types.EdgeTag, n)
	var row int
	for i, e := range edgeOrder {
		for k := 0; k < counts[i]; k++ {
			var (
				x, y = s.Dom.EdgePoint(e, s.rng.Float64())
				tt   = s.Span.T0 + s.rng.Float64()*s.Span.Duration()
			)
			set.X.DataP[row*3+0] = x
			set.X.DataP[row*3+1] = y
			set.X.DataP[row*3+2] = tt
			set.Edges[row] = e
			row++
		}
	}
	return
}

// Initial draws NumInitial points uniform over space on the t = T0 slice.
func (s *Sampler) Initial() (set InitialSet) {
	var (
		n = s.Cfg.NumInitial
	)
	set.X = utils.NewMatrix(n, 3)
	for i := 0; i < n; i++ {
		set.X.DataP[i*3+0] = s.Dom.XMin + s.rng.Float64()*s.Dom.Width()
		set.X.DataP[i*3+1] = s.Dom.YMin + s.rng.Float64()*s.Dom.Height()
		set.X.DataP[i*3+2] = s.Span.T0
	}
	return
}

// MarshalState captures the PCG stream state for exact resume.
func (s *Sampler) MarshalState() (state []byte, err error) {
	state, err = s.pcg.MarshalBinary()
	return
}

// RestoreState rewinds the stream to a captured state.
func (s *Sampler) RestoreState(state []byte) (err error) {
	err = s.pcg.UnmarshalBinary(state)
	return
}
