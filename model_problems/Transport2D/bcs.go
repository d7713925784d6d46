package Transport2D

import (
	"github.com/hydronet/gopinn/InputParameters"
	"github.com/hydronet/gopinn/physics"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/types"
	"github.com/hydronet/gopinn/utils"
)

// BCClause is one boundary condition with its targets in callable form.
// Nil funcs fall back to the constant fields, so YAML configured runs and
// programmatic callers share one representation
type BCClause struct {
	Name      string
	Kind      types.BCKind
	Edge      types.EdgeTag
	Value     float64
	Flux      float64
	Theta     float64
	ValueFunc func(x, y, t float64) float64
	FluxFunc  func(x, y, t float64) float64
}

func (bc BCClause) valueAt(x, y, t float64) float64 {
	if bc.ValueFunc != nil {
		return bc.ValueFunc(x, y, t)
	}
	return bc.Value
}

func (bc BCClause) fluxAt(x, y, t float64) float64 {
	if bc.FluxFunc != nil {
		return bc.FluxFunc(x, y, t)
	}
	return bc.Flux
}

// theta is the dirichlet fraction of the clause residual:
// 1 for dirichlet, 0 for neumann, the configured blend for mixed
func (bc BCClause) theta() float64 {
	switch bc.Kind {
	case types.BCDirichlet:
		return 1
	case types.BCNeumann:
		return 0
	default:
		return bc.Theta
	}
}

// BoundaryEncoder owns the clause table and pins every sampled boundary
// point to exactly one clause. Resolution happens once per sample
// refresh, the training loop only sees the uniform residual form
//
//	r = theta*(C - value) + (1-theta)*(Cx*nx + Cy*ny - flux)
type BoundaryEncoder struct {
	Clauses []BCClause
	dom     physics.Domain
	byEdge  [5]int // clause index per EdgeTag, -1 where unclaimed
}

func NewBoundaryEncoder(dom physics.Domain, clauses []BCClause) (be *BoundaryEncoder, err error) {
	be = &BoundaryEncoder{
		Clauses: clauses,
		dom:     dom,
		byEdge:  [5]int{-1, -1, -1, -1, -1},
	}
	if len(clauses) == 0 {
		return nil, configErr("BCs", "at least one boundary condition is required")
	}
	for i, bc := range clauses {
		switch bc.Kind {
		case types.BCDirichlet, types.BCNeumann, types.BCMixed:
		default:
			return nil, configErr("BCs", "clause [%s] has no condition kind", bc.Name)
		}
		switch bc.Edge {
		case types.Left, types.Right, types.Bottom, types.Top:
		default:
			return nil, configErr("BCs", "clause [%s] names no domain edge", bc.Name)
		}
		if bc.Kind == types.BCMixed && (bc.Theta < 0 || bc.Theta > 1) {
			return nil, configErr("BCs", "clause [%s] theta %v outside [0,1]", bc.Name, bc.Theta)
		}
		if prev := be.byEdge[bc.Edge]; prev != -1 {
			return nil, configErr("BCs", "clauses [%s] and [%s] both claim the %s edge",
				clauses[prev].Name, bc.Name, bc.Edge)
		}
		be.byEdge[bc.Edge] = i
	}
	for _, e := range []types.EdgeTag{types.Left, types.Right, types.Bottom, types.Top} {
		if be.byEdge[e] == -1 {
			return nil, configErr("BCs", "the %s edge has no boundary condition", e)
		}
	}
	return
}

// ClausesFromParams converts the YAML clause list into resolved form
func ClausesFromParams(specs []InputParameters.BoundarySpec) (clauses []BCClause, err error) {
	clauses = make([]BCClause, len(specs))
	for i, bs := range specs {
		kind, edge, rerr := bs.Resolve()
		if rerr != nil {
			return nil, configErr("BCs", "%s", rerr)
		}
		clauses[i] = BCClause{
			Name:  bs.Name,
			Kind:  kind,
			Edge:  edge,
			Value: bs.Value,
			Flux:  bs.Flux,
			Theta: bs.Theta,
		}
	}
	return
}

// ResolvedBoundary carries boundary collocation points with their
// governing clause already applied, one row per point
type ResolvedBoundary struct {
	X            utils.Matrix // N x 3, columns (x,y,t)
	Theta        utils.Vector // dirichlet fraction per point
	Value, Flux  utils.Vector // targets per point
	Nx, Ny       utils.Vector // outward unit normal per point
	ClauseOf     []int        // clause index per point, for reporting
	CornerRetags int          // points handed to an earlier declared clause at a corner
}

func (rb ResolvedBoundary) Len() int {
	r, _ := rb.X.Dims()
	return r
}

// Resolve pins each sampled point to its clause. A point landing on a
// corner belongs to two edges, the earlier declared clause wins
func (be *BoundaryEncoder) Resolve(set sampler.BoundarySet) (rb ResolvedBoundary) {
	var (
		n  = set.Len()
		xd = set.X.DataP
	)
	rb = ResolvedBoundary{
		X:        set.X,
		Theta:    utils.NewVector(n),
		Value:    utils.NewVector(n),
		Flux:     utils.NewVector(n),
		Nx:       utils.NewVector(n),
		Ny:       utils.NewVector(n),
		ClauseOf: make([]int, n),
	}
	for i := 0; i < n; i++ {
		var (
			x, y, t = xd[3*i], xd[3*i+1], xd[3*i+2]
			edge    = set.Edges[i]
			ci      = be.byEdge[edge]
		)
		if other, onCorner := be.cornerPartner(x, y, edge); onCorner {
			if oi := be.byEdge[other]; oi < ci {
				ci = oi
				edge = other
				rb.CornerRetags++
			}
		}
		bc := be.Clauses[ci]
		nx, ny := edge.Normal()
		rb.ClauseOf[i] = ci
		rb.Theta.DataP[i] = bc.theta()
		rb.Value.DataP[i] = bc.valueAt(x, y, t)
		rb.Flux.DataP[i] = bc.fluxAt(x, y, t)
		rb.Nx.DataP[i] = nx
		rb.Ny.DataP[i] = ny
	}
	return
}

// cornerPartner reports the other edge meeting at (x,y) when the point
// sits on a domain corner
func (be *BoundaryEncoder) cornerPartner(x, y float64, edge types.EdgeTag) (other types.EdgeTag, onCorner bool) {
	var (
		d   = be.dom
		tol = utils.NODETOL
		onX = x-d.XMin < tol || d.XMax-x < tol
		onY = y-d.YMin < tol || d.YMax-y < tol
	)
	if !(onX && onY) {
		return
	}
	onCorner = true
	switch edge {
	case types.Left, types.Right:
		if y-d.YMin < tol {
			other = types.Bottom
		} else {
			other = types.Top
		}
	default:
		if x-d.XMin < tol {
			other = types.Left
		} else {
			other = types.Right
		}
	}
	return
}
