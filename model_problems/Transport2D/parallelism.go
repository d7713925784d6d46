package Transport2D

import (
	"runtime"

	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/utils"
)

// SetParallelDegree picks the worker count. A zero limit selects one
// worker per CPU, capped so every worker owns at least one interior
// point
func (c *Transport) SetParallelDegree(procLimit, nPoints int) {
	if procLimit != 0 {
		c.ParallelDegree = procLimit
	} else {
		c.ParallelDegree = runtime.NumCPU()
	}
	runtime.GOMAXPROCS(runtime.NumCPU())
	if c.ParallelDegree > nPoints {
		c.ParallelDegree = 1
	}
	c.pmInterior = utils.NewPartitionMap(c.ParallelDegree, c.Params.NumInterior)
	c.pmBoundary = utils.NewPartitionMap(c.ParallelDegree, c.Params.NumBoundary)
	c.pmInitial = utils.NewPartitionMap(c.ParallelDegree, c.Params.NumInitial)
}

// trainShards holds the per worker views of the collocation sets plus
// the per worker jet, adjoint, residual, and gradient buffers. The point
// counts are fixed for a run, so the buffers live across refreshes
type trainShards struct {
	inter []sampler.InteriorSet
	bnd   []ResolvedBoundary
	init  []sampler.InitialSet
	initC []utils.Vector // initial condition targets per shard

	jetI, jetB, jet0 []*mlp.Jet
	adjI, adjB, adj0 []mlp.Adjoint
	resI, resB, res0 []utils.Vector
	grads            []*mlp.Gradient
	sumsq            [][4]float64 // local sums of squares per term
}

func (c *Transport) newTrainShards() (sh *trainShards) {
	var (
		NP = c.ParallelDegree
	)
	sh = &trainShards{
		inter: make([]sampler.InteriorSet, NP),
		bnd:   make([]ResolvedBoundary, NP),
		init:  make([]sampler.InitialSet, NP),
		initC: make([]utils.Vector, NP),
		jetI:  make([]*mlp.Jet, NP),
		jetB:  make([]*mlp.Jet, NP),
		jet0:  make([]*mlp.Jet, NP),
		adjI:  make([]mlp.Adjoint, NP),
		adjB:  make([]mlp.Adjoint, NP),
		adj0:  make([]mlp.Adjoint, NP),
		resI:  make([]utils.Vector, NP),
		resB:  make([]utils.Vector, NP),
		res0:  make([]utils.Vector, NP),
		grads: make([]*mlp.Gradient, NP),
		sumsq: make([][4]float64, NP),
	}
	for np := 0; np < NP; np++ {
		var (
			nI = c.pmInterior.GetBucketDimension(np)
			nB = c.pmBoundary.GetBucketDimension(np)
			n0 = c.pmInitial.GetBucketDimension(np)
		)
		sh.adjI[np] = newAdjoint(nI, mlp.ChX, mlp.ChY, mlp.ChT, mlp.ChXX, mlp.ChYY)
		sh.adjB[np] = newAdjoint(nB, mlp.ChVal, mlp.ChX, mlp.ChY)
		sh.adj0[np] = newAdjoint(n0, mlp.ChVal)
		sh.resI[np] = utils.NewVector(nI)
		sh.resB[np] = utils.NewVector(nB)
		sh.res0[np] = utils.NewVector(n0)
		sh.grads[np] = c.Net.NewGradient()
	}
	return
}

// newAdjoint allocates B x 1 seed matrices for the named channels only,
// inactive channels stay empty and Backprop skips them
func newAdjoint(b int, channels ...int) (adj mlp.Adjoint) {
	for _, ch := range channels {
		adj[ch] = utils.NewMatrix(b, 1)
	}
	return
}

// shardSets cuts freshly drawn collocation sets into per worker views.
// Point matrices are copied row ranges, the coefficient and target
// vectors alias the parent storage
func (c *Transport) shardSets(interior sampler.InteriorSet, rb ResolvedBoundary,
	initial sampler.InitialSet, initC utils.Vector) {
	var (
		NP = c.ParallelDegree
		sh = c.shards
	)
	for np := 0; np < NP; np++ {
		iMin, iMax := c.pmInterior.GetBucketRange(np)
		sh.inter[np] = sampler.InteriorSet{
			X:  interior.X.SliceRows(utils.NewRange(iMin, iMax-1)),
			D:  subVector(interior.D, iMin, iMax),
			Vx: subVector(interior.Vx, iMin, iMax),
			Vy: subVector(interior.Vy, iMin, iMax),
			S:  subVector(interior.S, iMin, iMax),
		}
		bMin, bMax := c.pmBoundary.GetBucketRange(np)
		sh.bnd[np] = ResolvedBoundary{
			X:        rb.X.SliceRows(utils.NewRange(bMin, bMax-1)),
			Theta:    subVector(rb.Theta, bMin, bMax),
			Value:    subVector(rb.Value, bMin, bMax),
			Flux:     subVector(rb.Flux, bMin, bMax),
			Nx:       subVector(rb.Nx, bMin, bMax),
			Ny:       subVector(rb.Ny, bMin, bMax),
			ClauseOf: rb.ClauseOf[bMin:bMax],
		}
		zMin, zMax := c.pmInitial.GetBucketRange(np)
		sh.init[np] = sampler.InitialSet{
			X: initial.X.SliceRows(utils.NewRange(zMin, zMax-1)),
		}
		sh.initC[np] = subVector(initC, zMin, zMax)
	}
}

func subVector(v utils.Vector, min, max int) utils.Vector {
	return utils.NewVector(max-min, v.DataP[min:max])
}
