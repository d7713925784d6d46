package Transport2D

import (
	"github.com/hydronet/gopinn/mlp"
	"github.com/hydronet/gopinn/sampler"
	"github.com/hydronet/gopinn/utils"
)

// PDEResidual evaluates the strong form residual per collocation point:
//
//	R = Ct + vx*Cx + vy*Cy - D*(Cxx + Cyy) - S
//
// The derivatives come from the jet, the coefficients were resolved at
// sampling time
func PDEResidual(jet *mlp.Jet, set sampler.InteriorSet, R utils.Vector) {
	var (
		n                      = set.Len()
		ct, cx, cy, cxx, cyy   = jet.Ct.DataP, jet.Cx.DataP, jet.Cy.DataP, jet.Cxx.DataP, jet.Cyy.DataP
		diff, vx, vy, src, out = set.D.DataP, set.Vx.DataP, set.Vy.DataP, set.S.DataP, R.DataP
	)
	for i := 0; i < n; i++ {
		out[i] = ct[i] + vx[i]*cx[i] + vy[i]*cy[i] - diff[i]*(cxx[i]+cyy[i]) - src[i]
	}
}

/*
	Each term of the composite loss is a mean square over its own batch:

		L_k = (1/B_k) sum_i r_i^2

	The term functions below fill the residual buffer, return the local
	sum of squares, and seed the jet adjoint with dL/d(channel). The
	caller folds the loss weight and the full batch denominator into
	scale = 2*W_k/B_k, so sharded backprops sum to the full gradient.
*/

func physicsTerm(jet *mlp.Jet, set sampler.InteriorSet, adj mlp.Adjoint, scale float64, R utils.Vector) (sumsq float64) {
	PDEResidual(jet, set, R)
	var (
		n                = set.Len()
		aT, aX, aY       = adj[mlp.ChT].DataP, adj[mlp.ChX].DataP, adj[mlp.ChY].DataP
		aXX, aYY         = adj[mlp.ChXX].DataP, adj[mlp.ChYY].DataP
		diff, vx, vy, rD = set.D.DataP, set.Vx.DataP, set.Vy.DataP, R.DataP
	)
	for i := 0; i < n; i++ {
		r := rD[i]
		sumsq += r * r
		g := scale * r
		aT[i] = g
		aX[i] = g * vx[i]
		aY[i] = g * vy[i]
		aXX[i] = -g * diff[i]
		aYY[i] = -g * diff[i]
	}
	return
}

func boundaryTerm(jet *mlp.Jet, rb ResolvedBoundary, adj mlp.Adjoint, scale float64, R utils.Vector) (sumsq float64) {
	var (
		n          = rb.Len()
		c, cx, cy  = jet.C.DataP, jet.Cx.DataP, jet.Cy.DataP
		aV, aX, aY = adj[mlp.ChVal].DataP, adj[mlp.ChX].DataP, adj[mlp.ChY].DataP
	)
	for i := 0; i < n; i++ {
		var (
			th     = rb.Theta.DataP[i]
			fl     = 1 - th
			nx, ny = rb.Nx.DataP[i], rb.Ny.DataP[i]
		)
		r := th*(c[i]-rb.Value.DataP[i]) + fl*(cx[i]*nx+cy[i]*ny-rb.Flux.DataP[i])
		R.DataP[i] = r
		sumsq += r * r
		g := scale * r
		aV[i] = g * th
		aX[i] = g * fl * nx
		aY[i] = g * fl * ny
	}
	return
}

// valueTerm serves both the initial condition and the observed data
// misfit, which only touch the value channel
func valueTerm(jet *mlp.Jet, target utils.Vector, adj mlp.Adjoint, scale float64, R utils.Vector) (sumsq float64) {
	var (
		n    = target.Len()
		c    = jet.C.DataP
		aV   = adj[mlp.ChVal].DataP
		d    = target.DataP
		rOut = R.DataP
	)
	for i := 0; i < n; i++ {
		r := c[i] - d[i]
		rOut[i] = r
		sumsq += r * r
		aV[i] = scale * r
	}
	return
}
