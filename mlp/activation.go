package mlp

import (
	"math"

	"github.com/hydronet/gopinn/types"
)

// evalActivation fills the value and derivative tables of the activation at
// each element of z. Tables d1..d3 may be nil when the caller does not need
// that order. All supported activations are smooth: the collocation residual
// consumes second derivatives of the network, and backpropagation through
// those channels consumes the third.
func evalActivation(kind types.ActivationType, z, sig, d1, d2, d3 []float64) {
	switch kind {
	case types.Tanh:
		for i, zv := range z {
			s := math.Tanh(zv)
			sig[i] = s
			if d1 == nil {
				continue
			}
			sp := 1. - s*s
			d1[i] = sp
			if d2 == nil {
				continue
			}
			spp := -2. * s * sp
			d2[i] = spp
			if d3 != nil {
				d3[i] = -2. * (sp*sp + s*spp)
			}
		}
	case types.Sigmoid:
		for i, zv := range z {
			s := 1. / (1. + math.Exp(-zv))
			sig[i] = s
			if d1 == nil {
				continue
			}
			sp := s * (1. - s)
			d1[i] = sp
			if d2 == nil {
				continue
			}
			spp := sp * (1. - 2.*s)
			d2[i] = spp
			if d3 != nil {
				d3[i] = spp*(1.-2.*s) - 2.*sp*sp
			}
		}
	case types.Sin:
		for i, zv := range z {
			sig[i] = math.Sin(zv)
			if d1 == nil {
				continue
			}
			c := math.Cos(zv)
			d1[i] = c
			if d2 == nil {
				continue
			}
			d2[i] = -sig[i]
			if d3 != nil {
				d3[i] = -c
			}
		}
	case types.Softplus:
		for i, zv := range z {
			// log1p keeps the large-z branch from overflowing
			if zv > 0 {
				sig[i] = zv + math.Log1p(math.Exp(-zv))
			} else {
				sig[i] = math.Log1p(math.Exp(zv))
			}
			if d1 == nil {
				continue
			}
			s := 1. / (1. + math.Exp(-zv))
			d1[i] = s
			if d2 == nil {
				continue
			}
			sp := s * (1. - s)
			d2[i] = sp
			if d3 != nil {
				d3[i] = sp * (1. - 2.*s)
			}
		}
	case types.Swish:
		for i, zv := range z {
			s := 1. / (1. + math.Exp(-zv))
			sig[i] = zv * s
			if d1 == nil {
				continue
			}
			sp := s * (1. - s)
			spp := sp * (1. - 2.*s)
			d1[i] = s + zv*sp
			if d2 == nil {
				continue
			}
			d2[i] = 2.*sp + zv*spp
			if d3 != nil {
				sppp := spp*(1.-2.*s) - 2.*sp*sp
				d3[i] = 3.*spp + zv*sppp
			}
		}
	default:
		panic("unsupported activation: " + kind.String())
	}
}
