package Transport2D

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMassAudit(t *testing.T) {
	var (
		ip  = smallParams()
		ctx = context.Background()
	)
	ip.MaxIterations = 5
	c, err := NewTransport(ip, false)
	assert.NoError(t, err)
	_, err = c.Train(ctx, nil)
	assert.NoError(t, err)

	{ // The lattice quadrature recovers the domain area
		ma, aerr := c.AuditMass(12, []float64{0, 0.5, 1})
		assert.NoError(t, aerr)
		assert.Equal(t, 3, len(ma.Mass))
		assert.True(t, near(ma.Quad.TotalArea(), c.Dom.Area(), 1.e-10))
		for _, m := range ma.Mass {
			assert.False(t, math.IsNaN(m) || math.IsInf(m, 0))
		}
		drift := ma.Drift()
		assert.True(t, drift >= 0 && !math.IsNaN(drift))
		assert.NotEmpty(t, ma.String())
	}
	{ // Times outside the trained window are refused
		_, aerr := c.AuditMass(12, []float64{0, 2})
		assert.Error(t, aerr)
	}
	{ // Degenerate lattices are refused
		_, aerr := c.AuditMass(1, []float64{0})
		assert.Error(t, aerr)
		_, aerr = c.AuditMass(12, nil)
		assert.Error(t, aerr)
	}
}
