package Transport2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonitor(t *testing.T) {
	{ // Fresh monitor reports +Inf floor and change
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 5)
		assert.True(t, math.IsInf(m.BestLoss(), 1))
		assert.True(t, math.IsInf(m.RelChange(), 1))
	}
	{ // A flat plateau converges after Patience stalled window pairs
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 5)
		for k := 1; k <= 11; k++ {
			assert.Equal(t, Continue, m.Observe(1.0), "observation %d", k)
		}
		// Ring filled at 10, stalls reach Patience on the 12th
		assert.Equal(t, Converged, m.Observe(1.0))
		assert.Equal(t, 1.0, m.BestLoss())
		assert.True(t, m.RelChange() < 1.e-6)
	}
	{ // A steadily decaying loss never stalls
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 5)
		loss := 1.0
		for k := 0; k < 50; k++ {
			assert.Equal(t, Continue, m.Observe(loss))
			loss *= 0.9
		}
	}
	{ // Blowing past the historical floor by the factor is divergence
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 5)
		for k := 0; k < 3; k++ {
			assert.Equal(t, Continue, m.Observe(1.0))
		}
		assert.Equal(t, Diverged, m.Observe(2.e4))
	}
	{ // A zero floor disables the ratio test instead of tripping it
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 5)
		assert.Equal(t, Continue, m.Observe(0))
		assert.Equal(t, Continue, m.Observe(1.e300))
	}
	{ // Non finite losses only trip after an unbroken streak
		m := NewMonitor(5, 1.e-6, 3, 1.e4, 3)
		nan := math.NaN()
		assert.Equal(t, Continue, m.Observe(nan))
		assert.Equal(t, Continue, m.Observe(math.Inf(1)))
		assert.Equal(t, 2, m.NonFiniteStreak())
		assert.Equal(t, Continue, m.Observe(0.5)) // finite value resets the streak
		assert.Equal(t, 0, m.NonFiniteStreak())
		assert.Equal(t, Continue, m.Observe(nan))
		assert.Equal(t, Continue, m.Observe(nan))
		assert.Equal(t, Unstable, m.Observe(nan))
	}
	{ // Snapshot/Restore continues the identical verdict stream
		var (
			m1  = NewMonitor(4, 1.e-3, 2, 1.e4, 5)
			seq = []float64{1, 0.9, 0.85, 0.84, 0.838, 0.8375}
		)
		for _, v := range seq {
			m1.Observe(v)
		}
		st := m1.Snapshot()
		m2 := NewMonitor(4, 1.e-3, 2, 1.e4, 5)
		assert.NoError(t, m2.Restore(st))

		tail := []float64{0.8374, 0.8374, 0.8373, 0.8373, 0.8373, 0.8373, 0.8373}
		for i, v := range tail {
			assert.Equal(t, m1.Observe(v), m2.Observe(v), "tail %d", i)
			assert.Equal(t, m1.BestLoss(), m2.BestLoss())
			assert.Equal(t, m1.RelChange(), m2.RelChange())
		}
	}
	{ // Restoring after a snapshot must not alias the donor's ring
		m1 := NewMonitor(3, 1.e-6, 2, 1.e4, 5)
		for k := 0; k < 6; k++ {
			m1.Observe(float64(k + 1))
		}
		st := m1.Snapshot()
		saved := append([]float64{}, st.Ring...)
		m1.Observe(7)
		assert.Equal(t, saved, st.Ring)
	}
	{ // An oversized ring is refused
		m := NewMonitor(3, 1.e-6, 2, 1.e4, 5)
		assert.Error(t, m.Restore(MonitorState{Ring: make([]float64, 7)}))
	}
}
