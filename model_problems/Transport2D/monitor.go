package Transport2D

import (
	"fmt"
	"math"
)

// Verdict is the monitor's decision after observing one loss value
type Verdict uint8

const (
	Continue Verdict = iota
	Converged
	Diverged
	Unstable
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "Continue"
	case Converged:
		return "Converged"
	case Diverged:
		return "Diverged"
	case Unstable:
		return "Unstable"
	}
	return "Unknown"
}

// Monitor watches the total loss stream. Convergence compares the means
// of two adjacent windows and requires the relative change to stay under
// Tol for Patience consecutive observations. Divergence compares the
// loss against the historical floor. Instability counts consecutive non
// finite losses
type Monitor struct {
	Window           int
	Tol              float64
	Patience         int
	DivergenceFactor float64
	MaxNonFinite     int

	ring      []float64 // last 2*Window finite losses
	seen      int
	best      float64
	stalls    int
	nonFinite int
	relChange float64
}

func NewMonitor(window int, tol float64, patience int, divergenceFactor float64, maxNonFinite int) *Monitor {
	return &Monitor{
		Window:           window,
		Tol:              tol,
		Patience:         patience,
		DivergenceFactor: divergenceFactor,
		MaxNonFinite:     maxNonFinite,
		ring:             make([]float64, 0, 2*window),
		best:             math.Inf(1),
		relChange:        math.Inf(1),
	}
}

func (m *Monitor) Observe(loss float64) (v Verdict) {
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		m.nonFinite++
		if m.nonFinite >= m.MaxNonFinite {
			return Unstable
		}
		return Continue
	}
	m.nonFinite = 0
	m.seen++
	if loss < m.best {
		m.best = loss
	}
	if len(m.ring) == cap(m.ring) {
		copy(m.ring, m.ring[1:])
		m.ring[len(m.ring)-1] = loss
	} else {
		m.ring = append(m.ring, loss)
	}
	// best can be zero on a perfectly fit problem, the ratio test only
	// applies to a positive floor
	if m.best > 0 && loss > m.DivergenceFactor*m.best {
		return Diverged
	}
	if len(m.ring) == 2*m.Window {
		var prev, last float64
		for i := 0; i < m.Window; i++ {
			prev += m.ring[i]
			last += m.ring[m.Window+i]
		}
		prev /= float64(m.Window)
		last /= float64(m.Window)
		m.relChange = math.Abs(last-prev) / math.Max(math.Abs(prev), 1.e-12)
		if m.relChange < m.Tol {
			m.stalls++
			if m.stalls >= m.Patience {
				return Converged
			}
		} else {
			m.stalls = 0
		}
	}
	return Continue
}

// BestLoss is the historical minimum of the finite losses observed
func (m *Monitor) BestLoss() float64 { return m.best }

// RelChange is the relative change between the two most recent windows,
// +Inf until two full windows have been observed
func (m *Monitor) RelChange() float64 { return m.relChange }

// NonFiniteStreak is the current run of consecutive non finite losses
func (m *Monitor) NonFiniteStreak() int { return m.nonFinite }

// MonitorState is the serializable state needed to resume monitoring
// mid run. Best travels with the ring in the checkpoint binary section
// since JSON cannot carry +Inf
type MonitorState struct {
	Ring      []float64
	Best      float64
	Seen      int
	Stalls    int
	NonFinite int
}

func (m *Monitor) Snapshot() MonitorState {
	ring := make([]float64, len(m.ring))
	copy(ring, m.ring)
	return MonitorState{
		Ring:      ring,
		Best:      m.best,
		Seen:      m.seen,
		Stalls:    m.stalls,
		NonFinite: m.nonFinite,
	}
}

func (m *Monitor) Restore(st MonitorState) error {
	if len(st.Ring) > 2*m.Window {
		return fmt.Errorf("monitor ring of %d exceeds the window pair %d", len(st.Ring), 2*m.Window)
	}
	m.ring = m.ring[:0]
	m.ring = append(m.ring, st.Ring...)
	m.best = st.Best
	m.seen = st.Seen
	m.stalls = st.Stalls
	m.nonFinite = st.NonFinite
	return nil
}
