package utils

import (
	"fmt"
	"math"
	"runtime"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v)
	case float32:
		return math.IsNaN(float64(v))
	case []float64:
		for _, f := range v {
			if math.IsNaN(f) {
				return true
			}
		}
	case []float32:
		for _, f := range v {
			if math.IsNaN(float64(f)) {
				return true
			}
		}
	case Matrix:
		return IsNan(v.DataP)
	case []Matrix:
		for n := range v {
			if IsNan(v[n].DataP) {
				return true
			}
		}
	case Vector:
		return IsNan(v.DataP)
	}
	return false
}

// HasNonFinite reports NaN or Inf anywhere in A. Residual and loss paths
// must reject both, not just NaN: an overflowing exponent shows up as Inf
// one step before it becomes NaN.
func HasNonFinite(A any) bool {
	nonFinite := func(f float64) bool {
		return math.IsNaN(f) || math.IsInf(f, 0)
	}
	switch v := A.(type) {
	case float64:
		return nonFinite(v)
	case []float64:
		for _, f := range v {
			if nonFinite(f) {
				return true
			}
		}
	case Matrix:
		return HasNonFinite(v.DataP)
	case []Matrix:
		for n := range v {
			if HasNonFinite(v[n].DataP) {
				return true
			}
		}
	case Vector:
		return HasNonFinite(v.DataP)
	}
	return false
}
