package utils

import (
	"fmt"
	"io"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
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

func isNonFinite(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

// IsNonFinite reports whether A holds a NaN or Inf anywhere
func IsNonFinite(A any) bool {
	_, found := FirstNonFinite(A)
	return found
}

// FirstNonFinite returns the first NaN or Inf found in A
func FirstNonFinite(A any) (val float64, found bool) {
	switch v := A.(type) {
	case float64:
		return v, isNonFinite(v)
	case []float64:
		for _, f := range v {
			if isNonFinite(f) {
				return f, true
			}
		}
	case *mat.VecDense:
		if v == nil {
			return
		}
		return FirstNonFinite(VecGetF64(v))
	case mat.Vector:
		return FirstNonFinite(VecGetF64(v))
	case mat.Matrix:
		nr, nc := v.Dims()
		for i := 0; i < nr; i++ {
			for j := 0; j < nc; j++ {
				if f := v.At(i, j); isNonFinite(f) {
					return f, true
				}
			}
		}
	}
	return
}

// NonFiniteError wraps ErrNonFinite with the name and value of the offending
// quantity, it is nil when A is finite
func NonFiniteError(quantity string, A any) error {
	val, found := FirstNonFinite(A)
	if !found {
		return nil
	}
	return fmt.Errorf("%s = %v: %w", quantity, val, ErrNonFinite)
}

// RankWriter only passes text through on rank 0, all other ranks are silent
func RankWriter(w io.Writer, rank int) io.Writer {
	if rank != 0 || w == nil {
		return io.Discard
	}
	return w
}
