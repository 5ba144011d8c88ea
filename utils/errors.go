package utils

import "errors"

var (
	// ErrNonConvergence is returned when a linear or nonlinear solve fails to
	// reach its tolerance.
	ErrNonConvergence = errors.New("utils: solver did not converge")

	// ErrNonFinite reports a NaN or Inf in a computed quantity.
	ErrNonFinite = errors.New("utils: non-finite value")
)
