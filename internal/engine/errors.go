package engine

import "errors"

// Sentinel errors returned by simulations. Callers distinguish them with
// errors.Is to map onto transport status codes.
var (
	// ErrInvalidConfig marks a rule configuration that fails validation.
	ErrInvalidConfig = errors.New("invalid rule configuration")

	// ErrInsufficientHistory marks a series too short to seat the rule's
	// rolling statistics before the requested window.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrEmptyWindow marks a requested window with no overlapping trading
	// days across the inputs.
	ErrEmptyWindow = errors.New("empty evaluation window")
)
