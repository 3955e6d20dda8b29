package metric

import "errors"

// Sentinel errors for lifecycle violations callers may need to handle
// differently.
var (
	// ErrAccumulated indicates Update was called after Accumulate
	// without an intervening Reset.
	ErrAccumulated = errors.New("metric: already accumulated, Reset before updating")

	// ErrNotAccumulated indicates results were requested before
	// Accumulate.
	ErrNotAccumulated = errors.New("metric: Accumulate has not been called")
)
