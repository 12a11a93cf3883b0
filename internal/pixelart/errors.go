package pixelart

import "errors"

// Error kinds the core raises. Propagation policy: each error aborts
// the conversion and is returned to the caller unchanged; the core
// never logs and never retries.
var (
	// ErrInvalidDimensions: grid or image dimensions are zero, or
	// cols > image width, or rows > image height.
	ErrInvalidDimensions = errors.New("pixelart: invalid dimensions")

	// ErrInvalidParameter: palette size < 1 for an extractor that
	// requires one, or another out-of-range constructor argument.
	ErrInvalidParameter = errors.New("pixelart: invalid parameter")

	// ErrEmptyInput: an extractor was invoked with zero pixels.
	ErrEmptyInput = errors.New("pixelart: empty input")

	// ErrOutOfMemory: allocation failure during tree or output buffer
	// construction.
	ErrOutOfMemory = errors.New("pixelart: out of memory")

	// ErrProcessing is the catch-all for internal invariant violations
	// surfaced to the caller (e.g. a zero-sized cell, which cannot
	// occur for a well-constructed Grid).
	ErrProcessing = errors.New("pixelart: processing error")
)
