package scoring

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput    = errors.New("malformed validator csv input")
	ErrEmptyReferenceSet = errors.New("no historical records above the minimum-credits floor - avg_position cannot be computed")
	ErrNoRecords         = errors.New("no validator records for epoch")

	// ErrMultipleEpochs is a MalformedInput - one file must hold exactly one epoch
	ErrMultipleEpochs = fmt.Errorf("%w: file contains more than one epoch", ErrMalformedInput)
)
