package transform

import "github.com/pkg/errors"

// Runtime data errors, per spec.md §7: raised inside a stage and fatal
// to it. They are sentinel base errors so callers can test with
// errors.Is/errors.Cause after a stage's run loop wraps them with
// additional context (the offending stream name, the stage name, ...).
var (
	// ErrUnexpectedDataShape is returned when a transform expected one
	// message shape under a data name (e.g. a Tick) and found another.
	ErrUnexpectedDataShape = errors.New("unexpected data shape")
	// ErrMissingPrice is returned by the resampler when a tick has
	// neither bid nor ask.
	ErrMissingPrice = errors.New("missing price: tick has neither bid nor ask")
	// ErrIndicatorFailed wraps any error returned by a user-supplied
	// Indicator's Next method.
	ErrIndicatorFailed = errors.New("indicator failed")
)
