package pipeline

import "github.com/pkg/errors"

// Configuration errors are raised at the builder call site that caused
// them (design note: unlike a runtime data error, these are always
// detected before Stream() hands back a materializable PipelineSpec).
var (
	// ErrNoFeed is returned by Stream when the pipeline has no AddData
	// call at all.
	ErrNoFeed = errors.New("pipeline has no data feed")
	// ErrDuplicateFeed is returned when AddData is called more than
	// once in the same pipeline, whether or not the stream name
	// repeats: the core admits exactly one feed.
	ErrDuplicateFeed = errors.New("duplicate feed name")
	// ErrUnknownStream is returned when a transform references a stream
	// name that nothing upstream of it produces.
	ErrUnknownStream = errors.New("unknown stream name")
	// ErrDuplicateName is returned when two nodes in the same pipeline
	// are given (or default to) the same output stream name.
	ErrDuplicateName = errors.New("duplicate output name")
	// ErrEmptyLayer is returned by AddIndicatorsLayer when called with
	// zero indicator specs.
	ErrEmptyLayer = errors.New("indicator layer must contain at least one indicator")
	// ErrMissingRequiredOption is returned when a node is built without
	// a value an option was required to supply.
	ErrMissingRequiredOption = errors.New("missing required option")
)
