// Package feed provides DataFeed, the Producer stage's only upstream
// dependency, plus two reference implementations: an in-memory feed for
// tests and fixtures, and a CSV feed for replaying recorded tick data.
package feed

import (
	"io"

	"github.com/quantflow/tickflow/models"
)

// DataFeed yields ticks in increasing time order until it is exhausted,
// at which point Next returns io.EOF. Any other error is fatal to the
// owning stage.
type DataFeed interface {
	Next() (models.Tick, error)
}

// Factory builds one DataFeed instance, analogous to transform.Factory:
// the topology builder stores a Factory and the stage runtime calls it
// once per materialization.
type Factory func() (DataFeed, error)

// EOF re-exports io.EOF so callers implementing DataFeed don't need to
// import io solely for the sentinel value.
var EOF = io.EOF
