package feed

import (
	"io"

	"github.com/quantflow/tickflow/models"
)

// memoryFeed replays a fixed, pre-built slice of ticks. Useful for tests
// and for small fixture-driven backtests that don't warrant a file.
type memoryFeed struct {
	ticks []models.Tick
	pos   int
}

// NewMemoryFeed returns a Factory producing independent replay cursors
// over ticks. Each call to the Factory starts a fresh cursor at
// position 0, so the same fixture can back more than one materialized
// pipeline.
func NewMemoryFeed(ticks []models.Tick) Factory {
	return func() (DataFeed, error) {
		cp := make([]models.Tick, len(ticks))
		copy(cp, ticks)
		return &memoryFeed{ticks: cp}, nil
	}
}

func (f *memoryFeed) Next() (models.Tick, error) {
	if f.pos >= len(f.ticks) {
		return models.Tick{}, io.EOF
	}
	t := f.ticks[f.pos]
	f.pos++
	return t, nil
}
