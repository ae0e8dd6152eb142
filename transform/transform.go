package transform

import "github.com/quantflow/tickflow/models"

// Processor is the contract a ProducerConsumer stage drives: given the
// next upstream event, produce the event to forward downstream (almost
// always the same event extended with one more Data entry) or an error,
// which is fatal to the owning stage.
//
// A Processor owns all of its state; the stage runtime calls Next
// sequentially from a single goroutine, so no internal locking is
// required.
type Processor interface {
	Next(event models.MarketEvent) (models.MarketEvent, error)
}

// Factory builds one Processor instance. The topology builder stores a
// Factory (a constructor closure over resolved options) per layer
// transform; materialization calls it once per stage instantiation.
type Factory func() (Processor, error)
