package transform

import (
	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
)

// Namer is optionally implemented by an Indicator that wants to control
// its own default output stream name (e.g. "SMA" so the pipeline
// generates "sma", "sma_1", ... on repeated use) instead of having one
// derived from its Go type name.
type Namer interface {
	Name() string
}

// Indicator is the user contract for a technical indicator: given the
// next upstream event, compute a value (or report that none is
// available yet, e.g. while warming up) or fail.
type Indicator interface {
	// Next consumes event and returns the indicator's value for it. A
	// nil value with a nil error means "no value yet" (e.g. an SMA
	// still accumulating its first window) and the event is forwarded
	// without a new entry.
	Next(event models.MarketEvent) (value interface{}, err error)
}

// IndicatorConfig names the input and output streams an Indicator is
// wired to.
type IndicatorConfig struct {
	// DataName is the stream the indicator reads its input series from,
	// recorded into the published IndicatorValue's DataName so that
	// IsNewBar, IsNewMarket and ExtractTime can follow the chain back to
	// the underlying bar or tick.
	DataName string
	// OutputName is the stream the computed value is published under.
	OutputName string
}

// NewIndicatorProcessor adapts an Indicator into a Processor, writing
// each computed value into event.Data[OutputName] as an
// models.IndicatorValue referencing DataName.
func NewIndicatorProcessor(cfg IndicatorConfig, ind Indicator) Factory {
	return func() (Processor, error) {
		if cfg.OutputName == "" {
			return nil, errors.New("indicator output name must not be empty")
		}
		return &indicatorProcessor{cfg: cfg, ind: ind}, nil
	}
}

type indicatorProcessor struct {
	cfg IndicatorConfig
	ind Indicator
}

func (p *indicatorProcessor) Next(event models.MarketEvent) (models.MarketEvent, error) {
	value, err := p.ind.Next(event)
	if err != nil {
		return event, errors.Wrapf(ErrIndicatorFailed, "%s: %v", p.cfg.OutputName, err)
	}
	if value == nil {
		return event, nil
	}
	return event.With(p.cfg.OutputName, models.IndicatorValue{
		Value:    value,
		DataName: p.cfg.DataName,
	}), nil
}
