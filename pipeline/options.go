package pipeline

import (
	"time"

	"github.com/quantflow/tickflow/edge"
	"github.com/quantflow/tickflow/transform"
)

// DataOption configures a DataNode beyond its required name and feed.
type DataOption func(*DataNode)

// WithDemandWindow overrides the default demand window a Producer uses
// to pace how many ticks it pulls from its feed per cycle.
func WithDemandWindow(w edge.DemandWindow) DataOption {
	return func(d *DataNode) { d.Demand = w }
}

// ResampleOption configures a resample transform beyond its required
// input stream and timeframe.
type ResampleOption func(*transform.ResampleConfig)

// ResampleOutputName overrides the default "<data>_<timeframe>" output
// stream name.
func ResampleOutputName(name string) ResampleOption {
	return func(c *transform.ResampleConfig) { c.OutputName = name }
}

func WithPriceType(pt transform.PriceType) ResampleOption {
	return func(c *transform.ResampleConfig) { c.PriceType = pt }
}

func WithFakeVolume(enabled bool) ResampleOption {
	return func(c *transform.ResampleConfig) { c.FakeVolume = enabled }
}

func WithMarketOpen(timeOfDay time.Duration) ResampleOption {
	return func(c *transform.ResampleConfig) { c.MarketOpen = timeOfDay }
}

func WithWeeklyOpen(day time.Weekday) ResampleOption {
	return func(c *transform.ResampleConfig) { c.WeeklyOpen = day }
}

// IndicatorOption configures an indicator transform beyond its required
// input stream and implementation.
type IndicatorOption func(*transform.IndicatorConfig)

// IndicatorOutputName overrides the default auto-generated output stream
// name.
func IndicatorOutputName(name string) IndicatorOption {
	return func(c *transform.IndicatorConfig) { c.OutputName = name }
}

// IndicatorSpec describes one branch of an AddIndicatorsLayer fan-out.
type IndicatorSpec struct {
	DataName  string
	Indicator transform.Indicator
	Options   []IndicatorOption
}
