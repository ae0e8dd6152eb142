package pipeline

import (
	"github.com/quantflow/tickflow/edge"
	"github.com/quantflow/tickflow/feed"
	"github.com/quantflow/tickflow/transform"
)

// DataNode is a Producer: the pipeline's only source of events, wrapping
// a feed.DataFeed and wrapping each tick it reads into a MarketEvent
// under StreamName.
type DataNode struct {
	node
	StreamName string
	Feed       feed.Factory
	Demand     edge.DemandWindow
}

func (d *DataNode) Resample(timeframe string, opts ...ResampleOption) *ResampleNode {
	return d.p.newResample(d, d.StreamName, timeframe, opts...)
}

func (d *DataNode) AddIndicator(ind transform.Indicator, opts ...IndicatorOption) *IndicatorNode {
	return d.p.newIndicator(d, d.StreamName, ind, opts...)
}

func (d *DataNode) AddIndicatorsLayer(specs ...IndicatorSpec) *AggregateNode {
	return d.p.newLayer(d, specs...)
}

// ResampleNode is a ProducerConsumer wrapping a
// transform.TickToBarProcessor. Its OutputName is the stream subsequent
// nodes read bars from.
type ResampleNode struct {
	node
	OutputName string
	Config     transform.ResampleConfig
}

func (r *ResampleNode) Resample(timeframe string, opts ...ResampleOption) *ResampleNode {
	return r.p.newResample(r, r.OutputName, timeframe, opts...)
}

func (r *ResampleNode) AddIndicator(ind transform.Indicator, opts ...IndicatorOption) *IndicatorNode {
	return r.p.newIndicator(r, r.OutputName, ind, opts...)
}

func (r *ResampleNode) AddIndicatorsLayer(specs ...IndicatorSpec) *AggregateNode {
	return r.p.newLayer(r, specs...)
}

// IndicatorNode is a ProducerConsumer wrapping a transform.Indicator via
// transform.IndicatorProcessor.
type IndicatorNode struct {
	node
	OutputName string
	Config     transform.IndicatorConfig
	Indicator  transform.Indicator
}

func (i *IndicatorNode) AddIndicator(ind transform.Indicator, opts ...IndicatorOption) *IndicatorNode {
	return i.p.newIndicator(i, i.OutputName, ind, opts...)
}

func (i *IndicatorNode) AddIndicatorsLayer(specs ...IndicatorSpec) *AggregateNode {
	return i.p.newLayer(i, specs...)
}

// BroadcastNode is the fan-out stage AddIndicatorsLayer inserts ahead of
// a parallel layer. It has no state of its own: the stage runtime
// forwards each event it receives to every child subscription, demand
// permitting.
type BroadcastNode struct {
	node
}

// AggregateNode is the fan-in stage an indicator layer re-synchronizes
// through: it waits for the k-th event on every upstream branch and
// emits their MergeEvents union. Because a merge has no single
// "OutputName" of its own, further chaining names the stream to read
// from the merged set explicitly.
type AggregateNode struct {
	node
}

func (a *AggregateNode) Resample(dataName, timeframe string, opts ...ResampleOption) *ResampleNode {
	return a.p.newResample(a, dataName, timeframe, opts...)
}

func (a *AggregateNode) AddIndicator(dataName string, ind transform.Indicator, opts ...IndicatorOption) *IndicatorNode {
	return a.p.newIndicator(a, dataName, ind, opts...)
}

func (a *AggregateNode) AddIndicatorsLayer(specs ...IndicatorSpec) *AggregateNode {
	return a.p.newLayer(a, specs...)
}
