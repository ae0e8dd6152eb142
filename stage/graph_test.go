package stage

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantflow/tickflow/feed"
	"github.com/quantflow/tickflow/indicator"
	"github.com/quantflow/tickflow/models"
	"github.com/quantflow/tickflow/pipeline"
	"github.com/quantflow/tickflow/transform"
)

func tickSeries(start time.Time, n int, step time.Duration) []models.Tick {
	out := make([]models.Tick, n)
	for i := 0; i < n; i++ {
		price := 1.10 + float64(i)*0.001
		out[i] = models.Tick{
			Time: start.Add(time.Duration(i) * step),
			Bid:  models.Float64(price),
			Ask:  models.Float64(price + 0.0002),
		}
	}
	return out
}

// collectorIndicator records every bar it sees and emits a constant.
type collectorIndicator struct {
	seen *[]models.MarketEvent
}

func (c collectorIndicator) Next(e models.MarketEvent) (interface{}, error) {
	*c.seen = append(*c.seen, e)
	return 1.0, nil
}

// drain materializes spec, runs it to completion while concurrently
// draining the consumer-side Events() channel (so the sink's own
// backpressure never deadlocks a large run), and returns every merged
// event it produced, in order.
func drain(t *testing.T, spec *pipeline.PipelineSpec) []models.MarketEvent {
	t.Helper()
	g, err := Materialize(spec, WithLogWriter(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	g.Start()

	var events []models.MarketEvent
	for evt := range g.Events() {
		events = append(events, evt)
	}
	require.NoError(t, g.Wait())
	return events
}

func TestProducerToResamplerEndToEnd(t *testing.T) {
	ticks := tickSeries(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 20, 10*time.Second)
	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(ticks))
	d.Resample("m1")
	spec, err := p.Stream()
	require.NoError(t, err)

	events := drain(t, spec)
	require.Len(t, events, 20, "one merged event per upstream tick, no drops or duplicates")

	var lastTime time.Time
	for _, e := range events {
		b := e.Data["eurusd_m1"].(models.Bar)
		assert.LessOrEqual(t, b.Low, b.Open)
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.GreaterOrEqual(t, b.High, b.Open)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.False(t, b.Time.Before(lastTime), "bar times must be non-decreasing")
		lastTime = b.Time
		_, hasTick := e.Data["eurusd"].(models.Tick)
		assert.True(t, hasTick, "the original tick is retained alongside the bar")
	}
}

func TestFanOutFanInEndToEnd(t *testing.T) {
	ticks := tickSeries(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 50, time.Second)
	var seenA, seenB []models.MarketEvent

	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(ticks))
	bar := d.Resample("m1")
	bar.AddIndicatorsLayer(
		pipeline.IndicatorSpec{DataName: "eurusd_m1", Indicator: collectorIndicator{seen: &seenA}},
		pipeline.IndicatorSpec{DataName: "eurusd_m1", Indicator: collectorIndicator{seen: &seenB}},
	)
	spec, err := p.Stream()
	require.NoError(t, err)
	events := drain(t, spec)

	assert.NotEmpty(t, seenA)
	assert.Equal(t, len(seenA), len(seenB))
	require.Len(t, events, 50)
	for _, e := range events {
		assert.Contains(t, e.Data, "collector_indicator")
		assert.Contains(t, e.Data, "collector_indicator_1")
	}
}

// TestFanOutFanInWithRealIndicators is scenario S3: a feed resampled to
// m5 bars fans out through two Add indicators and re-synchronizes,
// proving every merged event carries the bar and both disjoint
// indicator outputs.
func TestFanOutFanInWithRealIndicators(t *testing.T) {
	ticks := tickSeries(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 5, time.Minute)
	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(ticks))
	bar := d.Resample("m5")
	bar.AddIndicatorsLayer(
		pipeline.IndicatorSpec{DataName: "eurusd_m5", Indicator: &indicator.Add{DataName: "eurusd_m5", Delta: 10}},
		pipeline.IndicatorSpec{DataName: "eurusd_m5", Indicator: &indicator.Add{DataName: "eurusd_m5", Delta: 20}},
	)
	spec, err := p.Stream()
	require.NoError(t, err)
	events := drain(t, spec)

	require.Len(t, events, 5)
	for _, e := range events {
		b := e.Data["eurusd_m5"].(models.Bar)
		iv1 := e.Data["add"].(models.IndicatorValue)
		iv2 := e.Data["add_1"].(models.IndicatorValue)
		assert.InDelta(t, b.Close+10, iv1.Value, 1e-9)
		assert.InDelta(t, b.Close+20, iv2.Value, 1e-9)
	}
}

func TestEmptyFeedProducesNoDownstreamEvents(t *testing.T) {
	var seen []models.MarketEvent
	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(nil))
	bar := d.Resample("m1")
	bar.AddIndicator(collectorIndicator{seen: &seen})
	spec, err := p.Stream()
	require.NoError(t, err)
	events := drain(t, spec)
	assert.Empty(t, seen)
	assert.Empty(t, events)
}

func TestRuntimeErrorAbortsGraphAndPropagates(t *testing.T) {
	ticks := []models.Tick{{Time: time.Now()}} // no bid/ask -> ErrMissingPrice
	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(ticks))
	d.Resample("m1")
	spec, err := p.Stream()
	require.NoError(t, err)

	g, err := Materialize(spec, WithLogWriter(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	g.Start()
	err = g.Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, transform.ErrMissingPrice)
}

func TestStatsReportPerStageCounters(t *testing.T) {
	ticks := tickSeries(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), 10, time.Second)
	p := pipeline.New()
	d := p.AddData("eurusd", feed.NewMemoryFeed(ticks))
	d.Resample("t5")
	spec, err := p.Stream()
	require.NoError(t, err)

	g, err := Materialize(spec, WithLogWriter(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	g.Start()
	require.NoError(t, g.Wait())

	stats := g.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, int64(10), stats[0].Emitted)
}
