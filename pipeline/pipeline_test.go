package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantflow/tickflow/feed"
	"github.com/quantflow/tickflow/models"
)

type noopIndicator struct{}

func (noopIndicator) Next(models.MarketEvent) (interface{}, error) { return 1.0, nil }

func emptyFeed() feed.Factory {
	return feed.NewMemoryFeed(nil)
}

func TestStreamRejectsEmptyPipeline(t *testing.T) {
	_, err := New().Stream()
	assert.ErrorIs(t, err, ErrNoFeed)
}

func TestAddDataRejectsDuplicateName(t *testing.T) {
	p := New()
	p.AddData("eurusd", emptyFeed())
	p.AddData("eurusd", emptyFeed())
	_, err := p.Stream()
	assert.ErrorIs(t, err, ErrDuplicateFeed)
}

func TestAddDataRejectsSecondFeedEvenWithDistinctName(t *testing.T) {
	p := New()
	p.AddData("eurusd", emptyFeed())
	p.AddData("gbpusd", emptyFeed())
	_, err := p.Stream()
	assert.ErrorIs(t, err, ErrDuplicateFeed, "only one feed is supported per pipeline, regardless of name")
}

func TestIndicatorRejectsUnknownStream(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	agg := d.AddIndicatorsLayer(IndicatorSpec{DataName: "eurusd", Indicator: noopIndicator{}})
	agg.AddIndicator("ghost", noopIndicator{})
	_, err := p.Stream()
	assert.ErrorIs(t, err, ErrUnknownStream)
}

func TestResampleRejectsInvalidTimeframe(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	d.Resample("x9")
	_, err := p.Stream()
	require.Error(t, err)
}

func TestAddIndicatorsLayerRejectsEmptySpecs(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	bar := d.Resample("m5")
	bar.AddIndicatorsLayer()
	_, err := p.Stream()
	assert.ErrorIs(t, err, ErrEmptyLayer)
}

func TestDefaultIndicatorNamesNeverCollide(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	bar := d.Resample("m5")
	i1 := bar.AddIndicator(noopIndicator{})
	i2 := bar.AddIndicator(noopIndicator{})
	assert.NotEqual(t, i1.OutputName, i2.OutputName)

	spec, err := p.Stream()
	require.NoError(t, err)
	assert.Equal(t, 4, spec.Len()) // data, resample, indicator, indicator
}

func TestBuildsFanOutFanInLayer(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	bar := d.Resample("m5")
	agg := bar.AddIndicatorsLayer(
		IndicatorSpec{DataName: "eurusd_m5", Indicator: noopIndicator{}},
		IndicatorSpec{DataName: "eurusd_m5", Indicator: noopIndicator{}},
	)
	require.NotNil(t, agg)

	spec, err := p.Stream()
	require.NoError(t, err)

	var sawBroadcast, sawAggregate bool
	var indicatorCount int
	err = spec.Walk(func(n Node) error {
		switch n.(type) {
		case *BroadcastNode:
			sawBroadcast = true
		case *AggregateNode:
			sawAggregate = true
		case *IndicatorNode:
			indicatorCount++
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawBroadcast)
	assert.True(t, sawAggregate)
	assert.Equal(t, 2, indicatorCount)
}

func TestStreamSortsParentsBeforeChildren(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	bar := d.Resample("m5")
	bar.AddIndicator(noopIndicator{})

	spec, err := p.Stream()
	require.NoError(t, err)

	pos := map[ID]int{}
	i := 0
	_ = spec.Walk(func(n Node) error {
		pos[n.ID()] = i
		i++
		return nil
	})
	_ = spec.Walk(func(n Node) error {
		for _, c := range n.Children() {
			assert.Less(t, pos[n.ID()], pos[c.ID()])
		}
		return nil
	})
}

func TestDotIncludesEveryNode(t *testing.T) {
	p := New()
	d := p.AddData("eurusd", emptyFeed())
	d.Resample("m5")
	spec, err := p.Stream()
	require.NoError(t, err)
	dot := string(spec.Dot("test"))
	assert.Contains(t, dot, "digraph test")
	assert.Contains(t, dot, "data0")
	assert.Contains(t, dot, "resample1")
}

func TestStrategyMetadataIsCarriedButInert(t *testing.T) {
	p := New()
	p.AddData("eurusd", emptyFeed())
	p.AddStrategy("trend-follow").SetBalance(10000).SetCommission(0.001)
	spec, err := p.Stream()
	require.NoError(t, err)
	assert.Equal(t, "trend-follow", spec.StrategyName())
	assert.Equal(t, 10000.0, spec.Balance())
	assert.Equal(t, 0.001, spec.Commission())
}
