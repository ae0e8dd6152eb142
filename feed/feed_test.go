package feed

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantflow/tickflow/models"
)

func TestMemoryFeedReplaysInOrderThenEOF(t *testing.T) {
	ticks := []models.Tick{
		{Time: time.Unix(1, 0), Bid: models.Float64(1.1)},
		{Time: time.Unix(2, 0), Bid: models.Float64(1.2)},
	}
	factory := NewMemoryFeed(ticks)
	f, err := factory()
	require.NoError(t, err)

	got, err := f.Next()
	require.NoError(t, err)
	assert.Equal(t, ticks[0].Time, got.Time)

	got, err = f.Next()
	require.NoError(t, err)
	assert.Equal(t, ticks[1].Time, got.Time)

	_, err = f.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMemoryFeedFactoryProducesIndependentCursors(t *testing.T) {
	factory := NewMemoryFeed([]models.Tick{{Time: time.Unix(1, 0)}})
	a, err := factory()
	require.NoError(t, err)
	_, err = a.Next()
	require.NoError(t, err)
	_, err = a.Next()
	require.ErrorIs(t, err, io.EOF)

	b, err := factory()
	require.NoError(t, err)
	_, err = b.Next()
	require.NoError(t, err, "a fresh cursor from the same factory must not be exhausted")
}

func TestCSVFeedParsesRows(t *testing.T) {
	data := "time,bid,ask,bid_volume,ask_volume\n" +
		"2024-03-01T09:00:00Z,1.10,1.12,100,200\n" +
		"2024-03-01T09:00:01Z,1.11,,50,\n"
	factory := NewCSVFeed(strings.NewReader(data), DefaultCSVColumns(), WithHeaderRow())
	f, err := factory()
	require.NoError(t, err)

	t1, err := f.Next()
	require.NoError(t, err)
	require.NotNil(t, t1.Bid)
	require.NotNil(t, t1.Ask)
	assert.Equal(t, 1.10, *t1.Bid)
	assert.Equal(t, 1.12, *t1.Ask)

	t2, err := f.Next()
	require.NoError(t, err)
	require.NotNil(t, t2.Bid)
	assert.Nil(t, t2.Ask)
	require.NotNil(t, t2.BidVolume)
	assert.Nil(t, t2.AskVolume)

	_, err = f.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestCSVFeedBadTimeIsAnError(t *testing.T) {
	factory := NewCSVFeed(strings.NewReader("not-a-time,1.1,1.2\n"), DefaultCSVColumns())
	f, err := factory()
	require.NoError(t, err)
	_, err = f.Next()
	assert.Error(t, err)
}
