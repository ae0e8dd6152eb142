package edge

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantflow/tickflow/models"
)

func evt(n int) models.MarketEvent {
	return models.NewMarketEvent().With("n", n)
}

func TestEdgeCollectEmitOrder(t *testing.T) {
	require := require.New(t)
	e := NewEdge(4, OverflowBlock)

	go func() {
		for i := 0; i < 3; i++ {
			require.NoError(e.Collect(evt(i)))
		}
		require.NoError(e.Close())
	}()

	var got []int
	for msg, ok := e.Emit(); ok; msg, ok = e.Emit() {
		got = append(got, msg.Data["n"].(int))
	}
	require.Equal([]int{0, 1, 2}, got)
	require.Nil(e.Err())
}

func TestEdgeCloseDrainsBufferedBeforeEOF(t *testing.T) {
	assert := assert.New(t)
	e := NewEdge(10, OverflowBlock)

	for i := 0; i < 5; i++ {
		assert.NoError(e.Collect(evt(i)))
	}
	assert.NoError(e.Close())

	count := 0
	for _, ok := e.Emit(); ok; _, ok = e.Emit() {
		count++
	}
	assert.Equal(5, count, "all buffered events must drain before EOF")
}

func TestEdgeAbortDiscardsBufferAndUnblocksImmediately(t *testing.T) {
	assert := assert.New(t)
	e := NewEdge(10, OverflowBlock)

	assert.NoError(e.Collect(evt(0)))
	assert.NoError(e.Collect(evt(1)))

	abortErr := errors.New("boom")
	e.Abort(abortErr)

	_, ok := e.Emit()
	assert.False(ok)
	assert.Equal(abortErr, e.Err())

	err := e.Collect(evt(2))
	assert.Equal(abortErr, err)
}

func TestEdgeAbortWithNilErrIsPlainCancellation(t *testing.T) {
	assert := assert.New(t)
	e := NewEdge(10, OverflowBlock)
	e.Abort(nil)

	_, ok := e.Emit()
	assert.False(ok)
	assert.NoError(e.Err())
}

func TestEdgeBlocksWhenFull(t *testing.T) {
	require := require.New(t)
	e := NewEdge(1, OverflowBlock)
	require.NoError(e.Collect(evt(0)))

	collected := make(chan struct{})
	go func() {
		e.Collect(evt(1))
		close(collected)
	}()

	select {
	case <-collected:
		t.Fatal("Collect must block while the buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	e.Emit()
	select {
	case <-collected:
	case <-time.After(time.Second):
		t.Fatal("Collect should have unblocked once room was made")
	}
}

func TestEdgeDropOldestNeverBlocks(t *testing.T) {
	require := require.New(t)
	e := NewEdge(2, OverflowDropOldest)

	for i := 0; i < 5; i++ {
		require.NoError(e.Collect(evt(i)))
	}
	require.NoError(e.Close())

	var got []int
	for msg, ok := e.Emit(); ok; msg, ok = e.Emit() {
		got = append(got, msg.Data["n"].(int))
	}
	require.Equal([]int{3, 4}, got, "only the newest 2 events survive a size-2 buffer")
}

func TestEdgeStats(t *testing.T) {
	assert := assert.New(t)
	e := NewEdge(4, OverflowBlock)
	assert.NoError(e.Collect(evt(0)))
	assert.NoError(e.Collect(evt(1)))
	e.Emit()

	s := e.Stats()
	assert.EqualValues(2, s.Collected)
	assert.EqualValues(1, s.Emitted)
}
