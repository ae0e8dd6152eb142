package edge

import (
	"sync"
	"sync/atomic"

	"github.com/quantflow/tickflow/models"
)

// OverflowPolicy controls what happens when a Collect arrives and the
// edge's buffer is already full. The spec's default buffer-overflow
// policy is "drop oldest", but recommends defaulting to a
// correctness-preserving choice for deterministic backtests; this
// package defaults new edges to OverflowBlock and exposes
// OverflowDropOldest for callers that explicitly want the other
// behavior (see DESIGN.md open-question record).
type OverflowPolicy int

const (
	// OverflowBlock makes Collect block until there is room, exerting
	// real backpressure on the producer.
	OverflowBlock OverflowPolicy = iota
	// OverflowDropOldest evicts the oldest buffered event to make room
	// for the new one, trading data loss for a producer that never
	// blocks.
	OverflowDropOldest
)

// CancelPolicy describes how a subscription reacts to its producer
// shutting down normally.
type CancelPolicy int

const (
	// Transient is the only policy the core pipeline exercises: a
	// producer ending normally does not by itself end this edge's
	// consumer. The "last producer cancelled" rule in the owning stage
	// decides when to actually stop.
	Transient CancelPolicy = iota
)

// Edge represents the connection between two stages. Edges are safe for
// concurrent use: a producer goroutine calls Collect, a consumer
// goroutine calls Emit, and either side may call Abort from any
// goroutine to request immediate shutdown.
type Edge interface {
	// Collect delivers an event to the edge. It respects the edge's
	// OverflowPolicy when the buffer is full. If the edge has been
	// aborted, it returns the error passed to Abort (nil for a plain
	// cancellation) without buffering the event.
	Collect(models.MarketEvent) error
	// Emit blocks until an event is available, the edge is closed (in
	// which case it returns once all buffered events have drained), or
	// the edge is aborted. ok is false in the latter two cases; Err
	// distinguishes them.
	Emit() (models.MarketEvent, bool)
	// Close marks the edge finished; buffered events already collected
	// still drain to Emit before it reports no more data.
	Close() error
	// Abort immediately stops the edge. Any buffered events are
	// discarded and pending/future Collect and Emit calls return right
	// away. A nil err means a plain cancellation (e.g. the last
	// consumer disconnected); a non-nil err means abnormal termination
	// that should propagate as a failure.
	Abort(err error)
	// Err returns the error passed to Abort, if any.
	Err() error
	// Stats returns the running collected/emitted counters.
	Stats() Stats
}

// Stats holds the running counters for one Edge.
type Stats struct {
	Collected int64
	Emitted   int64
}

type edgeState int32

const (
	stateOpen edgeState = iota
	stateClosed
	stateAborted
)

// channelEdge is the sole Edge implementation: a bounded channel plus an
// abort signal, mirroring the teacher's edge.channelEdge but adding the
// overflow policy and counters the spec's demand model calls for.
type channelEdge struct {
	messages chan models.MarketEvent
	aborting chan struct{}

	overflow OverflowPolicy

	mu    sync.Mutex
	state edgeState
	err   error

	collected int64
	emitted   int64
}

// NewEdge returns a new bounded edge with the given buffer capacity and
// overflow policy.
func NewEdge(bufferSize int, overflow OverflowPolicy) Edge {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &channelEdge{
		messages: make(chan models.MarketEvent, bufferSize),
		aborting: make(chan struct{}),
		overflow: overflow,
	}
}

func (e *channelEdge) Collect(evt models.MarketEvent) error {
	if e.overflow == OverflowDropOldest {
		return e.collectDropOldest(evt)
	}
	select {
	case <-e.aborting:
		return e.Err()
	default:
	}
	select {
	case e.messages <- evt:
		atomic.AddInt64(&e.collected, 1)
		return nil
	case <-e.aborting:
		return e.Err()
	}
}

// collectDropOldest evicts the oldest buffered event, if necessary, so
// that Collect never blocks the producer.
func (e *channelEdge) collectDropOldest(evt models.MarketEvent) error {
	select {
	case <-e.aborting:
		return e.Err()
	default:
	}
	for {
		select {
		case e.messages <- evt:
			atomic.AddInt64(&e.collected, 1)
			return nil
		default:
			select {
			case <-e.messages:
				// Dropped the oldest buffered event to make room.
			case <-e.aborting:
				return e.Err()
			default:
			}
		}
	}
}

func (e *channelEdge) Emit() (models.MarketEvent, bool) {
	select {
	case <-e.aborting:
		return models.MarketEvent{}, false
	default:
	}
	select {
	case evt, ok := <-e.messages:
		if ok {
			atomic.AddInt64(&e.emitted, 1)
		}
		return evt, ok
	case <-e.aborting:
		return models.MarketEvent{}, false
	}
}

func (e *channelEdge) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != stateOpen {
		return nil
	}
	e.state = stateClosed
	close(e.messages)
	return nil
}

func (e *channelEdge) Abort(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == stateAborted {
		return
	}
	e.state = stateAborted
	e.err = err
	close(e.aborting)
}

func (e *channelEdge) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *channelEdge) Stats() Stats {
	return Stats{
		Collected: atomic.LoadInt64(&e.collected),
		Emitted:   atomic.LoadInt64(&e.emitted),
	}
}

// ErrAborted-style sentinel errors are deliberately not exported: a nil
// Err() after Emit returns false always means a plain, non-erroring
// cancellation, which callers distinguish by comparing Err() to nil.
