package edge

// DemandWindow bounds how many events a stage pulls from one upstream
// subscription in a single satisfying cycle: a Producer fetches at most
// Max raw items from its feed per cycle, and a ProducerConsumer or
// Broadcast stage pulls at most Max events from its upstream per cycle.
// Min is carried as the low-water mark but no stage reads it, and the
// Aggregator does not batch by demand at all. Min/Max only shape
// batching; correctness (no drops, no duplicates, strict order) does not
// depend on their values.
type DemandWindow struct {
	Min int
	Max int
}

// DefaultDemandWindow matches the spec's stated default of 5/10.
func DefaultDemandWindow() DemandWindow {
	return DemandWindow{Min: 5, Max: 10}
}

// DefaultBufferSize is the spec's stated default per-subscription
// buffer capacity.
const DefaultBufferSize = 10000

// Subscription is one stage's view of a single upstream Edge: the edge
// itself, the demand window governing how eagerly this stage drains it,
// and the cancel policy describing how the owning stage should react
// when the producer on the other end shuts down normally.
//
// Subscription is deliberately thin -- it exists so a stage with several
// upstreams (Aggregator) or several downstreams (Broadcast) can reason
// about each peer independently instead of baking policy into Edge
// itself.
type Subscription struct {
	Edge Edge
	// ProducerName is the upstream stage's name, used only for error
	// messages and logging.
	ProducerName string
	Demand       DemandWindow
	Cancel       CancelPolicy
}

// NewSubscription builds a Subscription with the default demand window
// and transient cancel policy.
func NewSubscription(producerName string, e Edge) Subscription {
	return Subscription{
		Edge:         e,
		ProducerName: producerName,
		Demand:       DefaultDemandWindow(),
		Cancel:       Transient,
	}
}
