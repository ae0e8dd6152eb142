// Package edge implements the bounded, demand-aware channel that
// connects two pipeline stages.
//
// An Edge carries MarketEvents from exactly one producer to exactly one
// consumer. Fan-out (Broadcast) and fan-in (Aggregator) stages hold many
// Edges rather than teaching Edge itself about multiple peers, the same
// separation of concerns the teacher's edge package draws between a
// single channelEdge and its multi-input Consumer built on top of many
// of them.
//
// Termination is cooperative rather than instantaneous: Close marks an
// edge as finished but lets any buffered events already collected drain
// to the consumer first (the "last producer cancelled -> drain then
// stop" rule), while Abort immediately discards whatever is buffered and
// unblocks any blocked Collect/Emit call (the "last consumer cancelled,
// or an upstream failure, -> stop now" rule). The two are distinguished
// on the consuming side by whether Err() is non-nil after Emit reports
// no more data.
package edge
