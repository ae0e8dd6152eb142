// Package indicator provides a handful of reference implementations of
// the transform.Indicator contract: SMA, EMA, and a trivial Add used by
// fan-out test fixtures. They exist so the topology builder's
// AddIndicator/AddIndicatorsLayer has concrete, testable inputs instead
// of only an interface, grounded on the Update/Peek/Ready shape of
// other_examples' candle indicator engine (committed value on a closed
// bar, live estimate on a forming one).
package indicator
