// Package models defines the plain, immutable event types that flow
// through a tickflow pipeline: Tick, Bar, IndicatorValue and the
// MarketEvent envelope that carries them between stages.
package models

import "time"

// Tick is a single quote observation. Prices and volumes may be absent;
// a nil pointer means "not reported by the feed", which is distinct from
// a zero value.
type Tick struct {
	Time time.Time

	Bid       *float64
	Ask       *float64
	BidVolume *float64
	AskVolume *float64
}

// HasBid reports whether the tick carries a bid price.
func (t Tick) HasBid() bool { return t.Bid != nil }

// HasAsk reports whether the tick carries an ask price.
func (t Tick) HasAsk() bool { return t.Ask != nil }

// Mid returns the mid price: the average of bid/ask if both are present,
// otherwise whichever one is present. ok is false if neither is present.
func (t Tick) Mid() (price float64, ok bool) {
	switch {
	case t.Bid != nil && t.Ask != nil:
		return (*t.Bid + *t.Ask) / 2, true
	case t.Bid != nil:
		return *t.Bid, true
	case t.Ask != nil:
		return *t.Ask, true
	default:
		return 0, false
	}
}

// Volume combines bid/ask volume: the sum if both are present, whichever
// one is present otherwise, or (0, false) if neither is present.
func (t Tick) Volume() (volume float64, ok bool) {
	switch {
	case t.BidVolume != nil && t.AskVolume != nil:
		return *t.BidVolume + *t.AskVolume, true
	case t.BidVolume != nil:
		return *t.BidVolume, true
	case t.AskVolume != nil:
		return *t.AskVolume, true
	default:
		return 0, false
	}
}

// Float64 is a small helper to build an optional float64 field inline,
// e.g. models.Tick{Bid: models.Float64(1.0850)}.
func Float64(v float64) *float64 {
	return &v
}
