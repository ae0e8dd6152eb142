package models

import "time"

// Bar is an OHLCV aggregate over a time window (a candle). Volume may be
// absent (nil) when neither side of the underlying ticks reported one and
// fake_volume was not requested.
type Bar struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume *float64

	// NewBar is true for the first Bar emitted for this bar instant;
	// false for subsequent updates of the same bar.
	NewBar bool

	// NewMarket is true iff this bar's start crossed the session's
	// market-open time-of-day boundary.
	NewMarket bool
}

// AddVolume combines two optional volumes the way the resampler
// accumulates them: present values add, an absent side is ignored, and
// the result is absent only if both sides are absent.
func AddVolume(a, b *float64) *float64 {
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		v := *b
		return &v
	case b == nil:
		v := *a
		return &v
	default:
		v := *a + *b
		return &v
	}
}
