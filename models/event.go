package models

import (
	"fmt"
	"time"
)

// MarketEvent is the per-tick message that flows between pipeline
// stages: an associative mapping from stream name to whatever that
// stream has produced so far (a Tick, a Bar, an IndicatorValue, or a
// bare scalar). Entries are only ever added as an event moves through
// layers, never removed.
//
// MarketEvent is passed by value; Data is shared until a stage calls
// With, which copies the map so the original event (and any sibling
// branch holding the same value) is never mutated.
type MarketEvent struct {
	// Time is the event's wall-clock/source time, if known.
	Time time.Time
	// Source names the stream this event most recently flowed from.
	Source string

	Data map[string]interface{}
}

// NewMarketEvent returns an empty event ready to be extended with With.
func NewMarketEvent() MarketEvent {
	return MarketEvent{Data: make(map[string]interface{})}
}

// With returns a copy of e with Data[name] set to value. The receiver's
// map is left untouched.
func (e MarketEvent) With(name string, value interface{}) MarketEvent {
	next := e.Clone()
	next.Data[name] = value
	return next
}

// Clone returns a shallow copy: a new Data map with the same value
// references. Safe to hand to a second downstream branch without either
// branch's later With calls affecting the other.
func (e MarketEvent) Clone() MarketEvent {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	return MarketEvent{Time: e.Time, Source: e.Source, Data: data}
}

// MergeEvents performs the Aggregator's shallow merge: a union of every
// event's Data map, later (higher-index) events winning on key
// collision. Time and Source are inherited from the first event.
// Topology validation ensures parallel branches contribute disjoint
// names, so a collision here is a degenerate edge case, not the norm.
func MergeEvents(events ...MarketEvent) MarketEvent {
	if len(events) == 0 {
		return NewMarketEvent()
	}
	merged := NewMarketEvent()
	merged.Time = events[0].Time
	merged.Source = events[0].Source
	for _, e := range events {
		for k, v := range e.Data {
			merged.Data[k] = v
		}
	}
	return merged
}

// Field names recognized by ExtractValue when the entry is a Tick or Bar.
const (
	FieldTime      = "time"
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldVolume    = "volume"
	FieldBid       = "bid"
	FieldAsk       = "ask"
	FieldBidVolume = "bid_volume"
	FieldAskVolume = "ask_volume"
	FieldMid       = "mid"
)

// ExtractValue is the lazy temporal-context lookup described by the
// IndicatorProcessor adaptor: if event.Data[name] is a Bar or Tick,
// return the named field; if it is an IndicatorValue, return its Value;
// if it is a bare scalar, return it unchanged. It never recurses: an
// IndicatorValue's Value is returned as-is whatever field is asked for,
// and its DataName is not followed.
func ExtractValue(e MarketEvent, name, field string) (interface{}, error) {
	entry, ok := e.Data[name]
	if !ok {
		return nil, fmt.Errorf("extract_value: no entry named %q in event", name)
	}
	switch v := entry.(type) {
	case Bar:
		return barField(v, field)
	case Tick:
		return tickField(v, field)
	case IndicatorValue:
		return v.Value, nil
	default:
		return entry, nil
	}
}

func barField(b Bar, field string) (interface{}, error) {
	switch field {
	case FieldTime:
		return b.Time, nil
	case FieldOpen:
		return b.Open, nil
	case FieldHigh:
		return b.High, nil
	case FieldLow:
		return b.Low, nil
	case FieldClose:
		return b.Close, nil
	case FieldVolume:
		if b.Volume == nil {
			return nil, fmt.Errorf("extract_value: bar has no volume")
		}
		return *b.Volume, nil
	default:
		return nil, fmt.Errorf("extract_value: unknown bar field %q", field)
	}
}

func tickField(t Tick, field string) (interface{}, error) {
	switch field {
	case FieldTime:
		return t.Time, nil
	case FieldBid:
		if t.Bid == nil {
			return nil, fmt.Errorf("extract_value: tick has no bid")
		}
		return *t.Bid, nil
	case FieldAsk:
		if t.Ask == nil {
			return nil, fmt.Errorf("extract_value: tick has no ask")
		}
		return *t.Ask, nil
	case FieldBidVolume:
		if t.BidVolume == nil {
			return nil, fmt.Errorf("extract_value: tick has no bid_volume")
		}
		return *t.BidVolume, nil
	case FieldAskVolume:
		if t.AskVolume == nil {
			return nil, fmt.Errorf("extract_value: tick has no ask_volume")
		}
		return *t.AskVolume, nil
	case FieldMid:
		mid, ok := t.Mid()
		if !ok {
			return nil, fmt.Errorf("extract_value: tick has neither bid nor ask")
		}
		return mid, nil
	default:
		return nil, fmt.Errorf("extract_value: unknown tick field %q", field)
	}
}

// IsNewBar is the lazy new_bar? helper: Bar returns its own NewBar flag,
// Tick is always a new bar, and an IndicatorValue recurses via its
// DataName to the source it was derived from.
func IsNewBar(e MarketEvent, name string) (bool, error) {
	entry, ok := e.Data[name]
	if !ok {
		return false, fmt.Errorf("new_bar?: no entry named %q in event", name)
	}
	switch v := entry.(type) {
	case Bar:
		return v.NewBar, nil
	case Tick:
		return true, nil
	case IndicatorValue:
		return IsNewBar(e, v.DataName)
	default:
		return false, fmt.Errorf("new_bar?: entry %q is not resolvable (type %T)", name, entry)
	}
}

// IsNewMarket is the lazy new_market? helper: Bar returns its own
// NewMarket flag, Tick is always false, and an IndicatorValue recurses
// via DataName.
func IsNewMarket(e MarketEvent, name string) (bool, error) {
	entry, ok := e.Data[name]
	if !ok {
		return false, fmt.Errorf("new_market?: no entry named %q in event", name)
	}
	switch v := entry.(type) {
	case Bar:
		return v.NewMarket, nil
	case Tick:
		return false, nil
	case IndicatorValue:
		return IsNewMarket(e, v.DataName)
	default:
		return false, fmt.Errorf("new_market?: entry %q is not resolvable (type %T)", name, entry)
	}
}

// ExtractTime is the lazy extract_time helper: follows the IndicatorValue
// chain down to the source Bar/Tick and returns its Time.
func ExtractTime(e MarketEvent, name string) (time.Time, error) {
	entry, ok := e.Data[name]
	if !ok {
		return time.Time{}, fmt.Errorf("extract_time: no entry named %q in event", name)
	}
	switch v := entry.(type) {
	case Bar:
		return v.Time, nil
	case Tick:
		return v.Time, nil
	case IndicatorValue:
		return ExtractTime(e, v.DataName)
	default:
		return time.Time{}, fmt.Errorf("extract_time: entry %q is not resolvable (type %T)", name, entry)
	}
}
