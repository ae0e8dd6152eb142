package transform

import (
	"strconv"

	"github.com/pkg/errors"
)

// Unit is one character of the timeframe grammar <unit>[<mult>].
// Case is significant: lowercase units are tick/sub-day units, uppercase
// units are calendar units.
type Unit byte

const (
	UnitTick   Unit = 't'
	UnitSecond Unit = 's'
	UnitMinute Unit = 'm'
	UnitHour   Unit = 'h'
	UnitDay    Unit = 'D'
	UnitWeek   Unit = 'W'
	UnitMonth  Unit = 'M'
)

// IsTickBased reports whether this unit counts raw ticks rather than
// wall-clock time.
func (u Unit) IsTickBased() bool {
	return u == UnitTick
}

// Timeframe is a parsed (unit, multiplier) pair describing a bar period.
type Timeframe struct {
	Unit Unit
	Mult int
}

// ErrInvalidTimeframe is the configuration error raised when a
// timeframe string does not match the grammar or has a non-positive
// multiplier.
var ErrInvalidTimeframe = errors.New("invalid timeframe")

var validUnits = map[byte]Unit{
	't': UnitTick,
	's': UnitSecond,
	'm': UnitMinute,
	'h': UnitHour,
	'D': UnitDay,
	'W': UnitWeek,
	'M': UnitMonth,
}

// ParseTimeframe parses a string of the form "<unit>[<mult>]", e.g. "m5",
// "t3", "D", "W2". A missing multiplier defaults to 1.
func ParseTimeframe(s string) (Timeframe, error) {
	if len(s) == 0 {
		return Timeframe{}, errors.Wrap(ErrInvalidTimeframe, "empty timeframe string")
	}
	unit, ok := validUnits[s[0]]
	if !ok {
		return Timeframe{}, errors.Wrapf(ErrInvalidTimeframe, "unknown unit %q in %q", s[0:1], s)
	}
	rest := s[1:]
	mult := 1
	if rest != "" {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Timeframe{}, errors.Wrapf(ErrInvalidTimeframe, "bad multiplier %q in %q", rest, s)
		}
		mult = n
	}
	if mult < 1 {
		return Timeframe{}, errors.Wrapf(ErrInvalidTimeframe, "multiplier must be >= 1, got %d in %q", mult, s)
	}
	return Timeframe{Unit: unit, Mult: mult}, nil
}

func (tf Timeframe) String() string {
	return string(byte(tf.Unit)) + strconv.Itoa(tf.Mult)
}
