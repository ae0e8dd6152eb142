package indicator

import (
	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
)

// SMA computes a simple moving average of a bar stream's close price.
// It reports no value (nil, nil) until Period bars have been seen.
// While the current bar is still forming (new_bar? false), the most
// recent slot is replaced in place rather than appended, so the moving
// average always reflects the latest tick of the in-progress bar.
type SMA struct {
	DataName string
	Period   int

	values []float64
}

// Name implements transform.Namer: the pipeline builder's default
// output name for an SMA(20) indicator is "sma", not a reflected Go
// type name.
func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Next(event models.MarketEvent) (interface{}, error) {
	if s.Period < 1 {
		return nil, errors.New("sma: period must be >= 1")
	}
	price, err := closeOf(event, s.DataName)
	if err != nil {
		return nil, err
	}
	newBar, err := models.IsNewBar(event, s.DataName)
	if err != nil {
		return nil, err
	}

	switch {
	case len(s.values) == 0:
		s.values = append(s.values, price)
	case newBar:
		if len(s.values) == s.Period {
			copy(s.values, s.values[1:])
			s.values[len(s.values)-1] = price
		} else {
			s.values = append(s.values, price)
		}
	default:
		s.values[len(s.values)-1] = price
	}

	if len(s.values) < s.Period {
		return nil, nil
	}
	sum := 0.0
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(s.Period), nil
}

// closeOf reads the close field of the Bar (or Tick mid, as a
// convenience) published under name.
func closeOf(event models.MarketEvent, name string) (float64, error) {
	v, err := models.ExtractValue(event, name, models.FieldClose)
	if err != nil {
		if _, isTick := event.Data[name].(models.Tick); isTick {
			v, err = models.ExtractValue(event, name, models.FieldMid)
		}
		if err != nil {
			return 0, err
		}
	}
	f, ok := v.(float64)
	if !ok {
		return 0, errors.Errorf("indicator: %q did not resolve to a float64 price (got %T)", name, v)
	}
	return f, nil
}
