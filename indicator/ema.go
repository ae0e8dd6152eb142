package indicator

import (
	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
)

// EMA computes an exponential moving average of a bar stream's close
// price. The first observation seeds the average directly. Every
// subsequent tick returns a live estimate blending the forming bar's
// price into the last committed average; that estimate is only
// committed (carried forward into the next bar) once new_bar? is true,
// so repeated updates to the same forming bar never compound.
type EMA struct {
	DataName string
	Period   int

	committed float64
	have      bool
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) alpha() float64 {
	return 2.0 / (float64(e.Period) + 1)
}

func (e *EMA) Next(event models.MarketEvent) (interface{}, error) {
	if e.Period < 1 {
		return nil, errors.New("ema: period must be >= 1")
	}
	price, err := closeOf(event, e.DataName)
	if err != nil {
		return nil, err
	}
	newBar, err := models.IsNewBar(event, e.DataName)
	if err != nil {
		return nil, err
	}

	if !e.have {
		e.committed = price
		e.have = true
		return e.committed, nil
	}

	live := e.alpha()*price + (1-e.alpha())*e.committed
	if newBar {
		e.committed = live
	}
	return live, nil
}
