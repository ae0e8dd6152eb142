package indicator

import (
	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
)

// Add is a trivial indicator used by fan-out test fixtures (see spec
// scenario S3/S4): it reads a named field off the upstream entry and
// adds a constant. Field defaults to the Bar close price.
type Add struct {
	DataName string
	Field    string
	Delta    float64
}

func (a *Add) Name() string { return "add" }

func (a *Add) field() string {
	if a.Field == "" {
		return models.FieldClose
	}
	return a.Field
}

func (a *Add) Next(event models.MarketEvent) (interface{}, error) {
	v, err := models.ExtractValue(event, a.DataName, a.field())
	if err != nil {
		return nil, err
	}
	f, ok := v.(float64)
	if !ok {
		return nil, errors.Errorf("add: %q.%s did not resolve to a float64 (got %T)", a.DataName, a.field(), v)
	}
	return f + a.Delta, nil
}
