package transform

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/models"
	"github.com/quantflow/tickflow/timeutil"
)

// PriceType selects which tick field the resampler treats as "the
// price" for OHLC purposes.
type PriceType int

const (
	PriceMid PriceType = iota
	PriceBid
	PriceAsk
)

// ResampleConfig configures a TickToBarProcessor. It is the statically
// typed stand-in for the original's keyword-option list (design note
// §9): every option the builder accepts becomes an explicit field here
// instead of a generic map.
type ResampleConfig struct {
	// DataName is the stream this processor reads ticks from.
	DataName string
	// OutputName is the stream this processor writes bars to. May equal
	// DataName, in which case the tick entry is overwritten by the bar.
	OutputName string

	Timeframe Timeframe

	PriceType PriceType

	// FakeVolume makes the resampler report a synthetic volume of 1.0
	// per tick when neither side of the tick carries a real volume.
	FakeVolume bool

	// MarketOpen is the session's daily open time-of-day, used for
	// tick-based session-boundary detection and as the time-of-day
	// folded into D/W/M aligned bar-open instants. Defaults to
	// midnight.
	MarketOpen time.Duration

	// WeeklyOpen is the weekday a new week (and hence a new W-unit bar)
	// begins on. Defaults to Sunday.
	WeeklyOpen time.Weekday
}

// NewTickToBarProcessor returns a Factory building fresh
// TickToBarProcessor instances, one per stage materialization. cfg is
// used as given; the Factory does not validate it.
func NewTickToBarProcessor(cfg ResampleConfig) Factory {
	return func() (Processor, error) {
		return &tickToBarProcessor{cfg: cfg}, nil
	}
}

type tickToBarProcessor struct {
	cfg ResampleConfig

	hasBar      bool
	current     models.Bar
	nextTime    time.Time
	tickCounter int
}

func (p *tickToBarProcessor) Next(event models.MarketEvent) (models.MarketEvent, error) {
	entry, ok := event.Data[p.cfg.DataName]
	if !ok {
		return event, errors.Wrapf(ErrUnexpectedDataShape, "no entry named %q", p.cfg.DataName)
	}
	tick, ok := entry.(models.Tick)
	if !ok {
		return event, errors.Wrapf(ErrUnexpectedDataShape, "expected a Tick under %q, got %T", p.cfg.DataName, entry)
	}

	price, err := p.extractPrice(tick)
	if err != nil {
		return event, err
	}
	volume := p.extractVolume(tick)

	if p.cfg.Timeframe.Unit.IsTickBased() {
		p.applyTickBased(tick, price, volume)
	} else {
		p.applyTimeBased(tick, price, volume)
	}

	return event.With(p.cfg.OutputName, p.current), nil
}

func (p *tickToBarProcessor) extractPrice(tick models.Tick) (float64, error) {
	switch p.cfg.PriceType {
	case PriceBid:
		if tick.Bid == nil {
			return 0, ErrMissingPrice
		}
		return *tick.Bid, nil
	case PriceAsk:
		if tick.Ask == nil {
			return 0, ErrMissingPrice
		}
		return *tick.Ask, nil
	default: // PriceMid
		mid, ok := tick.Mid()
		if !ok {
			return 0, ErrMissingPrice
		}
		return mid, nil
	}
}

func (p *tickToBarProcessor) extractVolume(tick models.Tick) *float64 {
	if v, ok := tick.Volume(); ok {
		return &v
	}
	if p.cfg.FakeVolume {
		return models.Float64(1.0)
	}
	return nil
}

// applyTickBased implements the `t` (tick-count) unit's algorithm.
func (p *tickToBarProcessor) applyTickBased(tick models.Tick, price float64, volume *float64) {
	mult := p.cfg.Timeframe.Mult
	newBar := !p.hasBar ||
		p.tickCounter >= mult ||
		p.crossesMarketOpen(timeutil.TimeOfDay(p.current.Time), timeutil.TimeOfDay(tick.Time))

	if newBar {
		newMarket := p.hasBar && p.crossesMarketOpen(timeutil.TimeOfDay(p.current.Time), timeutil.TimeOfDay(tick.Time))
		p.current = models.Bar{
			Time:      tick.Time,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
			NewBar:    true,
			NewMarket: newMarket,
		}
		p.tickCounter = 1
		p.hasBar = true
		return
	}

	p.updateCurrent(price, volume)
	p.tickCounter++
}

// applyTimeBased implements the s/m/h/D/W/M units' algorithm.
func (p *tickToBarProcessor) applyTimeBased(tick models.Tick, price float64, volume *float64) {
	newBar := !p.hasBar || !tick.Time.Before(p.nextTime)

	if newBar {
		aligned := p.align(tick.Time)
		newMarket := p.hasBar && p.crossesMarketOpen(timeutil.TimeOfDay(p.current.Time), timeutil.TimeOfDay(aligned))
		p.current = models.Bar{
			Time:      aligned,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    volume,
			NewBar:    true,
			NewMarket: newMarket,
		}
		p.nextTime = p.calcNext(aligned)
		p.hasBar = true
		return
	}

	p.updateCurrent(price, volume)
}

func (p *tickToBarProcessor) updateCurrent(price float64, volume *float64) {
	if price > p.current.High {
		p.current.High = price
	}
	if price < p.current.Low {
		p.current.Low = price
	}
	p.current.Close = price
	p.current.Volume = models.AddVolume(p.current.Volume, volume)
	p.current.NewBar = false
	p.current.NewMarket = false
}

func (p *tickToBarProcessor) crossesMarketOpen(prevTOD, curTOD time.Duration) bool {
	open := p.cfg.MarketOpen
	return prevTOD < open && curTOD >= open
}

// align implements the §4.3 alignment rules for each time-based unit.
func (p *tickToBarProcessor) align(t time.Time) time.Time {
	n := p.cfg.Timeframe.Mult
	switch p.cfg.Timeframe.Unit {
	case UnitSecond:
		return timeutil.TruncateSeconds(t, n)
	case UnitMinute:
		return timeutil.TruncateMinutes(t, n)
	case UnitHour:
		return timeutil.TruncateHours(t, n)
	case UnitDay:
		return timeutil.AtTimeOfDay(t, p.cfg.MarketOpen)
	case UnitWeek:
		return timeutil.AtTimeOfDay(timeutil.StartOfWeekOn(t, p.cfg.WeeklyOpen), p.cfg.MarketOpen)
	case UnitMonth:
		return timeutil.AtTimeOfDay(timeutil.StartOfMonth(t), p.cfg.MarketOpen)
	default:
		return t
	}
}

// calcNext computes the open-instant of the bar following the one that
// starts at aligned.
func (p *tickToBarProcessor) calcNext(aligned time.Time) time.Time {
	n := p.cfg.Timeframe.Mult
	switch p.cfg.Timeframe.Unit {
	case UnitSecond:
		return p.nextIntraday(aligned, time.Duration(n)*time.Second)
	case UnitMinute:
		return p.nextIntraday(aligned, time.Duration(n)*time.Minute)
	case UnitHour:
		return p.nextIntraday(aligned, time.Duration(n)*time.Hour)
	case UnitDay:
		return aligned.AddDate(0, 0, n)
	case UnitWeek:
		return aligned.AddDate(0, 0, 7*n)
	case UnitMonth:
		return timeutil.AddMonths(aligned, n)
	default:
		return aligned
	}
}

// nextIntraday computes min(aligned+period, next market-open-of-day
// strictly greater than aligned), per §4.3's intraday next-bar rule.
func (p *tickToBarProcessor) nextIntraday(aligned time.Time, period time.Duration) time.Time {
	byPeriod := aligned.Add(period)

	nextOpen := timeutil.AtTimeOfDay(aligned, p.cfg.MarketOpen)
	if !nextOpen.After(aligned) {
		nextOpen = nextOpen.AddDate(0, 0, 1)
	}

	if nextOpen.Before(byPeriod) {
		return nextOpen
	}
	return byPeriod
}
