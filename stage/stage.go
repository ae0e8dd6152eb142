// Package stage materializes a pipeline.PipelineSpec into a running
// graph of goroutines connected by edge.Edge channels: one Stage per
// pipeline.Node, wired together exactly as the spec's DAG describes.
package stage

import (
	"log"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/edge"
	"github.com/quantflow/tickflow/feed"
	"github.com/quantflow/tickflow/models"
	"github.com/quantflow/tickflow/timer"
	"github.com/quantflow/tickflow/transform"
)

// timerSampleRate and timerWindow mirror the teacher's per-node timer
// construction (sample every call, average over the last 1000):
// see group_by.go/map_reduce.go's "node.timer = timer.New(...)" wiring.
const (
	timerSampleRate = 1.0
	timerWindow     = 1000
)

// Role is the execution discipline a Stage follows, one per pipeline
// node kind.
type Role int

const (
	// RoleProducer pulls from a feed.DataFeed and has no inputs.
	RoleProducer Role = iota
	// RoleProducerConsumer runs a transform.Processor over each event
	// from its single input.
	RoleProducerConsumer
	// RoleBroadcast forwards every input event, unmodified, to every
	// output.
	RoleBroadcast
	// RoleAggregator waits for one event from every input before
	// emitting their merge.
	RoleAggregator
)

// Stage is one running node of a materialized pipeline.
type Stage struct {
	name string
	desc string
	role Role

	feed   feed.DataFeed
	proc   transform.Processor
	demand edge.DemandWindow

	ins  []edge.Subscription
	outs []edge.Edge

	logger *log.Logger
	timer  timer.Timer

	errCh    chan error
	finished bool
	err      error
}

func (s *Stage) Name() string { return s.name }

// Stats is the running collected/emitted counters for this stage's
// input subscriptions and output edges, plus its average per-event
// processing time.
func (s *Stage) Stats() Stats {
	st := Stats{Name: s.name}
	for _, in := range s.ins {
		es := in.Edge.Stats()
		st.Collected += es.Collected
	}
	for _, out := range s.outs {
		es := out.Stats()
		st.Emitted += es.Emitted
	}
	avg, samples := s.timer.AverageTime()
	st.AverageDuration = avg
	st.Samples = samples
	return st
}

// Stats reports one stage's running counters.
type Stats struct {
	Name            string
	Collected       int64
	Emitted         int64
	AverageDuration time.Duration
	Samples         int
}

func (s *Stage) start() {
	s.errCh = make(chan error, 1)
	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				trace := make([]byte, 4096)
				n := runtime.Stack(trace, false)
				err = errors.Errorf("panic in stage %s: %v\n%s", s.name, r, trace[:n])
			}
			if err != nil {
				s.logger.Println("E!", err)
				s.abortOuts(err)
			} else {
				s.closeOuts()
			}
			s.errCh <- err
		}()
		err = s.run()
	}()
}

func (s *Stage) closeOuts() {
	for _, out := range s.outs {
		out.Close()
	}
}

func (s *Stage) abortOuts(err error) {
	for _, out := range s.outs {
		out.Abort(err)
	}
}

func (s *Stage) collect(evt models.MarketEvent) error {
	for _, out := range s.outs {
		if err := out.Collect(evt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stage) wait() error {
	if !s.finished {
		s.finished = true
		s.err = <-s.errCh
	}
	return s.err
}

func (s *Stage) run() error {
	switch s.role {
	case RoleProducer:
		return s.runProducer()
	case RoleProducerConsumer:
		return s.runProducerConsumer()
	case RoleBroadcast:
		return s.runBroadcast()
	case RoleAggregator:
		return s.runAggregator()
	default:
		return errors.Errorf("stage %s: unknown role %d", s.name, s.role)
	}
}

// demandCycle returns the number of items a single upstream-satisfying
// cycle pulls, per the spec's demand-driven pull model: a stage fetches
// at most max_demand items per cycle. min_demand only shapes how eager
// a consumer is to ask for more once its buffer runs low; since Edge.
// Emit already blocks until data is available (or the edge ends), it
// has no further effect on correctness here.
func demandCycle(w edge.DemandWindow) int {
	if w.Max < 1 {
		return 1
	}
	return w.Max
}

// runProducer reads ticks from the feed in demand cycles of at most
// max_demand ticks each until the feed is exhausted, wrapping and
// forwarding each as it goes. Per event it times the
// feed read plus bookkeeping, but pauses the timer around collect --
// the call that blocks on downstream demand -- so AverageTime reflects
// this stage's own work, not time spent waiting on a slow consumer (the
// same Start/Pause/.../Resume/Stop bracketing the teacher's window.go
// uses around its own blocking CollectBatch call).
func (s *Stage) runProducer() error {
	max := demandCycle(s.demand)
	for {
		for i := 0; i < max; i++ {
			s.timer.Start()
			tick, err := s.feed.Next()
			if err != nil {
				s.timer.Stop()
				if err == feed.EOF {
					s.logger.Println("I! feed exhausted")
					return nil
				}
				return errors.Wrapf(err, "stage %s: reading feed", s.name)
			}
			evt := models.NewMarketEvent()
			evt.Time = tick.Time
			evt.Source = s.name
			evt = evt.With(s.name, tick)

			s.timer.Pause()
			err = s.collect(evt)
			s.timer.Resume()
			s.timer.Stop()
			if err != nil {
				return err
			}
		}
	}
}

// pullBatch drains up to in's demand window's max_demand events from in,
// stopping early if the upstream edge has nothing further to offer.
// more is false once the edge has closed or aborted; any events already
// pulled into batch this cycle must still be processed before a caller
// gives up on more.
func pullBatch(in edge.Subscription) (batch []models.MarketEvent, more bool, err error) {
	max := demandCycle(in.Demand)
	batch = make([]models.MarketEvent, 0, max)
	for len(batch) < max {
		evt, ok := in.Edge.Emit()
		if !ok {
			return batch, false, in.Edge.Err()
		}
		batch = append(batch, evt)
	}
	return batch, true, nil
}

// runProducerConsumer times proc.Next per event, pausing around collect
// for the same reason runProducer does: the blocking downstream send
// should not count against this stage's own processing-time average.
func (s *Stage) runProducerConsumer() error {
	in := s.ins[0]
	for {
		batch, more, err := pullBatch(in)
		if err != nil {
			return errors.Wrapf(err, "stage %s", s.name)
		}
		for _, evt := range batch {
			s.timer.Start()
			next, perr := s.proc.Next(evt)
			if perr != nil {
				s.timer.Stop()
				return errors.Wrapf(perr, "stage %s", s.name)
			}
			s.timer.Pause()
			cerr := s.collect(next)
			s.timer.Resume()
			s.timer.Stop()
			if cerr != nil {
				return cerr
			}
		}
		if !more {
			return nil
		}
	}
}

func (s *Stage) runBroadcast() error {
	in := s.ins[0]
	for {
		batch, more, err := pullBatch(in)
		if err != nil {
			return err
		}
		for _, evt := range batch {
			if cerr := s.collect(evt); cerr != nil {
				return cerr
			}
		}
		if !more {
			return nil
		}
	}
}

// runAggregator waits for one event from every upstream branch before
// emitting their MergeEvents union. Every branch of an indicator layer
// produces exactly one output event per input event (see
// transform.IndicatorProcessor), so branches stay in lockstep and a
// simple sequential read across subscriptions is enough to synchronize
// them; no branch ever races ahead of another by more than its edge's
// buffer depth. Unlike runProducerConsumer/runBroadcast, this
// deliberately does not batch by demand window: a merge round already
// needs exactly one event per branch, so there is no "up to max_demand"
// cycle to bound here, only the one-for-one synchronization itself.
func (s *Stage) runAggregator() error {
	events := make([]models.MarketEvent, len(s.ins))
	for {
		for i, in := range s.ins {
			evt, ok := in.Edge.Emit()
			if !ok {
				return in.Edge.Err()
			}
			events[i] = evt
		}
		merged := models.MergeEvents(events...)
		if err := s.collect(merged); err != nil {
			return err
		}
	}
}
