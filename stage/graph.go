package stage

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/influxdata/wlog"
	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/edge"
	"github.com/quantflow/tickflow/models"
	"github.com/quantflow/tickflow/pipeline"
	"github.com/quantflow/tickflow/timer"
	"github.com/quantflow/tickflow/transform"
)

// Option configures Materialize beyond the spec itself.
type Option func(*options)

type options struct {
	logWriter  io.Writer
	bufferSize int
	overflow   edge.OverflowPolicy
}

func defaultOptions() *options {
	return &options{
		logWriter:  os.Stderr,
		bufferSize: edge.DefaultBufferSize,
		overflow:   edge.OverflowBlock,
	}
}

// WithLogWriter sets the writer every stage's wlog-filtered logger
// writes to. Defaults to os.Stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

// WithBufferSize overrides the per-edge channel capacity. Defaults to
// edge.DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(o *options) { o.bufferSize = n }
}

// WithOverflowPolicy overrides the overflow behavior every edge in the
// graph uses. Defaults to edge.OverflowBlock.
func WithOverflowPolicy(p edge.OverflowPolicy) Option {
	return func(o *options) { o.overflow = p }
}

// StageGraph is a materialized, runnable instance of a
// pipeline.PipelineSpec: one Stage per spec node, wired together with
// edge.Edge channels mirroring the spec's DAG.
type StageGraph struct {
	spec   *pipeline.PipelineSpec
	stages []*Stage
	byID   map[pipeline.ID]*Stage

	// sinks are the consumer-side edges attached to every node with no
	// children; Events fans them all into a single channel.
	sinks []edge.Edge
	out   chan models.MarketEvent

	// RunID uniquely identifies this materialization, so log lines and
	// stats from two concurrent backtests of the same spec can be told
	// apart.
	RunID uuid.UUID
}

// Materialize builds a runnable StageGraph from spec. It instantiates a
// fresh feed.DataFeed and transform.Processor for every node (one
// Factory call per stage, per the design note on constructor-closure
// dynamic dispatch), so the same PipelineSpec can be materialized more
// than once concurrently.
func Materialize(spec *pipeline.PipelineSpec, opts ...Option) (*StageGraph, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	g := &StageGraph{
		spec:  spec,
		byID:  make(map[pipeline.ID]*Stage, spec.Len()),
		RunID: uuid.New(),
	}

	err := spec.Walk(func(n pipeline.Node) error {
		st, err := newStage(n, o, g.RunID)
		if err != nil {
			return errors.Wrapf(err, "materializing node %s", n.Name())
		}
		g.byID[n.ID()] = st
		g.stages = append(g.stages, st)

		for _, parent := range n.Parents() {
			pst, ok := g.byID[parent.ID()]
			if !ok {
				return errors.Errorf("node %s: parent %s not yet materialized", n.Name(), parent.Name())
			}
			e := edge.NewEdge(o.bufferSize, o.overflow)
			pst.outs = append(pst.outs, e)
			st.ins = append(st.ins, edge.NewSubscription(pst.name, e))
		}
		if len(n.Children()) == 0 {
			sink := edge.NewEdge(o.bufferSize, o.overflow)
			st.outs = append(st.outs, sink)
			g.sinks = append(g.sinks, sink)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func newStage(n pipeline.Node, o *options, runID uuid.UUID) (*Stage, error) {
	st := &Stage{name: n.Name(), desc: n.Desc()}
	prefix := fmt.Sprintf("[%s:%s %s] ", n.Desc(), n.Name(), runID)
	st.logger = wlog.New(o.logWriter, prefix, log.LstdFlags)
	st.timer = timer.New(timerSampleRate, timerWindow)

	switch tn := n.(type) {
	case *pipeline.DataNode:
		st.role = RoleProducer
		f, err := tn.Feed()
		if err != nil {
			return nil, err
		}
		st.feed = f
		st.demand = tn.Demand
	case *pipeline.ResampleNode:
		st.role = RoleProducerConsumer
		factory := transform.NewTickToBarProcessor(tn.Config)
		proc, err := factory()
		if err != nil {
			return nil, err
		}
		st.proc = proc
	case *pipeline.IndicatorNode:
		st.role = RoleProducerConsumer
		factory := transform.NewIndicatorProcessor(tn.Config, tn.Indicator)
		proc, err := factory()
		if err != nil {
			return nil, err
		}
		st.proc = proc
	case *pipeline.BroadcastNode:
		st.role = RoleBroadcast
	case *pipeline.AggregateNode:
		st.role = RoleAggregator
	default:
		return nil, errors.Errorf("unknown pipeline node type %T", n)
	}
	return st, nil
}

// Start launches every stage's goroutine. Producers begin pulling from
// their feeds immediately, and the terminal stage(s)' output becomes
// available through Events.
func (g *StageGraph) Start() {
	for _, st := range g.stages {
		st.start()
	}
	g.startSinkFanIn()
}

// startSinkFanIn drains every terminal stage's sink edge into a single
// channel. A graph normally materializes exactly one sink (the spec's
// "consumer-side iterator"); a topology left with more than one
// unterminated branch fans all of them into the same stream, in
// whatever order their events become available (see DESIGN.md).
func (g *StageGraph) startSinkFanIn() {
	g.out = make(chan models.MarketEvent, edge.DefaultBufferSize)
	var wg sync.WaitGroup
	wg.Add(len(g.sinks))
	for _, sink := range g.sinks {
		sink := sink
		go func() {
			defer wg.Done()
			for {
				evt, ok := sink.Emit()
				if !ok {
					return
				}
				g.out <- evt
			}
		}()
	}
	go func() {
		wg.Wait()
		close(g.out)
	}()
}

// Events returns the consumer-side, pull-driven iterator over
// MarketEvents the topology builder's Stream() operation describes: a
// Go channel closed once every terminal stage has drained and
// finished. A slow reader throttles the whole graph, same as any other
// downstream consumer (§5's backpressure model applies to the sink
// exactly like any other subscription).
func (g *StageGraph) Events() <-chan models.MarketEvent {
	return g.out
}

// Wait blocks until every stage has finished and returns the first
// non-nil error reported by any of them, if any.
func (g *StageGraph) Wait() error {
	var first error
	for _, st := range g.stages {
		if err := st.wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Abort immediately stops every stage by aborting every edge in the
// graph with err.
func (g *StageGraph) Abort(err error) {
	for _, st := range g.stages {
		for _, out := range st.outs {
			out.Abort(err)
		}
		for _, in := range st.ins {
			in.Edge.Abort(err)
		}
	}
}

// Stats returns the running counters for every stage, in topological
// order.
func (g *StageGraph) Stats() []Stats {
	out := make([]Stats, len(g.stages))
	for i, st := range g.stages {
		out[i] = st.Stats()
	}
	return out
}

// Dot returns a graphviz .dot representation of the underlying
// PipelineSpec, named name.
func (g *StageGraph) Dot(name string) []byte {
	return g.spec.Dot(name)
}
