// Package pipeline implements the fluent topology builder: AddData,
// Resample, AddIndicator and AddIndicatorsLayer compose a DAG of node
// values; Stream validates it and hands back an immutable PipelineSpec
// the stage package can materialize into running goroutines.
package pipeline

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/quantflow/tickflow/edge"
	"github.com/quantflow/tickflow/feed"
	"github.com/quantflow/tickflow/transform"
)

// Pipeline is the mutable builder. Configuration errors (a duplicate
// feed name, a reference to a stream nothing produces, an invalid
// timeframe string, ...) are recorded as soon as the offending call is
// made rather than panicking, so a chain like
// p.AddData(...).Resample(...).AddIndicator(...) can run to completion
// and Stream() reports the first problem.
type Pipeline struct {
	sources []Node
	id      ID
	sorted  []Node

	outputs map[string]bool

	strategyName string
	balance      float64
	commission   float64

	err error
}

// New returns an empty builder.
func New() *Pipeline {
	return &Pipeline{outputs: make(map[string]bool)}
}

func (p *Pipeline) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

func (p *Pipeline) declareOutput(name string, dup error) error {
	if p.outputs[name] {
		return errors.Wrapf(dup, "%q", name)
	}
	p.outputs[name] = true
	return nil
}

func (p *Pipeline) requireStream(name string) error {
	if !p.outputs[name] {
		return errors.Wrapf(ErrUnknownStream, "%q", name)
	}
	return nil
}

// defaultIndicatorName implements §4.1's name-generation tie-breaking
// rule: try base first, then base_1, base_2, ... choosing the smallest
// unused suffix. Explicit names never go through here, so this is only
// ever reached for a generated default.
func (p *Pipeline) defaultIndicatorName(base string) string {
	if !p.outputs[base] {
		return base
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d", base, n)
		if !p.outputs[candidate] {
			return candidate
		}
	}
}

// indicatorBaseName derives the snake_case default name §4.1 calls for:
// an Indicator implementing transform.Namer controls its own identifier
// (e.g. "SMA" -> "sma"); otherwise the Go type name is used (e.g.
// collectorIndicator -> "collector_indicator").
func indicatorBaseName(ind transform.Indicator) string {
	if n, ok := ind.(transform.Namer); ok {
		return toSnakeCase(n.Name())
	}
	t := reflect.TypeOf(ind)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return toSnakeCase(t.Name())
}

// toSnakeCase lowercases s, inserting an underscore at each word/acronym
// boundary: SMA -> sma, WeightedMovingAverage -> weighted_moving_average.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			boundary := i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1])))
			if boundary {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (p *Pipeline) assignID(n Node) {
	n.setID(p.id)
	p.id++
	n.setPipeline(p)
}

func (p *Pipeline) addSource(n Node) {
	p.assignID(n)
	p.sources = append(p.sources, n)
}

func (p *Pipeline) link(parent, child Node) {
	p.assignID(child)
	parent.linkChild(child)
}

// AddData adds a Producer reading ticks from f and publishing them under
// name. name must be non-empty and not already in use by any node in
// this pipeline.
func (p *Pipeline) AddData(name string, f feed.Factory, opts ...DataOption) *DataNode {
	if len(p.sources) > 0 {
		p.fail(errors.Wrap(ErrDuplicateFeed, "AddData: only one feed is supported"))
	}
	if name == "" {
		p.fail(errors.Wrap(ErrMissingRequiredOption, "AddData: name"))
	}
	if f == nil {
		p.fail(errors.Wrap(ErrNoFeed, "AddData: feed factory is nil"))
	}
	if err := p.declareOutput(name, ErrDuplicateFeed); err != nil {
		p.fail(err)
	}
	dn := &DataNode{
		node:       node{desc: "data"},
		StreamName: name,
		Feed:       f,
		Demand:     edge.DefaultDemandWindow(),
	}
	for _, opt := range opts {
		opt(dn)
	}
	p.addSource(dn)
	return dn
}

func (p *Pipeline) newResample(parent Node, dataName, timeframe string, opts ...ResampleOption) *ResampleNode {
	if err := p.requireStream(dataName); err != nil {
		p.fail(err)
	}
	tf, err := transform.ParseTimeframe(timeframe)
	if err != nil {
		p.fail(err)
	}
	cfg := transform.ResampleConfig{DataName: dataName, Timeframe: tf}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.OutputName == "" {
		cfg.OutputName = dataName + "_" + tf.String()
	}
	if err := p.declareOutput(cfg.OutputName, ErrDuplicateName); err != nil {
		p.fail(err)
	}
	rn := &ResampleNode{
		node:       node{desc: "resample"},
		OutputName: cfg.OutputName,
		Config:     cfg,
	}
	p.link(parent, rn)
	return rn
}

func (p *Pipeline) newIndicator(parent Node, dataName string, ind transform.Indicator, opts ...IndicatorOption) *IndicatorNode {
	if err := p.requireStream(dataName); err != nil {
		p.fail(err)
	}
	if ind == nil {
		p.fail(errors.Wrap(ErrMissingRequiredOption, "AddIndicator: indicator implementation"))
	}
	cfg := transform.IndicatorConfig{DataName: dataName}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.OutputName == "" {
		cfg.OutputName = p.defaultIndicatorName(indicatorBaseName(ind))
	}
	if err := p.declareOutput(cfg.OutputName, ErrDuplicateName); err != nil {
		p.fail(err)
	}
	in := &IndicatorNode{
		node:       node{desc: "indicator"},
		OutputName: cfg.OutputName,
		Config:     cfg,
		Indicator:  ind,
	}
	p.link(parent, in)
	return in
}

func (p *Pipeline) newLayer(parent Node, specs ...IndicatorSpec) *AggregateNode {
	if len(specs) == 0 {
		p.fail(ErrEmptyLayer)
	}
	bNode := &BroadcastNode{node: node{desc: "broadcast"}}
	p.link(parent, bNode)

	branches := make([]Node, 0, len(specs))
	for _, spec := range specs {
		in := p.newIndicator(bNode, spec.DataName, spec.Indicator, spec.Options...)
		branches = append(branches, in)
	}

	aNode := &AggregateNode{node: node{desc: "aggregate"}}
	for _, b := range branches {
		p.link(b, aNode)
	}
	return aNode
}

// AddStrategy, SetBalance and SetCommission record backtest metadata
// that a strategy-execution engine would consume; tickflow's pipeline
// itself only streams and enriches market events (see Non-goals), so
// this is carried on PipelineSpec unused by the stage runtime.
func (p *Pipeline) AddStrategy(name string) *Pipeline {
	p.strategyName = name
	return p
}

func (p *Pipeline) SetBalance(v float64) *Pipeline {
	p.balance = v
	return p
}

func (p *Pipeline) SetCommission(v float64) *Pipeline {
	p.commission = v
	return p
}

// Stream validates the accumulated topology and returns an immutable
// PipelineSpec ready for materialization, or the first configuration
// error encountered while building it.
func (p *Pipeline) Stream() (*PipelineSpec, error) {
	if p.err != nil {
		return nil, p.err
	}
	if len(p.sources) == 0 {
		return nil, ErrNoFeed
	}
	spec := &PipelineSpec{
		sources:      p.sources,
		strategyName: p.strategyName,
		balance:      p.balance,
		commission:   p.commission,
	}
	spec.sort()
	return spec, nil
}

// PipelineSpec is the immutable, topologically sorted result of a
// successful Stream() call.
type PipelineSpec struct {
	sources []Node
	sorted  []Node

	strategyName string
	balance      float64
	commission   float64
}

func (s *PipelineSpec) StrategyName() string { return s.strategyName }
func (s *PipelineSpec) Balance() float64     { return s.balance }
func (s *PipelineSpec) Commission() float64  { return s.commission }

// Len returns the number of nodes in the pipeline.
func (s *PipelineSpec) Len() int { return len(s.sorted) }

// Walk calls f on every node exactly once, a parent always before its
// children.
func (s *PipelineSpec) Walk(f func(n Node) error) error {
	for _, n := range s.sorted {
		if err := f(n); err != nil {
			return err
		}
	}
	return nil
}

func (s *PipelineSpec) sort() {
	for i := len(s.sources) - 1; i >= 0; i-- {
		s.visit(s.sources[i])
	}
	for i, j := 0, len(s.sorted)-1; i < j; i, j = i+1, j-1 {
		s.sorted[i], s.sorted[j] = s.sorted[j], s.sorted[i]
	}
}

// visit is a depth-first topological sort, identical in shape to
// Kahn's-alternative DFS ordering used for build-dependency graphs:
// https://en.wikipedia.org/wiki/Topological_sorting#Depth-first_search
func (s *PipelineSpec) visit(n Node) {
	if n.tMark() {
		panic("pipeline contains a cycle")
	}
	if !n.pMark() {
		n.setTMark(true)
		for _, c := range n.Children() {
			s.visit(c)
		}
		n.setPMark(true)
		n.setTMark(false)
		s.sorted = append(s.sorted, n)
	}
}

// Dot returns a graphviz .dot representation of the topology, named
// name.
func (s *PipelineSpec) Dot(name string) []byte {
	var buf bytes.Buffer
	buf.WriteString("digraph " + name + " {\n")
	_ = s.Walk(func(n Node) error {
		n.dot(&buf)
		return nil
	})
	buf.WriteString("}")
	return buf.Bytes()
}
