package pipeline

import (
	"bytes"
	"fmt"
)

// ID uniquely identifies a node within one PipelineSpec.
type ID int

// Node is a generic node in a pipeline's DAG. Concrete node types
// (DataNode, ResampleNode, IndicatorNode, BroadcastNode, AggregateNode)
// embed node and add their own fields; callers type-assert
// down to the concrete type when they need more than graph structure.
type Node interface {
	Parents() []Node
	Children() []Node
	addParent(p Node)
	linkChild(c Node)

	Desc() string
	Name() string

	ID() ID
	setID(ID)

	tMark() bool
	setTMark(bool)
	pMark() bool
	setPMark(bool)
	setPipeline(*Pipeline)

	dot(buf *bytes.Buffer)
}

type node struct {
	p        *Pipeline
	desc     string
	name     string
	id       ID
	parents  []Node
	children []Node
	tm       bool
	pm       bool
}

func (n *node) Desc() string { return n.desc }

func (n *node) Name() string {
	if n.name == "" {
		n.name = fmt.Sprintf("%s%d", n.desc, n.id)
	}
	return n.name
}

func (n *node) ID() ID        { return n.id }
func (n *node) setID(id ID)   { n.id = id }
func (n *node) Parents() []Node  { return n.parents }
func (n *node) Children() []Node { return n.children }

func (n *node) addParent(p Node) { n.parents = append(n.parents, p) }

func (n *node) linkChild(c Node) {
	n.children = append(n.children, c)
	c.addParent(n)
}

func (n *node) tMark() bool      { return n.tm }
func (n *node) setTMark(b bool)  { n.tm = b }
func (n *node) pMark() bool      { return n.pm }
func (n *node) setPMark(b bool)  { n.pm = b }
func (n *node) setPipeline(p *Pipeline) { n.p = p }

func (n *node) dot(buf *bytes.Buffer) {
	for _, c := range n.children {
		fmt.Fprintf(buf, "%s -> %s;\n", dotQuote(n.Name()), dotQuote(c.Name()))
	}
	if len(n.children) == 0 && len(n.parents) == 0 {
		fmt.Fprintf(buf, "%s;\n", dotQuote(n.Name()))
	}
}

func dotQuote(s string) string {
	return fmt.Sprintf("%q", s)
}
