package search

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/knightline/game"
)

const traceGraph = "search"

// Trace records the tree explored by one search. A nil *Trace records nothing.
type Trace struct {
	max    int
	count  int
	labels map[string]string
	order  []string
	edges  [][2]string
}

func newTrace(max int) *Trace {
	return &Trace{max: max, labels: make(map[string]string)}
}

// node allocates a node ID. It returns "" once the cap is reached.
func (t *Trace) node() string {
	if t == nil || t.count >= t.max {
		return ""
	}
	id := "n" + strconv.Itoa(t.count)
	t.count++
	t.labels[id] = ""
	t.order = append(t.order, id)
	return id
}

func (t *Trace) edge(parent, child string, m game.Movement, score float32) {
	if t == nil || parent == "" || child == "" {
		return
	}
	t.labels[child] = fmt.Sprintf("%v %.2f", m, score)
	t.edges = append(t.edges, [2]string{parent, child})
}

func (t *Trace) label(id, text string) {
	if t == nil || id == "" {
		return
	}
	t.labels[id] = text
}

// Nodes is the number of recorded nodes.
func (t *Trace) Nodes() int {
	if t == nil {
		return 0
	}
	return t.count
}

// String renders the tree in Graphviz DOT.
func (t *Trace) String() string {
	g := gographviz.NewGraph()
	if err := g.SetName(traceGraph); err != nil {
		return ""
	}
	if err := g.SetDir(true); err != nil {
		return ""
	}
	for _, id := range t.order {
		if err := g.AddNode(traceGraph, id, map[string]string{"label": strconv.Quote(t.labels[id])}); err != nil {
			return ""
		}
	}
	for _, e := range t.edges {
		if err := g.AddEdge(e[0], e[1], true, nil); err != nil {
			return ""
		}
	}
	return g.String()
}
