// Package graph is a contract-level dependency graph built from a registry
// snapshot. Several builders of one contract merge into a single node.
package graph

import (
	"slices"
)

// EdgeKind tells whether a dependency must be provided.
type EdgeKind uint8

const (
	// Single edges come from single-valued injection points. A single edge
	// to a contract nobody provides is missing.
	Single EdgeKind = iota
	// Collection edges come from collection injection points. They order and
	// cycle like single edges but may point at nothing.
	Collection
)

func (k EdgeKind) String() string {
	if k == Collection {
		return "collection"
	}
	return "single"
}

type Edge struct {
	To   string
	Kind EdgeKind
}

type Node struct {
	ID       string
	Builders int
	// OnDemand marks contracts with no builder yet that a generic family
	// supplies on first request.
	OnDemand bool
	Edges    []Edge
}

type Graph struct {
	nodes map[string]*Node
}

func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

func (g *Graph) node(id string) *Node {
	n, ok := g.nodes[id]
	if !ok {
		n = &Node{ID: id}
		g.nodes[id] = n
	}
	return n
}

// AddBuilder records one builder of id. Edges of builders sharing an id are
// merged; a single edge wins over a collection edge to the same contract.
func (g *Graph) AddBuilder(id string, edges ...Edge) {
	n := g.node(id)
	n.Builders++
	n.OnDemand = false

	for _, e := range edges {
		i := slices.IndexFunc(n.Edges, func(x Edge) bool { return x.To == e.To })
		switch {
		case i < 0:
			n.Edges = append(n.Edges, e)
		case e.Kind == Single:
			n.Edges[i].Kind = Single
		}
	}
}

// Provide marks id as available without a builder.
func (g *Graph) Provide(id string) {
	if n, ok := g.nodes[id]; ok && n.Builders > 0 {
		return
	}
	g.node(id).OnDemand = true
}

func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	cp := *n
	cp.Edges = slices.Clone(n.Edges)
	return cp, true
}

// Nodes returns node ids in sorted order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependents returns the sorted ids of nodes with an edge of any kind to id.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, from := range g.Nodes() {
		if slices.ContainsFunc(g.nodes[from].Edges, func(e Edge) bool { return e.To == id }) {
			out = append(out, from)
		}
	}
	return out
}

// Missing returns the sorted contracts that a single edge needs and no node
// provides.
func (g *Graph) Missing() []string {
	var missing []string
	for _, n := range g.nodes {
		for _, e := range n.Edges {
			if e.Kind != Single {
				continue
			}
			if _, ok := g.nodes[e.To]; !ok && !slices.Contains(missing, e.To) {
				missing = append(missing, e.To)
			}
		}
	}
	slices.Sort(missing)
	return missing
}

// targets yields the edges of id that land on a known node, sorted by target.
func (g *Graph) targets(id string) []string {
	var out []string
	for _, e := range g.nodes[id].Edges {
		if _, ok := g.nodes[e.To]; ok {
			out = append(out, e.To)
		}
	}
	slices.Sort(out)
	return out
}
