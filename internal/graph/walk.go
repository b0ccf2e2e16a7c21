package graph

import (
	"errors"
	"slices"
)

var ErrCycle = errors.New("dependency graph contains a cycle")

type mark uint8

const (
	unvisited mark = iota
	onPath
	finished
)

// Cycles returns one path per back edge met by a depth-first walk over the
// sorted nodes. Each path starts and ends with the same contract.
func (g *Graph) Cycles() [][]string {
	var cycles [][]string
	g.walk(
		func(path []string, to string) {
			i := slices.Index(path, to)
			cycles = append(cycles, append(slices.Clone(path[i:]), to))
		},
		nil,
	)
	return cycles
}

// Order lists every node after the nodes it has edges to. Unrelated nodes
// keep id order.
func (g *Graph) Order() ([]string, error) {
	order := make([]string, 0, len(g.nodes))
	cyclic := false
	g.walk(
		func([]string, string) { cyclic = true },
		func(id string) { order = append(order, id) },
	)
	if cyclic {
		return nil, ErrCycle
	}
	return order, nil
}

func (g *Graph) walk(backEdge func(path []string, to string), finish func(id string)) {
	marks := make(map[string]mark, len(g.nodes))
	var path []string

	var visit func(id string)
	visit = func(id string) {
		marks[id] = onPath
		path = append(path, id)

		for _, to := range g.targets(id) {
			switch marks[to] {
			case unvisited:
				visit(to)
			case onPath:
				backEdge(path, to)
			}
		}

		path = path[:len(path)-1]
		marks[id] = finished
		if finish != nil {
			finish(id)
		}
	}

	for _, id := range g.Nodes() {
		if marks[id] == unvisited {
			visit(id)
		}
	}
}
