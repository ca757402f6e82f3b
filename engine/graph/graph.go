// Package graph holds the adjacency view of a Workflow: cycle detection and
// level-based (Kahn's algorithm) scheduling order, grounded on the
// other_examples parallel_executor.go's computeExecutionLevels.
package graph

import (
	"fmt"
	"sort"

	"github.com/lyzr/diagflow/engine/model"
)

// Graph is the adjacency view derived from a model.Workflow: predecessor and
// successor sets per node id, built once and read many times by the
// scheduler and validator.
type Graph struct {
	workflow     *model.Workflow
	predecessors map[string]map[string]bool
	successors   map[string]map[string]bool
}

// Build derives a Graph from wf's Nodes and Connections. It does not
// validate acyclicity or endpoint existence — see Validate and HasCycle.
func Build(wf *model.Workflow) *Graph {
	g := &Graph{
		workflow:     wf,
		predecessors: make(map[string]map[string]bool),
		successors:   make(map[string]map[string]bool),
	}
	for id := range wf.Nodes {
		g.predecessors[id] = make(map[string]bool)
		g.successors[id] = make(map[string]bool)
	}
	for _, c := range wf.Connections {
		if g.successors[c.FromID] == nil {
			g.successors[c.FromID] = make(map[string]bool)
		}
		if g.predecessors[c.ToID] == nil {
			g.predecessors[c.ToID] = make(map[string]bool)
		}
		g.successors[c.FromID][c.ToID] = true
		g.predecessors[c.ToID][c.FromID] = true
	}
	return g
}

// Predecessors returns the ids of nodes with a connection into nodeID.
func (g *Graph) Predecessors(nodeID string) []string {
	return keysSorted(g.predecessors[nodeID])
}

// Successors returns the ids of nodes nodeID connects into.
func (g *Graph) Successors(nodeID string) []string {
	return keysSorted(g.successors[nodeID])
}

// Sources returns node ids with no incoming connections — the workflow's
// entry points.
func (g *Graph) Sources() []string {
	var out []string
	for id := range g.workflow.Nodes {
		if len(g.predecessors[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Sinks returns node ids with no outgoing connections.
func (g *Graph) Sinks() []string {
	var out []string
	for id := range g.workflow.Nodes {
		if len(g.successors[id]) == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// HasCycle reports whether the graph contains a cycle, using 3-color DFS.
func (g *Graph) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.workflow.Nodes))
	for id := range g.workflow.Nodes {
		color[id] = white
	}

	ids := make([]string, 0, len(g.workflow.Nodes))
	for id := range g.workflow.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, succ := range g.Successors(id) {
			switch color[succ] {
			case gray:
				return true
			case white:
				if visit(succ) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, id := range ids {
		if color[id] == white {
			if visit(id) {
				return true
			}
		}
	}
	return false
}

// Level is a set of node ids with no dependency among them — every node in
// a Level may execute concurrently once all prior levels have completed.
type Level struct {
	Index   int
	NodeIDs []string
}

// Levels computes the level-parallel schedule via Kahn's algorithm: level 0
// is every source node, level N+1 is every node whose predecessors are all
// assigned to level <= N. Within a level, node ids are sorted for
// deterministic iteration order. Returns an error if the graph contains a
// cycle (not every node gets assigned a level).
func (g *Graph) Levels() ([]Level, error) {
	if g.HasCycle() {
		return nil, fmt.Errorf("graph: workflow contains a cycle")
	}

	inDegree := make(map[string]int, len(g.workflow.Nodes))
	for id := range g.workflow.Nodes {
		inDegree[id] = len(g.predecessors[id])
	}

	assigned := make(map[string]int)
	var levels []Level
	current := g.Sources()
	levelIdx := 0

	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, Level{Index: levelIdx, NodeIDs: current})
		for _, id := range current {
			assigned[id] = levelIdx
		}

		nextSet := make(map[string]bool)
		for _, id := range current {
			for _, succ := range g.Successors(id) {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					if _, ok := assigned[succ]; !ok {
						nextSet[succ] = true
					}
				}
			}
		}

		current = nil
		for id := range nextSet {
			current = append(current, id)
		}
		levelIdx++
	}

	if len(assigned) != len(g.workflow.Nodes) {
		return nil, fmt.Errorf("graph: workflow contains a cycle")
	}
	return levels, nil
}

func keysSorted(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
