package services

import (
	"sort"

	"github.com/google/uuid"
)

const graphComponent = "graph"

// PrerequisiteGraph maps a node to the nodes it requires
type PrerequisiteGraph map[uuid.UUID][]uuid.UUID

// AddEdge records that from requires to
func (g PrerequisiteGraph) AddEdge(from, to uuid.UUID) {
	g[from] = append(g[from], to)
}

// nodeCount counts every distinct node, including pure prerequisites
func (g PrerequisiteGraph) nodeCount() int {
	seen := make(map[uuid.UUID]struct{}, len(g))
	for from, tos := range g {
		seen[from] = struct{}{}
		for _, to := range tos {
			seen[to] = struct{}{}
		}
	}
	return len(seen)
}

// CanAddEdge reports whether "from requires to" keeps the graph acyclic.
// It walks everything to already requires; reaching from means the new edge closes a cycle.
func CanAddEdge(graph PrerequisiteGraph, from, to uuid.UUID) error {
	if from == to {
		return newEngineError(graphComponent, "CanAddEdge", ErrSelfReference,
			"%s cannot be its own prerequisite", from)
	}

	// Bound the walk so a corrupt graph cannot spin forever
	bound := graph.nodeCount() + 2
	visited := make(map[uuid.UUID]struct{}, bound)
	stack := append([]uuid.UUID(nil), graph[to]...)
	steps := 0

	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if node == from {
			return newEngineError(graphComponent, "CanAddEdge", ErrCircularDependency,
				"adding %s as prerequisite of %s would create a cycle", to, from)
		}
		if _, ok := visited[node]; ok {
			continue
		}
		visited[node] = struct{}{}

		steps++
		if steps > bound {
			return newEngineError(graphComponent, "CanAddEdge", ErrCircularDependency,
				"traversal exceeded %d nodes from %s", bound, to)
		}

		stack = append(stack, graph[node]...)
	}

	return nil
}

// FindCycle runs an in-degree sweep and returns the nodes left on or behind
// a cycle, sorted. Nil means the graph is acyclic.
func FindCycle(graph PrerequisiteGraph) []uuid.UUID {
	indeg := map[uuid.UUID]int{}
	for from, tos := range graph {
		if _, ok := indeg[from]; !ok {
			indeg[from] = 0
		}
		for _, to := range tos {
			indeg[to]++
		}
	}

	queue := make([]uuid.UUID, 0, len(indeg))
	for node, deg := range indeg {
		if deg == 0 {
			queue = append(queue, node)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, to := range graph[n] {
			indeg[to]--
			if indeg[to] == 0 {
				queue = append(queue, to)
			}
		}
	}

	var remaining []uuid.UUID
	for node, deg := range indeg {
		if deg > 0 {
			remaining = append(remaining, node)
		}
	}
	sort.Slice(remaining, func(i, j int) bool {
		return remaining[i].String() < remaining[j].String()
	})
	return remaining
}
