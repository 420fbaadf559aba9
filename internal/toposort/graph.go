// Copyright 2026 The Conftree Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package toposort orders the vertices of a directed graph.
//
// Vertices are the integers 0 to n-1, typically the positions of entries in
// an ordered container. An edge from a to b means that a must be ordered
// before b.
package toposort

import (
	"fmt"
	"slices"
)

const (
	NodeUnsorted = -1
)

type Graph struct {
	nodes Nodes
}

type Node struct {
	Index    int
	Outgoing Nodes
	Incoming Nodes
	position int
}

func (n *Node) IsSorted() bool {
	return n.position >= 0
}

// Position reports the index of n in the last order computed by
// [Graph.Sort], or NodeUnsorted.
func (n *Node) Position() int {
	return n.position
}

type Nodes []*Node

func (nodes Nodes) Indices() []int {
	indices := make([]int, len(nodes))
	for i, node := range nodes {
		indices[i] = node.Index
	}
	return indices
}

type edge struct {
	from int
	to   int
}

type GraphBuilder struct {
	edgesSet map[edge]struct{}
	nodes    Nodes
}

// NewGraphBuilder returns a builder for a graph with n vertices and no
// edges.
func NewGraphBuilder(n int) *GraphBuilder {
	nodes := make(Nodes, n)
	for i := range nodes {
		nodes[i] = &Node{Index: i, position: NodeUnsorted}
	}
	return &GraphBuilder{
		edgesSet: make(map[edge]struct{}),
		nodes:    nodes,
	}
}

// AddEdge adds an edge between the two vertices. This method is
// idempotent: multiple calls with the same arguments will not create
// multiple edges.
func (builder *GraphBuilder) AddEdge(from, to int) {
	edge := edge{from: from, to: to}
	if _, found := builder.edgesSet[edge]; found {
		return
	}
	builder.edgesSet[edge] = struct{}{}
	fromNode, toNode := builder.nodes[from], builder.nodes[to]
	fromNode.Outgoing = append(fromNode.Outgoing, toNode)
	toNode.Incoming = append(toNode.Incoming, fromNode)
}

func (builder *GraphBuilder) Build() *Graph {
	return &Graph{nodes: builder.nodes}
}

// Len reports the number of vertices of the graph.
func (graph *Graph) Len() int {
	return len(graph.nodes)
}

// Node returns the node for vertex i.
func (graph *Graph) Node(i int) *Node {
	return graph.nodes[i]
}

// HasEdge reports whether there is an edge from a to b.
func (graph *Graph) HasEdge(from, to int) bool {
	for _, n := range graph.nodes[from].Outgoing {
		if n.Index == to {
			return true
		}
	}
	return false
}

// CycleError is returned by Sort when the graph has a cycle.
type CycleError struct {
	// Unsorted lists the vertices that could not be ordered, in increasing
	// order. Each of them is on, or reachable from, a cycle.
	Unsorted []int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph has a cycle through %d vertices", len(e.Unsorted))
}

// Sort returns the vertices of the graph such that each edge points from an
// earlier to a later vertex.
//
// It uses Kahn's algorithm. The worklist is a stack that is seeded with all
// vertices without incoming edges in increasing order, so the vertex that
// is emitted first is the last such vertex. Vertices whose last incoming
// edge is removed are pushed in the order of the outgoing edges that
// released them.
//
// If the graph has a cycle, Sort returns a *CycleError and no order.
func (graph *Graph) Sort() ([]int, error) {
	for _, node := range graph.nodes {
		node.position = NodeUnsorted
	}

	inDegree := make([]int, len(graph.nodes))
	var stack Nodes
	for i, node := range graph.nodes {
		inDegree[i] = len(node.Incoming)
		if inDegree[i] == 0 {
			stack = append(stack, node)
		}
	}

	nodesSorted := make(Nodes, 0, len(graph.nodes))
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node.position = len(nodesSorted)
		nodesSorted = append(nodesSorted, node)

		for _, next := range node.Outgoing {
			inDegree[next.Index]--
			if inDegree[next.Index] == 0 {
				stack = append(stack, next)
			}
		}
	}

	if len(nodesSorted) < len(graph.nodes) {
		err := &CycleError{}
		for _, node := range graph.nodes {
			if !node.IsSorted() {
				err.Unsorted = append(err.Unsorted, node.Index)
			}
			node.position = NodeUnsorted
		}
		return nil, err
	}
	return nodesSorted.Indices(), nil
}

// Unchained returns the position of the first pair of consecutive vertices
// in order that are not connected by an edge, and false. It returns -1 and
// true if every consecutive pair is connected, that is, if order forms a
// single chain.
func (graph *Graph) Unchained(order []int) (int, bool) {
	for i := 1; i < len(order); i++ {
		if !graph.HasEdge(order[i-1], order[i]) {
			return i - 1, false
		}
	}
	return -1, true
}

// Next returns the successor of from that follows it in a chain walk, given
// the set of vertices visited so far: the unvisited successor all of whose
// predecessors have been visited. It returns false if there is no such
// successor, and an error if there is more than one.
func (graph *Graph) Next(from int, visited []bool) (int, bool, error) {
	var candidates []int
	for _, next := range graph.nodes[from].Outgoing {
		if visited[next.Index] {
			continue
		}
		ready := true
		for _, prev := range next.Incoming {
			if !visited[prev.Index] {
				ready = false
				break
			}
		}
		if ready {
			candidates = append(candidates, next.Index)
		}
	}
	switch len(candidates) {
	case 0:
		return -1, false, nil
	case 1:
		return candidates[0], true, nil
	}
	slices.Sort(candidates)
	return -1, false, fmt.Errorf("vertex %d has %d possible successors %v", from, len(candidates), candidates)
}
