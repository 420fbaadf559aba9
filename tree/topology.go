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

package tree

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/mpvl/unique"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/internal/toposort"
	"github.com/conftree/conftree/memo"
)

// A Direction declares what the edges of a graph mean.
type Direction uint8

const (
	// Forward edges point from an entry to the entries that come after
	// it, as in "a is followed by b".
	Forward Direction = iota

	// Reverse edges point from an entry to the entries it depends on,
	// which come before it, as in "a is stacked on b".
	Reverse
)

func (d Direction) String() string {
	if d == Reverse {
		return "reverse"
	}
	return "forward"
}

// A GraphSpec declares a named relation between the entries of a
// Topology.
type GraphSpec[V Node] struct {
	Name      string
	Direction Direction

	// Edges returns the keys of the entries to which n has an edge.
	Edges func(n V) ([]string, error)

	// Total requires the entries to form a single chain. It is checked
	// by the validation walk.
	Total bool
}

// A Topology is a Dictionary whose entries are related by one or more named
// graphs.
type Topology[V Node] struct {
	*Dictionary[V]

	graphs map[string]*graph[V]
	names  []string
}

type graph[V Node] struct {
	spec  GraphSpec[V]
	order *memo.Memo[*sorted]
}

// sorted is the result of sorting a graph.
type sorted struct {
	keys  []string // entry keys by vertex
	g     *toposort.Graph
	order []int
}

// NewTopology returns a Topology, held by field label of owner, with an
// entry for each field of the object payload v and the given graphs.
func NewTopology[V Node](owner Node, label string, v any, build Build[V], graphs ...GraphSpec[V]) (*Topology[V], error) {
	d, err := NewDictionary(owner, label, v, build)
	if err != nil {
		return nil, err
	}
	t := &Topology[V]{Dictionary: d, graphs: map[string]*graph[V]{}}
	for _, spec := range graphs {
		if _, ok := t.graphs[spec.Name]; ok {
			continue
		}
		g := &graph[V]{spec: spec}
		g.order = memo.New(ledgerOf(d), d.Path().Append("#"+spec.Name), func(detach bool) (*sorted, error) {
			if detach {
				return nil, nil
			}
			return t.sort(g)
		})
		t.graphs[spec.Name] = g
		t.names = append(t.names, spec.Name)
	}
	unique.Strings(&t.names)
	return t, nil
}

// Graphs returns the names of the graphs of t in sorted order.
func (t *Topology[V]) Graphs() []string {
	return t.names
}

// Direction reports the direction of the named graph.
func (t *Topology[V]) Direction(name string) (Direction, error) {
	g, err := t.graph(name)
	if err != nil {
		return 0, err
	}
	return g.spec.Direction, nil
}

func (t *Topology[V]) graph(name string) (*graph[V], error) {
	g, ok := t.graphs[name]
	if !ok {
		return nil, fmt.Errorf("%s: unknown graph %q", t.Path(), name)
	}
	return g, nil
}

// buildGraph creates the vertex graph for g. Vertices are entry positions.
// Edges always point from the entry that is ordered first.
func (t *Topology[V]) buildGraph(g *graph[V]) (*sorted, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}
	s := &sorted{keys: make([]string, len(entries))}
	for i, e := range entries {
		s.keys[i] = e.Key
	}
	b := toposort.NewGraphBuilder(len(entries))
	for i, e := range entries {
		targets, err := g.spec.Edges(e.Node)
		if err != nil {
			return nil, err
		}
		for _, key := range targets {
			j, ok := t.index[key]
			if !ok {
				return nil, errors.Newf(errors.RequiredEntryMissing, e.Node.Path(),
					"graph %q: edge to missing entry %q", g.spec.Name, key)
			}
			if g.spec.Direction == Reverse {
				b.AddEdge(j, i)
			} else {
				b.AddEdge(i, j)
			}
		}
	}
	s.g = b.Build()
	return s, nil
}

func (t *Topology[V]) sort(g *graph[V]) (*sorted, error) {
	s, err := t.buildGraph(g)
	if err != nil {
		return nil, err
	}
	order, err := s.g.Sort()
	var cerr *toposort.CycleError
	if stderrors.As(err, &cerr) {
		keys := make([]string, len(cerr.Unsorted))
		for i, v := range cerr.Unsorted {
			keys[i] = s.keys[v]
		}
		return nil, errors.Newf(errors.CycleDetected, t.Path(),
			"graph %q has a cycle among %s", g.spec.Name, strings.Join(keys, ", "))
	}
	if err != nil {
		return nil, err
	}
	s.order = order
	t.Tree().Logger().Debug("graph sorted", "path", t.Path().String(), "graph", g.spec.Name, "entries", len(order))
	return s, nil
}

// TopoSort returns the keys of t such that every entry comes after the
// entries it must follow in the named graph. It fails with CycleDetected if
// there is no such order. The order is computed once until the keys of t
// or the edges it was computed from change.
//
// Entries without ordering constraints between them come out in the
// reverse order in which they were inserted.
func (t *Topology[V]) TopoSort(name string) ([]string, error) {
	g, err := t.graph(name)
	if err != nil {
		return nil, err
	}
	s, err := g.order.Get()
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(s.order))
	for i, v := range s.order {
		keys[i] = s.keys[v]
	}
	return keys, nil
}

// TotallyOrdered checks that the sorted entries of the named graph form a
// single chain: each entry must have an edge to or from the next one. It
// fails with NotTotallyOrdered otherwise.
func (t *Topology[V]) TotallyOrdered(name string) error {
	g, err := t.graph(name)
	if err != nil {
		return err
	}
	s, err := g.order.Get()
	if err != nil {
		return err
	}
	if i, ok := s.g.Unchained(s.order); !ok {
		return errors.Newf(errors.NotTotallyOrdered, t.Path(),
			"graph %q: %q and %q are not connected", name, s.keys[s.order[i]], s.keys[s.order[i+1]])
	}
	return nil
}

// Chain returns a cursor over the entries of the named graph that follows
// its edges from the entry with key start. If start is empty, the walk
// starts at the only entry that no other entry must precede.
func (t *Topology[V]) Chain(name, start string) *Chain[V] {
	return &Chain[V]{t: t, name: name, start: start}
}

// A Chain walks a totally ordered graph one entry at a time, without
// sorting it. A Chain cannot be restarted.
type Chain[V Node] struct {
	t     *Topology[V]
	name  string
	start string

	s       *sorted
	visited []bool
	cur     int
	done    bool
	err     error
	node    V
}

// Next advances c to the next entry. It returns false when the walk is
// complete or an error occurred.
func (c *Chain[V]) Next() bool {
	if c.done {
		return false
	}
	next, ok := c.advance()
	if !ok {
		c.done = true
		var zero V
		c.node = zero
		return false
	}
	n, err := c.t.materialize(c.t.entries[next])
	if err != nil {
		c.fail(err)
		return false
	}
	c.visited[next] = true
	c.cur = next
	c.node = n
	return true
}

func (c *Chain[V]) advance() (int, bool) {
	if c.s == nil {
		g, err := c.t.graph(c.name)
		if err != nil {
			c.fail(err)
			return 0, false
		}
		if c.s, err = c.t.buildGraph(g); err != nil {
			c.fail(err)
			return 0, false
		}
		c.visited = make([]bool, len(c.s.keys))
		return c.first()
	}
	next, ok, err := c.s.g.Next(c.cur, c.visited)
	if err != nil {
		c.fail(errors.Wrapf(err, errors.NotTotallyOrdered, c.t.Path(), "graph %q", c.name))
		return 0, false
	}
	return next, ok
}

func (c *Chain[V]) first() (int, bool) {
	if c.start != "" {
		i, ok := c.t.index[c.start]
		if !ok {
			c.fail(errors.Newf(errors.RequiredEntryMissing, c.t.Path(), "missing required entry %q", c.start))
			return 0, false
		}
		return i, true
	}
	var roots []string
	first := -1
	for i := 0; i < c.s.g.Len(); i++ {
		if len(c.s.g.Node(i).Incoming) == 0 {
			roots = append(roots, c.s.keys[i])
			first = i
		}
	}
	switch len(roots) {
	case 0:
		if len(c.s.keys) > 0 {
			c.fail(errors.Newf(errors.CycleDetected, c.t.Path(), "graph %q has no first entry", c.name))
		}
		return 0, false
	case 1:
		return first, true
	}
	c.fail(errors.Newf(errors.NotTotallyOrdered, c.t.Path(),
		"graph %q has %d possible first entries: %s", c.name, len(roots), strings.Join(roots, ", ")))
	return 0, false
}

func (c *Chain[V]) fail(err error) {
	c.err = err
	c.done = true
}

// Key returns the key of the current entry.
func (c *Chain[V]) Key() string {
	if c.s == nil || c.done {
		return ""
	}
	return c.s.keys[c.cur]
}

// Node returns the current entry.
func (c *Chain[V]) Node() V { return c.node }

// Err returns the error that stopped the walk, if any.
func (c *Chain[V]) Err() error { return c.err }

func (t *Topology[V]) resolve() error {
	if err := t.Dictionary.resolve(); err != nil {
		return err
	}
	for _, name := range t.names {
		if _, err := t.TopoSort(name); err != nil {
			return err
		}
		if t.graphs[name].spec.Total {
			if err := t.TotallyOrdered(name); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Topology[V]) release() error {
	for i := len(t.names) - 1; i >= 0; i-- {
		if _, err := t.graphs[t.names[i]].order.Detach(); err != nil {
			return err
		}
	}
	return t.Dictionary.release()
}
