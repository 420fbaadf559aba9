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

package tree_test

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"

	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

// The graph schema used by the tests below:
//
//	nodes:   a Topology of vertices with graphs "next" (forward) and
//	         "prev" (the same edges, reversed)
//	labels:  a dictionary keyed by references to vertices
//	groups:  a set of groups of vertices

type graphRoot struct {
	tree.Base
	Nodes  *tree.Topology[*vertex]
	Labels *tree.KeyedDictionary[*label, *vertex]
	Groups *tree.Set[*group]
}

func (r *graphRoot) Fields() []tree.Field {
	return []tree.Field{
		{Label: "nodes", Component: r.Nodes},
		{Label: "labels", Component: r.Labels},
		{Label: "groups", Component: r.Groups},
	}
}

func (r *graphRoot) vertices() *tree.Dictionary[*vertex] {
	return r.Nodes.Dictionary
}

type vertex struct {
	tree.Base
	Next   *tree.ReferenceList[*vertex]
	Weight *apd.Decimal
	Shape  *tree.StateGroup
	Total  *tree.Value[int64]
}

func (v *vertex) Fields() []tree.Field {
	var fs []tree.Field
	if v.Next != nil {
		fs = append(fs, tree.Field{Label: "next", Component: v.Next})
	}
	fs = append(fs, tree.Field{Label: "weight", Component: v.Weight})
	if v.Shape != nil {
		fs = append(fs, tree.Field{Label: "shape", Component: v.Shape})
	}
	return append(fs, tree.Field{Label: "total", Component: v.Total})
}

type label struct {
	tree.Base
	Text string
}

func (l *label) Fields() []tree.Field {
	return []tree.Field{{Label: "text", Component: l.Text}}
}

type group struct {
	tree.Base
	Members *tree.ReferenceList[*vertex]
	Lead    *tree.OptionalReference[*vertex]
}

func (g *group) Fields() []tree.Field {
	return []tree.Field{
		{Label: "members", Component: g.Members},
		{Label: "lead", Component: g.Lead},
	}
}

type circle struct {
	tree.Base
	Radius *apd.Decimal
}

func (c *circle) Fields() []tree.Field {
	return []tree.Field{{Label: "radius", Component: c.Radius}}
}

type square struct {
	tree.Base
	Side *apd.Decimal
}

func (s *square) Fields() []tree.Field {
	return []tree.Field{{Label: "side", Component: s.Side}}
}

// point has no payload.
type point struct {
	tree.Base
}

func (p *point) ExportPayload() (any, error) { return nil, nil }

func newGraphSchema(required ...string) *tree.Schema {
	return &tree.Schema{
		Name:    "graph",
		Version: "v1.0.0",
		Build: func(t *tree.Tree, v any) (tree.Node, error) {
			return buildGraph(t, v, required)
		},
	}
}

func buildGraph(t *tree.Tree, v any, required []string) (tree.Node, error) {
	r := tree.NewRoot(t, &graphRoot{})
	d := tree.NewDecoder(r, v)
	nodes, _ := d.Value("nodes")
	labels, _ := d.Value("labels")
	groups, _ := d.Value("groups")
	if err := d.Err(); err != nil {
		return nil, err
	}

	lookup := tree.In(r.vertices)
	var err error
	r.Nodes, err = tree.NewTopology(r, "nodes", nodes,
		func(parent tree.Node, key string, v any) (*vertex, error) {
			return buildVertex(parent, key, v, lookup)
		},
		tree.GraphSpec[*vertex]{Name: "next", Direction: tree.Forward, Edges: nextKeys},
		tree.GraphSpec[*vertex]{Name: "prev", Direction: tree.Reverse, Edges: nextKeys},
	)
	if err != nil {
		return nil, err
	}
	r.Nodes.Require(required...)

	d2, err := tree.NewDictionary(r, "labels", labels, buildLabel)
	if err != nil {
		return nil, err
	}
	r.Labels = tree.KeyBy(d2, lookup)

	r.Groups, err = tree.NewSet(r, "groups", groups, func(parent tree.Node, key string, v any) (*group, error) {
		g := tree.Attach(parent, key, &group{})
		d := tree.NewDecoder(g, v)
		g.Members = tree.NewReferenceList(g, "members", d.Keys("members"), lookup, false)
		g.Lead = tree.NewOptionalReference(g, "lead", d.OptKey("lead"), lookup, true)
		return g, d.Err()
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func buildVertex(parent tree.Node, key string, v any, lookup tree.Lookup[*vertex]) (*vertex, error) {
	n := tree.Attach(parent, key, &vertex{})
	d := tree.NewDecoder(n, v)
	if keys := d.Keys("next"); keys != nil {
		n.Next = tree.NewReferenceList(n, "next", keys, lookup, true)
	}
	n.Weight = d.OptNumber("weight")
	if shape, ok := d.Value("shape"); ok {
		var err error
		n.Shape, err = tree.NewStateGroup(n, "shape", shape, tree.Variants{
			"circle": tree.Variant(func(parent tree.Node, key string, v any) (*circle, error) {
				c := tree.Attach(parent, key, &circle{})
				d := tree.NewDecoder(c, v)
				c.Radius = d.Number("radius")
				return c, d.Err()
			}),
			"square": tree.Variant(func(parent tree.Node, key string, v any) (*square, error) {
				s := tree.Attach(parent, key, &square{})
				d := tree.NewDecoder(s, v)
				s.Side = d.Number("side")
				return s, d.Err()
			}),
			"point": tree.Variant(func(parent tree.Node, key string, v any) (*point, error) {
				return tree.Attach(parent, key, &point{}), nil
			}),
		})
		if err != nil {
			return nil, err
		}
	}
	n.Total = tree.NewValue(n, "total", func() (int64, error) {
		var w int64
		if n.Weight != nil {
			var err error
			if w, err = payload.Int64(n.Weight); err != nil {
				return 0, err
			}
		}
		if n.Next == nil {
			return w, nil
		}
		targets, err := n.Next.Targets()
		if err != nil {
			return 0, err
		}
		for _, t := range targets {
			x, err := t.Total.Get()
			if err != nil {
				return 0, err
			}
			w += x
		}
		return w, nil
	})
	return n, d.Err()
}

func nextKeys(v *vertex) ([]string, error) {
	if v.Next == nil {
		return nil, nil
	}
	keys := make([]string, v.Next.Len())
	for i := range keys {
		keys[i] = v.Next.At(i).Key()[0]
	}
	return keys, nil
}

func buildLabel(parent tree.Node, key string, v any) (*label, error) {
	l := tree.Attach(parent, key, &label{})
	d := tree.NewDecoder(l, v)
	l.Text = d.String("text")
	return l, d.Err()
}

func decode(t *testing.T, src string) any {
	t.Helper()
	v, err := payload.Decode("test.yaml", []byte(src))
	qt.Assert(t, qt.IsNil(err))
	return v
}

func create(t *testing.T, src string, lazy bool) (*tree.Tree, *graphRoot) {
	t.Helper()
	tr, err := tree.Create(newGraphSchema(), decode(t, src), &tree.Options{Lazy: lazy})
	qt.Assert(t, qt.IsNil(err))
	return tr, tr.Root().(*graphRoot)
}

func vertexOf(t *testing.T, r *graphRoot, key string) *vertex {
	t.Helper()
	v, err := r.Nodes.Lookup(key)
	qt.Assert(t, qt.IsNil(err))
	return v
}
