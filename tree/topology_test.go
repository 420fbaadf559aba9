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
	"fmt"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/tree"
)

// graphSrc returns a payload with one vertex for each letter of keys.
// Each edge "xy" makes y follow x.
func graphSrc(keys string, edges ...string) string {
	var b strings.Builder
	b.WriteString("nodes:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %c:\n", k)
		var next []string
		for _, e := range edges {
			if rune(e[0]) == k {
				next = append(next, e[1:])
			}
		}
		if next != nil {
			fmt.Fprintf(&b, "    next: [%s]\n", strings.Join(next, ", "))
		}
		b.WriteString("    weight: 1\n")
	}
	return b.String()
}

func keysOf(order []string) string {
	return strings.Join(order, "")
}

var sortTests = []struct {
	name  string
	keys  string
	edges []string
	next  string
	prev  string
}{{
	name: "empty",
}, {
	name: "unconstrained",
	keys: "abc",
	next: "cba",
	prev: "cba",
}, {
	name:  "chain",
	keys:  "abc",
	edges: []string{"ab", "bc"},
	next:  "abc",
	prev:  "cba",
}, {
	name:  "fan in",
	keys:  "abc",
	edges: []string{"ab", "cb"},
	next:  "cab",
	prev:  "bca",
}, {
	name:  "fan out",
	keys:  "abc",
	edges: []string{"ab", "ac"},
	next:  "acb",
	prev:  "cba",
}, {
	name:  "diamond",
	keys:  "abcd",
	edges: []string{"ab", "ac", "bd", "cd"},
	next:  "acbd",
	prev:  "dcba",
}, {
	name:  "inserted late",
	keys:  "cab",
	edges: []string{"ab", "bc"},
	next:  "abc",
	prev:  "cba",
}}

func TestTopoSort(t *testing.T) {
	for _, tc := range sortTests {
		t.Run(tc.name, func(t *testing.T) {
			_, r := create(t, graphSrc(tc.keys, tc.edges...), false)
			next, err := r.Nodes.TopoSort("next")
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(keysOf(next), tc.next))

			prev, err := r.Nodes.TopoSort("prev")
			qt.Assert(t, qt.IsNil(err))
			qt.Check(t, qt.Equals(keysOf(prev), tc.prev))
		})
	}
}

func TestTopoSortStable(t *testing.T) {
	_, r := create(t, graphSrc("abcd", "ab", "ac", "bd", "cd"), false)
	first, err := r.Nodes.TopoSort("next")
	qt.Assert(t, qt.IsNil(err))
	for i := 0; i < 3; i++ {
		again, err := r.Nodes.TopoSort("next")
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.DeepEquals(again, first))
	}
}

func TestGraphs(t *testing.T) {
	_, r := create(t, graphSrc("ab", "ab"), false)
	qt.Assert(t, qt.DeepEquals(r.Nodes.Graphs(), []string{"next", "prev"}))
	dir, err := r.Nodes.Direction("prev")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(dir, tree.Reverse))
	dir, err = r.Nodes.Direction("next")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(dir.String(), "forward"))

	_, err = r.Nodes.TopoSort("sideways")
	qt.Assert(t, qt.ErrorMatches(err, `nodes: unknown graph "sideways"`))
	_, err = r.Nodes.Direction("sideways")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestCycleDetected(t *testing.T) {
	tr, r := create(t, graphSrc("abc", "ab", "ba"), true)
	order, err := r.Nodes.TopoSort("next")
	qt.Assert(t, qt.IsNil(order))
	qt.Assert(t, qt.ErrorIs(err, errors.CycleDetected))
	qt.Assert(t, qt.ErrorMatches(err, `nodes: graph "next" has a cycle among a, b`))

	_, err = r.Nodes.TopoSort("prev")
	qt.Assert(t, qt.ErrorMatches(err, `nodes: graph "prev" has a cycle among a, b`))

	// A failed sort is not cached.
	_, err = r.Nodes.TopoSort("next")
	qt.Assert(t, qt.ErrorIs(err, errors.CycleDetected))
	qt.Assert(t, qt.Equals(tr.Ledger().Depth(), 0))
}

func TestEdgeToMissingEntry(t *testing.T) {
	_, r := create(t, graphSrc("ab", "ab", "bz"), true)
	_, err := r.Nodes.TopoSort("next")
	qt.Assert(t, qt.ErrorIs(err, errors.RequiredEntryMissing))
	qt.Assert(t, qt.ErrorMatches(err, `nodes.b: graph "next": edge to missing entry "z"`))
}

func TestTotallyOrdered(t *testing.T) {
	testCases := []struct {
		name    string
		keys    string
		edges   []string
		graph   string
		wantErr string
	}{{
		name:  "chain",
		keys:  "abc",
		edges: []string{"ab", "bc"},
		graph: "next",
	}, {
		name:  "reversed chain",
		keys:  "abc",
		edges: []string{"ab", "bc"},
		graph: "prev",
	}, {
		name:  "diamond with spine",
		keys:  "abcd",
		edges: []string{"ab", "ac", "bd", "cd", "cb"},
		graph: "next",
	}, {
		name:  "single",
		keys:  "a",
		graph: "next",
	}, {
		name:    "fan in",
		keys:    "abc",
		edges:   []string{"ab", "cb"},
		graph:   "next",
		wantErr: `nodes: graph "next": "c" and "a" are not connected`,
	}, {
		name:    "disconnected",
		keys:    "ab",
		graph:   "prev",
		wantErr: `nodes: graph "prev": "b" and "a" are not connected`,
	}}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, r := create(t, graphSrc(tc.keys, tc.edges...), false)
			err := r.Nodes.TotallyOrdered(tc.graph)
			if tc.wantErr == "" {
				qt.Assert(t, qt.IsNil(err))
				return
			}
			qt.Assert(t, qt.ErrorIs(err, errors.NotTotallyOrdered))
			qt.Assert(t, qt.ErrorMatches(err, tc.wantErr))
		})
	}
}

func walkChain(c *tree.Chain[*vertex]) (string, error) {
	var b strings.Builder
	for c.Next() {
		b.WriteString(c.Key())
		if c.Node().Label() != c.Key() {
			return "", fmt.Errorf("node %s at key %s", c.Node().Path(), c.Key())
		}
	}
	return b.String(), c.Err()
}

func TestChain(t *testing.T) {
	testCases := []struct {
		name    string
		keys    string
		edges   []string
		graph   string
		start   string
		want    string
		wantErr string
	}{{
		name:  "forward",
		keys:  "abc",
		edges: []string{"ab", "bc"},
		graph: "next",
		want:  "abc",
	}, {
		name:  "reverse",
		keys:  "abc",
		edges: []string{"ab", "bc"},
		graph: "prev",
		want:  "cba",
	}, {
		name:  "start",
		keys:  "abc",
		edges: []string{"ab", "bc"},
		graph: "next",
		start: "b",
		want:  "bc",
	}, {
		name:  "out of insertion order",
		keys:  "cba",
		edges: []string{"ab", "bc"},
		graph: "next",
		want:  "abc",
	}, {
		name:  "empty",
		graph: "next",
	}, {
		name:    "fork",
		keys:    "abc",
		edges:   []string{"ab", "ac"},
		graph:   "next",
		want:    "a",
		wantErr: `nodes: graph "next": vertex 0 has 2 possible successors \[1 2\]`,
	}, {
		name:    "two first entries",
		keys:    "abc",
		edges:   []string{"ab", "cb"},
		graph:   "next",
		wantErr: `nodes: graph "next" has 2 possible first entries: a, c`,
	}, {
		name:    "no first entry",
		keys:    "ab",
		edges:   []string{"ab", "ba"},
		graph:   "next",
		wantErr: `nodes: graph "next" has no first entry`,
	}, {
		name:    "missing start",
		keys:    "ab",
		edges:   []string{"ab"},
		graph:   "next",
		start:   "q",
		wantErr: `nodes: missing required entry "q"`,
	}}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, r := create(t, graphSrc(tc.keys, tc.edges...), true)
			got, err := walkChain(r.Nodes.Chain(tc.graph, tc.start))
			if tc.wantErr != "" {
				qt.Assert(t, qt.ErrorMatches(err, tc.wantErr))
			} else {
				qt.Assert(t, qt.IsNil(err))
			}
			qt.Assert(t, qt.Equals(got, tc.want))
		})
	}
}

func TestChainCursor(t *testing.T) {
	_, r := create(t, graphSrc("abc", "ab", "bc"), true)
	c := r.Nodes.Chain("next", "")
	qt.Assert(t, qt.IsTrue(c.Next()))
	qt.Assert(t, qt.Equals(c.Key(), "a"))
	qt.Assert(t, qt.Equals(c.Node(), vertexOf(t, r, "a")))
	qt.Assert(t, qt.IsTrue(c.Next()))
	qt.Assert(t, qt.IsTrue(c.Next()))
	qt.Assert(t, qt.Equals(c.Key(), "c"))
	qt.Assert(t, qt.IsFalse(c.Next()))
	qt.Assert(t, qt.IsFalse(c.Next()))
	qt.Assert(t, qt.IsNil(c.Err()))
	qt.Assert(t, qt.IsNil(c.Node()))
}
