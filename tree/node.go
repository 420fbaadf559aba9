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
	"fmt"

	"github.com/conftree/conftree/errors"
)

// A NodeID identifies a node within its Tree. IDs are never reused, even
// after the node is discarded.
type NodeID int

// NoNode is the parent of a root node.
const NoNode NodeID = -1

// A Path locates a node or a value within a tree. The root has the empty
// path.
type Path []string

// String returns the dotted form of p.
func (p Path) String() string {
	return errors.PathString(p)
}

// Append returns a new path consisting of p followed by elems. It never
// shares storage with p.
func (p Path) Append(elems ...string) Path {
	q := make(Path, 0, len(p)+len(elems))
	q = append(q, p...)
	return append(q, elems...)
}

// A Node is an element of a configuration tree.
//
// All node types embed Base and are registered with their tree through
// Attach or NewRoot before any of their components are created.
type Node interface {
	// Path reports the location of the node within its tree.
	Path() Path

	base() *Base
}

// Base holds the identity of a node. It is embedded by every node type.
type Base struct {
	t  *Tree
	id NodeID
}

func (b *Base) base() *Base { return b }

// ID reports the arena index of the node.
func (b *Base) ID() NodeID { return b.id }

// Tree reports the tree to which the node belongs.
func (b *Base) Tree() *Tree { return b.t }

// Path implements Node.
func (b *Base) Path() Path {
	if b.t == nil {
		return nil
	}
	var rev []string
	for id := b.id; id != NoNode; {
		s := &b.t.slots[id]
		if s.parent != NoNode {
			rev = append(rev, s.label)
		}
		id = s.parent
	}
	p := make(Path, len(rev))
	for i, l := range rev {
		p[len(rev)-1-i] = l
	}
	return p
}

// Label reports the last element of the path of the node.
func (b *Base) Label() string {
	return b.t.slots[b.id].label
}

// Parent returns the node that holds this node, or nil for the root.
func (b *Base) Parent() Node {
	p := b.t.slots[b.id].parent
	if p == NoNode {
		return nil
	}
	return b.t.slots[p].node
}

// Root returns the root of the tree of the node.
func (b *Base) Root() Node {
	return b.t.root
}

// RefCount reports how many counted references currently resolve to the
// node.
func (b *Base) RefCount() int {
	return b.t.slots[b.id].refs
}

// Discarded reports whether the node was removed from its tree.
func (b *Base) Discarded() bool {
	return b.t.slots[b.id].discarded
}

// slot is the arena entry of a node.
type slot struct {
	node      Node
	parent    NodeID
	label     string
	refs      int
	discarded bool
}

// Attach registers n as the child of parent with the given label. It must
// be called before any component of n is created. It returns n.
func Attach[N Node](parent Node, label string, n N) N {
	pb := parent.base()
	if pb.t == nil {
		panic("tree: parent node is not attached")
	}
	pb.t.attach(n, pb.id, label)
	return n
}

// NewRoot registers n as the root of t. It returns n.
func NewRoot[N Node](t *Tree, n N) N {
	if t.root != nil {
		panic("tree: root already set")
	}
	t.attach(n, NoNode, "")
	t.root = n
	return n
}

func (t *Tree) attach(n Node, parent NodeID, label string) {
	b := n.base()
	if b.t != nil {
		panic(fmt.Sprintf("tree: node %s attached twice", b.Path()))
	}
	b.t = t
	b.id = NodeID(len(t.slots))
	t.slots = append(t.slots, slot{node: n, parent: parent, label: label})
}

// discard tombstones the subtree rooted at id.
func (t *Tree) discard(id NodeID) int {
	t.slots[id].discarded = true
	n := 1
	// Children are always registered after their parent.
	for i := int(id) + 1; i < len(t.slots); i++ {
		s := &t.slots[i]
		if s.parent != NoNode && t.slots[s.parent].discarded && !s.discarded {
			s.discarded = true
			n++
		}
	}
	t.gen++
	return n
}

// abandon tombstones the node that a failed build attached to parent
// with the given label, together with everything attached below it. Only
// slots from mark onwards are considered.
func (t *Tree) abandon(mark int, parent NodeID, label string) {
	for i := mark; i < len(t.slots); i++ {
		s := &t.slots[i]
		switch {
		case s.parent == parent && s.label == label:
			s.discarded = true
		case s.parent >= NodeID(mark) && t.slots[s.parent].discarded:
			s.discarded = true
		}
	}
}

func addRef(n Node, delta int) {
	b := n.base()
	b.t.slots[b.id].refs += delta
}
