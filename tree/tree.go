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

// Package tree implements the runtime of schema-described configuration
// trees.
//
// A schema describes a tree of typed nodes. Generated (or hand-written) node
// types embed Base and are made of components: references to other nodes
// (Reference, OptionalReference, ReferenceList), inferred values (Value),
// keyed containers (Dictionary, Topology), unordered containers (Set) and
// tagged unions (StateGroup). Create builds a tree from a plain payload and,
// unless the tree is lazy, validates it: every deferred value is computed
// and every reference is resolved. Detach undoes the effects of validation.
//
// A Tree must not be used from more than one goroutine at a time.
package tree

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/internal/treedebug"
	"github.com/conftree/conftree/memo"
)

// Options configures Create.
type Options struct {
	// Lazy defers building container entries until they are first
	// accessed, and leaves validation to the caller.
	Lazy bool

	// Inputs holds other trees that references of the new tree may point
	// into, by name.
	Inputs map[string]*Tree

	// Logger receives diagnostics. It defaults to slog.Default.
	Logger *slog.Logger
}

// A Tree is a configuration tree built by Create.
type Tree struct {
	id     uuid.UUID
	schema *Schema
	lazy   bool
	inputs map[string]*Tree
	log    *slog.Logger
	ledger *memo.Ledger

	slots []slot
	root  Node
	gen   int
}

// Create builds a tree of schema s from payload v. Unless opts.Lazy is
// set, the tree is validated and any validation failure is returned as
// the construction failure.
//
// If opts is nil, the defaults are taken from CONFTREE_DEBUG.
func Create(s *Schema, v any, opts *Options) (*Tree, error) {
	if opts == nil {
		if err := treedebug.Init(); err != nil {
			return nil, err
		}
		opts = &Options{Lazy: treedebug.Flags.Lazy}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	t := &Tree{
		id:     uuid.New(),
		schema: s,
		lazy:   opts.Lazy,
		inputs: opts.Inputs,
	}
	t.log = log.With("tree", t.id.String(), "schema", s.Name)
	t.ledger = memo.NewLedger(nil)
	if treedebug.Flags.LogEval > 0 {
		t.ledger.Logger = t.log
	}

	for _, name := range s.Inputs {
		if _, ok := t.inputs[name]; !ok {
			return nil, errors.Newf(errors.RequiredEntryMissing, nil, "input %q not provided", name)
		}
	}

	root, err := s.Build(t, v)
	if err != nil {
		return nil, err
	}
	if t.root == nil {
		NewRoot(t, root)
	}
	t.log.Debug("tree created", "nodes", len(t.slots), "lazy", t.lazy)

	if !t.lazy {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ID reports the unique identifier of t, used in diagnostics.
func (t *Tree) ID() uuid.UUID { return t.id }

// Schema reports the schema from which t was built.
func (t *Tree) Schema() *Schema { return t.schema }

// Root returns the root node of t.
func (t *Tree) Root() Node { return t.root }

// Lazy reports whether entries of t are built on first access.
func (t *Tree) Lazy() bool { return t.lazy }

// Logger returns the logger of t.
func (t *Tree) Logger() *slog.Logger { return t.log }

// Ledger returns the ledger that tracks the memoized values of t.
func (t *Tree) Ledger() *memo.Ledger { return t.ledger }

// Input returns the input tree with the given name.
func (t *Tree) Input(name string) (*Tree, bool) {
	in, ok := t.inputs[name]
	return in, ok
}

// Generation is incremented each time a subtree is discarded.
func (t *Tree) Generation() int { return t.gen }

// Len reports the number of live nodes of t.
func (t *Tree) Len() int {
	n := 0
	for _, s := range t.slots {
		if !s.discarded {
			n++
		}
	}
	return n
}

// Node returns the node with the given id. It reports false if there is
// no such node or if it was discarded.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if id < 0 || int(id) >= len(t.slots) || t.slots[id].discarded {
		return nil, false
	}
	return t.slots[id].node, true
}

// Validate runs the validation walk over the whole tree.
func (t *Tree) Validate() error {
	if err := Resolve(t.root); err != nil {
		t.log.Debug("tree invalid", "error", err)
		return err
	}
	t.log.Debug("tree validated", "nodes", len(t.slots))
	return nil
}

// Detach releases everything that validation resolved, in reverse order.
// With CONFTREE_DEBUG=strict, it also checks that no counted reference is
// left behind.
func (t *Tree) Detach() error {
	if err := Release(t.root); err != nil {
		return err
	}
	if !treedebug.Flags.Strict {
		return nil
	}
	var errs errors.List
	for _, s := range t.slots {
		if s.refs != 0 && !s.discarded {
			errs.Add(fmt.Errorf("%s: reference count is %d after detach", s.node.Path(), s.refs))
		}
	}
	return errs.Err()
}

// A Tracked value is backed by a memoized cell.
type Tracked interface {
	Cell() memo.Cell
}

// Invalidate detaches c and every value of t that was computed from it,
// so that the next access or validation computes them again.
func (t *Tree) Invalidate(c Tracked) error {
	if t.log.Enabled(context.Background(), slog.LevelDebug) {
		t.log.Debug("invalidate", "path", errors.PathString(c.Cell().Path()),
			"dependents", len(t.ledger.Dependents(c.Cell())))
	}
	return t.ledger.Invalidate(c.Cell())
}

// ledgerOf returns the ledger of the tree of n.
func ledgerOf(n Node) *memo.Ledger {
	return n.base().t.ledger
}
