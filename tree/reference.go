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
	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/memo"
)

// A Lookup finds the node that a key refers to. It reports false if there
// is no such node.
type Lookup[T Node] func(key Path) (T, bool, error)

// In returns a Lookup that finds the first element of a key among the
// entries of the dictionary returned by d. The dictionary is obtained on
// each lookup, so it may be created after the reference.
func In[V Node](d func() *Dictionary[V]) Lookup[V] {
	return func(key Path) (V, bool, error) {
		var zero V
		if len(key) == 0 {
			return zero, false, nil
		}
		dict := d()
		if dict == nil {
			return zero, false, nil
		}
		n, ok, err := dict.Get(key[0])
		if err != nil || !ok || len(key) == 1 {
			return n, ok, err
		}
		// Longer keys address a node below the entry.
		v, err := Find(n, key[1:])
		if err != nil {
			return zero, false, nil
		}
		t, ok := v.(V)
		return t, ok, nil
	}
}

// InputLookup returns a Lookup that finds keys in the input tree with the
// given name of the tree of from. The dictionary to search is selected by d
// from the root of the input tree.
func InputLookup[V Node](from Node, input string, d func(root Node) *Dictionary[V]) Lookup[V] {
	return func(key Path) (V, bool, error) {
		var zero V
		in, ok := from.base().t.Input(input)
		if !ok {
			return zero, false, errors.Newf(errors.RequiredEntryMissing, from.Path(),
				"input %q not provided", input)
		}
		return In(func() *Dictionary[V] { return d(in.Root()) })(key)
	}
}

// A Reference is a key together with the deferred lookup of the node it
// refers to.
//
// A counted reference increments the reference count of its target when
// it is resolved and decrements it again when it is detached.
type Reference[T Node] struct {
	key     Path
	counted bool
	held    T
	ledger  *memo.Ledger
	m       *memo.Memo[T]
}

// NewReference returns a reference, declared by field label of node from,
// to the node that key identifies according to lookup.
func NewReference[T Node](from Node, label string, key Path, lookup Lookup[T], counted bool) *Reference[T] {
	r := &Reference[T]{key: key, counted: counted, ledger: ledgerOf(from)}
	path := from.Path().Append(label)
	r.m = memo.New(r.ledger, path, func(detach bool) (T, error) {
		if detach {
			if r.counted {
				addRef(r.held, -1)
			}
			var zero T
			r.held = zero
			return zero, nil
		}
		t, ok, err := lookup(r.key)
		if err != nil {
			return t, err
		}
		if !ok {
			return t, errors.Newf(errors.ReferenceNotFound, path,
				"reference %q not found", r.key.String())
		}
		if r.counted {
			addRef(t, 1)
		}
		r.held = t
		return t, nil
	})
	return r
}

// Key reports the key of r.
func (r *Reference[T]) Key() Path { return r.key }

// Counted reports whether r takes part in reference counting.
func (r *Reference[T]) Counted() bool { return r.counted }

// Target returns the node that r refers to. A target that has been
// discarded since it was looked up, such as an entry removed from an input
// tree, is looked up again.
func (r *Reference[T]) Target() (T, error) {
	if err := r.refresh(); err != nil {
		var zero T
		return zero, err
	}
	return r.m.Get()
}

// refresh invalidates r, and everything computed from it, if its target
// was discarded.
func (r *Reference[T]) refresh() error {
	if r.m.State() != memo.Resolved || !r.held.base().Discarded() {
		return nil
	}
	return r.ledger.Invalidate(r.m)
}

// Resolved reports whether the target of r has been looked up.
func (r *Reference[T]) Resolved() bool { return r.m.State() == memo.Resolved }

// Detach releases the target of r.
func (r *Reference[T]) Detach() error {
	_, err := r.m.Detach()
	return err
}

// Cell implements Tracked.
func (r *Reference[T]) Cell() memo.Cell { return r.m }

func (r *Reference[T]) resolve() error {
	_, err := r.Target()
	return err
}

func (r *Reference[T]) release() error { return r.Detach() }

func (r *Reference[T]) export() (any, bool, error) {
	return keyPayload(r.key), true, nil
}

// keyPayload renders a single element key as a string and longer keys as
// lists of strings.
func keyPayload(key Path) any {
	if len(key) == 1 {
		return key[0]
	}
	list := make([]any, len(key))
	for i, k := range key {
		list[i] = k
	}
	return list
}

// An OptionalReference is a reference whose key may be absent. An absent
// key resolves to no value; a key that is present must still resolve.
type OptionalReference[T Node] struct {
	key     Path
	counted bool
	held    T
	ledger  *memo.Ledger
	m       *memo.MaybeMemo[T]
}

// NewOptionalReference is like NewReference. A nil key means the
// reference is absent.
func NewOptionalReference[T Node](from Node, label string, key Path, lookup Lookup[T], counted bool) *OptionalReference[T] {
	r := &OptionalReference[T]{key: key, counted: counted, ledger: ledgerOf(from)}
	path := from.Path().Append(label)
	r.m = memo.NewMaybe(r.ledger, path, func(detach bool) (T, bool, error) {
		var zero T
		if r.key == nil {
			return zero, false, nil
		}
		if detach {
			if r.counted {
				addRef(r.held, -1)
			}
			r.held = zero
			return zero, false, nil
		}
		t, ok, err := lookup(r.key)
		if err != nil {
			return t, false, err
		}
		if !ok {
			return t, false, errors.Newf(errors.ReferenceNotFound, path,
				"reference %q not found", r.key.String())
		}
		if r.counted {
			addRef(t, 1)
		}
		r.held = t
		return t, true, nil
	})
	return r
}

// Key reports the key of r, or nil if it is absent.
func (r *OptionalReference[T]) Key() Path { return r.key }

// Target returns the node that r refers to. It reports false if the key is
// absent.
func (r *OptionalReference[T]) Target() (T, bool, error) {
	if err := r.refresh(); err != nil {
		var zero T
		return zero, false, err
	}
	return r.m.Get()
}

func (r *OptionalReference[T]) refresh() error {
	if r.key == nil || r.m.State() != memo.Resolved || !r.held.base().Discarded() {
		return nil
	}
	return r.ledger.Invalidate(r.m)
}

// Detach releases the target of r.
func (r *OptionalReference[T]) Detach() error {
	_, _, err := r.m.Detach()
	return err
}

// Cell implements Tracked.
func (r *OptionalReference[T]) Cell() memo.Cell { return r.m }

func (r *OptionalReference[T]) resolve() error {
	_, _, err := r.Target()
	return err
}

func (r *OptionalReference[T]) release() error { return r.Detach() }

func (r *OptionalReference[T]) export() (any, bool, error) {
	if r.key == nil {
		return nil, false, nil
	}
	return keyPayload(r.key), true, nil
}

// A ReferenceList is the ordered list of references declared by a single
// field.
type ReferenceList[T Node] struct {
	refs []*Reference[T]
}

// NewReferenceList returns references for each of keys. The reference for
// the i-th key is declared at label[i].
func NewReferenceList[T Node](from Node, label string, keys []Path, lookup Lookup[T], counted bool) *ReferenceList[T] {
	l := &ReferenceList[T]{refs: make([]*Reference[T], len(keys))}
	for i, k := range keys {
		l.refs[i] = NewReference(from, label+memberLabel(i), k, lookup, counted)
	}
	return l
}

// Len reports the number of references in l.
func (l *ReferenceList[T]) Len() int { return len(l.refs) }

// At returns the i-th reference of l.
func (l *ReferenceList[T]) At(i int) *Reference[T] { return l.refs[i] }

// Targets resolves all references of l, in order.
func (l *ReferenceList[T]) Targets() ([]T, error) {
	out := make([]T, 0, len(l.refs))
	for _, r := range l.refs {
		t, err := r.Target()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (l *ReferenceList[T]) resolve() error {
	for _, r := range l.refs {
		if err := r.resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (l *ReferenceList[T]) release() error {
	for i := len(l.refs) - 1; i >= 0; i-- {
		if err := l.refs[i].release(); err != nil {
			return err
		}
	}
	return nil
}

func (l *ReferenceList[T]) child(label string) (any, error) {
	for i, r := range l.refs {
		if label == memberLabel(i) {
			return r, nil
		}
	}
	return nil, errors.Newf(errors.RequiredEntryMissing, nil, "%q not found", label)
}

func (l *ReferenceList[T]) export() (any, bool, error) {
	list := make([]any, len(l.refs))
	for i, r := range l.refs {
		list[i] = keyPayload(r.key)
	}
	return list, true, nil
}

// A Value is a value inferred from other parts of the tree. It is computed
// on first access and by the validation walk.
type Value[T any] struct {
	m *memo.Memo[T]
}

// NewValue returns a Value, declared by field label of node n, that is
// computed by fn.
func NewValue[T any](n Node, label string, fn func() (T, error)) *Value[T] {
	return &Value[T]{m: memo.New(ledgerOf(n), n.Path().Append(label), func(detach bool) (T, error) {
		if detach {
			var zero T
			return zero, nil
		}
		return fn()
	})}
}

// Get returns the value, computing it if necessary.
func (v *Value[T]) Get() (T, error) { return v.m.Get() }

// Cell implements Tracked.
func (v *Value[T]) Cell() memo.Cell { return v.m }

func (v *Value[T]) resolve() error {
	_, err := v.m.Get()
	return err
}

func (v *Value[T]) release() error {
	_, err := v.m.Detach()
	return err
}
