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

	"github.com/cockroachdb/apd/v3"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/payload"
)

// An Exporter is a node that renders its own payload.
type Exporter interface {
	Node
	ExportPayload() (any, error)
}

type exporter interface {
	export() (v any, ok bool, err error)
}

// Export renders the subtree of n as a payload of the same shape as the
// one it was built from. Export only reads the tree: entries that have
// not been built are rendered from their stored payload, references from
// their keys, and inferred values are left out.
func Export(n Node) (any, error) {
	v, _, err := exportValue(n)
	return v, err
}

func exportValue(x any) (any, bool, error) {
	switch x := x.(type) {
	case nil:
		return nil, false, nil
	case exporter:
		return x.export()
	case component:
		return nil, false, nil
	case Exporter:
		v, err := x.ExportPayload()
		return v, err == nil, err
	case Composite:
		m := &payload.Map{}
		for _, f := range x.Fields() {
			v, ok, err := exportValue(f.Component)
			if err != nil {
				return nil, false, err
			}
			if ok {
				m.Set(f.Label, v)
			}
		}
		return m, true, nil
	case Node:
		return nil, false, fmt.Errorf("%s: cannot export %T", x.Path(), x)
	case *string:
		if x == nil {
			return nil, false, nil
		}
		return *x, true, nil
	case *apd.Decimal:
		if x == nil {
			return nil, false, nil
		}
		return x, true, nil
	case string, bool, *payload.Map, []any:
		return x, true, nil
	}
	return nil, false, fmt.Errorf("cannot export value of type %T", x)
}

// container is implemented by components that hold child nodes.
type container interface {
	child(label string) (any, error)
}

// target is implemented by references.
type target interface {
	target() (Node, error)
}

func (r *Reference[T]) target() (Node, error) { return r.Target() }

func (r *OptionalReference[T]) target() (Node, error) {
	t, ok, err := r.Target()
	if err != nil || !ok {
		return nil, err
	}
	return t, nil
}

// Find returns the node or component at path p relative to n. Path
// elements select fields of composite nodes, keys of dictionaries, members
// [i] of sets and the active variant of state groups. References are
// followed when the path continues past them.
func Find(n Node, p Path) (any, error) {
	var cur any = n
	at := n.Path()
	for _, label := range p {
		if r, ok := cur.(target); ok {
			t, err := r.target()
			if err != nil {
				return nil, err
			}
			if t == nil {
				return nil, errors.Newf(errors.ReferenceNotFound, at, "reference is absent")
			}
			cur, at = t, t.Path()
		}
		next, err := step(cur, at, label)
		if err != nil {
			return nil, err
		}
		cur, at = next, at.Append(label)
	}
	return cur, nil
}

func step(cur any, at Path, label string) (any, error) {
	switch x := cur.(type) {
	case container:
		return x.child(label)
	case Composite:
		for _, f := range x.Fields() {
			if f.Label == label {
				return f.Component, nil
			}
		}
		return nil, notFound(x, label)
	}
	return nil, errors.Newf(errors.RequiredEntryMissing, at, "cannot select %q from %T", label, cur)
}

func notFound(n Node, label string) error {
	return errors.Newf(errors.RequiredEntryMissing, n.Path(), "%q not found", label)
}
