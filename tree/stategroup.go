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
	"slices"
	"strings"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/payload"
)

// Variants maps variant names to the constructors of their nodes.
type Variants map[string]Build[Node]

// Variant adapts a typed constructor for use in Variants.
func Variant[V Node](b Build[V]) Build[Node] {
	return func(parent Node, label string, v any) (Node, error) {
		return b(parent, label, v)
	}
}

// A StateGroup is a tagged union. Exactly one variant is active; its node
// is built when the group is created.
type StateGroup struct {
	Base

	variant string
	node    Node
}

// NewStateGroup returns a StateGroup, held by field label of owner, for
// the tagged payload v, which is a [name, body] pair.
func NewStateGroup(owner Node, label string, v any, variants Variants) (*StateGroup, error) {
	sg := Attach(owner, label, &StateGroup{})
	name, body, err := payload.Variant(v)
	if err != nil {
		return nil, errors.Wrapf(err, errors.InvalidPayload, sg.Path(), "")
	}
	build, ok := variants[name]
	if !ok {
		names := make([]string, 0, len(variants))
		for k := range variants {
			names = append(names, k)
		}
		slices.Sort(names)
		return nil, errors.Newf(errors.InvalidPayload, sg.Path(),
			"unknown variant %q; expected one of %s", name, strings.Join(names, ", "))
	}
	n, err := build(sg, name, body)
	if err != nil {
		return nil, err
	}
	if n.base().t == nil {
		Attach(sg, name, n)
	}
	sg.variant = name
	sg.node = n
	return sg, nil
}

// Variant reports the name of the active variant.
func (sg *StateGroup) Variant() string { return sg.variant }

// Node returns the node of the active variant.
func (sg *StateGroup) Node() Node { return sg.node }

// Cast returns the node of the variant with the given name. It fails with
// InvalidVariantCast if that variant is not the active one.
func Cast[V Node](sg *StateGroup, name string) (V, error) {
	var zero V
	if name != sg.variant {
		return zero, errors.Newf(errors.InvalidVariantCast, sg.node.Path(),
			"cannot cast to variant %q: active variant is %q", name, sg.variant)
	}
	n, ok := sg.node.(V)
	if !ok {
		return zero, errors.Newf(errors.InvalidVariantCast, sg.node.Path(),
			"variant %q is %T, not %T", name, sg.node, zero)
	}
	return n, nil
}

// A Handler computes a result from the node of a variant.
type Handler[R any] func(n Node) (R, error)

// Cases maps variant names to handlers. The handler for Otherwise, if any,
// is used for variants without their own handler.
type Cases[R any] map[string]Handler[R]

// Otherwise is the key of the fallback handler in Cases.
const Otherwise = "*"

// Const returns a handler that yields v.
func Const[R any](v R) Handler[R] {
	return func(Node) (R, error) { return v, nil }
}

// On returns a handler that calls f with the node of the variant, which
// must be of type V.
func On[V Node, R any](f func(V) (R, error)) Handler[R] {
	return func(n Node) (R, error) {
		v, ok := n.(V)
		if !ok {
			var zero R
			var want V
			return zero, errors.Newf(errors.InvalidVariantCast, n.Path(), "variant is %T, not %T", n, want)
		}
		return f(v)
	}
}

// Match calls the handler for the active variant of sg.
func Match[R any](sg *StateGroup, cases Cases[R]) (R, error) {
	h, ok := cases[sg.variant]
	if !ok {
		h, ok = cases[Otherwise]
	}
	if !ok {
		var zero R
		return zero, errors.Newf(errors.InvalidVariantCast, sg.node.Path(),
			"no case for variant %q", sg.variant)
	}
	return h(sg.node)
}

func (sg *StateGroup) resolve() error { return walk(sg.node, false) }

func (sg *StateGroup) release() error { return walk(sg.node, true) }

func (sg *StateGroup) export() (any, bool, error) {
	v, err := Export(sg.node)
	if err != nil {
		return nil, false, err
	}
	return payload.NewVariant(sg.variant, v), true, nil
}

func (sg *StateGroup) child(label string) (any, error) {
	if label != sg.variant {
		return nil, errors.Newf(errors.InvalidVariantCast, sg.node.Path(),
			"cannot cast to variant %q: active variant is %q", label, sg.variant)
	}
	return sg.node, nil
}
