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
	"strconv"
	"strings"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/payload"
)

// A Set is an unordered container of nodes. Members are always built when
// the set is created and are distinguished by identity, not by value.
type Set[V Node] struct {
	Base

	members []V
	ids     map[NodeID]bool
}

// NewSet returns a Set, held by field label of owner, with a member for
// each element of the list payload v. The i-th member is labeled [i].
func NewSet[V Node](owner Node, label string, v any, build Build[V]) (*Set[V], error) {
	s := Attach(owner, label, &Set[V]{ids: map[NodeID]bool{}})
	var list []any
	switch x := v.(type) {
	case nil:
	case []any:
		list = x
	default:
		return nil, errors.Newf(errors.InvalidPayload, s.Path(), "expected list, found %s", payload.Kind(v))
	}
	for i, e := range list {
		n, err := build(s, memberLabel(i), e)
		if err != nil {
			return nil, err
		}
		if n.base().t == nil {
			Attach(s, memberLabel(i), n)
		}
		s.members = append(s.members, n)
		s.ids[n.base().id] = true
	}
	return s, nil
}

func memberLabel(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// Has reports whether n is a member of s.
func (s *Set[V]) Has(n Node) bool {
	b := n.base()
	return b.t == s.t && s.ids[b.id]
}

// Len reports the number of members of s.
func (s *Set[V]) Len() int { return len(s.members) }

// Members returns the members of s. The order carries no meaning.
func (s *Set[V]) Members() []V { return s.members }

// ForEach calls f for each member of s, stopping at the first error.
func (s *Set[V]) ForEach(f func(V) error) error {
	for _, n := range s.members {
		if err := f(n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set[V]) resolve() error {
	return s.ForEach(func(n V) error { return walk(n, false) })
}

func (s *Set[V]) release() error {
	for i := len(s.members) - 1; i >= 0; i-- {
		if err := walk(s.members[i], true); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set[V]) export() (any, bool, error) {
	list := make([]any, len(s.members))
	for i, n := range s.members {
		v, err := Export(n)
		if err != nil {
			return nil, false, err
		}
		list[i] = v
	}
	return list, true, nil
}

func (s *Set[V]) child(label string) (any, error) {
	str := strings.TrimSuffix(strings.TrimPrefix(label, "["), "]")
	i, err := strconv.Atoi(str)
	if err != nil || i < 0 || i >= len(s.members) {
		return nil, notFound(s, label)
	}
	return s.members[i], nil
}
