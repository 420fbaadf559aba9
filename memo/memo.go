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

// Package memo implements single-slot lazily computed values with cycle
// detection.
//
// A Memo runs its computation at most once until it is detached. A
// computation that, directly or through other memos, asks for its own value
// fails with a CyclicDependency error instead of recursing without bound.
//
// Memos are not safe for concurrent use.
package memo

import (
	"strings"

	"github.com/conftree/conftree/errors"
)

// State is the evaluation state of a Memo.
type State uint8

const (
	// Unresolved indicates the computation has not run, or its result was
	// discarded by Detach.
	Unresolved State = iota

	// Resolving indicates the computation is in progress. Observing a memo
	// in this state from within its own computation is a cycle.
	Resolving

	// Resolved indicates the result is cached.
	Resolved
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	}
	return "invalid"
}

// Func computes the value of a Memo. It is called with detach set to false
// to compute the value, and once more with detach set to true when a
// resolved memo is detached, so that it can release effects it registered
// while resolving, such as reference counts.
type Func[T any] func(detach bool) (T, error)

// A Cell is a memoized slot tracked by a Ledger.
type Cell interface {
	// Path reports the tree path of the value computed by the cell.
	Path() []string

	// State reports the evaluation state of the cell.
	State() State

	// release detaches the cell, discarding its value.
	release() error
}

// Memo is a lazily computed value.
type Memo[T any] struct {
	ledger *Ledger
	path   []string
	state  State
	value  T
	fn     Func[T]
}

// New returns an unresolved Memo for fn. The ledger l may be nil, in which
// case reads are not tracked and cycle reports only name the memo itself.
func New[T any](l *Ledger, path []string, fn Func[T]) *Memo[T] {
	return &Memo[T]{ledger: l, path: path, fn: fn}
}

// Path implements Cell.
func (m *Memo[T]) Path() []string { return m.path }

// State implements Cell.
func (m *Memo[T]) State() State { return m.state }

// Get returns the value of m, computing it if necessary.
func (m *Memo[T]) Get() (T, error) {
	switch m.state {
	case Resolved:
		m.ledger.read(m)
		return m.value, nil

	case Resolving:
		var zero T
		chain := m.ledger.chain(m)
		m.ledger.logCycle(m, chain)
		return zero, errors.Newf(errors.CyclicDependency, m.path,
			"cyclic dependency: %s", strings.Join(chain, " -> "))
	}

	m.ledger.push(m)
	m.state = Resolving
	v, err := m.fn(false)
	m.ledger.pop(m)
	if err != nil {
		m.state = Unresolved
		m.ledger.forget(m)
		var zero T
		return zero, err
	}
	m.state = Resolved
	m.value = v
	m.ledger.logResolved(m)
	return v, nil
}

// Detach releases the effects of a previous resolution and returns m to
// the Unresolved state. It returns the discarded value. Detaching an
// unresolved memo is a no-op.
func (m *Memo[T]) Detach() (T, error) {
	var zero T
	switch m.state {
	case Unresolved:
		return zero, nil
	case Resolving:
		return zero, errors.Newf(errors.CyclicDependency, m.path,
			"cannot detach value while it is being computed")
	}

	if _, err := m.fn(true); err != nil {
		return zero, err
	}
	prior := m.value
	m.value = zero
	m.state = Unresolved
	m.ledger.forget(m)
	m.ledger.logDetached(m)
	return prior, nil
}

func (m *Memo[T]) release() error {
	_, err := m.Detach()
	return err
}

// MaybeMemo is a Memo whose computation may produce no value.
type MaybeMemo[T any] struct {
	m *Memo[option[T]]
}

type option[T any] struct {
	value T
	ok    bool
}

// MaybeFunc computes the value of a MaybeMemo. It reports false if there is
// no value.
type MaybeFunc[T any] func(detach bool) (T, bool, error)

// NewMaybe returns an unresolved MaybeMemo for fn.
func NewMaybe[T any](l *Ledger, path []string, fn MaybeFunc[T]) *MaybeMemo[T] {
	return &MaybeMemo[T]{m: New(l, path, func(detach bool) (option[T], error) {
		v, ok, err := fn(detach)
		return option[T]{v, ok}, err
	})}
}

// Path implements Cell.
func (m *MaybeMemo[T]) Path() []string { return m.m.path }

// State implements Cell.
func (m *MaybeMemo[T]) State() State { return m.m.state }

// Get returns the value of m, computing it if necessary. It reports false
// if the computation produced no value.
func (m *MaybeMemo[T]) Get() (T, bool, error) {
	o, err := m.m.Get()
	return o.value, o.ok, err
}

// Detach is like Memo.Detach.
func (m *MaybeMemo[T]) Detach() (T, bool, error) {
	o, err := m.m.Detach()
	return o.value, o.ok, err
}

func (m *MaybeMemo[T]) release() error {
	_, err := m.m.Detach()
	return err
}

// cell returns the Cell that the ledger tracks for m.
func (m *MaybeMemo[T]) cell() Cell { return m.m }
