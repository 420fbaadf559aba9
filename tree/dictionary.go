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
	"github.com/conftree/conftree/payload"
)

// A Build function constructs the node for the payload v. The node must be
// attached to parent with the given label before its components are
// created.
type Build[V Node] func(parent Node, label string, v any) (V, error)

type slotState uint8

const (
	pending slotState = iota
	built
)

func (s slotState) String() string {
	if s == built {
		return "built"
	}
	return "pending"
}

type entry[V Node] struct {
	key     string
	state   slotState
	payload any
	node    V
}

// An Entry is a key and node of a Dictionary.
type Entry[V Node] struct {
	Key  string
	Node V
}

// A Dictionary is an insertion-ordered container of nodes keyed by
// strings. In lazy trees, entries are built on first access.
type Dictionary[V Node] struct {
	Base

	build    Build[V]
	entries  []*entry[V]
	index    map[string]int
	required []string
	keyed    keyRefs

	// members is read whenever the set of keys is observed, so that
	// computations depending on it are invalidated by Put and Remove.
	members *memo.Memo[int]
}

// NewDictionary returns a Dictionary, held by field label of owner, with an
// entry for each field of the object payload v.
func NewDictionary[V Node](owner Node, label string, v any, build Build[V]) (*Dictionary[V], error) {
	d := Attach(owner, label, &Dictionary[V]{build: build, index: map[string]int{}})
	d.members = memo.New(ledgerOf(d), d.Path().Append("#keys"), func(bool) (int, error) {
		return len(d.entries), nil
	})
	m, err := Object(d, v)
	if err != nil {
		return nil, err
	}
	for _, f := range m.Fields() {
		d.index[f.Key] = len(d.entries)
		d.entries = append(d.entries, &entry[V]{key: f.Key, payload: f.Value})
	}
	if !d.t.lazy {
		for _, e := range d.entries {
			if _, err := d.materialize(e); err != nil {
				return nil, err
			}
		}
	}
	return d, nil
}

// observe records that the set of keys of d was read. Only the read
// matters; the count cannot fail.
func (d *Dictionary[V]) observe() {
	_, _ = d.members.Get()
}

func (d *Dictionary[V]) materialize(e *entry[V]) (V, error) {
	if e.state == built {
		return e.node, nil
	}
	mark := len(d.t.slots)
	n, err := d.build(d, e.key, e.payload)
	if err != nil {
		d.t.abandon(mark, d.id, e.key)
		var zero V
		return zero, err
	}
	if n.base().t == nil {
		Attach(d, e.key, n)
	}
	e.state = built
	e.node = n
	e.payload = nil
	return n, nil
}

// Get returns the entry for key, building it if necessary. It reports
// false if there is no such entry.
func (d *Dictionary[V]) Get(key string) (V, bool, error) {
	d.observe()
	i, ok := d.index[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	n, err := d.materialize(d.entries[i])
	return n, err == nil, err
}

// Lookup is like Get, but fails with RequiredEntryMissing if there is no
// entry for key.
func (d *Dictionary[V]) Lookup(key string) (V, error) {
	n, ok, err := d.Get(key)
	if err == nil && !ok {
		err = errors.Newf(errors.RequiredEntryMissing, d.Path(), "missing required entry %q", key)
	}
	return n, err
}

// Has reports whether d has an entry for key. It does not build it.
func (d *Dictionary[V]) Has(key string) bool {
	d.observe()
	_, ok := d.index[key]
	return ok
}

// Built reports whether the entry for key has been built.
func (d *Dictionary[V]) Built(key string) bool {
	i, ok := d.index[key]
	return ok && d.entries[i].state == built
}

// Len reports the number of entries of d.
func (d *Dictionary[V]) Len() int {
	d.observe()
	return len(d.entries)
}

// Keys returns the keys of d in insertion order.
func (d *Dictionary[V]) Keys() []string {
	d.observe()
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.key
	}
	return keys
}

// Entries builds all entries of d and returns them in insertion order.
func (d *Dictionary[V]) Entries() ([]Entry[V], error) {
	d.observe()
	out := make([]Entry[V], 0, len(d.entries))
	for _, e := range d.entries {
		n, err := d.materialize(e)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry[V]{Key: e.key, Node: n})
	}
	return out, nil
}

// ForEach calls f for each entry of d in insertion order, stopping at the
// first error.
func (d *Dictionary[V]) ForEach(f func(key string, n V) error) error {
	d.observe()
	for _, e := range d.entries {
		n, err := d.materialize(e)
		if err != nil {
			return err
		}
		if err := f(e.key, n); err != nil {
			return err
		}
	}
	return nil
}

// MapEntries returns the results of f for each entry of d, in insertion
// order.
func MapEntries[V Node, R any](d *Dictionary[V], f func(key string, n V) (R, error)) ([]R, error) {
	out := make([]R, 0, d.Len())
	err := d.ForEach(func(key string, n V) error {
		r, err := f(key, n)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SwitchOnExists calls onExists with the entry for key if there is one,
// and onMissing otherwise.
func SwitchOnExists[V Node, R any](d *Dictionary[V], key string, onExists func(V) (R, error), onMissing func() (R, error)) (R, error) {
	n, ok, err := d.Get(key)
	if err != nil {
		var zero R
		return zero, err
	}
	if !ok {
		return onMissing()
	}
	return onExists(n)
}

// Require declares keys that must be present. They are checked by the
// validation walk.
func (d *Dictionary[V]) Require(keys ...string) *Dictionary[V] {
	d.required = append(d.required, keys...)
	return d
}

// Put adds an entry for key with payload v, or replaces the existing one
// in place. A replaced entry is detached and discarded. Values computed
// from the keys of d are invalidated.
//
// In eager trees the new entry is built first. If that fails, d is left
// unchanged.
func (d *Dictionary[V]) Put(key string, v any) error {
	e := &entry[V]{key: key, payload: v}
	if !d.t.lazy {
		if _, err := d.materialize(e); err != nil {
			return err
		}
	}
	if err := d.t.Invalidate(d.membership()); err != nil {
		d.discardUnused(e)
		return err
	}
	if i, ok := d.index[key]; ok {
		if err := d.drop(d.entries[i]); err != nil {
			d.discardUnused(e)
			return err
		}
		d.entries[i] = e
	} else {
		d.index[key] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	if d.keyed != nil {
		d.keyed.add(key)
	}
	return nil
}

// discardUnused discards the node of an entry that never made it into d.
func (d *Dictionary[V]) discardUnused(e *entry[V]) {
	if e.state == built {
		d.t.discard(e.node.base().id)
	}
}

// Remove detaches and discards the entry for key. It reports false if
// there is no such entry.
func (d *Dictionary[V]) Remove(key string) (bool, error) {
	i, ok := d.index[key]
	if !ok {
		return false, nil
	}
	if err := d.t.Invalidate(d.membership()); err != nil {
		return true, err
	}
	if err := d.drop(d.entries[i]); err != nil {
		return true, err
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, key)
	for j := i; j < len(d.entries); j++ {
		d.index[d.entries[j].key] = j
	}
	return true, nil
}

// drop detaches the subtree of e and discards it.
func (d *Dictionary[V]) drop(e *entry[V]) error {
	if d.keyed != nil {
		if err := d.keyed.remove(e.key); err != nil {
			return err
		}
	}
	if e.state != built {
		return nil
	}
	if err := Release(e.node); err != nil {
		return err
	}
	n := d.t.discard(e.node.base().id)
	d.t.log.Debug("entry discarded", "path", e.node.Path().String(), "nodes", n)
	return nil
}

type trackedMemo struct{ c memo.Cell }

func (t trackedMemo) Cell() memo.Cell { return t.c }

// membership returns the cell that records reads of the keys of d.
func (d *Dictionary[V]) membership() Tracked {
	return trackedMemo{d.members}
}

func (d *Dictionary[V]) resolve() error {
	for _, k := range d.required {
		if !d.Has(k) {
			return errors.Newf(errors.RequiredEntryMissing, d.Path(), "missing required entry %q", k)
		}
	}
	if d.keyed != nil {
		if err := d.keyed.resolveKeys(); err != nil {
			return err
		}
	}
	return d.ForEach(func(_ string, n V) error {
		return walk(n, false)
	})
}

func (d *Dictionary[V]) release() error {
	for i := len(d.entries) - 1; i >= 0; i-- {
		e := d.entries[i]
		if e.state != built {
			continue
		}
		if err := walk(e.node, true); err != nil {
			return err
		}
	}
	if d.keyed != nil {
		if err := d.keyed.releaseKeys(); err != nil {
			return err
		}
	}
	_, err := d.members.Detach()
	return err
}

func (d *Dictionary[V]) export() (any, bool, error) {
	m := &payload.Map{}
	for _, e := range d.entries {
		if e.state == pending {
			m.Set(e.key, e.payload)
			continue
		}
		v, err := Export(e.node)
		if err != nil {
			return nil, false, err
		}
		m.Set(e.key, v)
	}
	return m, true, nil
}

func (d *Dictionary[V]) child(label string) (any, error) {
	n, ok, err := d.Get(label)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(d, label)
	}
	return n, nil
}

// keyRefs tracks the references that the keys of a dictionary stand for.
type keyRefs interface {
	add(key string)
	remove(key string) error
	resolveKeys() error
	releaseKeys() error
}

// A KeyedDictionary is a Dictionary whose keys are themselves references
// to other nodes, such as entries that rename or annotate nodes elsewhere
// in the tree. Key references are counted.
type KeyedDictionary[V, K Node] struct {
	*Dictionary[V]

	lookup Lookup[K]
	refs   map[string]*Reference[K]
}

// KeyBy makes the keys of d references that are resolved with lookup.
func KeyBy[V, K Node](d *Dictionary[V], lookup Lookup[K]) *KeyedDictionary[V, K] {
	kd := &KeyedDictionary[V, K]{
		Dictionary: d,
		lookup:     lookup,
		refs:       map[string]*Reference[K]{},
	}
	for _, e := range d.entries {
		kd.add(e.key)
	}
	d.keyed = kd
	return kd
}

// KeyTarget returns the node that key refers to.
func (kd *KeyedDictionary[V, K]) KeyTarget(key string) (K, error) {
	r, ok := kd.refs[key]
	if !ok {
		var zero K
		return zero, errors.Newf(errors.RequiredEntryMissing, kd.Path(), "missing required entry %q", key)
	}
	return r.Target()
}

// KeyReference returns the reference that key stands for.
func (kd *KeyedDictionary[V, K]) KeyReference(key string) (*Reference[K], bool) {
	r, ok := kd.refs[key]
	return r, ok
}

func (kd *KeyedDictionary[V, K]) add(key string) {
	kd.refs[key] = NewReference(kd.Dictionary, key, Path{key}, kd.lookup, true)
}

func (kd *KeyedDictionary[V, K]) remove(key string) error {
	r, ok := kd.refs[key]
	if !ok {
		return nil
	}
	delete(kd.refs, key)
	return r.Detach()
}

func (kd *KeyedDictionary[V, K]) resolveKeys() error {
	for _, e := range kd.Dictionary.entries {
		if err := kd.refs[e.key].resolve(); err != nil {
			return err
		}
	}
	return nil
}

func (kd *KeyedDictionary[V, K]) releaseKeys() error {
	es := kd.Dictionary.entries
	for i := len(es) - 1; i >= 0; i-- {
		if err := kd.refs[es[i].key].release(); err != nil {
			return err
		}
	}
	return nil
}
