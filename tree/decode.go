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
	"github.com/cockroachdb/apd/v3"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/payload"
)

// Object returns v as an object payload for node n. A nil payload is an
// empty object.
func Object(n Node, v any) (*payload.Map, error) {
	switch x := v.(type) {
	case nil:
		return &payload.Map{}, nil
	case *payload.Map:
		return x, nil
	}
	return nil, errors.Newf(errors.InvalidPayload, n.Path(), "expected object, found %s", payload.Kind(v))
}

// A Decoder reads the fields of the object payload of a node. The first
// error is kept and reported by Err, which also reports fields that were
// never read.
type Decoder struct {
	n    Node
	m    *payload.Map
	seen map[string]bool
	err  error
}

// NewDecoder returns a Decoder for the payload v of n.
func NewDecoder(n Node, v any) *Decoder {
	m, err := Object(n, v)
	return &Decoder{n: n, m: m, seen: map[string]bool{}, err: err}
}

func (d *Decoder) fail(name, format string, args ...any) {
	if d.err == nil {
		d.err = errors.Newf(errors.InvalidPayload, d.n.Path().Append(name), format, args...)
	}
}

// Value returns the raw payload of the named field.
func (d *Decoder) Value(name string) (any, bool) {
	if d.err != nil {
		return nil, false
	}
	d.seen[name] = true
	return d.m.Get(name)
}

// Required returns the raw payload of the named field, which must be
// present.
func (d *Decoder) Required(name string) any {
	v, ok := d.Value(name)
	if !ok {
		d.fail(name, "missing required field")
	}
	return v
}

// String returns the named string field, which must be present.
func (d *Decoder) String(name string) string {
	v := d.Required(name)
	s, ok := v.(string)
	if !ok && d.err == nil {
		d.fail(name, "expected string, found %s", payload.Kind(v))
	}
	return s
}

// OptString returns the named string field, or nil if it is absent.
func (d *Decoder) OptString(name string) *string {
	v, ok := d.Value(name)
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		d.fail(name, "expected string, found %s", payload.Kind(v))
		return nil
	}
	return &s
}

// OptNumber returns the named number field, or nil if it is absent.
func (d *Decoder) OptNumber(name string) *apd.Decimal {
	v, ok := d.Value(name)
	if !ok {
		return nil
	}
	x, ok := v.(*apd.Decimal)
	if !ok {
		d.fail(name, "expected number, found %s", payload.Kind(v))
		return nil
	}
	return x
}

// Number returns the named number field, which must be present.
func (d *Decoder) Number(name string) *apd.Decimal {
	if _, ok := d.m.Get(name); !ok && d.err == nil {
		d.seen[name] = true
		d.fail(name, "missing required field")
		return nil
	}
	return d.OptNumber(name)
}

// Key returns the named key field, which must be present. A key is a
// string or a list of strings.
func (d *Decoder) Key(name string) Path {
	v := d.Required(name)
	if d.err != nil {
		return nil
	}
	return d.key(name, v)
}

// OptKey returns the named key field, or nil if it is absent.
func (d *Decoder) OptKey(name string) Path {
	v, ok := d.Value(name)
	if !ok {
		return nil
	}
	return d.key(name, v)
}

// Keys returns the named list of keys, or nil if it is absent.
func (d *Decoder) Keys(name string) []Path {
	v, ok := d.Value(name)
	if !ok {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		d.fail(name, "expected list, found %s", payload.Kind(v))
		return nil
	}
	keys := make([]Path, len(list))
	for i, e := range list {
		keys[i] = d.key(name, e)
	}
	return keys
}

func (d *Decoder) key(name string, v any) Path {
	switch x := v.(type) {
	case string:
		return Path{x}
	case []any:
		p := make(Path, len(x))
		for i, e := range x {
			s, ok := e.(string)
			if !ok {
				d.fail(name, "key element must be a string, found %s", payload.Kind(e))
				return nil
			}
			p[i] = s
		}
		if len(p) > 0 {
			return p
		}
	}
	d.fail(name, "expected key, found %s", payload.Kind(v))
	return nil
}

// Err returns the first error encountered, or an error for the first
// field that was not read.
func (d *Decoder) Err() error {
	if d.err != nil {
		return d.err
	}
	for _, f := range d.m.Fields() {
		if !d.seen[f.Key] {
			return errors.Newf(errors.InvalidPayload, d.n.Path().Append(f.Key), "unknown field")
		}
	}
	return nil
}
