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

// Package payload defines the plain data from which configuration trees are
// built and into which they are exported.
//
// A payload value is one of
//
//	*Map           an object whose fields keep their insertion order
//	[]any          a list
//	string
//	*apd.Decimal   a number, kept exactly as written
//	bool
//	nil
//
// A tagged variant is a two-element list whose first element is the variant
// name: ["vlan", {"parent": "eth0", "id": 10}].
package payload

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Field is a key-value pair of a Map.
type Field struct {
	Key   string
	Value any
}

// Map is an ordered object. The zero Map is empty and ready to use.
type Map struct {
	fields []Field
	index  map[string]int
}

// NewMap returns a Map with the given fields. Later fields replace earlier
// ones with the same key, keeping the earlier position.
func NewMap(fields ...Field) *Map {
	m := &Map{}
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return m
}

// Len reports the number of fields of m. A nil Map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.fields)
}

// Fields returns the fields of m in order.
func (m *Map) Fields() []Field {
	if m == nil {
		return nil
	}
	return m.fields
}

// Keys returns the keys of m in order.
func (m *Map) Keys() []string {
	keys := make([]string, m.Len())
	for i, f := range m.Fields() {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value for key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	i, ok := m.index[key]
	if !ok {
		return nil, false
	}
	return m.fields[i].Value, true
}

// Set sets the value for key, appending a new field if key is not present.
func (m *Map) Set(key string, v any) {
	if i, ok := m.index[key]; ok {
		m.fields[i].Value = v
		return
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[key] = len(m.fields)
	m.fields = append(m.fields, Field{Key: key, Value: v})
}

// Delete removes key from m.
func (m *Map) Delete(key string) {
	i, ok := m.index[key]
	if !ok {
		return
	}
	m.fields = append(m.fields[:i], m.fields[i+1:]...)
	delete(m.index, key)
	for j := i; j < len(m.fields); j++ {
		m.index[m.fields[j].Key] = j
	}
}

// Variant splits a tagged variant into its name and body.
func Variant(v any) (name string, body any, err error) {
	list, ok := v.([]any)
	if !ok || len(list) != 2 {
		return "", nil, fmt.Errorf("expected [variant, payload] pair, found %s", Kind(v))
	}
	name, ok = list[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("variant name must be a string, found %s", Kind(list[0]))
	}
	return name, list[1], nil
}

// NewVariant returns the tagged variant for name and body.
func NewVariant(name string, body any) []any {
	return []any{name, body}
}

// Int returns a number payload for x.
func Int(x int64) *apd.Decimal {
	return apd.New(x, 0)
}

// Int64 returns the value of an integral number payload.
func Int64(v any) (int64, error) {
	d, ok := v.(*apd.Decimal)
	if !ok {
		return 0, fmt.Errorf("expected number, found %s", Kind(v))
	}
	x, err := d.Int64()
	if err != nil {
		return 0, fmt.Errorf("number %s is not a 64-bit integer", d)
	}
	return x, nil
}

// Kind returns a human readable description of the type of payload v.
func Kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case *Map:
		return "object"
	case []any:
		return "list"
	case string:
		return "string"
	case *apd.Decimal:
		return "number"
	case bool:
		return "bool"
	}
	return fmt.Sprintf("%T", v)
}

// Equal reports whether a and b are structurally identical. Fields of
// objects must appear in the same order; numbers are compared by value.
func Equal(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Map:
		y, ok := b.(*Map)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, f := range x.Fields() {
			g := y.fields[i]
			if f.Key != g.Key || !Equal(f.Value, g.Value) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case *apd.Decimal:
		y, ok := b.(*apd.Decimal)
		return ok && x.Cmp(y) == 0
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	}
	return false
}
