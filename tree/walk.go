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

// A Field is a named part of a composite node.
type Field struct {
	Label string

	// Component is one of
	//
	//	a component such as *Reference, *Value, *Dictionary or *StateGroup
	//	a Node
	//	a payload scalar: string, *string, bool, *apd.Decimal or nil
	//
	// Nil values and nil pointers are left out of exports.
	Component any
}

// A Composite node lists its parts in declared order.
type Composite interface {
	Node
	Fields() []Field
}

// component is implemented by the parts of a node that hold deferred
// values.
type component interface {
	resolve() error
	release() error
}

// Resolve runs the validation walk over n: it computes every deferred value
// and resolves every reference below n, building lazy entries as it goes.
// It stops at the first failure in declaration order.
func Resolve(n Node) error {
	return walk(n, false)
}

// Release runs the validation walk over n in reverse, undoing the effects
// of Resolve: references are detached, releasing the reference counts they
// hold, and memoized values are discarded. Entries stay built.
func Release(n Node) error {
	return walk(n, true)
}

func walk(x any, detach bool) error {
	switch x := x.(type) {
	case component:
		if detach {
			return x.release()
		}
		return x.resolve()

	case Composite:
		fields := x.Fields()
		if detach {
			for i := len(fields) - 1; i >= 0; i-- {
				if err := walk(fields[i].Component, true); err != nil {
					return err
				}
			}
			return nil
		}
		for _, f := range fields {
			if err := walk(f.Component, false); err != nil {
				return err
			}
		}
	}
	return nil
}
