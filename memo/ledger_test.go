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

package memo

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/conftree/conftree/errors"
)

func paths(cells []Cell) []string {
	var out []string
	for _, c := range cells {
		out = append(out, errors.PathString(c.Path()))
	}
	return out
}

func TestInvalidate(t *testing.T) {
	l := NewLedger(nil)
	base := 10
	var log []string
	track := func(name string, detach bool) {
		if detach {
			log = append(log, "-"+name)
		} else {
			log = append(log, "+"+name)
		}
	}

	src := New(l, []string{"src"}, func(detach bool) (int, error) {
		track("src", detach)
		return base, nil
	})
	double := New(l, []string{"double"}, func(detach bool) (int, error) {
		track("double", detach)
		v, err := src.Get()
		return 2 * v, err
	})
	sum := New(l, []string{"sum"}, func(detach bool) (int, error) {
		track("sum", detach)
		if detach {
			return 0, nil
		}
		a, err := src.Get()
		if err != nil {
			return 0, err
		}
		b, err := double.Get()
		return a + b, err
	})
	other := New(l, []string{"other"}, func(detach bool) (int, error) {
		track("other", detach)
		return 1, nil
	})

	v, err := sum.Get()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, 30))
	_, _ = other.Get()

	qt.Assert(t, qt.DeepEquals(paths(l.Dependents(src)), []string{"sum", "double"}))
	qt.Assert(t, qt.HasLen(l.Dependents(other), 0))

	log = nil
	base = 20
	qt.Assert(t, qt.IsNil(l.Invalidate(src)))
	qt.Assert(t, qt.DeepEquals(log, []string{"-sum", "-double", "-src"}))
	qt.Assert(t, qt.Equals(sum.State(), Unresolved))
	qt.Assert(t, qt.Equals(double.State(), Unresolved))
	qt.Assert(t, qt.Equals(src.State(), Unresolved))
	qt.Assert(t, qt.Equals(other.State(), Resolved))

	v, err = sum.Get()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, 60))
}

func TestInvalidateUnresolvedIsNoop(t *testing.T) {
	l := NewLedger(nil)
	calls := 0
	m := New(l, []string{"m"}, func(bool) (int, error) {
		calls++
		return 0, nil
	})
	qt.Assert(t, qt.IsNil(l.Invalidate(m)))
	qt.Assert(t, qt.Equals(calls, 0))
}

func TestInvalidateMaybe(t *testing.T) {
	l := NewLedger(nil)
	opt := NewMaybe(l, []string{"opt"}, func(bool) (int, bool, error) { return 3, true, nil })
	user := New(l, []string{"user"}, func(bool) (int, error) {
		v, _, err := opt.Get()
		return v, err
	})
	_, err := user.Get()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(paths(l.Dependents(opt)), []string{"user"}))

	qt.Assert(t, qt.IsNil(l.Invalidate(opt)))
	qt.Assert(t, qt.Equals(opt.State(), Unresolved))
	qt.Assert(t, qt.Equals(user.State(), Unresolved))
}

func TestNilLedger(t *testing.T) {
	var l *Ledger
	m := New(l, []string{"m"}, func(bool) (int, error) { return 7, nil })
	_, _ = m.Get()
	qt.Assert(t, qt.Equals(l.Depth(), 0))
	qt.Assert(t, qt.HasLen(l.Dependents(m), 0))
	qt.Assert(t, qt.IsNil(l.Invalidate(m)))
	qt.Assert(t, qt.Equals(m.State(), Unresolved))
}
