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

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestError(t *testing.T) {
	err := Newf(ReferenceNotFound, []string{"interfaces", "vlan10", "parent"}, "reference %q not found", "eth9")
	qt.Assert(t, qt.ErrorMatches(err, `interfaces.vlan10.parent: reference "eth9" not found`))
	qt.Assert(t, qt.ErrorIs(err, ReferenceNotFound))
	qt.Assert(t, qt.IsFalse(errors.Is(err, CycleDetected)))
	qt.Assert(t, qt.Equals(CodeOf(err), ReferenceNotFound))
	qt.Assert(t, qt.DeepEquals(PathOf(err), []string{"interfaces", "vlan10", "parent"}))
}

func TestWrapf(t *testing.T) {
	base := errors.New("boom")
	err := Wrapf(base, InvalidPayload, []string{"a"}, "cannot build")
	qt.Assert(t, qt.ErrorMatches(err, `a: cannot build: boom`))
	qt.Assert(t, qt.ErrorIs(err, base))
	qt.Assert(t, qt.IsTrue(Is(err, InvalidPayload)))

	wrapped := fmt.Errorf("outer: %w", err)
	qt.Assert(t, qt.Equals(CodeOf(wrapped), InvalidPayload))
	qt.Assert(t, qt.Equals(CodeOf(base), Code(0)))
}

func TestPathString(t *testing.T) {
	tests := []struct {
		path []string
		want string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"zones", "[1]", "name"}, "zones.[1].name"},
		{[]string{"interfaces", "eth 0"}, `interfaces."eth 0"`},
		{[]string{"a.b", "c"}, `"a.b".c`},
		{[]string{""}, `""`},
	}
	for _, tc := range tests {
		qt.Check(t, qt.Equals(PathString(tc.path), tc.want))
	}
}

func TestList(t *testing.T) {
	var l List
	qt.Assert(t, qt.IsNil(l.Err()))
	qt.Assert(t, qt.Equals(l.Error(), "no errors"))

	l.Add(Newf(CycleDetected, []string{"b"}, "cycle"))
	l.Add(Newf(ReferenceNotFound, []string{"a"}, "missing"))
	l.Add(Newf(CycleDetected, []string{"b"}, "cycle"))
	l.Add(nil)
	l.Add(errors.New("plain"))
	qt.Assert(t, qt.Equals(l.Len(), 4))
	qt.Assert(t, qt.ErrorIs(l.Err(), ReferenceNotFound))

	l.Sanitize()
	qt.Assert(t, qt.Equals(l.Len(), 3))
	qt.Assert(t, qt.Equals(l[0].Error(), "plain"))
	qt.Assert(t, qt.Equals(l[1].Error(), "a: missing"))
	qt.Assert(t, qt.Equals(l[2].Error(), "b: cycle"))
	qt.Assert(t, qt.Equals(l.Error(), "plain (and 2 more errors)"))
}

func TestPrint(t *testing.T) {
	var l List
	l.Add(Newf(NotTotallyOrdered, []string{"pipeline"}, "entries %q and %q are not connected", "a", "c"))
	l.Add(errors.New("other"))
	qt.Assert(t, qt.Equals(Details(l), `pipeline: entries "a" and "c" are not connected [not totally ordered]
other
`))
}

func TestCodeString(t *testing.T) {
	qt.Assert(t, qt.Equals(CyclicDependency.String(), "cyclic dependency"))
	qt.Assert(t, qt.Equals(Code(99).String(), "Code(99)"))
	qt.Assert(t, qt.Equals(Code(0).String(), "Code(0)"))
}
