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

package tree_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/conftree/conftree/tree"
)

func TestRegistry(t *testing.T) {
	var r tree.Registry
	for _, v := range []string{"v1.2.0", "v2.0.0", "v1.0.0", "v1.0.3"} {
		s := newGraphSchema()
		s.Version = v
		qt.Assert(t, qt.IsNil(r.Register(s)))
	}
	r.MustRegister(&tree.Schema{Name: "alpha", Version: "v0.1.0"})

	qt.Assert(t, qt.DeepEquals(r.Names(), []string{"alpha", "graph"}))
	qt.Assert(t, qt.DeepEquals(r.Versions("graph"), []string{"v1.0.0", "v1.0.3", "v1.2.0", "v2.0.0"}))

	testCases := []struct {
		query   string
		want    string
		wantErr string
	}{
		{query: "graph", want: "graph@v2.0.0"},
		{query: "graph@v1", want: "graph@v1.2.0"},
		{query: "graph@v1.0", want: "graph@v1.0.3"},
		{query: "graph@v1.0.0", want: "graph@v1.0.0"},
		{query: "alpha@v0", want: "alpha@v0.1.0"},
		{query: "graph@v3", wantErr: `no version of schema "graph" matches v3`},
		{query: "graph@latest", wantErr: `invalid version "latest" in schema query "graph@latest"`},
		{query: "beta", wantErr: `unknown schema "beta"`},
	}
	for _, tc := range testCases {
		s, err := r.Lookup(tc.query)
		if tc.wantErr != "" {
			qt.Check(t, qt.ErrorMatches(err, tc.wantErr), qt.Commentf("query %s", tc.query))
			continue
		}
		qt.Assert(t, qt.IsNil(err))
		qt.Check(t, qt.Equals(s.String(), tc.want))
	}
}

func TestRegisterErrors(t *testing.T) {
	var r tree.Registry
	r.MustRegister(newGraphSchema())

	err := r.Register(newGraphSchema())
	qt.Assert(t, qt.ErrorMatches(err, `schema graph@v1.0.0 registered twice`))

	err = r.Register(&tree.Schema{Name: "graph", Version: "v1.0"})
	qt.Assert(t, qt.ErrorMatches(err, `schema graph: version "v1.0" is not a canonical semantic version`))

	err = r.Register(&tree.Schema{Name: "a@b", Version: "v1.0.0"})
	qt.Assert(t, qt.ErrorMatches(err, `invalid schema name "a@b"`))

	qt.Assert(t, qt.PanicMatches(func() {
		r.MustRegister(newGraphSchema())
	}, `schema graph@v1.0.0 registered twice`))
}
