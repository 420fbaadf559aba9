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
	"fmt"
	"slices"
	"strings"

	"github.com/mpvl/unique"
	"golang.org/x/mod/semver"
)

// A Schema describes a family of configuration trees.
type Schema struct {
	// Name identifies the schema, such as "interface".
	Name string

	// Version is the canonical semantic version of the schema, such as
	// "v1.2.0".
	Version string

	// Inputs names the input trees that references of the schema may
	// point into. Create fails if any of them is not provided.
	Inputs []string

	// Build creates the root node of t from payload v. It should register
	// the root with NewRoot before creating its components.
	Build func(t *Tree, v any) (Node, error)
}

// String returns name@version.
func (s *Schema) String() string {
	return s.Name + "@" + s.Version
}

// A Registry holds schemas by name and version.
// The zero Registry is empty and ready to use.
type Registry struct {
	schemas map[string][]*Schema // sorted by ascending version
}

// Register adds s to r. The version of s must be canonical and not yet
// registered.
func (r *Registry) Register(s *Schema) error {
	if s.Name == "" || strings.Contains(s.Name, "@") {
		return fmt.Errorf("invalid schema name %q", s.Name)
	}
	if !semver.IsValid(s.Version) || semver.Canonical(s.Version) != s.Version {
		return fmt.Errorf("schema %s: version %q is not a canonical semantic version", s.Name, s.Version)
	}
	if r.schemas == nil {
		r.schemas = map[string][]*Schema{}
	}
	list := r.schemas[s.Name]
	for _, x := range list {
		if x.Version == s.Version {
			return fmt.Errorf("schema %s registered twice", s)
		}
	}
	list = append(list, s)
	slices.SortFunc(list, func(a, b *Schema) int {
		return semver.Compare(a.Version, b.Version)
	})
	r.schemas[s.Name] = list
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(s *Schema) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the schema for query, which is one of
//
//	name          the highest version of the schema
//	name@v1       the highest version with major version v1
//	name@v1.2     the highest version with the given major and minor version
//	name@v1.2.3   exactly that version
func (r *Registry) Lookup(query string) (*Schema, error) {
	name, vers, hasVers := strings.Cut(query, "@")
	list := r.schemas[name]
	if len(list) == 0 {
		return nil, fmt.Errorf("unknown schema %q", name)
	}
	if !hasVers {
		return list[len(list)-1], nil
	}
	if !semver.IsValid(vers) {
		return nil, fmt.Errorf("invalid version %q in schema query %q", vers, query)
	}
	match := func(s *Schema) bool {
		switch vers {
		case semver.Major(vers):
			return semver.Major(s.Version) == vers
		case semver.MajorMinor(vers):
			return semver.MajorMinor(s.Version) == vers
		}
		return semver.Compare(s.Version, vers) == 0
	}
	for i := len(list) - 1; i >= 0; i-- {
		if match(list[i]) {
			return list[i], nil
		}
	}
	return nil, fmt.Errorf("no version of schema %q matches %s", name, vers)
}

// Names returns the names of the registered schemas in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	unique.Strings(&names)
	return names
}

// Versions returns the registered versions of the named schema in
// ascending order.
func (r *Registry) Versions(name string) []string {
	var vs []string
	for _, s := range r.schemas[name] {
		vs = append(vs, s.Version)
	}
	return vs
}
