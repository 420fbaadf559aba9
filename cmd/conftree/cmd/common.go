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

package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/internal/schema/netcmd"
	"github.com/conftree/conftree/internal/schema/netif"
	"github.com/conftree/conftree/internal/treedebug"
	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

const defaultSchema = "interface"

func defaultRegistry() *tree.Registry {
	r := &tree.Registry{}
	r.MustRegister(netif.Schema)
	r.MustRegister(netcmd.Schema)
	return r
}

func getLang() language.Tag {
	loc := os.Getenv("LC_ALL")
	if loc == "" {
		loc = os.Getenv("LANG")
	}
	loc = strings.Split(loc, ".")[0]
	return language.Make(loc)
}

// exitOnErr prints err, if any, one error per line. If fatal is true it
// also terminates the command.
func exitOnErr(cmd *Command, err error, fatal bool) {
	if err == nil {
		return
	}
	errors.Print(cmd.Stderr(), err)
	if fatal {
		exit()
	}
}

func readFile(cmd *Command, filename string) ([]byte, error) {
	if filename == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(filename)
}

func loadPayload(cmd *Command, filename string) (any, error) {
	data, err := readFile(cmd, filename)
	if err != nil {
		return nil, err
	}
	return payload.Decode(filename, data)
}

// An inputSpec is the value of an --input flag.
type inputSpec struct {
	name   string
	file   string
	schema string
}

func parseInput(s string) (inputSpec, error) {
	name, rest, ok := strings.Cut(s, "=")
	if !ok || name == "" || rest == "" {
		return inputSpec{}, fmt.Errorf("invalid input %q: expected name=FILE[:schema]", s)
	}
	spec := inputSpec{name: name, file: rest, schema: defaultSchema}
	if i := strings.LastIndex(rest, ":"); i > 0 {
		spec.file, spec.schema = rest[:i], rest[i+1:]
	}
	return spec, nil
}

// buildInputs creates and validates the trees named by the --input flags.
func buildInputs(cmd *Command) (map[string]*tree.Tree, error) {
	inputs := map[string]*tree.Tree{}
	for _, arg := range flagInput.StringArray(cmd) {
		spec, err := parseInput(arg)
		if err != nil {
			return nil, err
		}
		if _, ok := inputs[spec.name]; ok {
			return nil, fmt.Errorf("input %q given twice", spec.name)
		}
		s, err := cmd.registry.Lookup(spec.schema)
		if err != nil {
			return nil, err
		}
		if len(s.Inputs) > 0 {
			return nil, fmt.Errorf("input %s: schema %s itself needs inputs", spec.name, s)
		}
		v, err := loadPayload(cmd, spec.file)
		if err != nil {
			return nil, err
		}
		t, err := tree.Create(s, v, &tree.Options{Logger: cmd.Logger()})
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeOf(err), nil, "input %s", spec.name)
		}
		inputs[spec.name] = t
	}
	return inputs, nil
}

// buildTree creates the tree for filename with the schema and inputs given
// by the flags of cmd.
func buildTree(cmd *Command, filename string) (*tree.Tree, error) {
	s, err := cmd.registry.Lookup(flagSchema.String(cmd))
	if err != nil {
		return nil, err
	}
	inputs, err := buildInputs(cmd)
	if err != nil {
		return nil, err
	}
	v, err := loadPayload(cmd, filename)
	if err != nil {
		return nil, err
	}
	lazy := treedebug.Flags.Lazy
	if flagLazy.IsSet(cmd) {
		lazy = flagLazy.Bool(cmd)
	}
	return tree.Create(s, v, &tree.Options{
		Lazy:   lazy,
		Inputs: inputs,
		Logger: cmd.Logger(),
	})
}
