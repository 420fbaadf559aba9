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

	"github.com/spf13/pflag"
)

// Common flags.
const (
	flagCheck   flagName = "check"
	flagDigest  flagName = "digest"
	flagGraph   flagName = "graph"
	flagInput   flagName = "input"
	flagLazy    flagName = "lazy"
	flagOut     flagName = "out"
	flagPath    flagName = "path"
	flagSchema  flagName = "schema"
	flagVerbose flagName = "verbose"
)

func addGlobalFlags(f *pflag.FlagSet) {
	f.BoolP(string(flagVerbose), "v", false,
		"log the construction and validation of trees")
}

// addTreeFlags adds the flags that select how the trees of a command are
// built.
func addTreeFlags(f *pflag.FlagSet) {
	f.StringP(string(flagSchema), "s", defaultSchema,
		"schema of the input files, as name or name@version (see 'conftree schemas')")
	f.StringArray(string(flagInput), nil,
		"input tree as name=FILE[:schema] (see 'conftree help inputs')")
	f.Bool(string(flagLazy), false,
		"build container entries on first access")
}

type flagName string

func (f flagName) ensureAdded(cmd *Command) {
	if cmd.Flags().Lookup(string(f)) == nil {
		panic(fmt.Sprintf("Cmd %q uses flag %q without adding it", cmd.Name(), f))
	}
}

func (f flagName) Bool(cmd *Command) bool {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetBool(string(f))
	return v
}

// IsSet reports whether the flag was given on the command line.
func (f flagName) IsSet(cmd *Command) bool {
	f.ensureAdded(cmd)
	return cmd.Flags().Changed(string(f))
}

func (f flagName) String(cmd *Command) string {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetString(string(f))
	return v
}

func (f flagName) StringArray(cmd *Command) []string {
	f.ensureAdded(cmd)
	v, _ := cmd.Flags().GetStringArray(string(f))
	return v
}
