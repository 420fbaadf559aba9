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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSchemasCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "list the available schemas",
		Long: `schemas lists the registered schemas with their versions and the
input trees they need.

A schema is selected with --schema as name, name@vMAJOR,
name@vMAJOR.MINOR or name@vMAJOR.MINOR.PATCH. The highest matching
version is used.
`,
		Args: cobra.NoArgs,
		RunE: mkRunE(c, runSchemas),
	}
	return cmd
}

func runSchemas(cmd *Command, args []string) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	for _, name := range cmd.registry.Names() {
		vs := cmd.registry.Versions(name)
		s, err := cmd.registry.Lookup(name)
		if err != nil {
			return err
		}
		inputs := "-"
		if len(s.Inputs) > 0 {
			inputs = strings.Join(s.Inputs, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(vs, " "), inputs)
	}
	return tw.Flush()
}
