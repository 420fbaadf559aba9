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
	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/conftree/conftree/errors"
)

func newVetCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vet [flags] FILE...",
		Short: "validate configuration files",
		Long: `vet builds a tree from each file and validates it.

Validation resolves every reference and inferred value of the tree and
checks the ordering constraints of its schema. The first error found in
a file is reported together with its kind, for example:

	interfaces.vlan10.kind.vlan.parent: reference "bond1" not found [reference not found]

With --lazy, entries are built as validation reaches them rather than
up front.
`,
		Args: cobra.MinimumNArgs(1),
		RunE: mkRunE(c, runVet),
	}
	addTreeFlags(cmd.Flags())
	return cmd
}

func runVet(cmd *Command, args []string) error {
	p := message.NewPrinter(getLang())
	failed := 0
	for _, file := range args {
		t, err := buildTree(cmd, file)
		if err == nil && t.Lazy() {
			err = t.Validate()
		}
		if err != nil {
			failed++
			p.Fprintf(cmd.Stderr(), "%s: %s", file, errors.Details(err))
			continue
		}
		p.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes)\n", file, t.Len())
	}
	if failed > 1 {
		p.Fprintf(cmd.Stderr(), "%d of %d files are invalid\n", failed, len(args))
	}
	return nil
}
