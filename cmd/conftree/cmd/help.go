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

	"github.com/spf13/cobra"
)

// newHelpCmd is largely borrowed from cobra, but also knows about the
// help topics below.
func newHelpCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "help [command]",
		Short:  "show help text for a command or topic",
		Hidden: true,
		Run: func(_ *cobra.Command, args []string) {
			cmd, rest, err := c.Root().Find(args)
			found := cmd != nil && err == nil && len(rest) == 0
			if found && cmd.Name() == "help" && len(args) > 0 {
				// Topics are subcommands of help.
				cmd, rest, err = cmd.Find(args[1:])
				found = cmd != nil && err == nil && len(rest) == 0
			}
			if !found {
				topic, _, _ := c.Root().Find([]string{"help"})
				for _, t := range topic.Commands() {
					if len(args) > 0 && t.Name() == args[0] {
						cobra.CheckErr(t.Help())
						return
					}
				}
				fmt.Fprintf(c.Stderr(), "Unknown help topic: %s\n", strings.Join(args, " "))
				cobra.CheckErr(c.Root().Usage())
				return
			}
			if cmd.Name() == "help" {
				cmd = c.Root()
			}
			cobra.CheckErr(cmd.Help())
		},
	}
	return cmd
}

var helpTopics = []*cobra.Command{
	environmentHelp,
	inputsHelp,
	payloadsHelp,
}

var environmentHelp = &cobra.Command{
	Use:   "environment",
	Short: "environment variables",
	Long: `
The conftree command consults environment variables for configuration.
If an environment variable is unset or empty, a sensible default is used.

	CONFTREE_DEBUG
		Comma-separated list of debug flags to enable or disable, such as:

		logeval=1
			Log every resolution, detach and cycle of a lazily computed
			value at debug level. Use with --verbose.
		strict
			When a whole tree is detached, report every node whose
			reference count did not drop back to zero.
		lazy
			Build container entries on first access unless --lazy is
			given explicitly.

CONFTREE_DEBUG is a comma-separated list of key-value strings,
where the value is a boolean "true" or "1" if omitted. For example:

	CONFTREE_DEBUG=logeval=1,strict
`[1:],
}

var inputsHelp = &cobra.Command{
	Use:   "inputs",
	Short: "trees that other trees refer to",
	Long: `Some schemas contain references into other trees, called inputs.
For example, the interface-command schema refers to the interfaces of a
tree of the interface schema, which it expects as input "interfaces".

Inputs are given with the --input flag:

	--input name=FILE[:schema]

The schema of an input defaults to "interface". Inputs are built and
validated before the tree that refers to them, and may not have inputs
of their own. Run 'conftree schemas' to see which inputs a schema needs.

Example:

	conftree vet -s interface-command --input interfaces=host.yaml commands.yaml
`,
}

var payloadsHelp = &cobra.Command{
	Use:   "payloads",
	Short: "format of configuration files",
	Long: `Configuration files are YAML or JSON documents. A file holds a single
document whose top-level fields are declared by the schema.

Fields of objects keep the order in which they are written, and entries
of dictionaries keep their insertion order. Duplicate keys and YAML merge
keys are not allowed. Numbers are arbitrary precision decimals.

A field with alternative variants is written as a two-element list of
the variant name and its payload:

	kind: [vlan, {parent: bond0, id: 10}]
	action: [up, null]

A reference is written as the key of the entry it refers to, or as a
list of keys to refer to a node below that entry.
`,
}
