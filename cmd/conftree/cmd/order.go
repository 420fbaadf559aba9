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

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/conftree/conftree/tree"
)

func newOrderCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order [flags] FILE",
		Short: "print the entries of a topology in order",
		Long: `order prints the keys of the topology at --path in the order of one
of its graphs, one key per line.

The path is a list of labels separated by spaces. Labels that contain
spaces or quotes can be quoted as in a shell:

	conftree order --path interfaces FILE
	conftree order --path 'commands' --graph after --input interfaces=host.yaml -s interface-command FILE

If the topology declares a single graph, --graph may be omitted.
With --check, order also fails unless each key is directly connected to
the next one.
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, runOrder),
	}
	addTreeFlags(cmd.Flags())
	cmd.Flags().String(string(flagPath), "", "path of the topology")
	cmd.Flags().String(string(flagGraph), "", "name of the graph to order by")
	cmd.Flags().Bool(string(flagCheck), false, "require a total order")
	cmd.MarkFlagRequired(string(flagPath))
	return cmd
}

// An orderer is a topology of any entry type.
type orderer interface {
	Graphs() []string
	TopoSort(name string) ([]string, error)
	TotallyOrdered(name string) error
}

func runOrder(cmd *Command, args []string) error {
	path, err := shlex.Split(flagPath.String(cmd))
	if err != nil {
		return fmt.Errorf("invalid --path: %v", err)
	}

	t, err := buildTree(cmd, args[0])
	exitOnErr(cmd, err, true)

	x, err := tree.Find(t.Root(), path)
	exitOnErr(cmd, err, true)
	top, ok := x.(orderer)
	if !ok {
		return fmt.Errorf("%s is not a topology", tree.Path(path))
	}

	graph := flagGraph.String(cmd)
	if graph == "" {
		names := top.Graphs()
		if len(names) != 1 {
			return fmt.Errorf("%s has graphs %s; use --graph to select one",
				tree.Path(path), strings.Join(names, ", "))
		}
		graph = names[0]
	}

	keys, err := top.TopoSort(graph)
	exitOnErr(cmd, err, true)
	if flagCheck.Bool(cmd) {
		exitOnErr(cmd, top.TotallyOrdered(graph), true)
	}
	w := cmd.OutOrStdout()
	for _, k := range keys {
		fmt.Fprintln(w, k)
	}
	return nil
}
