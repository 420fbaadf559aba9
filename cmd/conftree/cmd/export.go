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

	"github.com/spf13/cobra"

	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

func newExportCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [flags] FILE",
		Short: "output the payload of a configuration tree",
		Long: `export builds and validates the tree of a file and writes it back
out in a normalized form. References are written as their keys and
inferred values are left out, so the output can be read back in.

With --lazy the tree is not validated, and entries that were never
accessed are written from the payload they were declared with.

With --digest, export prints the content digest of the compact JSON form
instead. Two files with the same digest describe the same tree.
`,
		Args: cobra.ExactArgs(1),
		RunE: mkRunE(c, runExport),
	}
	addTreeFlags(cmd.Flags())
	cmd.Flags().String(string(flagOut), "yaml", "output format (yaml|json)")
	cmd.Flags().Bool(string(flagDigest), false, "print the digest of the output")
	return cmd
}

func runExport(cmd *Command, args []string) error {
	t, err := buildTree(cmd, args[0])
	exitOnErr(cmd, err, true)

	v, err := tree.Export(t.Root())
	exitOnErr(cmd, err, true)

	w := cmd.OutOrStdout()
	if flagDigest.Bool(cmd) {
		d, err := payload.Digest(v)
		exitOnErr(cmd, err, true)
		fmt.Fprintln(w, d)
		return nil
	}

	var b []byte
	switch out := flagOut.String(cmd); out {
	case "yaml":
		b, err = payload.EncodeYAML(v)
	case "json":
		b, err = payload.EncodeJSON(v, "    ")
	default:
		return fmt.Errorf("unknown output format %q; expected yaml or json", out)
	}
	exitOnErr(cmd, err, true)
	_, err = w.Write(b)
	return err
}
