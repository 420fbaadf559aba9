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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/mod/module"
)

func newVersionCmd(c *Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "print conftree version",
		Long: `version prints the version of conftree, the Go toolchain it was
built with, the schemas it knows about and the build settings.
`,
		Args:  cobra.NoArgs,
		RunE:  mkRunE(c, runVersion),
	}
	return cmd
}

const defaultVersion = "(devel)"

// version can be set at link time with -ldflags.
var version = defaultVersion

func runVersion(cmd *Command, args []string) error {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("unknown error reading build-info")
	}
	settings := bi.Settings
	if v := os.Getenv("CONFTREE_VERSION_TEST_CFG"); v != "" {
		var extra []debug.BuildSetting
		if err := json.Unmarshal([]byte(v), &extra); err != nil {
			return err
		}
		settings = append(settings, extra...)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "conftree version %s\n\n", buildVersion(bi.Main.Version, settings))
	fmt.Fprintf(w, "go version %s\n", runtime.Version())
	for _, name := range cmd.registry.Names() {
		fmt.Fprintf(w, "%16s %s\n", "schema "+name, strings.Join(cmd.registry.Versions(name), " "))
	}
	for _, s := range settings {
		if s.Value != "" {
			fmt.Fprintf(w, "%16s %s\n", s.Key, s.Value)
		}
	}
	return nil
}

// buildVersion returns the link-time version if there is one, then the
// version of the main module, then a pseudo-version for the VCS revision.
func buildVersion(main string, settings []debug.BuildSetting) string {
	switch {
	case version != defaultVersion:
		return version
	case main != "" && main != defaultVersion:
		return main
	}
	var rev string
	var at time.Time
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.time":
			// An invalid time gives a zero timestamp.
			at, _ = time.Parse(time.RFC3339Nano, s.Value)
		}
	}
	if rev == "" {
		return defaultVersion
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	return module.PseudoVersion("", "", at, rev)
}
