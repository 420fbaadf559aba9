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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/conftree/conftree/internal/treedebug"
	"github.com/conftree/conftree/tree"
)

type runFunction func(cmd *Command, args []string) error

func mkRunE(c *Command, f runFunction) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c.Command = cmd
		return f(c, args)
	}
}

// newRootCmd creates the base command when called without any subcommands
func newRootCmd() *Command {
	cmd := &cobra.Command{
		Use:   "conftree",
		Short: "conftree validates and inspects configuration trees.",
		Long: `conftree builds configuration trees from YAML or JSON files
according to a registered schema, and validates, exports or orders them.

A schema declares which parts of a file are dictionaries, sets, tagged
variants and references between entries. Validation resolves every
reference and inferred value and checks the ordering constraints that
the schema declares.

Run 'conftree schemas' to list the available schemas.`,
		SilenceUsage: true,
	}

	c := &Command{Command: cmd, root: cmd, registry: defaultRegistry()}

	subCommands := []*cobra.Command{
		newExportCmd(c),
		newOrderCmd(c),
		newSchemasCmd(c),
		newVersionCmd(c),
		newVetCmd(c),
	}

	addGlobalFlags(cmd.PersistentFlags())

	for _, sub := range subCommands {
		cmd.AddCommand(sub)
	}

	helpCmd := newHelpCmd(c)
	helpCmd.AddCommand(helpTopics...)
	cmd.SetHelpCommand(helpCmd)

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := treedebug.Init(); err != nil {
			return err
		}
		level := slog.LevelWarn
		if flagVerbose.Bool(&Command{Command: cmd}) {
			level = slog.LevelDebug
		}
		// Logs go to the unwrapped stderr so that they do not count as
		// errors.
		c.log = slog.New(slog.NewTextHandler(cmd.OutOrStderr(), &slog.HandlerOptions{
			Level: level,
		}))
		return nil
	}

	return c
}

// Main runs the conftree tool and returns the code for passing to os.Exit.
func Main() int {
	err := mainErr(context.Background(), os.Args[1:])
	if err != nil {
		if err != ErrPrintedError {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}

func mainErr(ctx context.Context, args []string) error {
	cmd, err := New(args)
	if err != nil {
		return err
	}
	return cmd.Run(ctx)
}

type Command struct {
	// The currently active command.
	*cobra.Command

	root *cobra.Command

	registry *tree.Registry
	log      *slog.Logger

	hasErr bool
}

type errWriter Command

func (w *errWriter) Write(b []byte) (int, error) {
	c := (*Command)(w)
	c.hasErr = true
	return c.Command.OutOrStderr().Write(b)
}

// Stderr returns a writer that should be used for error messages.
// Writing to it makes the command exit with a non-zero code.
func (c *Command) Stderr() io.Writer {
	return (*errWriter)(c)
}

func (c *Command) SetOutput(w io.Writer) {
	c.root.SetOut(w)
	c.root.SetErr(w)
}

// Logger returns the logger for trees built by the command.
func (c *Command) Logger() *slog.Logger {
	if c.log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.log
}

// ErrPrintedError indicates error messages have been printed to stderr.
var ErrPrintedError = errors.New("terminating because of errors")

func (c *Command) Run(ctx context.Context) (err error) {
	defer recoverError(&err)

	if err := c.root.ExecuteContext(ctx); err != nil {
		return err
	}
	if c.hasErr {
		return ErrPrintedError
	}
	return nil
}

func recoverError(err *error) {
	switch e := recover().(type) {
	case nil:
	case panicError:
		*err = e.Err
	default:
		panic(e)
	}
	// We use panic to escape, instead of os.Exit
}

// New creates the conftree command for the given arguments.
func New(args []string) (cmd *Command, err error) {
	defer recoverError(&err)

	cmd = newRootCmd()
	cmd.root.SetArgs(args)
	return cmd, nil
}

type panicError struct {
	Err error
}

func exit() {
	panic(panicError{ErrPrintedError})
}
