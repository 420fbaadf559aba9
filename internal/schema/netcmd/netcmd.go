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

// Package netcmd defines the "interface-command" schema: a batch of
// commands against the interfaces of an input tree of the interface
// schema.
//
//	commands:
//	  raise:  {target: vlan10, action: [set_mtu, {mtu: 1500}]}
//	  enable: {target: vlan10, action: [up, null], after: [raise]}
//
// The input tree is named "interfaces".
package netcmd

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/internal/schema/netif"
	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

// Input is the name of the input tree that commands refer to.
const Input = "interfaces"

// Schema is the interface command schema.
var Schema = &tree.Schema{
	Name:    "interface-command",
	Version: "v1.0.0",
	Inputs:  []string{Input},
	Build:   build,
}

// Batch is the root of a command tree.
type Batch struct {
	tree.Base
	Commands *tree.Topology[*Command]
}

func (b *Batch) Fields() []tree.Field {
	return []tree.Field{{Label: "commands", Component: b.Commands}}
}

// Script returns the commands of b in an order in which they can be run.
func (b *Batch) Script() ([]string, error) {
	order, err := b.Commands.TopoSort("after")
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(order))
	for i, name := range order {
		c, err := b.Commands.Lookup(name)
		if err != nil {
			return nil, err
		}
		if lines[i], err = c.Line(); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func build(t *tree.Tree, v any) (tree.Node, error) {
	b := tree.NewRoot(t, &Batch{})
	d := tree.NewDecoder(b, v)
	commands, _ := d.Value("commands")
	if err := d.Err(); err != nil {
		return nil, err
	}

	targets := tree.InputLookup(b, Input, netif.InterfacesOf)
	preceding := tree.In(func() *tree.Dictionary[*Command] { return b.Commands.Dictionary })
	var err error
	b.Commands, err = tree.NewTopology(b, "commands", commands,
		func(parent tree.Node, name string, v any) (*Command, error) {
			c := tree.Attach(parent, name, &Command{})
			d := tree.NewDecoder(c, v)
			c.Target = tree.NewReference(c, "target", d.Key("target"), targets, true)
			action := d.Required("action")
			if keys := d.Keys("after"); keys != nil {
				c.After = tree.NewReferenceList(c, "after", keys, preceding, false)
			}
			c.Reason = d.OptString("reason")
			if err := d.Err(); err != nil {
				return nil, err
			}
			var err error
			if c.Action, err = tree.NewStateGroup(c, "action", action, actions); err != nil {
				return nil, err
			}
			c.line = tree.NewValue(c, "line", c.render)
			return c, nil
		},
		tree.GraphSpec[*Command]{Name: "after", Direction: tree.Reverse, Edges: after},
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func after(c *Command) ([]string, error) {
	if c.After == nil {
		return nil, nil
	}
	names := make([]string, c.After.Len())
	for i := range names {
		names[i] = c.After.At(i).Key()[0]
	}
	return names, nil
}

// A Command changes the state of one interface.
type Command struct {
	tree.Base

	// Target is the interface of the input tree to change.
	Target *tree.Reference[*netif.Interface]

	// Action is one of up, down or set_mtu.
	Action *tree.StateGroup

	// After lists the commands that must run first.
	After *tree.ReferenceList[*Command]

	Reason *string

	line *tree.Value[string]
}

func (c *Command) Fields() []tree.Field {
	fs := []tree.Field{
		{Label: "target", Component: c.Target},
		{Label: "action", Component: c.Action},
	}
	if c.After != nil {
		fs = append(fs, tree.Field{Label: "after", Component: c.After})
	}
	return append(fs,
		tree.Field{Label: "reason", Component: c.Reason},
		tree.Field{Label: "line", Component: c.line},
	)
}

// Line returns the shell command that carries out c.
func (c *Command) Line() (string, error) {
	// A line rendered for a target that has left the input is dropped
	// when the target is looked up again.
	if _, err := c.Target.Target(); err != nil {
		return "", err
	}
	return c.line.Get()
}

func (c *Command) render() (string, error) {
	target, err := c.Target.Target()
	if err != nil {
		return "", err
	}
	dev := "ip link set dev " + target.Label()
	return tree.Match(c.Action, tree.Cases[string]{
		"up":   tree.Const(dev + " up"),
		"down": tree.Const(dev + " down"),
		"set_mtu": tree.On(func(m *SetMTU) (string, error) {
			mtu, err := payload.Int64(m.MTU)
			if err != nil {
				return "", errors.Wrapf(err, errors.InvalidPayload, m.Path().Append("mtu"), "")
			}
			limit, err := target.Limit()
			if err != nil {
				return "", err
			}
			if mtu < netif.MinMTU || mtu > limit {
				return "", errors.Newf(errors.InvalidPayload, m.Path().Append("mtu"),
					"mtu %d out of range [%d, %d] of interface %s", mtu, netif.MinMTU, limit, target.Label())
			}
			return fmt.Sprintf("%s mtu %d", dev, mtu), nil
		}),
	})
}

// State is the payload of the up and down actions, which is null.
type State struct {
	tree.Base
}

func (s *State) ExportPayload() (any, error) { return nil, nil }

// SetMTU changes the MTU of an interface.
type SetMTU struct {
	tree.Base
	MTU *apd.Decimal
}

func (m *SetMTU) Fields() []tree.Field {
	return []tree.Field{{Label: "mtu", Component: m.MTU}}
}

func buildState(parent tree.Node, name string, v any) (*State, error) {
	s := tree.Attach(parent, name, &State{})
	if v != nil {
		return nil, errors.Newf(errors.InvalidPayload, s.Path(), "expected null, found %s", payload.Kind(v))
	}
	return s, nil
}

var actions = tree.Variants{
	"up":   tree.Variant(buildState),
	"down": tree.Variant(buildState),
	"set_mtu": tree.Variant(func(parent tree.Node, name string, v any) (*SetMTU, error) {
		m := tree.Attach(parent, name, &SetMTU{})
		d := tree.NewDecoder(m, v)
		m.MTU = d.Number("mtu")
		return m, d.Err()
	}),
}
