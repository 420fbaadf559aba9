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

// Package netif defines the "interface" schema: network interfaces stacked
// on top of each other, the zones they belong to and a packet pipeline.
//
// A payload looks like
//
//	interfaces:
//	  lo:     {kind: [loopback, {}]}
//	  eth0:   {kind: [physical, {mac: "52:54:00:12:34:56", mtu: 9000}]}
//	  bond0:  {kind: [bond, {members: [eth0]}]}
//	  vlan10: {kind: [vlan, {parent: bond0, id: 10}], mtu: 1500}
//	zones:
//	  - {name: trusted, interfaces: [lo, vlan10]}
//	pipeline:
//	  input:  {action: accept, next: [output]}
//	  output: {action: forward}
//	aliases:
//	  eth0: {description: uplink}
//
// Interfaces must come after the interfaces they are stacked on in the
// "stack" graph, which gives the order to bring them up. The stages of the
// pipeline must form a single chain.
package netif

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

const (
	// DefaultMTU is the MTU of physical interfaces that do not declare one.
	DefaultMTU = 1500

	// LoopbackMTU is the MTU of loopback interfaces.
	LoopbackMTU = 65536

	// MinMTU is the smallest MTU an interface may be configured with.
	MinMTU = 68
)

// Schema is the interface schema.
var Schema = &tree.Schema{
	Name:    "interface",
	Version: "v1.0.0",
	Build:   build,
}

// Config is the root of an interface tree.
type Config struct {
	tree.Base
	Interfaces *tree.Topology[*Interface]
	Zones      *tree.Set[*Zone]
	Pipeline   *tree.Topology[*Stage]
	Aliases    *tree.KeyedDictionary[*Alias, *Interface]
}

func (c *Config) Fields() []tree.Field {
	return []tree.Field{
		{Label: "interfaces", Component: c.Interfaces},
		{Label: "zones", Component: c.Zones},
		{Label: "pipeline", Component: c.Pipeline},
		{Label: "aliases", Component: c.Aliases},
	}
}

// InterfacesOf returns the interfaces of root, which must be the root of an
// interface tree. It returns nil otherwise.
func InterfacesOf(root tree.Node) *tree.Dictionary[*Interface] {
	c, ok := root.(*Config)
	if !ok || c.Interfaces == nil {
		return nil
	}
	return c.Interfaces.Dictionary
}

// BringUpOrder returns the names of the interfaces in an order in which
// they can be brought up.
func (c *Config) BringUpOrder() ([]string, error) {
	return c.Interfaces.TopoSort("stack")
}

func build(t *tree.Tree, v any) (tree.Node, error) {
	c := tree.NewRoot(t, &Config{})
	d := tree.NewDecoder(c, v)
	interfaces, _ := d.Value("interfaces")
	zones, _ := d.Value("zones")
	pipeline, _ := d.Value("pipeline")
	aliases, _ := d.Value("aliases")
	if err := d.Err(); err != nil {
		return nil, err
	}

	lookup := tree.In(func() *tree.Dictionary[*Interface] { return c.Interfaces.Dictionary })
	var err error
	c.Interfaces, err = tree.NewTopology(c, "interfaces", interfaces,
		func(parent tree.Node, name string, v any) (*Interface, error) {
			return buildInterface(parent, name, v, lookup)
		},
		tree.GraphSpec[*Interface]{Name: "stack", Direction: tree.Reverse, Edges: lowerNames},
	)
	if err != nil {
		return nil, err
	}
	c.Interfaces.Require("lo")

	c.Zones, err = tree.NewSet(c, "zones", zones, func(parent tree.Node, label string, v any) (*Zone, error) {
		z := tree.Attach(parent, label, &Zone{})
		d := tree.NewDecoder(z, v)
		z.Name = d.String("name")
		z.Interfaces = tree.NewReferenceList(z, "interfaces", d.Keys("interfaces"), lookup, true)
		return z, d.Err()
	})
	if err != nil {
		return nil, err
	}

	stages := tree.In(func() *tree.Dictionary[*Stage] { return c.Pipeline.Dictionary })
	c.Pipeline, err = tree.NewTopology(c, "pipeline", pipeline,
		func(parent tree.Node, name string, v any) (*Stage, error) {
			s := tree.Attach(parent, name, &Stage{})
			d := tree.NewDecoder(s, v)
			s.Action = d.String("action")
			if keys := d.Keys("next"); keys != nil {
				s.Next = tree.NewReferenceList(s, "next", keys, stages, false)
			}
			return s, d.Err()
		},
		tree.GraphSpec[*Stage]{Name: "next", Direction: tree.Forward, Edges: nextStages, Total: true},
	)
	if err != nil {
		return nil, err
	}

	a, err := tree.NewDictionary(c, "aliases", aliases, func(parent tree.Node, name string, v any) (*Alias, error) {
		a := tree.Attach(parent, name, &Alias{})
		d := tree.NewDecoder(a, v)
		a.Description = d.OptString("description")
		return a, d.Err()
	})
	if err != nil {
		return nil, err
	}
	c.Aliases = tree.KeyBy(a, lookup)
	return c, nil
}

// An Interface is a network interface.
type Interface struct {
	tree.Base

	// Kind is one of loopback, physical, bond or vlan.
	Kind *tree.StateGroup

	// MTU lowers the MTU the interface would otherwise get from its kind.
	MTU *apd.Decimal

	Description *string

	effective *tree.Value[int64]
}

func (i *Interface) Fields() []tree.Field {
	return []tree.Field{
		{Label: "kind", Component: i.Kind},
		{Label: "mtu", Component: i.MTU},
		{Label: "description", Component: i.Description},
		{Label: "effective_mtu", Component: i.effective},
	}
}

// EffectiveMTU reports the MTU of i: its own MTU if it declares one, and
// the limit imposed by its kind otherwise.
func (i *Interface) EffectiveMTU() (int64, error) {
	return i.effective.Get()
}

// Limit reports the largest MTU that i can be configured with.
func (i *Interface) Limit() (int64, error) {
	return tree.Match(i.Kind, tree.Cases[int64]{
		"loopback": tree.Const[int64](LoopbackMTU),
		"physical": tree.On(func(p *Physical) (int64, error) {
			if p.MTU == nil {
				return DefaultMTU, nil
			}
			return payload.Int64(p.MTU)
		}),
		"bond": tree.On(func(b *Bond) (int64, error) {
			members, err := b.Members.Targets()
			if err != nil {
				return 0, err
			}
			var min int64
			for k, m := range members {
				x, err := m.EffectiveMTU()
				if err != nil {
					return 0, err
				}
				if k == 0 || x < min {
					min = x
				}
			}
			return min, nil
		}),
		"vlan": tree.On(func(v *Vlan) (int64, error) {
			parent, err := v.Parent.Target()
			if err != nil {
				return 0, err
			}
			return parent.EffectiveMTU()
		}),
	})
}

func (i *Interface) computeMTU() (int64, error) {
	limit, err := i.Limit()
	if err != nil {
		return 0, err
	}
	if i.MTU == nil {
		return limit, nil
	}
	mtu, err := payload.Int64(i.MTU)
	if err != nil {
		return 0, errors.Wrapf(err, errors.InvalidPayload, i.Path().Append("mtu"), "")
	}
	if mtu < MinMTU || mtu > limit {
		return 0, errors.Newf(errors.InvalidPayload, i.Path().Append("mtu"),
			"mtu %d out of range [%d, %d]", mtu, MinMTU, limit)
	}
	return mtu, nil
}

var kinds = tree.Variants{
	"loopback": tree.Variant(func(parent tree.Node, name string, v any) (*Loopback, error) {
		l := tree.Attach(parent, name, &Loopback{})
		return l, tree.NewDecoder(l, v).Err()
	}),
	"physical": tree.Variant(func(parent tree.Node, name string, v any) (*Physical, error) {
		p := tree.Attach(parent, name, &Physical{})
		d := tree.NewDecoder(p, v)
		p.MAC = d.String("mac")
		p.MTU = d.OptNumber("mtu")
		return p, d.Err()
	}),
}

func buildInterface(parent tree.Node, name string, v any, lookup tree.Lookup[*Interface]) (*Interface, error) {
	i := tree.Attach(parent, name, &Interface{})
	d := tree.NewDecoder(i, v)
	kind := d.Required("kind")
	i.MTU = d.OptNumber("mtu")
	i.Description = d.OptString("description")
	if err := d.Err(); err != nil {
		return nil, err
	}

	variants := tree.Variants{
		"bond": tree.Variant(func(parent tree.Node, name string, v any) (*Bond, error) {
			b := tree.Attach(parent, name, &Bond{})
			d := tree.NewDecoder(b, v)
			keys := d.Keys("members")
			b.Mode = d.OptString("mode")
			if err := d.Err(); err != nil {
				return nil, err
			}
			if len(keys) == 0 {
				return nil, errors.Newf(errors.InvalidPayload, b.Path().Append("members"),
					"a bond needs at least one member")
			}
			b.Members = tree.NewReferenceList(b, "members", keys, lookup, true)
			return b, nil
		}),
		"vlan": tree.Variant(func(parent tree.Node, name string, v any) (*Vlan, error) {
			x := tree.Attach(parent, name, &Vlan{})
			d := tree.NewDecoder(x, v)
			key := d.Key("parent")
			x.ID = d.Number("id")
			if err := d.Err(); err != nil {
				return nil, err
			}
			id, err := payload.Int64(x.ID)
			if err != nil || id < 1 || id > 4094 {
				return nil, errors.Newf(errors.InvalidPayload, x.Path().Append("id"),
					"vlan id %s out of range [1, 4094]", x.ID)
			}
			x.Parent = tree.NewReference(x, "parent", key, lookup, true)
			return x, nil
		}),
	}
	for k, b := range kinds {
		variants[k] = b
	}
	var err error
	if i.Kind, err = tree.NewStateGroup(i, "kind", kind, variants); err != nil {
		return nil, err
	}
	i.effective = tree.NewValue(i, "effective_mtu", i.computeMTU)
	return i, nil
}

// lowerNames returns the names of the interfaces that i is stacked on.
func lowerNames(i *Interface) ([]string, error) {
	return tree.Match(i.Kind, tree.Cases[[]string]{
		"bond": tree.On(func(b *Bond) ([]string, error) {
			names := make([]string, b.Members.Len())
			for k := range names {
				names[k] = b.Members.At(k).Key()[0]
			}
			return names, nil
		}),
		"vlan": tree.On(func(v *Vlan) ([]string, error) {
			return []string{v.Parent.Key()[0]}, nil
		}),
		tree.Otherwise: tree.Const[[]string](nil),
	})
}

// Loopback is the kind of the loopback interface.
type Loopback struct {
	tree.Base
}

func (l *Loopback) Fields() []tree.Field { return nil }

// Physical is the kind of interfaces backed by hardware.
type Physical struct {
	tree.Base
	MAC string
	MTU *apd.Decimal
}

func (p *Physical) Fields() []tree.Field {
	return []tree.Field{
		{Label: "mac", Component: p.MAC},
		{Label: "mtu", Component: p.MTU},
	}
}

// Bond aggregates other interfaces.
type Bond struct {
	tree.Base
	Members *tree.ReferenceList[*Interface]
	Mode    *string
}

func (b *Bond) Fields() []tree.Field {
	return []tree.Field{
		{Label: "members", Component: b.Members},
		{Label: "mode", Component: b.Mode},
	}
}

// Vlan is a tagged interface on top of a parent interface.
type Vlan struct {
	tree.Base
	Parent *tree.Reference[*Interface]
	ID     *apd.Decimal
}

func (v *Vlan) Fields() []tree.Field {
	return []tree.Field{
		{Label: "parent", Component: v.Parent},
		{Label: "id", Component: v.ID},
	}
}

// A Zone groups interfaces that share a firewall policy.
type Zone struct {
	tree.Base
	Name       string
	Interfaces *tree.ReferenceList[*Interface]
}

func (z *Zone) Fields() []tree.Field {
	return []tree.Field{
		{Label: "name", Component: z.Name},
		{Label: "interfaces", Component: z.Interfaces},
	}
}

// A Stage is a step of the packet pipeline.
type Stage struct {
	tree.Base
	Action string
	Next   *tree.ReferenceList[*Stage]
}

func (s *Stage) Fields() []tree.Field {
	fs := []tree.Field{{Label: "action", Component: s.Action}}
	if s.Next != nil {
		fs = append(fs, tree.Field{Label: "next", Component: s.Next})
	}
	return fs
}

func nextStages(s *Stage) ([]string, error) {
	if s.Next == nil {
		return nil, nil
	}
	names := make([]string, s.Next.Len())
	for k := range names {
		names[k] = s.Next.At(k).Key()[0]
	}
	return names, nil
}

// An Alias describes an interface. Its key is the name of the interface.
type Alias struct {
	tree.Base
	Description *string
}

func (a *Alias) Fields() []tree.Field {
	return []tree.Field{{Label: "description", Component: a.Description}}
}
