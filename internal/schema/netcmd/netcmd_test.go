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

package netcmd_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"
	"github.com/kr/pretty"

	"github.com/conftree/conftree/errors"
	"github.com/conftree/conftree/internal/schema/netcmd"
	"github.com/conftree/conftree/internal/schema/netif"
	"github.com/conftree/conftree/payload"
	"github.com/conftree/conftree/tree"
)

const host = `
interfaces:
  lo: {kind: [loopback, {}]}
  eth1: {kind: [physical, {mac: "52:54:00:12:34:57"}]}
  vlan10: {kind: [vlan, {parent: eth1, id: 10}], mtu: 1400}
zones: []
pipeline: {}
aliases: {}
`

const batch = `
commands:
  raise:
    target: vlan10
    action: [set_mtu, {mtu: 1500}]
  enable:
    target: vlan10
    action: [up, null]
    after: [raise]
  drop:
    target: eth1
    action: [down, null]
    reason: maintenance
`

func decode(t *testing.T, src string) any {
	t.Helper()
	v, err := payload.Decode("test.yaml", []byte(src))
	qt.Assert(t, qt.IsNil(err))
	return v
}

func hostTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.Create(netif.Schema, decode(t, host), &tree.Options{})
	qt.Assert(t, qt.IsNil(err))
	return tr
}

func createBatch(in *tree.Tree, v any, lazy bool) (*tree.Tree, error) {
	return tree.Create(netcmd.Schema, v, &tree.Options{
		Lazy:   lazy,
		Inputs: map[string]*tree.Tree{netcmd.Input: in},
	})
}

func refCount(t *testing.T, in *tree.Tree, name string) int {
	t.Helper()
	i, err := netif.InterfacesOf(in.Root()).Lookup(name)
	qt.Assert(t, qt.IsNil(err))
	return i.RefCount()
}

func TestScript(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		tr, err := createBatch(hostTree(t), decode(t, batch), lazy)
		qt.Assert(t, qt.IsNil(err))
		lines, err := tr.Root().(*netcmd.Batch).Script()
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.DeepEquals(lines, []string{
			"ip link set dev eth1 down",
			"ip link set dev vlan10 mtu 1500",
			"ip link set dev vlan10 up",
		}), qt.Commentf("lazy %v", lazy))
	}
}

func TestInputReferenceCounts(t *testing.T) {
	in := hostTree(t)
	qt.Assert(t, qt.Equals(refCount(t, in, "eth1"), 1))
	qt.Assert(t, qt.Equals(refCount(t, in, "vlan10"), 0))

	tr, err := createBatch(in, decode(t, batch), false)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(refCount(t, in, "eth1"), 2))
	qt.Assert(t, qt.Equals(refCount(t, in, "vlan10"), 2))

	qt.Assert(t, qt.IsNil(tr.Detach()))
	qt.Assert(t, qt.Equals(refCount(t, in, "eth1"), 1))
	qt.Assert(t, qt.Equals(refCount(t, in, "vlan10"), 0))
}

func TestInputEntryRemoved(t *testing.T) {
	in := hostTree(t)
	tr, err := createBatch(in, decode(t, batch), false)
	qt.Assert(t, qt.IsNil(err))
	b := tr.Root().(*netcmd.Batch)
	_, err = b.Script()
	qt.Assert(t, qt.IsNil(err))

	ifaces := netif.InterfacesOf(in.Root())
	ok, err := ifaces.Remove("vlan10")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(ok))

	err = tr.Validate()
	qt.Assert(t, qt.ErrorIs(err, errors.ReferenceNotFound))
	qt.Assert(t, qt.ErrorMatches(err, `commands.raise.target: reference "vlan10" not found`))
	_, err = b.Script()
	qt.Assert(t, qt.ErrorMatches(err, `commands.raise.target: reference "vlan10" not found`))

	// The commands apply again once the interface is back.
	qt.Assert(t, qt.IsNil(ifaces.Put("vlan10", decode(t, "{kind: [vlan, {parent: eth1, id: 10}], mtu: 1400}"))))
	qt.Assert(t, qt.IsNil(tr.Validate()))
	qt.Assert(t, qt.Equals(refCount(t, in, "vlan10"), 2))
	lines, err := b.Script()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.DeepEquals(lines, []string{
		"ip link set dev eth1 down",
		"ip link set dev vlan10 mtu 1500",
		"ip link set dev vlan10 up",
	}))
}

func TestRoundTrip(t *testing.T) {
	tr, err := createBatch(hostTree(t), decode(t, batch), true)
	qt.Assert(t, qt.IsNil(err))
	out, err := tree.Export(tr.Root())
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsTrue(payload.Equal(out, decode(t, batch))),
		qt.Commentf("got %# v", pretty.Formatter(out)))
}

func TestFindAcrossTrees(t *testing.T) {
	tr, err := createBatch(hostTree(t), decode(t, batch), false)
	qt.Assert(t, qt.IsNil(err))
	v, err := tree.Find(tr.Root(), tree.Path{"commands", "raise", "target", "kind", "vlan", "id"})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v.(*apd.Decimal).Cmp(payload.Int(10)), 0))

	b := tr.Root().(*netcmd.Batch)
	drop, err := b.Commands.Lookup("drop")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(*drop.Reason, "maintenance"))
	target, err := drop.Target.Target()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsFalse(target.Tree() == tr))
	qt.Assert(t, qt.Equals(target.Path().String(), "interfaces.eth1"))
}

func TestMissingInput(t *testing.T) {
	_, err := tree.Create(netcmd.Schema, decode(t, batch), &tree.Options{})
	qt.Assert(t, qt.ErrorIs(err, errors.RequiredEntryMissing))
	qt.Assert(t, qt.ErrorMatches(err, `input "interfaces" not provided`))

	// An input of another schema has no interfaces to refer to.
	other, err := createBatch(hostTree(t), decode(t, "commands: {}"), false)
	qt.Assert(t, qt.IsNil(err))
	_, err = createBatch(other, decode(t, batch), false)
	qt.Assert(t, qt.ErrorMatches(err, `commands.raise.target: reference "vlan10" not found`))
}

func TestErrors(t *testing.T) {
	testCases := []struct {
		name    string
		old     string
		new     string
		code    errors.Code
		wantErr string
	}{{
		name:    "unknown target",
		old:     "target: eth1",
		new:     "target: eth7",
		code:    errors.ReferenceNotFound,
		wantErr: `commands.drop.target: reference "eth7" not found`,
	}, {
		name:    "mtu too large",
		old:     "mtu: 1500",
		new:     "mtu: 9000",
		code:    errors.InvalidPayload,
		wantErr: `commands.raise.action.set_mtu.mtu: mtu 9000 out of range \[68, 1500\] of interface vlan10`,
	}, {
		name:    "payload for up",
		old:     "[up, null]",
		new:     "[up, {}]",
		code:    errors.InvalidPayload,
		wantErr: `commands.enable.action.up: expected null, found object`,
	}, {
		name:    "unknown action",
		old:     "[down, null]",
		new:     "[reset, null]",
		code:    errors.InvalidPayload,
		wantErr: `commands.drop.action: unknown variant "reset"; expected one of down, set_mtu, up`,
	}, {
		name:    "unknown predecessor",
		old:     "after: [raise]",
		new:     "after: [lower]",
		code:    errors.ReferenceNotFound,
		wantErr: `commands.enable.after\[0\]: reference "lower" not found`,
	}, {
		name:    "cycle",
		old:     "action: [set_mtu, {mtu: 1500}]",
		new:     "action: [set_mtu, {mtu: 1500}]\n    after: [enable]",
		code:    errors.CycleDetected,
		wantErr: `commands: graph "after" has a cycle among raise, enable`,
	}}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := strings.Replace(batch, tc.old, tc.new, 1)
			qt.Assert(t, qt.Not(qt.Equals(src, batch)))
			_, err := createBatch(hostTree(t), decode(t, src), false)
			qt.Assert(t, qt.ErrorIs(err, tc.code))
			qt.Assert(t, qt.ErrorMatches(err, tc.wantErr))
		})
	}
}
