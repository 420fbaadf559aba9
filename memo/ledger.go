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

package memo

import (
	"context"
	"log/slog"

	"github.com/conftree/conftree/errors"
)

// A Ledger records the memos that are being computed and which memo read
// which other memo while doing so. The latter allows invalidating a memo
// together with everything that was computed from it.
//
// The zero Ledger is ready to use. A nil *Ledger is valid as well; it
// tracks nothing.
type Ledger struct {
	// Logger, if not nil, receives a Debug record for every resolution,
	// detach and cycle.
	Logger *slog.Logger

	stack []Cell

	// readers maps a cell to the cells that read it, in order of first read.
	readers map[Cell][]Cell
	// reads maps a cell to the cells it read.
	reads map[Cell][]Cell
}

// NewLedger returns a Ledger that logs to log, which may be nil.
func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{Logger: log}
}

// Depth reports how many computations are in progress.
func (l *Ledger) Depth() int {
	if l == nil {
		return 0
	}
	return len(l.stack)
}

func (l *Ledger) push(c Cell) {
	if l == nil {
		return
	}
	l.read(c)
	l.stack = append(l.stack, c)
}

func (l *Ledger) pop(c Cell) {
	if l == nil {
		return
	}
	if n := len(l.stack); n > 0 && l.stack[n-1] == c {
		l.stack = l.stack[:n-1]
	}
}

// read records that the cell on top of the stack read c.
func (l *Ledger) read(c Cell) {
	if l == nil || len(l.stack) == 0 {
		return
	}
	reader := l.stack[len(l.stack)-1]
	if reader == c {
		return
	}
	if l.readers == nil {
		l.readers = make(map[Cell][]Cell)
		l.reads = make(map[Cell][]Cell)
	}
	for _, r := range l.readers[c] {
		if r == reader {
			return
		}
	}
	l.readers[c] = append(l.readers[c], reader)
	l.reads[reader] = append(l.reads[reader], c)
}

// forget drops the reads recorded for c. Reads of c by others are kept so
// that they can still be invalidated.
func (l *Ledger) forget(c Cell) {
	if l == nil {
		return
	}
	for _, dep := range l.reads[c] {
		rs := l.readers[dep]
		for i, r := range rs {
			if r == c {
				l.readers[dep] = append(rs[:i:i], rs[i+1:]...)
				break
			}
		}
		if len(l.readers[dep]) == 0 {
			delete(l.readers, dep)
		}
	}
	delete(l.reads, c)
}

// chain returns the paths of the computations from the outermost
// computation of c to the top of the stack, followed by c itself.
func (l *Ledger) chain(c Cell) []string {
	name := func(c Cell) string {
		if p := c.Path(); len(p) > 0 {
			return errors.PathString(p)
		}
		return "<anonymous>"
	}
	if l == nil {
		return []string{name(c), name(c)}
	}
	start := len(l.stack)
	for i, s := range l.stack {
		if s == c {
			start = i
			break
		}
	}
	var out []string
	for _, s := range l.stack[start:] {
		out = append(out, name(s))
	}
	return append(out, name(c))
}

// Dependents returns the cells that read c, directly or transitively.
// Readers are listed before the cells they read.
func (l *Ledger) Dependents(c Cell) []Cell {
	all := l.closure(unwrap(c))
	return all[:len(all)-1]
}

func (l *Ledger) closure(c Cell) []Cell {
	var out []Cell
	visited := map[Cell]bool{}
	var visit func(c Cell)
	visit = func(c Cell) {
		if visited[c] {
			return
		}
		visited[c] = true
		if l != nil {
			for _, r := range l.readers[c] {
				visit(r)
			}
		}
		out = append(out, c)
	}
	visit(c)
	return out
}

// Invalidate detaches c and every resolved cell that was computed from it,
// readers first.
func (l *Ledger) Invalidate(c Cell) error {
	var errs errors.List
	for _, d := range l.closure(unwrap(c)) {
		if d.State() != Resolved {
			continue
		}
		errs.Add(d.release())
	}
	return errs.Err()
}

func unwrap(c Cell) Cell {
	if w, ok := c.(interface{ cell() Cell }); ok {
		return w.cell()
	}
	return c
}

func (l *Ledger) enabled() bool {
	return l != nil && l.Logger != nil && l.Logger.Enabled(context.Background(), slog.LevelDebug)
}

func (l *Ledger) logResolved(c Cell) {
	if l.enabled() {
		l.Logger.Debug("memo resolved", "path", errors.PathString(c.Path()), "depth", len(l.stack))
	}
}

func (l *Ledger) logDetached(c Cell) {
	if l.enabled() {
		l.Logger.Debug("memo detached", "path", errors.PathString(c.Path()))
	}
}

func (l *Ledger) logCycle(c Cell, chain []string) {
	if l.enabled() {
		l.Logger.Debug("memo cycle", "path", errors.PathString(c.Path()), "chain", chain)
	}
}
