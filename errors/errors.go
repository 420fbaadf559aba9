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

// Package errors defines the error values reported while building and
// validating configuration trees.
//
// Every error carries a Code, which classifies the failure, and the path of
// the tree node at which it was detected. Codes implement the error interface
// themselves so that the standard library can be used to test for them:
//
//	if errors.Is(err, cterrors.ReferenceNotFound) { ... }
package errors

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mpvl/unique"
)

// A Code classifies an error.
type Code int

const (
	_ Code = iota

	// CyclicDependency indicates that a lazily computed value was requested
	// while it was being computed.
	CyclicDependency

	// ReferenceNotFound indicates that the key of a reference did not
	// resolve to a node.
	ReferenceNotFound

	// InvalidVariantCast indicates that a state group was cast to a variant
	// other than the active one.
	InvalidVariantCast

	// CycleDetected indicates that the entries of a topology could not be
	// ordered because its graph has a cycle.
	CycleDetected

	// NotTotallyOrdered indicates that two consecutive entries in the
	// order of a topology graph are not connected by an edge.
	NotTotallyOrdered

	// RequiredEntryMissing indicates that a container lacks a key that is
	// declared mandatory.
	RequiredEntryMissing

	// InvalidPayload indicates that construction input does not have the
	// shape the schema declares.
	InvalidPayload
)

var codeNames = [...]string{
	CyclicDependency:     "cyclic dependency",
	ReferenceNotFound:    "reference not found",
	InvalidVariantCast:   "invalid variant cast",
	CycleDetected:        "cycle detected",
	NotTotallyOrdered:    "not totally ordered",
	RequiredEntryMissing: "required entry missing",
	InvalidPayload:       "invalid payload",
}

func (c Code) String() string {
	if c > 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

// Error implements the error interface so that a Code can be used as the
// target of errors.Is.
func (c Code) Error() string { return c.String() }

// Error is the common error type of this module.
type Error interface {
	error

	// Code reports the class of the error.
	Code() Code

	// Path returns the path of the node at which the error was detected.
	// It is nil for errors not associated with a node.
	Path() []string

	// Msg returns the unformatted error message and its arguments.
	Msg() (format string, args []any)
}

type treeError struct {
	code   Code
	path   []string
	format string
	args   []any

	// The underlying error that triggered this one, if any.
	err error
}

// Newf creates an Error with the given code, path and message.
func Newf(code Code, path []string, format string, args ...any) Error {
	return &treeError{
		code:   code,
		path:   path,
		format: format,
		args:   args,
	}
}

// Wrapf creates an Error that wraps err.
func Wrapf(err error, code Code, path []string, format string, args ...any) Error {
	return &treeError{
		code:   code,
		path:   path,
		format: format,
		args:   args,
		err:    err,
	}
}

func (e *treeError) Code() Code                       { return e.code }
func (e *treeError) Path() []string                   { return e.path }
func (e *treeError) Msg() (format string, args []any) { return e.format, e.args }
func (e *treeError) Unwrap() error                    { return e.err }

func (e *treeError) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.code
}

func (e *treeError) Error() string {
	var b strings.Builder
	if len(e.path) > 0 {
		b.WriteString(PathString(e.path))
		b.WriteString(": ")
	}
	if e.format != "" {
		fmt.Fprintf(&b, e.format, e.args...)
	}
	if e.err != nil {
		if e.format != "" {
			b.WriteString(": ")
		}
		b.WriteString(e.err.Error())
	}
	return b.String()
}

// Is reports whether any error in err's chain has the given code.
func Is(err error, code Code) bool {
	return errors.Is(err, code)
}

// CodeOf returns the code of the first Error in err's chain, or 0 if there
// is none.
func CodeOf(err error) Code {
	var e Error
	if errors.As(err, &e) {
		return e.Code()
	}
	return 0
}

// PathOf returns the path of the first Error in err's chain.
func PathOf(err error) []string {
	var e Error
	if errors.As(err, &e) {
		return e.Path()
	}
	return nil
}

// PathString formats a path as a dotted selector. Elements that are not
// plain identifiers are quoted.
func PathString(path []string) string {
	var b strings.Builder
	for i, s := range path {
		if i > 0 {
			b.WriteByte('.')
		}
		if isIdent(s) {
			b.WriteString(s)
		} else {
			b.WriteString(strconv.Quote(s))
		}
	}
	return b.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r == '_', r == '-', r == '#', r == '[', r == ']':
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return true
}

// List is a list of Errors.
// The zero value for a List is an empty List ready to use.
type List []Error

// Add adds err to the list. Errors that are not of type Error are wrapped
// without a code.
func (p *List) Add(err error) {
	if err == nil {
		return
	}
	if l, ok := err.(List); ok {
		*p = append(*p, l...)
		return
	}
	*p = append(*p, toErr(err))
}

// Len reports the number of errors in the list.
func (p List) Len() int { return len(p) }

// Sanitize sorts the list by path and message and removes duplicates.
func (p *List) Sanitize() {
	seen := make(map[string]Error, len(*p))
	keys := make([]string, 0, len(*p))
	for _, e := range *p {
		k := PathString(e.Path()) + "\x00" + e.Error()
		if _, ok := seen[k]; !ok {
			seen[k] = e
		}
		keys = append(keys, k)
	}
	unique.Strings(&keys)
	out := (*p)[:0]
	for _, k := range keys {
		out = append(out, seen[k])
	}
	*p = out
}

// An List implements the error interface.
func (p List) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", p[0], len(p)-1)
}

// Err returns an error equivalent to this error list.
// If the list is empty, Err returns nil.
func (p List) Err() error {
	if len(p) == 0 {
		return nil
	}
	return p
}

// Is reports whether any error in the list matches target.
func (p List) Is(target error) bool {
	for _, e := range p {
		if errors.Is(e, target) {
			return true
		}
	}
	return false
}

func toErr(err error) Error {
	if e, ok := err.(Error); ok {
		return e
	}
	return &treeError{err: err}
}

// Errors reports the individual errors in err.
func Errors(err error) []Error {
	switch x := err.(type) {
	case nil:
		return nil
	case List:
		return x
	default:
		return []Error{toErr(err)}
	}
}

// Print writes err to w, one error per line, each followed by its code.
func Print(w io.Writer, err error) {
	for _, e := range Errors(err) {
		fmt.Fprintf(w, "%v", e)
		if c := e.Code(); c != 0 {
			fmt.Fprintf(w, " [%v]", c)
		}
		fmt.Fprintln(w)
	}
}

// Details is a convenience wrapper for Print to return the error text as a
// string.
func Details(err error) string {
	var b strings.Builder
	Print(&b, err)
	return b.String()
}
