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

// Package treedebug holds the CONFTREE_DEBUG settings.
package treedebug

import (
	"sync"

	"github.com/conftree/conftree/internal/envflag"
)

// Flags holds the set of global CONFTREE_DEBUG flags. It is initialized by Init.
var Flags Config

// Config holds the set of known CONFTREE_DEBUG flags.
//
// When adding, deleting, or modifying entries below,
// update cmd/conftree/cmd/help.go as well.
type Config struct {
	// LogEval sets the log level for memo evaluation.
	// There are currently only two levels:
	//
	//	0: no logging
	//	1: log every resolution, detach and cycle at debug level
	LogEval int

	// Strict makes detaching a whole tree check that every reference count
	// dropped back to zero.
	Strict bool

	// Lazy makes trees created without explicit options defer building
	// container entries until they are first accessed.
	Lazy bool
}

// Init initializes Flags. Note: this isn't named "init" because we
// don't always want it to be called (for example in tests that set
// Flags directly), and because we want the failure mode to be an error
// rather than a panic.
func Init() error {
	return initOnce()
}

var initOnce = sync.OnceValue(func() error {
	return envflag.Init(&Flags, "CONFTREE_DEBUG")
})
