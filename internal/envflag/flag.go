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

// Package envflag decodes comma-separated name=value lists, as found in
// environment variables such as CONFTREE_DEBUG, into the fields of a struct.
package envflag

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
)

// Init uses Parse with the contents of the given environment variable as input.
func Init[T any](flags *T, envVar string) error {
	if err := Parse(flags, os.Getenv(envVar)); err != nil {
		return fmt.Errorf("cannot parse %s: %w", envVar, err)
	}
	return nil
}

// field describes one settable struct field.
type field struct {
	index      int
	kind       reflect.Kind
	deprecated bool
}

// Parse initializes the fields in flags from the attached struct field tags as
// well as the contents of the given string.
//
// Each exported field of T of kind bool, int or string is a flag named after
// the lower-cased field name. A field tag such as `envflag:"default:true"`
// sets a default other than the zero value; `envflag:"deprecated"` makes it
// an error to set the flag to anything but its default.
//
// The string is a comma-separated list of name=value pairs. For boolean
// flags the value may be omitted, in which case it is true.
func Parse[T any](flags *T, env string) error {
	fv := reflect.ValueOf(flags).Elem()
	fields, err := collect(fv)
	if err != nil {
		return err
	}

	var errs []error
	for _, elem := range strings.Split(env, ",") {
		if elem == "" {
			// Allow empty elements so that lists can be joined naively,
			// as in "$CONFTREE_DEBUG,strict".
			continue
		}
		name, text, hasValue := strings.Cut(elem, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		f, ok := fields[name]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown flag %q", elem))
			continue
		}

		var val any
		switch {
		case hasValue:
			if val, err = parseValue(name, f.kind, text); err != nil {
				errs = append(errs, err)
				continue
			}
		case f.kind == reflect.Bool:
			val = true
		default:
			errs = append(errs, fmt.Errorf("value needed for %s flag %q", f.kind, name))
			continue
		}

		target := fv.Field(f.index)
		if f.deprecated {
			if target.Interface() != val {
				errs = append(errs, fmt.Errorf("cannot change default value of deprecated flag %q", name))
			}
			continue
		}
		target.Set(reflect.ValueOf(val))
	}
	return errors.Join(errs...)
}

// collect sets the defaults of the fields of fv and returns them by name.
func collect(fv reflect.Value) (map[string]field, error) {
	ft := fv.Type()
	fields := make(map[string]field, ft.NumField())
	for i := 0; i < ft.NumField(); i++ {
		sf := ft.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.ToLower(sf.Name)
		f := field{index: i, kind: sf.Type.Kind()}
		if tag, ok := sf.Tag.Lookup("envflag"); ok {
			for _, opt := range strings.Split(tag, ",") {
				key, rest, hasRest := strings.Cut(opt, ":")
				switch key {
				case "default":
					val, err := parseValue(name, f.kind, rest)
					if err != nil {
						return nil, err
					}
					fv.Field(i).Set(reflect.ValueOf(val))
				case "deprecated":
					if hasRest {
						return nil, fmt.Errorf("cannot have a value for deprecated tag")
					}
					f.deprecated = true
				default:
					return nil, fmt.Errorf("unknown envflag tag %q", opt)
				}
			}
		}
		fields[name] = f
	}
	return fields, nil
}

func parseValue(name string, kind reflect.Kind, str string) (val any, err error) {
	switch kind {
	case reflect.Bool:
		val, err = strconv.ParseBool(str)
	case reflect.Int:
		val, err = strconv.Atoi(str)
	case reflect.String:
		val = str
	default:
		return nil, errInvalid{fmt.Errorf("unsupported kind %s", kind)}
	}
	if err != nil {
		return nil, errInvalid{fmt.Errorf("invalid %s value for %s: %v", kind, name, err)}
	}
	return val, nil
}

// An ErrInvalid indicates a malformed input string.
var ErrInvalid = errors.New("invalid value")

type errInvalid struct{ error }

func (errInvalid) Is(err error) bool {
	return err == ErrInvalid
}
