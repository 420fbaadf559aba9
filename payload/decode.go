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

package payload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"
)

const (
	nullTag  = "!!null"
	boolTag  = "!!bool"
	strTag   = "!!str"
	intTag   = "!!int"
	floatTag = "!!float"
	mergeTag = "!!merge"
)

// rxAnyOctalYaml11 matches what YAML 1.1 would consider an octal integer,
// including the invalid digits 8 and 9.
var rxAnyOctalYaml11 = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^[-+]?0[0-9_]+$`)
})

type decoder struct {
	filename string
	// expanding holds the alias targets currently being expanded.
	expanding map[*yaml.Node]bool
}

// Decode parses a single YAML or JSON document into a payload value. Object
// fields keep the order in which they appear in data. Empty input decodes
// as nil.
func Decode(filename string, data []byte) (any, error) {
	d := &decoder{filename: filename, expanding: map[*yaml.Node]bool{}}
	yd := yaml.NewDecoder(bytes.NewReader(data))

	var yn yaml.Node
	if err := yd.Decode(&yn); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, d.syntaxError(err)
	}
	v, err := d.extract(&yn)
	if err != nil {
		return nil, err
	}
	var extra yaml.Node
	if err := yd.Decode(&extra); err == nil {
		return nil, d.errorf(&extra, "expected a single document")
	} else if err != io.EOF {
		return nil, fmt.Errorf("%s: expected a single document: %v", filename, err)
	}
	return v, nil
}

// syntaxError rewrites the opaque errors of the YAML parser so that they
// start with the file name.
func (d *decoder) syntaxError(err error) error {
	e := err.Error()
	if s, ok := strings.CutPrefix(e, "yaml: line "); ok {
		e = d.filename + ":" + s
	} else if s, ok := strings.CutPrefix(e, "yaml:"); ok {
		e = d.filename + ":" + s
	} else {
		return err
	}
	return errors.New(e)
}

func (d *decoder) errorf(yn *yaml.Node, format string, args ...any) error {
	return fmt.Errorf(d.filename+":"+strconv.Itoa(yn.Line)+": "+format, args...)
}

func (d *decoder) extract(yn *yaml.Node) (any, error) {
	switch yn.Kind {
	case yaml.DocumentNode:
		if len(yn.Content) == 0 {
			return nil, nil
		}
		return d.extract(yn.Content[0])
	case yaml.SequenceNode:
		return d.sequence(yn)
	case yaml.MappingNode:
		return d.mapping(yn)
	case yaml.ScalarNode:
		return d.scalar(yn)
	case yaml.AliasNode:
		if d.expanding[yn.Alias] {
			return nil, d.errorf(yn, "anchor %q value contains itself", yn.Value)
		}
		d.expanding[yn.Alias] = true
		defer delete(d.expanding, yn.Alias)
		return d.extract(yn.Alias)
	}
	return nil, d.errorf(yn, "unknown yaml node kind %d", yn.Kind)
}

func (d *decoder) sequence(yn *yaml.Node) (any, error) {
	list := make([]any, 0, len(yn.Content))
	for _, c := range yn.Content {
		v, err := d.extract(c)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}

func (d *decoder) mapping(yn *yaml.Node) (any, error) {
	m := &Map{}
	for i := 0; i+1 < len(yn.Content); i += 2 {
		kn, vn := yn.Content[i], yn.Content[i+1]
		if kn.Kind == yaml.AliasNode {
			kn = kn.Alias
		}
		if kn.Kind != yaml.ScalarNode {
			return nil, d.errorf(kn, "invalid map key: %v", kn.ShortTag())
		}
		if kn.ShortTag() == mergeTag {
			return nil, d.errorf(kn, "merge keys are not supported")
		}
		if _, ok := m.Get(kn.Value); ok {
			return nil, d.errorf(kn, "duplicate key %q", kn.Value)
		}
		v, err := d.extract(vn)
		if err != nil {
			return nil, err
		}
		m.Set(kn.Value, v)
	}
	return m, nil
}

func (d *decoder) scalar(yn *yaml.Node) (any, error) {
	tag := yn.ShortTag()
	// A value like 01289 is tagged as a float by the parser, but most
	// readers would take it for a string.
	if yn.Style&yaml.TaggedStyle == 0 && tag == floatTag && rxAnyOctalYaml11().MatchString(yn.Value) {
		tag = strTag
	}
	switch tag {
	case strTag:
		return yn.Value, nil

	case boolTag:
		switch yn.Value {
		case "true", "True", "TRUE":
			return true, nil
		}
		return false, nil

	case nullTag:
		return nil, nil

	case intTag:
		if x, _, err := apd.NewFromString(yn.Value); err == nil {
			return x, nil
		}
		// Bases other than ten.
		i, err := strconv.ParseInt(yn.Value, 0, 64)
		if err != nil {
			return nil, d.errorf(yn, "cannot decode %q as %s: %v", yn.Value, tag, err)
		}
		return Int(i), nil

	case floatTag:
		x, _, err := apd.NewFromString(yn.Value)
		if err != nil || x.Form != apd.Finite {
			return nil, d.errorf(yn, "cannot decode %q as %s: not a finite number", yn.Value, tag)
		}
		return x, nil
	}
	return nil, d.errorf(yn, "cannot unmarshal tag %q", tag)
}
