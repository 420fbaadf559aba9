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
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cockroachdb/apd/v3"
	"github.com/opencontainers/go-digest"
	"gopkg.in/yaml.v3"
)

// EncodeYAML returns the YAML rendering of payload v.
func EncodeYAML(v any) ([]byte, error) {
	yn, err := yamlNode(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(yn); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func yamlNode(v any) (*yaml.Node, error) {
	switch x := v.(type) {
	case nil:
		return scalarNode(nullTag, "null"), nil
	case bool:
		return scalarNode(boolTag, strconv.FormatBool(x)), nil
	case string:
		return scalarNode(strTag, x), nil
	case *apd.Decimal:
		tag := floatTag
		if x.Exponent == 0 {
			tag = intTag
		}
		return scalarNode(tag, x.String()), nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if isVariant(x) {
			n.Style = yaml.FlowStyle
		}
		for _, e := range x {
			c, err := yamlNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case *Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range x.Fields() {
			c, err := yamlNode(f.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, scalarNode(strTag, f.Key), c)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot encode value of type %T", v)
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// isVariant reports whether list is a variant with a scalar body, which
// reads best on a single line.
func isVariant(list []any) bool {
	if len(list) != 2 {
		return false
	}
	if _, ok := list[0].(string); !ok {
		return false
	}
	switch list[1].(type) {
	case *Map, []any:
		return false
	}
	return true
}

// EncodeJSON returns the JSON rendering of payload v. If indent is not
// empty, the output is indented with it.
func EncodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := appendJSON(&buf, v); err != nil {
		return nil, err
	}
	if indent == "" {
		return buf.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", indent); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, keeping the order of fields.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	err := appendJSON(&buf, m)
	return buf.Bytes(), err
}

func appendJSON(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case string:
		b, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(b)
	case *apd.Decimal:
		if x.Form != apd.Finite {
			return fmt.Errorf("cannot encode %s as JSON", x)
		}
		buf.WriteString(x.String())
	case []any:
		buf.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case *Map:
		buf.WriteByte('{')
		for i, f := range x.Fields() {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, f.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := appendJSON(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("cannot encode value of type %T", v)
	}
	return nil
}

// Digest returns the content digest of the compact JSON rendering of
// payload v. Payloads that are Equal have the same digest as long as their
// numbers are written the same way.
func Digest(v any) (digest.Digest, error) {
	b, err := EncodeJSON(v, "")
	if err != nil {
		return "", err
	}
	return digest.FromBytes(b), nil
}
