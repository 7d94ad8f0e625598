/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package core

import (
	"fmt"
	"strings"
)

// ArgSpec describes one declared argument of a command or event.
type ArgSpec struct {
	Name string `json:"name"`

	// Type is a canonical type (see CanonicalType).
	Type string `json:"type"`

	// Rest means the argument consumes all remaining tokens
	// (joined with single spaces).  Only the last argument can be
	// a rest argument.
	Rest bool `json:"rest,omitempty" yaml:",omitempty"`

	// Default is used when no token is available.
	Default    string `json:"default,omitempty" yaml:",omitempty"`
	HasDefault bool   `json:"-" yaml:"-"`

	// Description is shown by platforms that list structured
	// command options.
	Description string `json:"description,omitempty" yaml:",omitempty"`
}

// Required reports whether an invocation must supply a value.
func (s *ArgSpec) Required() bool {
	return !s.Rest && !s.HasDefault
}

// ParseArgSpecs reads the "argument" entries of a Declaration.
//
// Each entry is an element with attributes name, type, rest, default,
// and description.  A bare string entry is an argument name with type
// text.  A rest argument that isn't last is an *InvalidDeclaration.
func ParseArgSpecs(decl *Map) ([]ArgSpec, error) {
	x, _ := decl.Get("argument")
	entries := AsList(x)
	specs := make([]ArgSpec, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		var spec ArgSpec
		switch vv := entry.(type) {
		case string:
			spec = ArgSpec{Name: strings.TrimSpace(vv), Type: TypeText}
		case *Map:
			attrs := vv.Attrs()
			name, _ := attrs.String("name")
			spec.Name = strings.TrimSpace(name)
			typ, _ := attrs.String("type")
			t, err := CanonicalType(typ)
			if err != nil {
				return nil, err
			}
			spec.Type = t
			if rest, have := attrs.Get("rest"); have {
				spec.Rest, _ = asBool(rest)
			}
			if def, have := attrs.Get("default"); have {
				spec.Default = Stringify(def)
				spec.HasDefault = true
			}
			if desc, have := attrs.Get("description"); have {
				spec.Description = Stringify(desc)
			} else if desc, have := vv.String("description"); have {
				spec.Description = desc
			}
		default:
			return nil, &InvalidDeclaration{
				Reason: fmt.Sprintf("argument %d: bad definition (%T)", i, entry),
			}
		}
		if spec.Name == "" {
			return nil, &InvalidDeclaration{
				Reason: fmt.Sprintf("argument %d has no name", i),
			}
		}
		if seen[spec.Name] {
			return nil, &InvalidDeclaration{
				Reason: `argument "` + spec.Name + `" declared twice`,
			}
		}
		seen[spec.Name] = true
		specs = append(specs, spec)
	}

	for i, spec := range specs {
		if spec.Rest && i != len(specs)-1 {
			return nil, &InvalidDeclaration{
				Reason: `rest argument "` + spec.Name + `" must be the last argument`,
			}
		}
	}

	return specs, nil
}

// BindPositional coerces tokens according to the specs.
//
// Each spec consumes one token in order.  A rest spec consumes the
// remaining tokens.  Extra tokens are ignored.
func BindPositional(specs []ArgSpec, tokens []string) (map[string]interface{}, error) {
	acc := make(map[string]interface{}, len(specs))
	remaining := tokens
	for _, spec := range specs {
		if spec.Rest {
			x, err := bindRest(spec, remaining)
			if err != nil {
				return nil, err
			}
			acc[spec.Name] = x
			remaining = nil
			break
		}
		if len(remaining) == 0 {
			x, err := bindDefault(spec)
			if err != nil {
				return nil, err
			}
			acc[spec.Name] = x
			continue
		}
		x, err := Coerce(remaining[0], spec.Type)
		if err != nil {
			return nil, err
		}
		acc[spec.Name] = x
		remaining = remaining[1:]
	}
	return acc, nil
}

// BindNamed coerces named options (from a structured invocation)
// according to the specs.
func BindNamed(specs []ArgSpec, options map[string]string) (map[string]interface{}, error) {
	acc := make(map[string]interface{}, len(specs))
	for _, spec := range specs {
		literal, have := options[spec.Name]
		if !have {
			if spec.Rest && !spec.HasDefault {
				x, err := bindRest(spec, nil)
				if err != nil {
					return nil, err
				}
				acc[spec.Name] = x
				continue
			}
			x, err := bindDefault(spec)
			if err != nil {
				return nil, err
			}
			acc[spec.Name] = x
			continue
		}
		x, err := Coerce(literal, spec.Type)
		if err != nil {
			return nil, err
		}
		acc[spec.Name] = x
	}
	return acc, nil
}

func bindDefault(spec ArgSpec) (interface{}, error) {
	if !spec.HasDefault {
		return nil, &MissingArgument{Name: spec.Name}
	}
	return Coerce(spec.Default, spec.Type)
}

func bindRest(spec ArgSpec, tokens []string) (interface{}, error) {
	if len(tokens) == 0 {
		if spec.HasDefault {
			return Coerce(spec.Default, spec.Type)
		}
		switch spec.Type {
		case TypeText:
			return "", nil
		case TypeList:
			return []string{}, nil
		}
		return nil, &MissingArgument{Name: spec.Name}
	}
	return Coerce(strings.Join(tokens, " "), spec.Type)
}
