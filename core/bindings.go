/* Copyright 2019 Comcast Cable Communications Management, LLC
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
	"encoding/json"
	"fmt"
	"strings"
)

// CtxKey is the binding for the invocation context (the invoking
// principal and where the invocation came from).
const CtxKey = "ctx"

// ArgKey returns the binding name for an argument.
func ArgKey(name string) string {
	return "argument(" + name + ")"
}

// VarKey returns the binding name for a declared variable.
func VarKey(name string) string {
	return "var(" + name + ")"
}

// InpKey returns the binding name for a modal input.
func InpKey(name string) string {
	return "inp(" + name + ")"
}

// Bindings maps placeholder names to values.
//
// A Bindings is made fresh for each invocation and is never shared
// between invocations.
type Bindings map[string]interface{}

func NewBindings() Bindings {
	return make(Bindings, 8)
}

// Extend adds the binding.
//
// The Bindings are modified.
func (bs Bindings) Extend(p string, v interface{}) Bindings {
	bs[p] = v
	return bs
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

// Lookup resolves a placeholder.
//
// A placeholder is a binding name optionally followed by a
// dot-separated path into that binding's value (for example
// "ctx.author.name").
func (bs Bindings) Lookup(placeholder string) (interface{}, bool) {
	if x, have := bs[placeholder]; have {
		return x, true
	}

	// The binding name itself might contain dots inside
	// parentheses ("var(a.b)"), so only split after the closing
	// paren.
	base, path := placeholder, ""
	if i := strings.LastIndex(placeholder, ")"); 0 <= i {
		if j := strings.Index(placeholder[i:], "."); 0 <= j {
			base, path = placeholder[:i+j], placeholder[i+j+1:]
		}
	} else if i := strings.Index(placeholder, "."); 0 <= i {
		base, path = placeholder[:i], placeholder[i+1:]
	}
	if path == "" {
		return nil, false
	}

	x, have := bs[base]
	if !have {
		return nil, false
	}
	for _, p := range strings.Split(path, ".") {
		switch vv := x.(type) {
		case map[string]interface{}:
			if x, have = vv[p]; !have {
				return nil, false
			}
		case Bindings:
			if x, have = vv[p]; !have {
				return nil, false
			}
		case *Map:
			if x, have = vv.Get(p); !have {
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return x, true
}

// Interpolate returns a copy of x with every placeholder in every
// string leaf replaced by its binding.
//
// Interpolate recurses into *Maps and lists.  Map keys and non-string
// leaves are not touched.  The input is never modified.
func Interpolate(x interface{}, bs Bindings) (interface{}, error) {
	switch vv := x.(type) {
	case string:
		return InterpolateString(vv, bs)
	case *Map:
		acc := NewMap()
		var err error
		vv.Range(func(k string, v interface{}) bool {
			var y interface{}
			if y, err = Interpolate(v, bs); err != nil {
				return false
			}
			acc.Set(k, y)
			return true
		})
		if err != nil {
			return nil, err
		}
		return acc, nil
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			z, err := Interpolate(y, bs)
			if err != nil {
				return nil, err
			}
			acc[i] = z
		}
		return acc, nil
	default:
		return x, nil
	}
}

// InterpolateString replaces each "{placeholder}" in s with its
// binding's string form.
//
// "{{" and "}}" produce literal braces.  Braces that don't enclose
// something that looks like a placeholder are left alone, so JSON in
// a message body passes through.  A well-formed placeholder with no
// binding is an *UnboundPlaceholder.
func InterpolateString(s string, bs Bindings) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}

	var acc strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				acc.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				acc.WriteByte(c)
				continue
			}
			name := s[i+1 : i+1+end]
			if !isPlaceholder(name) {
				acc.WriteByte(c)
				continue
			}
			x, have := bs.Lookup(name)
			if !have {
				return "", &UnboundPlaceholder{Name: name}
			}
			acc.WriteString(Stringify(x))
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				i++
			}
			acc.WriteByte('}')
		default:
			acc.WriteByte(c)
		}
	}
	return acc.String(), nil
}

// isPlaceholder checks for NAME, NAME(ARG), optionally followed by
// .FIELD segments.
func isPlaceholder(s string) bool {
	if s == "" {
		return false
	}
	i := 0
	ident := func() bool {
		start := i
		for i < len(s) {
			c := s[i]
			if c == '_' || c == '-' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || (start < i && '0' <= c && c <= '9') {
				i++
				continue
			}
			break
		}
		return start < i
	}
	if !ident() {
		return false
	}
	if i < len(s) && s[i] == '(' {
		close := strings.IndexByte(s[i:], ')')
		if close < 0 {
			return false
		}
		arg := s[i+1 : i+close]
		if strings.ContainsAny(arg, "(){}\"'") {
			return false
		}
		i += close + 1
	}
	for i < len(s) {
		if s[i] != '.' {
			return false
		}
		i++
		if !ident() {
			return false
		}
	}
	return true
}

// Stringify renders a bound value for substitution into text.
//
// Strings are used as is.  Scalars use their natural form.  Anything
// else is rendered as JSON.
func Stringify(x interface{}) string {
	switch vv := x.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool, int, int64, int32, float64, float32, uint, uint64:
		return fmt.Sprintf("%v", vv)
	case fmt.Stringer:
		return vv.String()
	default:
		js, err := json.Marshal(&x)
		if err != nil {
			return fmt.Sprintf("%v", x)
		}
		return string(js)
	}
}
