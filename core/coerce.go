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
	"errors"
	"strconv"
	"strings"
)

// Canonical argument types.
const (
	TypeText    = "text"
	TypeInteger = "integer"
	TypeList    = "list"
	TypeObject  = "object"
)

// typeAliases maps every accepted type tag to its canonical type.
var typeAliases = map[string]string{
	"":        TypeText,
	"str":     TypeText,
	"text":    TypeText,
	"string":  TypeText,
	"int":     TypeInteger,
	"integer": TypeInteger,
	"number":  TypeInteger,
	"list":    TypeList,
	"array":   TypeList,
	"dict":    TypeObject,
	"json":    TypeObject,
	"object":  TypeObject,
}

// CanonicalType resolves a declared type tag.
func CanonicalType(tag string) (string, error) {
	t, have := typeAliases[strings.ToLower(strings.TrimSpace(tag))]
	if !have {
		return "", &InvalidDeclaration{Reason: `unknown argument type "` + tag + `"`}
	}
	return t, nil
}

// Coerce converts a raw token to the given type.
//
// An integer that doesn't parse is a *TypeMismatch, and an object
// that doesn't parse is an *InvalidStructuredLiteral.  A list is the
// whitespace-separated fields of the literal.
func Coerce(literal, typ string) (interface{}, error) {
	t, err := CanonicalType(typ)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeInteger:
		n, err := strconv.Atoi(strings.TrimSpace(literal))
		if err != nil {
			return nil, &TypeMismatch{
				Literal: literal,
				Type:    TypeInteger,
			}
		}
		return n, nil
	case TypeList:
		return strings.Fields(literal), nil
	case TypeObject:
		var x interface{}
		if err := json.Unmarshal([]byte(literal), &x); err != nil {
			return nil, &InvalidStructuredLiteral{
				Literal: literal,
				Err:     err,
			}
		}
		if _, is := x.(map[string]interface{}); !is {
			return nil, &InvalidStructuredLiteral{
				Literal: literal,
				Err:     errors.New("not an object"),
			}
		}
		return x, nil
	default:
		return literal, nil
	}
}
