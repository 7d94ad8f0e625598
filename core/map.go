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
	"bytes"
	"encoding/json"
	"reflect"

	"gopkg.in/yaml.v2"
)

const (
	// AttrKey is the reserved key for an element's attributes.
	AttrKey = "@attributes"

	// TextKey is the reserved key for an element's body text when
	// that element also has attributes or children.
	TextKey = "#text"
)

// Map is an ordered mapping from child tag names to normalized
// values.
//
// A normalized value is a string, a bool, a *Map, or a []interface{}
// of normalized values.  Keys remember the order in which they were
// first Set, which is document order for a Map made by
// markup.Normalize.
type Map struct {
	keys []string
	vals map[string]interface{}
}

// NewMap makes an empty Map.
func NewMap() *Map {
	return &Map{
		vals: make(map[string]interface{}, 8),
	}
}

// MapOf makes a Map from alternating keys and values.  Handy in
// tests.
//
// Panics if a key isn't a string.
func MapOf(pairs ...interface{}) *Map {
	m := NewMap()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in order.  The returned slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	acc := make([]string, len(m.keys))
	copy(acc, m.keys)
	return acc
}

// Get returns the value for the key.
func (m *Map) Get(k string) (interface{}, bool) {
	if m == nil {
		return nil, false
	}
	x, have := m.vals[k]
	return x, have
}

// Has reports whether the key is present.
func (m *Map) Has(k string) bool {
	_, have := m.Get(k)
	return have
}

// Set binds the key.  A key that's already present keeps its
// position.
func (m *Map) Set(k string, v interface{}) *Map {
	if m.vals == nil {
		m.vals = make(map[string]interface{}, 8)
	}
	if _, have := m.vals[k]; !have {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
	return m
}

// Delete removes the key (if present).
func (m *Map) Delete(k string) {
	if _, have := m.vals[k]; !have {
		return
	}
	delete(m.vals, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Copy makes a shallow copy.
func (m *Map) Copy() *Map {
	acc := NewMap()
	if m == nil {
		return acc
	}
	for _, k := range m.keys {
		acc.Set(k, m.vals[k])
	}
	return acc
}

// Range calls f for each key in order until f returns false.
func (m *Map) Range(f func(k string, v interface{}) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !f(k, m.vals[k]) {
			return
		}
	}
}

// String returns the value for k if that value is a string.
func (m *Map) String(k string) (string, bool) {
	x, _ := m.Get(k)
	s, is := x.(string)
	return s, is
}

// Map returns the value for k if that value is a *Map.
func (m *Map) Map(k string) (*Map, bool) {
	x, _ := m.Get(k)
	sub, is := x.(*Map)
	return sub, is
}

// Attrs returns the attributes sub-map, which is empty (but not nil)
// if there are no attributes.
func (m *Map) Attrs() *Map {
	if attrs, is := m.Map(AttrKey); is {
		return attrs
	}
	return NewMap()
}

// Equal reports deep equality including key order.
func (m *Map) Equal(o *Map) bool {
	return reflect.DeepEqual(m, o)
}

// MarshalJSON writes the keys in order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if 0 < i {
			buf.WriteByte(',')
		}
		js, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(js)
		buf.WriteByte(':')
		v := m.vals[k]
		if js, err = json.Marshal(&v); err != nil {
			return nil, err
		}
		buf.Write(js)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML renders the Map as a yaml.MapSlice so that key order
// survives.
func (m *Map) MarshalYAML() (interface{}, error) {
	acc := make(yaml.MapSlice, 0, m.Len())
	m.Range(func(k string, v interface{}) bool {
		acc = append(acc, yaml.MapItem{Key: k, Value: v})
		return true
	})
	return acc, nil
}

// AsList returns the value as a list.  A nil value is an empty list,
// a []interface{} is returned as is, and anything else is wrapped in
// a list of one.
//
// Repeated sibling tags normalize to a list while a single tag does
// not, so code that accepts "one or more" uses AsList.
func AsList(x interface{}) []interface{} {
	switch vv := x.(type) {
	case nil:
		return nil
	case []interface{}:
		return vv
	default:
		return []interface{}{x}
	}
}
