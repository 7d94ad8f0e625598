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

// Package markup loads bot documents and normalizes them into
// core.Maps.
//
// A document is XML.  Parse produces a generic Element tree, and
// Normalize turns that tree into the nested, ordered mapping that the
// rest of the system reads.
package markup

// Attr is one attribute of an Element.
type Attr struct {
	Name  string
	Value string
}

// Element is a generic attributed tree node.
//
// Text is the element's own text (trimmed); text interleaved between
// children is concatenated into it.
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// Attr returns the named attribute's value.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Child returns the first child with the given tag.
func (e *Element) Child(tag string) *Element {
	for _, c := range e.Children {
		if c != nil && c.Tag == tag {
			return c
		}
	}
	return nil
}
