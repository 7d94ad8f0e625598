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

package markup

import (
	"github.com/xmlcord/xmlcord/core"
)

// Normalize converts an Element tree into a *core.Map with a single
// key, the root's tag.
//
// Attributes go under core.AttrKey.  Text goes under core.TextKey,
// except that an element with only text collapses to that text.
// "true" and "false" become bools.  Repeated sibling tags become a
// list in document order.  An empty element is an empty *core.Map.
//
// A nil child, an element without a tag, or a tag that collides with
// a reserved key is a *core.MalformedDocument.
func Normalize(root *Element) (*core.Map, error) {
	if root == nil {
		return nil, &core.MalformedDocument{Path: "/", Reason: "no root element"}
	}
	x, err := normalize(root, "")
	if err != nil {
		return nil, err
	}
	return core.MapOf(root.Tag, core.Clean(x)), nil
}

func normalize(e *Element, parent string) (interface{}, error) {
	path := parent + "/" + e.Tag
	if e.Tag == "" {
		return nil, &core.MalformedDocument{Path: path, Reason: "element without a tag"}
	}
	if e.Tag == core.AttrKey || e.Tag == core.TextKey {
		return nil, &core.MalformedDocument{Path: path, Reason: "reserved tag"}
	}

	m := core.NewMap()

	if 0 < len(e.Attrs) {
		attrs := core.NewMap()
		for _, a := range e.Attrs {
			attrs.Set(a.Name, a.Value)
		}
		m.Set(core.AttrKey, attrs)
	}

	if e.Text != "" {
		m.Set(core.TextKey, e.Text)
	}

	for _, c := range e.Children {
		if c == nil {
			return nil, &core.MalformedDocument{Path: path, Reason: "nil child"}
		}
		x, err := normalize(c, path)
		if err != nil {
			return nil, err
		}
		prev, have := m.Get(c.Tag)
		if !have {
			m.Set(c.Tag, x)
			continue
		}
		// normalize never returns a list, so a list here is one
		// that an earlier sibling started.
		if xs, is := prev.([]interface{}); is {
			m.Set(c.Tag, append(xs, x))
		} else {
			m.Set(c.Tag, []interface{}{prev, x})
		}
	}

	return m, nil
}

// LoadMap loads the named document and normalizes it.
func LoadMap(name string) (*core.Map, error) {
	root, err := Load(name)
	if err != nil {
		return nil, err
	}
	return Normalize(root)
}
