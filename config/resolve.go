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

// Package config resolves a normalized markup document into a
// core.Document and finds the session credential.
package config

import (
	"fmt"

	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/markup"
)

// SectionAliases maps alternative section names to section names.
var SectionAliases = map[string]string{
	"scheduled-tasks": core.SectionTasks,
	"scheduled_tasks": core.SectionTasks,
}

// InvalidSection is a warning: a section that isn't a mapping is
// treated as empty.
type InvalidSection struct {
	Section string
	Type    string
}

func (e *InvalidSection) Error() string {
	return `section "` + e.Section + `" isn't a mapping (` + e.Type + `); treating it as empty`
}

// UnknownSection is a warning about a top-level element that isn't a
// section.
type UnknownSection struct {
	Name string
}

func (e *UnknownSection) Error() string {
	return `unknown section "` + e.Name + `" ignored`
}

// Resolve extracts the sections of a normalized document.
//
// The root is the result of markup.Normalize, so its only key is the
// document element (usually "bot").  Missing sections are empty.
// Resolve returns warnings for sections it had to ignore.
func Resolve(root *core.Map) (*core.Document, []error, error) {
	body, err := documentBody(root)
	if err != nil {
		return nil, nil, err
	}

	doc := core.NewDocument()
	var warnings []error

	body.Range(func(k string, x interface{}) bool {
		if k == core.AttrKey || k == core.TextKey {
			return true
		}
		name := k
		if alias, have := SectionAliases[k]; have {
			name = alias
		}
		section, have := doc.Section(name)
		if !have {
			warnings = append(warnings, &UnknownSection{Name: k})
			return true
		}
		// A repeated section element merges in document order.
		for _, y := range core.AsList(x) {
			m, is := y.(*core.Map)
			if !is {
				if s, ok := y.(string); ok && s == "" {
					continue
				}
				warnings = append(warnings, &InvalidSection{
					Section: k,
					Type:    fmt.Sprintf("%T", y),
				})
				continue
			}
			m.Range(func(k string, v interface{}) bool {
				section.Set(k, v)
				return true
			})
		}
		return true
	})

	doc.Tags = Tags(doc.Config)
	doc.Settings = doc.Tags.Settings()

	// <config><prefix>?</prefix></config> sets the prefix unless a
	// tag does.
	if _, tagged := doc.Tags.String("prefix"); !tagged {
		if p, have := doc.Config.String("prefix"); have && p != "" {
			doc.Settings.Prefix = p
		}
	}

	return doc, warnings, nil
}

// Load reads, normalizes, and resolves the named document.
func Load(name string) (*core.Document, []error, error) {
	root, err := markup.LoadMap(name)
	if err != nil {
		return nil, nil, err
	}
	return Resolve(root)
}

func documentBody(root *core.Map) (*core.Map, error) {
	if root == nil {
		return nil, &core.MalformedDocument{Path: "/", Reason: "empty document"}
	}
	if root.Len() != 1 {
		return root, nil
	}
	k := root.Keys()[0]
	if _, isSection := core.NewDocument().Section(k); isSection {
		return root, nil
	}
	x, _ := root.Get(k)
	switch vv := x.(type) {
	case *core.Map:
		return vv, nil
	case string:
		if vv == "" {
			return core.NewMap(), nil
		}
	}
	return nil, &core.MalformedDocument{Path: "/" + k, Reason: fmt.Sprintf("document element isn't a mapping (%T)", x)}
}

// Tags flattens the config section's "tag" entries into one mapping.
//
// Each entry contributes its attributes.  Later entries win.
// "true" and "false" (in any case) become bools.
func Tags(config *core.Map) core.Tags {
	tags := core.Tags{}
	x, _ := config.Get("tag")
	for _, entry := range core.AsList(x) {
		m, is := entry.(*core.Map)
		if !is {
			continue
		}
		m.Attrs().Range(func(k string, v interface{}) bool {
			tags[k] = flag(v)
			return true
		})
	}
	return tags
}

func flag(x interface{}) interface{} {
	if s, is := x.(string); is {
		if b, is := core.Clean(s).(bool); is {
			return b
		}
	}
	return x
}
