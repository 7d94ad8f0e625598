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
	"context"
	"fmt"
	"strings"
)

// Text input styles.
const (
	InputShort     = "short"
	InputParagraph = "paragraph"
)

// ModalForm is one instance of a modal, ready to be opened.
type ModalForm struct {
	CustomId string       `json:"customId"`
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Inputs   []*TextInput `json:"inputs"`

	OnSubmit InteractionHandler `json:"-"`
}

// TextInput is one field of a modal.  Name is the field's id and the
// name in its inp(name) binding.
type TextInput struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Style       string `json:"style"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
	Required    bool   `json:"required"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

type modalDecl struct {
	name    string
	title   string
	inputs  []TextInput
	actions *Map
}

func parseModal(name string, decl *Map) (*modalDecl, error) {
	attrs := decl.Attrs()
	md := &modalDecl{
		name:  name,
		title: attrString(attrs, "title", name),
	}
	if s, have := decl.String("title"); have {
		md.title = s
	}

	x, _ := decl.Get("input")
	seen := make(map[string]bool)
	for i, y := range AsList(x) {
		m, is := y.(*Map)
		if !is {
			return nil, &InvalidDeclaration{Reason: fmt.Sprintf("input %d: bad definition (%T)", i, y)}
		}
		a := m.Attrs()
		in := TextInput{
			Name:        attrString(a, "name", ""),
			Placeholder: attrString(a, "placeholder", ""),
			Value:       attrString(a, "value", ""),
			Required:    attrBool(a, "required", true),
		}
		if in.Name == "" {
			return nil, &InvalidDeclaration{Reason: fmt.Sprintf("input %d has no name", i)}
		}
		if seen[in.Name] {
			return nil, &InvalidDeclaration{Reason: `input "` + in.Name + `" declared twice`}
		}
		seen[in.Name] = true
		in.Label = attrString(a, "label", in.Name)
		switch style := strings.ToLower(attrString(a, "style", InputShort)); style {
		case InputShort, InputParagraph:
			in.Style = style
		case "long":
			in.Style = InputParagraph
		default:
			return nil, &InvalidDeclaration{Reason: `unknown input style "` + style + `"`}
		}
		var err error
		if in.MinLength, err = attrInt(a, "min_length", 0); err != nil {
			return nil, err
		}
		if in.MaxLength, err = attrInt(a, "max_length", 0); err != nil {
			return nil, err
		}
		if 0 < in.MaxLength && in.MaxLength < in.MinLength {
			return nil, &InvalidDeclaration{Reason: `input "` + in.Name + `" max_length is less than min_length`}
		}
		md.inputs = append(md.inputs, in)
	}
	if len(md.inputs) == 0 {
		return nil, &InvalidDeclaration{Reason: "modal has no inputs"}
	}

	md.actions, _ = decl.Map("on_submit")
	return md, nil
}

// Modal makes a fresh instance of the named modal.
func (e *Engine) Modal(name string) (*ModalForm, error) {
	md, have := e.modals[name]
	if !have {
		return nil, &UnknownReference{Kind: "modal", Name: name}
	}

	form := &ModalForm{
		CustomId: md.name + ":" + Gensym(16),
		Name:     md.name,
		Title:    md.title,
	}
	for _, in := range md.inputs {
		in := in
		form.Inputs = append(form.Inputs, &in)
	}

	declName := SectionModals + "/" + md.name
	inputs := md.inputs
	actions := md.actions
	form.OnSubmit = func(ctx context.Context, in *Interaction) error {
		return e.guard(ctx, declName, in.Surface, func() error {
			scope := e.interactionScope(declName, in)
			for _, field := range inputs {
				v, have := in.Inputs[field.Name]
				if !have && field.Required {
					return &MissingArgument{Name: field.Name}
				}
				scope.Bindings[InpKey(field.Name)] = v
			}
			return e.Run(ctx, scope, actions)
		})
	}
	return form, nil
}
