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
	"strconv"
	"strings"
)

// Button styles.
const (
	StylePrimary   = "primary"
	StyleSecondary = "secondary"
	StyleSuccess   = "success"
	StyleDanger    = "danger"
	StyleLink      = "link"
)

// ButtonStyles maps declared style names to styles.
var ButtonStyles = map[string]string{
	"primary":   StylePrimary,
	"blurple":   StylePrimary,
	"blue":      StylePrimary,
	"secondary": StyleSecondary,
	"gray":      StyleSecondary,
	"grey":      StyleSecondary,
	"success":   StyleSuccess,
	"green":     StyleSuccess,
	"danger":    StyleDanger,
	"red":       StyleDanger,
	"link":      StyleLink,
	"url":       StyleLink,
}

// DefaultPlaceholder is the select menu placeholder when none is
// declared.
const DefaultPlaceholder = "Choose an option..."

// ComponentView is one instance of a view: a component tree attached
// to one outbound message.  Every instance has fresh custom ids.
type ComponentView struct {
	Name    string      `json:"name"`
	Buttons []*Button   `json:"buttons,omitempty"`
	Select  *SelectMenu `json:"select,omitempty"`
}

// Handler finds the callback for a custom id.
func (v *ComponentView) Handler(customId string) (InteractionHandler, bool) {
	if v == nil {
		return nil, false
	}
	for _, b := range v.Buttons {
		if b.CustomId == customId && b.OnClick != nil {
			return b.OnClick, true
		}
	}
	if v.Select != nil && v.Select.CustomId == customId && v.Select.OnSelect != nil {
		return v.Select.OnSelect, true
	}
	return nil, false
}

type Button struct {
	CustomId string `json:"customId,omitempty"`
	Label    string `json:"label,omitempty"`
	Style    string `json:"style"`
	Disabled bool   `json:"disabled,omitempty"`
	URL      string `json:"url,omitempty"`
	Emoji    string `json:"emoji,omitempty"`

	OnClick InteractionHandler `json:"-"`
}

type SelectMenu struct {
	CustomId    string          `json:"customId"`
	Placeholder string          `json:"placeholder"`
	MinValues   int             `json:"minValues"`
	MaxValues   int             `json:"maxValues"`
	Options     []*SelectOption `json:"options"`

	OnSelect InteractionHandler `json:"-"`
}

type SelectOption struct {
	Label       string `json:"label"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	Emoji       string `json:"emoji,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// viewDecl is a parsed view Declaration.  It's immutable after
// synthesis, and instantiate makes a fresh ComponentView from it.
type viewDecl struct {
	name    string
	buttons []*buttonDecl
	menu    *menuDecl
}

type buttonDecl struct {
	name    string
	proto   Button
	actions *Map
}

type menuDecl struct {
	proto   SelectMenu
	options []*optionDecl
}

type optionDecl struct {
	proto   SelectOption
	actions *Map
}

// parseView reads a view Declaration.
//
// Buttons are "button" children (or children of a "buttons"
// element).  A view has at most one "select_menu" with "option"
// children.
func parseView(name string, decl *Map) (*viewDecl, error) {
	v := &viewDecl{
		name: name,
	}

	var buttons []interface{}
	if x, have := decl.Get("button"); have {
		buttons = append(buttons, AsList(x)...)
	}
	if bs, have := decl.Map("buttons"); have {
		x, _ := bs.Get("button")
		buttons = append(buttons, AsList(x)...)
	}
	for i, x := range buttons {
		b, err := parseButton(i, x)
		if err != nil {
			return nil, err
		}
		v.buttons = append(v.buttons, b)
	}

	if x, have := decl.Get("select_menu"); have {
		menus := AsList(x)
		if 1 < len(menus) {
			return nil, &InvalidDeclaration{Reason: "a view can have only one select_menu"}
		}
		m, err := parseMenu(menus[0])
		if err != nil {
			return nil, err
		}
		v.menu = m
	}

	return v, nil
}

func parseButton(i int, x interface{}) (*buttonDecl, error) {
	var m *Map
	switch vv := x.(type) {
	case *Map:
		m = vv
	case string:
		m = MapOf(AttrKey, MapOf("label", vv))
	default:
		return nil, &InvalidDeclaration{Reason: fmt.Sprintf("button %d: bad definition (%T)", i, x)}
	}
	attrs := m.Attrs()

	b := &buttonDecl{
		name: fmt.Sprintf("button %d", i),
	}
	b.proto.Label = attrString(attrs, "label", "")
	if b.proto.Label == "" {
		if s, have := m.String("label"); have {
			b.proto.Label = s
		} else if s, have := m.String(TextKey); have {
			b.proto.Label = s
		}
	}
	style := strings.ToLower(attrString(attrs, "style", StyleSecondary))
	canonical, have := ButtonStyles[style]
	if !have {
		return nil, &InvalidDeclaration{Reason: `unknown button style "` + style + `"`}
	}
	b.proto.Style = canonical
	b.proto.Disabled = attrBool(attrs, "disabled", false)
	b.proto.URL = attrString(attrs, "url", "")
	b.proto.Emoji = attrString(attrs, "emoji", "")
	if b.proto.Style == StyleLink && b.proto.URL == "" {
		return nil, &InvalidDeclaration{Reason: "link button without a url"}
	}
	if b.proto.Label == "" && b.proto.Emoji == "" {
		return nil, &InvalidDeclaration{Reason: b.name + " needs a label or an emoji"}
	}
	b.actions, _ = m.Map("on_click")
	if b.proto.Label != "" {
		b.name = "button " + b.proto.Label
	}
	return b, nil
}

func parseMenu(x interface{}) (*menuDecl, error) {
	m, is := x.(*Map)
	if !is {
		return nil, &InvalidDeclaration{Reason: fmt.Sprintf("bad select_menu (%T)", x)}
	}
	attrs := m.Attrs()
	menu := &menuDecl{}
	menu.proto.Placeholder = attrString(attrs, "placeholder", DefaultPlaceholder)
	var err error
	if menu.proto.MinValues, err = attrInt(attrs, "min_values", 1); err != nil {
		return nil, err
	}
	if menu.proto.MaxValues, err = attrInt(attrs, "max_values", 1); err != nil {
		return nil, err
	}
	if menu.proto.MaxValues < menu.proto.MinValues {
		return nil, &InvalidDeclaration{Reason: "select_menu max_values is less than min_values"}
	}

	opts, _ := m.Get("option")
	for i, y := range AsList(opts) {
		o, is := y.(*Map)
		if !is {
			if s, ok := y.(string); ok {
				o = MapOf(TextKey, s)
			} else {
				return nil, &InvalidDeclaration{Reason: fmt.Sprintf("option %d: bad definition (%T)", i, y)}
			}
		}
		oattrs := o.Attrs()
		od := &optionDecl{}
		od.proto.Label = attrString(oattrs, "label", "")
		if od.proto.Label == "" {
			if s, have := o.String("label"); have {
				od.proto.Label = s
			} else if s, have := o.String(TextKey); have {
				od.proto.Label = s
			}
		}
		od.proto.Value = attrString(oattrs, "value", od.proto.Label)
		od.proto.Description = attrString(oattrs, "description", "")
		if od.proto.Description == "" {
			od.proto.Description, _ = o.String("description")
		}
		od.proto.Emoji = attrString(oattrs, "emoji", "")
		od.proto.Default = attrBool(oattrs, "default", false)
		if od.proto.Label == "" {
			return nil, &InvalidDeclaration{Reason: fmt.Sprintf("option %d has no label", i)}
		}
		od.actions, _ = o.Map("on_select")
		menu.options = append(menu.options, od)
	}
	if len(menu.options) == 0 {
		return nil, &InvalidDeclaration{Reason: "select_menu has no options"}
	}
	if len(menu.options) < menu.proto.MaxValues {
		menu.proto.MaxValues = len(menu.options)
	}
	return menu, nil
}

// instantiate makes a fresh ComponentView whose callbacks run the
// components' action lists.
func (e *Engine) instantiate(v *viewDecl) *ComponentView {
	cv := &ComponentView{
		Name: v.name,
	}
	for _, bd := range v.buttons {
		b := bd.proto
		if b.Style != StyleLink {
			b.CustomId = v.name + ":" + Gensym(16)
			actions := bd.actions
			declName := SectionViews + "/" + v.name + "/" + bd.name
			b.OnClick = func(ctx context.Context, in *Interaction) error {
				return e.guard(ctx, declName, in.Surface, func() error {
					scope := e.interactionScope(declName, in)
					return e.Run(ctx, scope, actions)
				})
			}
		}
		cv.Buttons = append(cv.Buttons, &b)
	}
	if md := v.menu; md != nil {
		menu := md.proto
		menu.CustomId = v.name + ":" + Gensym(16)
		for _, od := range md.options {
			o := od.proto
			menu.Options = append(menu.Options, &o)
		}
		declName := SectionViews + "/" + v.name + "/select_menu"
		options := md.options
		menu.OnSelect = func(ctx context.Context, in *Interaction) error {
			return e.guard(ctx, declName, in.Surface, func() error {
				scope := e.interactionScope(declName, in)
				for _, od := range options {
					if !contains(in.Values, od.proto.Value) {
						continue
					}
					if err := e.Run(ctx, scope, od.actions); err != nil {
						return err
					}
				}
				return nil
			})
		}
		cv.Select = &menu
	}
	return cv
}

// View makes a fresh instance of the named view.
func (e *Engine) View(name string) (*ComponentView, error) {
	v, have := e.views[name]
	if !have {
		return nil, &UnknownReference{Kind: "view", Name: name}
	}
	return e.instantiate(v), nil
}

func contains(xs []string, x string) bool {
	for _, y := range xs {
		if x == y {
			return true
		}
	}
	return false
}

func attrString(attrs *Map, k, def string) string {
	x, have := attrs.Get(k)
	if !have || x == nil {
		return def
	}
	return Stringify(x)
}

func attrBool(attrs *Map, k string, def bool) bool {
	x, have := attrs.Get(k)
	if !have {
		return def
	}
	if b, is := asBool(x); is {
		return b
	}
	return def
}

func attrInt(attrs *Map, k string, def int) (int, error) {
	x, have := attrs.Get(k)
	if !have {
		return def, nil
	}
	s := strings.TrimSpace(Stringify(x))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &TypeMismatch{Literal: s, Type: TypeInteger}
	}
	return n, nil
}

func attrFloat(attrs *Map, k string) (float64, error) {
	x, have := attrs.Get(k)
	if !have {
		return 0, nil
	}
	s := strings.TrimSpace(Stringify(x))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &TypeMismatch{Literal: s, Type: "number"}
	}
	return f, nil
}
