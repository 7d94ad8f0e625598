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
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Engine is the state built by Synthesize.
//
// Nothing in an Engine changes after Synthesize returns, so handlers
// can run concurrently.  There are no package-level registries: a
// process can have several Engines.
type Engine struct {
	Settings  Settings
	Tags      Tags
	Variables map[string]interface{}

	Session Session
	Scripts ScriptRunner
	Logger  *slog.Logger

	// Actions is the dispatch table.
	Actions map[string]ActionFunc

	views  map[string]*viewDecl
	modals map[string]*modalDecl
}

// Options for Synthesize.
type Options struct {
	// Scripts can be nil, in which case run_script actions fail.
	Scripts ScriptRunner

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Actions defaults to a copy of DefaultActions.
	Actions map[string]ActionFunc
}

// Report is what happened during synthesis.
type Report struct {
	// Registered lists "section/name" for each Declaration that
	// registered.
	Registered []string

	// Errors are *DeclarationErrors for Declarations that were
	// skipped.
	Errors []error

	// Warnings didn't stop anything from registering.
	Warnings []error
}

// Err joins the Report's Errors.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Report) fail(section, name string, err error) {
	r.Errors = append(r.Errors, &DeclarationError{
		Section: section,
		Name:    name,
		Err:     err,
	})
}

func (r *Report) warn(section, name string, err error) {
	r.Warnings = append(r.Warnings, &DeclarationError{
		Section: section,
		Name:    name,
		Err:     err,
	})
}

// Synthesize builds an Engine for the Document and registers a
// handler for every command, event, and task with the Session.
//
// Views and modals are parsed first so that any Declaration can refer
// to any view or modal regardless of document order.  A Declaration
// that fails is recorded in the Report and skipped.
func Synthesize(ctx context.Context, doc *Document, session Session, opts Options) (*Engine, *Report) {
	if doc == nil {
		doc = NewDocument()
	}
	e := &Engine{
		Settings:  doc.Settings,
		Tags:      doc.Tags,
		Variables: make(map[string]interface{}),
		Session:   session,
		Scripts:   opts.Scripts,
		Logger:    opts.Logger,
		Actions:   opts.Actions,
		views:     make(map[string]*viewDecl),
		modals:    make(map[string]*modalDecl),
	}
	if e.Actions == nil {
		e.Actions = CopyActions(DefaultActions)
	}
	if e.Tags == nil {
		e.Tags = Tags{}
	}

	r := &Report{}

	e.bindVariables(doc.Variables, r)

	declarations(doc.Views, SectionViews, r, func(name string, decl *Map) error {
		v, err := parseView(name, decl)
		if err != nil {
			return err
		}
		e.views[name] = v
		return nil
	})
	declarations(doc.Modals, SectionModals, r, func(name string, decl *Map) error {
		m, err := parseModal(name, decl)
		if err != nil {
			return err
		}
		e.modals[name] = m
		return nil
	})

	// Document order keeps the warnings stable.
	for _, name := range sectionOf(doc, SectionViews).Keys() {
		v, have := e.views[name]
		if !have {
			continue
		}
		for _, b := range v.buttons {
			e.check(b.actions, SectionViews, name, r)
		}
		if v.menu != nil {
			for _, o := range v.menu.options {
				e.check(o.actions, SectionViews, name, r)
			}
		}
	}
	for _, name := range sectionOf(doc, SectionModals).Keys() {
		if m, have := e.modals[name]; have {
			e.check(m.actions, SectionModals, name, r)
		}
	}

	register := func(section string, f func(string, *Map) error) {
		declarations(sectionOf(doc, section), section, r, func(name string, decl *Map) error {
			if err := f(name, decl); err != nil {
				return err
			}
			e.check(decl, section, name, r)
			r.Registered = append(r.Registered, section+"/"+name)
			return nil
		})
	}

	if session == nil {
		r.Errors = append(r.Errors, errors.New("no session"))
		return e, r
	}

	register(SectionCommands, e.synthesizeCommand)
	register(SectionEvents, e.synthesizeEvent)
	register(SectionTasks, e.synthesizeTask)

	for _, err := range r.Warnings {
		e.logger().Warn("synthesis warning", "warning", err)
	}
	for _, err := range r.Errors {
		e.logger().Error("declaration skipped", "error", err)
	}
	e.logger().Info("synthesized",
		"registered", len(r.Registered),
		"errors", len(r.Errors),
		"warnings", len(r.Warnings))

	return e, r
}

// Start publishes structured commands (if Settings.SyncCommands) and
// starts the enabled scheduled handlers.
func (e *Engine) Start(ctx context.Context) error {
	if e.Session == nil {
		return errors.New("no session")
	}
	if e.Settings.SyncCommands {
		if err := e.Session.SyncRegisteredCommands(ctx); err != nil {
			return fmt.Errorf("sync commands: %w", err)
		}
	}
	return e.Session.StartScheduled(ctx)
}

func sectionOf(doc *Document, section string) *Map {
	m, _ := doc.Section(section)
	return m
}

// declarations calls f for each Declaration in the section.
//
// A name that occurs more than once uses its last Declaration and
// gets a *DuplicateDeclaration warning.
func declarations(section *Map, sectionName string, r *Report, f func(string, *Map) error) {
	section.Range(func(name string, x interface{}) bool {
		if name == AttrKey || name == TextKey {
			return true
		}
		if xs, is := x.([]interface{}); is {
			r.Warnings = append(r.Warnings, &DuplicateDeclaration{
				Section: sectionName,
				Name:    name,
				Count:   len(xs),
			})
			if len(xs) == 0 {
				return true
			}
			x = xs[len(xs)-1]
		}
		var decl *Map
		switch vv := x.(type) {
		case *Map:
			decl = vv
		case nil:
			decl = NewMap()
		default:
			r.fail(sectionName, name, &InvalidDeclaration{
				Reason: fmt.Sprintf("declaration isn't an element (%T)", x),
			})
			return true
		}
		if err := f(name, decl); err != nil {
			r.fail(sectionName, name, err)
		}
		return true
	})
}

// check warns about unknown actions and about view and modal names
// that don't resolve.
func (e *Engine) check(actions *Map, section, name string, r *Report) {
	actions.Range(func(action string, x interface{}) bool {
		if Structural[action] {
			return true
		}
		if _, have := e.Actions[action]; !have {
			r.warn(section, name, &InvalidDeclaration{
				Reason: `unknown action "` + action + `" ignored`,
			})
			return true
		}
		for _, payload := range AsList(x) {
			attrs := payloadAttrs(payload)
			if v := attrString(attrs, "view", ""); v != "" && !strings.Contains(v, "{") {
				if _, have := e.views[v]; !have {
					r.warn(section, name, &UnknownReference{Kind: "view", Name: v})
				}
			}
			modal := ""
			switch action {
			case "open_modal":
				modal = attrString(attrs, "name", "")
			case "response":
				if strings.EqualFold(attrString(attrs, "type", ""), "modal") {
					modal = attrString(attrs, "name", "")
				}
			}
			if modal != "" && !strings.Contains(modal, "{") {
				if _, have := e.modals[modal]; !have {
					r.warn(section, name, &UnknownReference{Kind: "modal", Name: modal})
				}
			}
		}
		return true
	})
}

// bindVariables reads the variables section.  A variable with a
// "type" attribute is coerced.
func (e *Engine) bindVariables(vars *Map, r *Report) {
	vars.Range(func(name string, x interface{}) bool {
		if name == AttrKey || name == TextKey {
			return true
		}
		if xs, is := x.([]interface{}); is && 0 < len(xs) {
			r.Warnings = append(r.Warnings, &DuplicateDeclaration{
				Section: SectionVariables,
				Name:    name,
				Count:   len(xs),
			})
			x = xs[len(xs)-1]
		}
		if m, is := x.(*Map); is {
			text, _ := payloadText(m)
			if typ, have := m.Attrs().String("type"); have {
				v, err := Coerce(text, typ)
				if err != nil {
					r.fail(SectionVariables, name, err)
					return true
				}
				e.Variables[name] = v
				return true
			}
			if m.Has(TextKey) && m.Len() == 2 {
				e.Variables[name] = text
				return true
			}
			e.Variables[name] = Plain(stripAttrs(m))
			return true
		}
		e.Variables[name] = x
		return true
	})
}
