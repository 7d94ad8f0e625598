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
	"time"
)

// SelfMessageEvents are the event kinds for "a message was posted",
// which is the event that ignore_self applies to.
var SelfMessageEvents = map[string]bool{
	"on_message":     true,
	"message_create": true,
	"message":        true,
}

// synthesizeCommand registers a positional and a structured handler
// for the command.  The "prefix" and "slash" attributes (default
// true) enable each.
func (e *Engine) synthesizeCommand(name string, decl *Map) error {
	specs, err := ParseArgSpecs(decl)
	if err != nil {
		return err
	}
	perms := ParsePermissions(decl)
	attrs := decl.Attrs()

	cmd := &Command{
		Name:        name,
		Description: Describe(decl),
		Args:        specs,
	}
	declName := SectionCommands + "/" + name

	handler := func(bind func(*Invocation) (map[string]interface{}, error)) CommandHandler {
		return func(ctx context.Context, inv *Invocation) error {
			return e.guard(ctx, declName, inv.Surface, func() error {
				// Permissions first: a denied principal
				// never gets as far as argument errors.
				if err := CheckPermissions(perms, inv.Principal); err != nil {
					return err
				}
				args, err := bind(inv)
				if err != nil {
					return err
				}
				scope := e.invocationScope(declName, inv)
				for k, v := range args {
					scope.Bindings[ArgKey(k)] = v
				}
				return e.Run(ctx, scope, decl)
			})
		}
	}

	prefix := attrBool(attrs, "prefix", true)
	slash := attrBool(attrs, "slash", true)
	if !prefix && !slash {
		return &InvalidDeclaration{Reason: "command has neither prefix nor slash enabled"}
	}

	if prefix {
		h := handler(func(inv *Invocation) (map[string]interface{}, error) {
			return BindPositional(specs, inv.Args)
		})
		if err := e.Session.RegisterCommand(cmd, Positional, h); err != nil {
			return err
		}
	}
	if slash {
		h := handler(func(inv *Invocation) (map[string]interface{}, error) {
			if inv.Options == nil && inv.Args != nil {
				return BindPositional(specs, inv.Args)
			}
			return BindNamed(specs, inv.Options)
		})
		if err := e.Session.RegisterCommand(cmd, Structured, h); err != nil {
			return err
		}
	}
	return nil
}

// synthesizeEvent registers a handler for the event kind, which is
// the Declaration's name unless an "event" attribute says otherwise.
func (e *Engine) synthesizeEvent(name string, decl *Map) error {
	specs, err := ParseArgSpecs(decl)
	if err != nil {
		return err
	}
	attrs := decl.Attrs()
	kind := attrString(attrs, "event", name)
	ignoreSelf := attrBool(attrs, "ignore_self", e.Settings.IgnoreSelf) && SelfMessageEvents[kind]
	declName := SectionEvents + "/" + name

	h := func(ctx context.Context, ev *Event) error {
		self := ev.Author.Id != "" && ev.Author.Id == e.Session.Identity().Id
		if ignoreSelf && self {
			return nil
		}
		surface := ev.Surface
		if self {
			// Don't answer our own messages with errors.
			surface = nil
		}
		return e.guard(ctx, declName, surface, func() error {
			args, err := BindPositional(specs, ev.Args)
			if err != nil {
				return err
			}
			scope := &Scope{
				Declaration: declName,
				Bindings:    e.newBindings(declName, ev.Author, ev.Channel),
				Principal:   ev.Author,
				Channel:     ev.Channel,
				Surface:     ev.Surface,
			}
			if c, is := scope.Bindings[CtxKey].(map[string]interface{}); is {
				c["event"] = ev.Kind
			}
			for k, v := range args {
				scope.Bindings[ArgKey(k)] = v
			}
			return e.Run(ctx, scope, decl)
		})
	}

	return e.Session.RegisterEventHandler(kind, h)
}

// synthesizeTask registers a scheduled handler.  The interval is the
// sum of the "hours", "minutes", and "seconds" attributes (which can
// be fractional).  A "cron" attribute takes precedence.  "enabled"
// (default false) controls whether StartScheduled starts it.
func (e *Engine) synthesizeTask(name string, decl *Map) error {
	attrs := decl.Attrs()
	spec := &Schedule{
		Name:    name,
		Cron:    attrString(attrs, "cron", ""),
		Enabled: attrBool(attrs, "enabled", false),
	}
	for _, u := range []struct {
		attr string
		unit time.Duration
	}{
		{"hours", time.Hour},
		{"minutes", time.Minute},
		{"seconds", time.Second},
	} {
		f, err := attrFloat(attrs, u.attr)
		if err != nil {
			return err
		}
		if f < 0 {
			return &InvalidDeclaration{Reason: u.attr + " is negative"}
		}
		spec.Interval += time.Duration(f * float64(u.unit))
	}
	if spec.Cron == "" && spec.Interval <= 0 {
		return &InvalidDeclaration{Reason: "task needs hours, minutes, seconds, or cron"}
	}

	declName := SectionTasks + "/" + name
	h := func(ctx context.Context) error {
		return e.guard(ctx, declName, nil, func() error {
			scope := &Scope{
				Declaration: declName,
				Bindings:    e.newBindings(declName, Principal{}, ""),
			}
			return e.Run(ctx, scope, decl)
		})
	}

	return e.Session.RegisterScheduledHandler(spec, h)
}

func (e *Engine) invocationScope(declName string, inv *Invocation) *Scope {
	bs := e.newBindings(declName, inv.Principal, inv.Channel)
	if c, is := bs[CtxKey].(map[string]interface{}); is {
		c["mode"] = string(inv.Mode)
	}
	return &Scope{
		Declaration: declName,
		Bindings:    bs,
		Principal:   inv.Principal,
		Channel:     inv.Channel,
		Surface:     inv.Surface,
		Responder:   inv.Responder,
	}
}

// Describe finds a Declaration's description.
func Describe(decl *Map) string {
	if s := attrString(decl.Attrs(), "description", ""); s != "" {
		return s
	}
	if s, have := decl.String("description"); have {
		return s
	}
	if s, have := decl.String("doc"); have {
		return s
	}
	return ""
}
