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
	"log/slog"
	"runtime/debug"
)

// ActionFunc performs one action.  The payload has already been
// interpolated.
type ActionFunc func(ctx context.Context, e *Engine, s *Scope, payload interface{}) error

// Scope is the state of one invocation: whose it is, where to answer,
// and its Bindings.
type Scope struct {
	// Declaration names what's running (for example
	// "commands/ping").
	Declaration string

	Bindings  Bindings
	Principal Principal
	Channel   string

	// Surface and Responder can be nil.
	Surface   Surface
	Responder Responder
}

// Structural keys describe a Declaration.  They are not actions.
var Structural = map[string]bool{
	AttrKey:       true,
	TextKey:       true,
	"argument":    true,
	"permissions": true,
	"doc":         true,
	"description": true,
	"options":     true,
	"on_click":    true,
	"on_select":   true,
	"on_submit":   true,
	"input":       true,
	"title":       true,
	"button":      true,
	"buttons":     true,
	"select_menu": true,
}

// Verbatim actions get their payloads uninterpolated.  A script sees
// the Bindings through its ScriptRunner instead, and script braces
// aren't placeholders.
var Verbatim = map[string]bool{
	"run_script": true,
}

// Run executes the actions in order.
//
// Each payload is interpolated with the scope's current Bindings
// just before its action runs.  A repeated action tag runs once per
// occurrence.  The first failure stops the run.  Actions that already
// ran are not undone.
func (e *Engine) Run(ctx context.Context, s *Scope, actions *Map) error {
	var err error
	actions.Range(func(name string, x interface{}) bool {
		if Structural[name] {
			return true
		}
		f, have := e.Actions[name]
		if !have {
			e.logger().Debug("ignoring unknown action",
				"declaration", s.Declaration,
				"action", name)
			return true
		}
		payloads := AsList(x)
		if x == nil {
			payloads = []interface{}{nil}
		}
		for _, payload := range payloads {
			if err = ctx.Err(); err != nil {
				return false
			}
			p := payload
			if !Verbatim[name] {
				p, err = Interpolate(payload, s.Bindings)
			}
			if err == nil {
				err = f(ctx, e, s, p)
			}
			if err != nil {
				err = &ActionError{
					Declaration: s.Declaration,
					Action:      name,
					Err:         err,
				}
				return false
			}
		}
		return true
	})
	return err
}

// guard is the handler boundary: it recovers panics, logs failures,
// and reports them to the invoking surface (if any).
func (e *Engine) guard(ctx context.Context, decl string, surface Surface, f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			e.logger().Error("handler panic",
				"declaration", decl,
				"panic", r,
				"stack", string(debug.Stack()))
		}
		if err == nil {
			return
		}
		e.logger().Warn("handler failed",
			"declaration", decl,
			"error", err)
		if surface == nil {
			return
		}
		out := &Outbound{
			Params: map[string]interface{}{
				"content": ErrorText(err),
			},
		}
		if rerr := surface.Reply(ctx, out); rerr != nil {
			e.logger().Error("failed to report error",
				"declaration", decl,
				"error", rerr)
		}
	}()
	return f()
}

// ErrorText is the short text a user sees for a failed invocation.
func ErrorText(err error) string {
	return "Error: " + err.Error()
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

// newBindings makes the Bindings that every invocation starts with:
// the declared variables and ctx.
func (e *Engine) newBindings(decl string, p Principal, channel string) Bindings {
	bs := NewBindings()
	for k, v := range e.Variables {
		bs[VarKey(k)] = v
	}
	bs[CtxKey] = map[string]interface{}{
		"declaration": decl,
		"channel":     channel,
		"author": map[string]interface{}{
			"id":   p.Id,
			"name": p.Name,
		},
	}
	return bs
}

func (e *Engine) interactionScope(decl string, in *Interaction) *Scope {
	bs := e.newBindings(decl, in.Principal, in.Channel)
	if ctx, is := bs[CtxKey].(map[string]interface{}); is {
		values := make([]interface{}, len(in.Values))
		for i, v := range in.Values {
			values[i] = v
		}
		ctx["values"] = values
		ctx["customId"] = in.CustomId
	}
	return &Scope{
		Declaration: decl,
		Bindings:    bs,
		Principal:   in.Principal,
		Channel:     in.Channel,
		Surface:     in.Surface,
		Responder:   in.Responder,
	}
}
