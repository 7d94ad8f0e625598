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
	"log/slog"
	"strconv"
	"strings"
)

// DefaultActions is the standard dispatch table.  Engine.Actions
// starts as a copy.
var DefaultActions = map[string]ActionFunc{
	"log":             LogAction,
	"run_script":      RunScriptAction,
	"message":         MessageAction,
	"send":            MessageAction,
	"reply_message":   ReplyAction,
	"reply":           ReplyAction,
	"embed":           EmbedAction,
	"reply_embed":     ReplyEmbedAction,
	"channel_message": ChannelMessageAction,
	"channel_embed":   ChannelEmbedAction,
	"response":        ResponseAction,
	"defer":           DeferAction,
	"open_modal":      OpenModalAction,
}

// CopyActions makes a copy of a dispatch table.
func CopyActions(actions map[string]ActionFunc) map[string]ActionFunc {
	acc := make(map[string]ActionFunc, len(actions))
	for k, f := range actions {
		acc[k] = f
	}
	return acc
}

// LogAction writes the payload to the engine's logger.  A "level"
// attribute (debug, info, warn, error) picks the level.
func LogAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	attrs := payloadAttrs(payload)
	level := slog.LevelInfo
	switch strings.ToLower(attrString(attrs, "level", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var msg string
	if text, have := payloadText(payload); have {
		msg = text
	} else {
		msg = Stringify(Plain(stripAttrs(payload)))
	}
	e.logger().Log(ctx, level, msg, "declaration", s.Declaration)
	return nil
}

// RunScriptAction runs the payload text with the engine's
// ScriptRunner.  If the script returns an object, its properties
// extend the scope's Bindings for the actions that follow.
func RunScriptAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if e.Scripts == nil {
		return NoScriptRunner
	}
	src, have := payloadText(payload)
	if !have {
		if m, is := payload.(*Map); is {
			src, have = m.String("code")
		}
	}
	if !have {
		return &InvalidDeclaration{Reason: "run_script needs code"}
	}
	result, err := e.Scripts.RunScript(ctx, src, s.Bindings.Copy())
	if err != nil {
		return err
	}
	for k, v := range result {
		s.Bindings[k] = v
	}
	return nil
}

// MessageAction sends a message to the invocation's surface.
func MessageAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Surface == nil {
		return NoSurface
	}
	out, err := e.outbound(payload, false)
	if err != nil {
		return err
	}
	return s.Surface.Send(ctx, out)
}

// ReplyAction replies to the invoking message.
func ReplyAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Surface == nil {
		return NoSurface
	}
	out, err := e.outbound(payload, false)
	if err != nil {
		return err
	}
	return s.Surface.Reply(ctx, out)
}

// EmbedAction sends a rich embed to the invocation's surface.
func EmbedAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Surface == nil {
		return NoSurface
	}
	out, err := e.outbound(payload, true)
	if err != nil {
		return err
	}
	return s.Surface.Send(ctx, out)
}

// ReplyEmbedAction replies with a rich embed.
func ReplyEmbedAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Surface == nil {
		return NoSurface
	}
	out, err := e.outbound(payload, true)
	if err != nil {
		return err
	}
	return s.Surface.Reply(ctx, out)
}

// ChannelMessageAction fetches the target named by the "id"
// attribute and sends the message there.
func ChannelMessageAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	return e.sendToChannel(ctx, payload, false)
}

// ChannelEmbedAction is ChannelMessageAction for an embed.
func ChannelEmbedAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	return e.sendToChannel(ctx, payload, true)
}

func (e *Engine) sendToChannel(ctx context.Context, payload interface{}, embed bool) error {
	id := strings.TrimSpace(attrString(payloadAttrs(payload), "id", ""))
	if id == "" {
		return &InvalidDeclaration{Reason: `missing attribute "id"`}
	}
	if e.Session == nil {
		return &TargetNotFound{Id: id}
	}
	target, err := e.Session.FetchTarget(ctx, id)
	if err != nil {
		return err
	}
	if target == nil {
		return &TargetNotFound{Id: id}
	}
	out, err := e.outbound(payload, embed)
	if err != nil {
		return err
	}
	return target.Send(ctx, out)
}

// ResponseAction answers an interaction.  The "type" attribute is
// "message" (the default), "defer", or "modal".
func ResponseAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Responder == nil {
		return NotInteractive
	}
	attrs := payloadAttrs(payload)
	switch typ := strings.ToLower(attrString(attrs, "type", "message")); typ {
	case "message":
		out, err := e.outbound(payload, false)
		if err != nil {
			return err
		}
		out.Ephemeral = attrBool(attrs, "ephemeral", false)
		return s.Responder.Respond(ctx, out)
	case "embed":
		out, err := e.outbound(payload, true)
		if err != nil {
			return err
		}
		out.Ephemeral = attrBool(attrs, "ephemeral", false)
		return s.Responder.Respond(ctx, out)
	case "defer":
		return DeferAction(ctx, e, s, payload)
	case "modal":
		return OpenModalAction(ctx, e, s, payload)
	default:
		return &InvalidDeclaration{Reason: `unknown response type "` + typ + `"`}
	}
}

// DeferAction acknowledges an interaction without answering yet.
func DeferAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Responder == nil {
		return NotInteractive
	}
	attrs := payloadAttrs(payload)
	return s.Responder.Defer(ctx, DeferOptions{
		Ephemeral: attrBool(attrs, "ephemeral", false),
		Thinking:  attrBool(attrs, "thinking", false),
	})
}

// OpenModalAction opens the modal named by the "name" attribute.
func OpenModalAction(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
	if s.Responder == nil {
		return NotInteractive
	}
	name := attrString(payloadAttrs(payload), "name", "")
	if name == "" {
		if text, have := payloadText(payload); have {
			name = strings.TrimSpace(text)
		}
	}
	if name == "" {
		return &InvalidDeclaration{Reason: `missing attribute "name"`}
	}
	form, err := e.Modal(name)
	if err != nil {
		return err
	}
	return s.Responder.OpenModal(ctx, form)
}

// outbound projects a payload into a fresh Outbound.
//
// Attributes are read (a "view" attribute attaches a fresh instance
// of that view) and never forwarded.  Body text becomes "content"
// for a message or "description" for an embed.
func (e *Engine) outbound(payload interface{}, embed bool) (*Outbound, error) {
	attrs := payloadAttrs(payload)
	textKey := "content"
	if embed {
		textKey = "description"
	}
	params := project(payload, textKey)

	out := &Outbound{}
	if embed {
		if err := fixColor(params); err != nil {
			return nil, err
		}
		out.Embed = params
	} else {
		if x, have := params["embed"]; have {
			m, is := x.(map[string]interface{})
			if !is {
				m = map[string]interface{}{"description": Stringify(x)}
			}
			if err := fixColor(m); err != nil {
				return nil, err
			}
			out.Embed = m
			delete(params, "embed")
		}
		out.Params = params
	}

	if name := attrString(attrs, "view", ""); name != "" {
		cv, err := e.View(name)
		if err != nil {
			return nil, err
		}
		out.View = cv
	}
	out.Ephemeral = attrBool(attrs, "ephemeral", false)
	return out, nil
}

// project makes the outbound parameters from a payload.
func project(payload interface{}, textKey string) map[string]interface{} {
	acc := make(map[string]interface{})
	switch vv := payload.(type) {
	case nil:
	case *Map:
		vv.Range(func(k string, v interface{}) bool {
			switch k {
			case AttrKey:
			case TextKey:
				acc[textKey] = Stringify(v)
			default:
				acc[k] = Plain(v)
			}
			return true
		})
	default:
		acc[textKey] = Stringify(vv)
	}
	return acc
}

// fixColor replaces a hex "color" with its integer value.
func fixColor(params map[string]interface{}) error {
	x, have := params["color"]
	if !have {
		return nil
	}
	if s, is := x.(string); is {
		n, err := ParseColor(s)
		if err != nil {
			return err
		}
		params["color"] = n
	}
	return nil
}

// ParseColor converts "#ff8800", "0xff8800", or "ff8800" to an int.
func ParseColor(s string) (int, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	if strings.HasPrefix(h, "0x") || strings.HasPrefix(h, "0X") {
		h = h[2:]
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil || 0xffffff < n {
		return 0, &TypeMismatch{Literal: s, Type: "hex color"}
	}
	return int(n), nil
}

// Plain converts *Maps (recursively) to map[string]interface{}.
func Plain(x interface{}) interface{} {
	switch vv := x.(type) {
	case *Map:
		acc := make(map[string]interface{}, vv.Len())
		vv.Range(func(k string, v interface{}) bool {
			acc[k] = Plain(v)
			return true
		})
		return acc
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, y := range vv {
			acc[i] = Plain(y)
		}
		return acc
	default:
		return x
	}
}

func payloadAttrs(payload interface{}) *Map {
	if m, is := payload.(*Map); is {
		return m.Attrs()
	}
	return NewMap()
}

// payloadText returns the payload's body text.
func payloadText(payload interface{}) (string, bool) {
	switch vv := payload.(type) {
	case nil:
		return "", false
	case *Map:
		x, have := vv.Get(TextKey)
		if !have {
			return "", false
		}
		return Stringify(x), true
	default:
		return Stringify(vv), true
	}
}

func stripAttrs(payload interface{}) interface{} {
	m, is := payload.(*Map)
	if !is || !m.Has(AttrKey) {
		return payload
	}
	acc := m.Copy()
	acc.Delete(AttrKey)
	return acc
}

// IsInteractionOnly reports whether the action needs a Responder.
func IsInteractionOnly(action string) bool {
	switch action {
	case "response", "defer", "open_modal":
		return true
	}
	return false
}
