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

// Session is the engine's view of a chat platform connection.
//
// The engine calls the Register methods only while synthesizing and
// calls FetchTarget (and the Surfaces and Responders it is handed)
// only while dispatching.
type Session interface {
	// Identity returns the principal that the session itself
	// acts as.
	Identity() Principal

	// FetchTarget finds a channel (or other addressable target)
	// by id.  A nil Target with a nil error means no such target.
	FetchTarget(ctx context.Context, id string) (Target, error)

	RegisterCommand(cmd *Command, mode CommandMode, h CommandHandler) error
	RegisterEventHandler(kind string, h EventHandler) error
	RegisterScheduledHandler(spec *Schedule, h ScheduledHandler) error

	// StartScheduled starts the enabled scheduled handlers.
	StartScheduled(ctx context.Context) error

	// SyncRegisteredCommands publishes structured commands to the
	// platform.
	SyncRegisteredCommands(ctx context.Context) error
}

// Target is something that can receive a message.
type Target interface {
	Send(ctx context.Context, out *Outbound) error
}

// Surface is where an invocation came from.  Send posts to the same
// place, and Reply posts a reply to the invoking message.
type Surface interface {
	Target
	Reply(ctx context.Context, out *Outbound) error
}

// Responder answers an interaction (a structured command, a component
// callback, or a modal submission).
type Responder interface {
	Respond(ctx context.Context, out *Outbound) error
	Defer(ctx context.Context, opts DeferOptions) error
	OpenModal(ctx context.Context, form *ModalForm) error
}

// DeferOptions qualify a deferred interaction response.
type DeferOptions struct {
	Ephemeral bool `json:"ephemeral,omitempty"`
	Thinking  bool `json:"thinking,omitempty"`
}

// Principal is a user (or the session itself).
type Principal struct {
	Id          string          `json:"id"`
	Name        string          `json:"name,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// CommandMode says how a command is invoked.
type CommandMode string

const (
	// Positional commands are text messages that start with the
	// prefix, followed by whitespace-separated tokens.
	Positional CommandMode = "positional"

	// Structured commands are invoked with named options (for
	// example, slash commands).
	Structured CommandMode = "structured"
)

// Command describes a synthesized command to the Session.
type Command struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Args        []ArgSpec `json:"args,omitempty"`
}

// Schedule describes a synthesized scheduled handler to the Session.
type Schedule struct {
	Name string `json:"name"`

	// Interval is used if Cron is empty.
	Interval time.Duration `json:"interval,omitempty"`

	// Cron is a cron expression.
	Cron string `json:"cron,omitempty"`

	// Enabled means StartScheduled starts this handler.
	Enabled bool `json:"enabled"`
}

type (
	CommandHandler     func(ctx context.Context, inv *Invocation) error
	EventHandler       func(ctx context.Context, ev *Event) error
	ScheduledHandler   func(ctx context.Context) error
	InteractionHandler func(ctx context.Context, in *Interaction) error
)

// Invocation is one call of a command.
type Invocation struct {
	Principal Principal
	Mode      CommandMode
	Channel   string

	// Args are the tokens after the command name (positional).
	Args []string

	// Options are the named options (structured).
	Options map[string]string

	Surface Surface

	// Responder is non-nil for structured invocations.
	Responder Responder
}

// Event is one occurrence of a platform event.
type Event struct {
	Kind    string
	Author  Principal
	Channel string

	// Args are the event's positional values (for a message
	// event, the message content is the first).
	Args []string

	// Surface is nil for events that aren't about a message.
	Surface Surface
}

// Interaction is a component callback or a modal submission.
type Interaction struct {
	Principal Principal
	Channel   string
	CustomId  string

	// Values are the selected values of a select menu.
	Values []string

	// Inputs are the submitted modal fields by name.
	Inputs map[string]string

	Surface   Surface
	Responder Responder
}

// Outbound is what an action sends.
//
// Params are the message parameters (content, tts, ...).  Embed, if
// not nil, is a rich embed.  View, if not nil, is a fresh component
// tree.
type Outbound struct {
	Params    map[string]interface{} `json:"params,omitempty"`
	Embed     map[string]interface{} `json:"embed,omitempty"`
	View      *ComponentView         `json:"view,omitempty"`
	Ephemeral bool                   `json:"ephemeral,omitempty"`
}

// Content returns the message text, if any.
func (o *Outbound) Content() string {
	if o == nil || o.Params == nil {
		return ""
	}
	return Stringify(o.Params["content"])
}
