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

package sio

import (
	"encoding/json"
	"fmt"

	"github.com/xmlcord/xmlcord/core"
)

// In-bound message types.
const (
	// MsgMessage is a chat message.  A message that starts with
	// the prefix is a positional command invocation.
	MsgMessage = "message"

	// MsgCommand is a structured command invocation.
	MsgCommand = "command"

	// MsgComponent is a button click or a menu selection.
	MsgComponent = "component"

	// MsgModal is a modal submission.
	MsgModal = "modal"

	// MsgEvent is any other platform event.
	MsgEvent = "event"
)

// Out-bound operations.
const (
	OpSend    = "send"
	OpReply   = "reply"
	OpRespond = "respond"
	OpDefer   = "defer"
	OpModal   = "modal"
	OpSync    = "sync"
	OpError   = "error"
)

// Inbound is an in-bound message.
type Inbound struct {
	Type string `json:"type"`

	// Id identifies the message or the interaction so that
	// replies and responses can refer to it.
	Id string `json:"id,omitempty"`

	Channel string         `json:"channel,omitempty"`
	Author  core.Principal `json:"author"`

	// Content is the text of a MsgMessage.
	Content string `json:"content,omitempty"`

	// Name is the command of a MsgCommand.
	Name    string            `json:"name,omitempty"`
	Options map[string]string `json:"options,omitempty"`

	// Event is the kind of a MsgEvent.
	Event string   `json:"event,omitempty"`
	Args  []string `json:"args,omitempty"`

	// CustomId addresses a component or a modal.
	CustomId string            `json:"customId,omitempty"`
	Values   []string          `json:"values,omitempty"`
	Inputs   map[string]string `json:"inputs,omitempty"`
}

// ParseInbound makes an Inbound from a decoded JSON message.
//
// A string is a MsgMessage with that content.
func ParseInbound(x interface{}) (*Inbound, error) {
	switch vv := x.(type) {
	case *Inbound:
		return vv, nil
	case string:
		return &Inbound{
			Type:    MsgMessage,
			Content: vv,
		}, nil
	}

	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var in Inbound
	if err = json.Unmarshal(js, &in); err != nil {
		return nil, err
	}
	switch in.Type {
	case "":
		if in.Content == "" {
			return nil, fmt.Errorf("no type in %s", js)
		}
		in.Type = MsgMessage
	case MsgMessage, MsgCommand, MsgComponent, MsgModal, MsgEvent:
	default:
		return nil, fmt.Errorf("unknown type '%s'", in.Type)
	}
	return &in, nil
}

// Emitted is an out-bound operation.
type Emitted struct {
	Op      string `json:"op"`
	Channel string `json:"channel,omitempty"`

	// To is the message (OpReply) or the interaction (OpRespond,
	// OpDefer, OpModal) that this operation answers.
	To string `json:"to,omitempty"`

	Message  *core.Outbound     `json:"message,omitempty"`
	Defer    *core.DeferOptions `json:"defer,omitempty"`
	Modal    *core.ModalForm    `json:"modal,omitempty"`
	Commands []*core.Command    `json:"commands,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Result represents all visible output from processing a message.
type Result struct {
	// In is the message that was processed.  Nil for output from
	// scheduled handlers.
	In *Inbound `json:"in,omitempty"`

	// Emitted is the ordered output.
	Emitted []*Emitted `json:"emitted"`

	// Errors are handler errors, which have already been
	// reported (if possible) to the invoker.
	Errors []string `json:"errors,omitempty"`
}
