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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/timers"
)

// EventAliases maps event kinds to the kinds the Hub dispatches.
var EventAliases = map[string]string{
	"message_create": MsgMessage,
}

// HubConf provides some basic Hub parameters.
type HubConf struct {
	// Self is the principal that the Hub acts as.
	Self core.Principal

	// Settings control positional command parsing.
	Settings core.Settings

	// DefaultChannel is used for in-bound messages that don't
	// name a channel.
	DefaultChannel string

	// DefaultAuthor is used for in-bound messages that don't
	// name an author.
	DefaultAuthor core.Principal

	// Channels, if not nil, are the only channels that
	// FetchTarget finds.  Channels seen in in-bound messages are
	// added.
	Channels []string

	// HaltOnInputEOF stops Loop when the Couplings input is
	// exhausted.
	HaltOnInputEOF bool
}

// Hub is a core.Session for a stream of JSON messages.
type Hub struct {
	Conf *HubConf

	// Verbose turns on Logf output.
	Verbose bool

	Logger *slog.Logger

	// Scheduler runs scheduled handlers.
	Scheduler *timers.Scheduler

	sync.Mutex

	commands     map[string]map[core.CommandMode]core.CommandHandler
	specs        []*core.Command
	events       map[string][]core.EventHandler
	schedules    []*core.Schedule
	interactions map[string]core.InteractionHandler
	channels     map[string]bool

	in   chan interface{}
	out  chan *Result
	done chan bool
}

// NewHub makes a Hub with the given configuration and couplings.
//
// The coupling's IO() method is called to obtain the Hub's in/out
// channels.  Without couplings, the Hub only has an output channel
// (see Results).
func NewHub(ctx context.Context, conf *HubConf, couplings Couplings) (*Hub, error) {
	if conf == nil {
		conf = &HubConf{
			Settings: core.DefaultSettings(),
		}
	}
	h := &Hub{
		Conf:         conf,
		Scheduler:    timers.NewScheduler(nil),
		commands:     make(map[string]map[core.CommandMode]core.CommandHandler),
		events:       make(map[string][]core.EventHandler),
		interactions: make(map[string]core.InteractionHandler),
	}
	if conf.Channels != nil {
		h.channels = make(map[string]bool, len(conf.Channels))
		for _, id := range conf.Channels {
			h.channels[id] = true
		}
	}

	if couplings == nil {
		h.out = make(chan *Result, 32)
		return h, nil
	}

	in, out, done, err := couplings.IO(ctx)
	if err != nil {
		return nil, err
	}
	h.in, h.out, h.done = in, out, done
	return h, nil
}

// Results returns the output channel.
func (h *Hub) Results() <-chan *Result {
	return h.out
}

func (h *Hub) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// Logf logs if h.Verbose.
func (h *Hub) Logf(format string, args ...interface{}) {
	if !h.Verbose {
		return
	}
	h.logger().Info(fmt.Sprintf(format, args...))
}

// key normalizes a command name.
func (h *Hub) key(name string) string {
	if h.Conf.Settings.CaseInsensitive {
		return strings.ToLower(name)
	}
	return name
}

// EventKey normalizes an event kind: "on_message", "message", and
// "message_create" are all "message".
func EventKey(kind string) string {
	kind = strings.TrimPrefix(strings.ToLower(kind), "on_")
	if alias, have := EventAliases[kind]; have {
		return alias
	}
	return kind
}

// Identity implements core.Session.
func (h *Hub) Identity() core.Principal {
	return h.Conf.Self
}

// FetchTarget implements core.Session.
func (h *Hub) FetchTarget(ctx context.Context, id string) (core.Target, error) {
	h.Lock()
	defer h.Unlock()
	if h.channels != nil && !h.channels[id] {
		return nil, nil
	}
	return &surface{
		h:       h,
		channel: id,
	}, nil
}

// RegisterCommand implements core.Session.
func (h *Hub) RegisterCommand(cmd *core.Command, mode core.CommandMode, f core.CommandHandler) error {
	h.Lock()
	defer h.Unlock()

	k := h.key(cmd.Name)
	hs, have := h.commands[k]
	if !have {
		hs = make(map[core.CommandMode]core.CommandHandler, 2)
		h.commands[k] = hs
	}
	if _, have = hs[mode]; have {
		return fmt.Errorf("command '%s' (%s) already registered", cmd.Name, mode)
	}
	hs[mode] = f
	if mode == core.Structured {
		h.specs = append(h.specs, cmd)
	}
	h.Logf("registered command %s (%s)", cmd.Name, mode)
	return nil
}

// RegisterEventHandler implements core.Session.
func (h *Hub) RegisterEventHandler(kind string, f core.EventHandler) error {
	h.Lock()
	defer h.Unlock()
	k := EventKey(kind)
	h.events[k] = append(h.events[k], f)
	h.Logf("registered event handler %s", k)
	return nil
}

// RegisterScheduledHandler implements core.Session.
//
// An interval handler runs when it starts and then once per
// interval.  A cron handler waits for the first scheduled time.
func (h *Hub) RegisterScheduledHandler(spec *core.Schedule, f core.ScheduledHandler) error {
	err := h.Scheduler.Add(&timers.Entry{
		Id:        spec.Name,
		Every:     spec.Interval,
		Cron:      spec.Cron,
		Immediate: spec.Cron == "",
		F:         f,
	})
	if err != nil {
		return err
	}
	h.Lock()
	h.schedules = append(h.schedules, spec)
	h.Unlock()
	return nil
}

// StartScheduled implements core.Session.
func (h *Hub) StartScheduled(ctx context.Context) error {
	h.Lock()
	schedules := append([]*core.Schedule(nil), h.schedules...)
	h.Unlock()

	for _, spec := range schedules {
		if !spec.Enabled {
			h.Logf("scheduled handler %s not enabled", spec.Name)
			continue
		}
		if err := h.Scheduler.Start(ctx, spec.Name); err != nil && err != timers.AlreadyRunning {
			return err
		}
		h.Logf("started scheduled handler %s", spec.Name)
	}
	return nil
}

// SyncRegisteredCommands implements core.Session by emitting an
// OpSync with the structured commands.
func (h *Hub) SyncRegisteredCommands(ctx context.Context) error {
	h.Lock()
	specs := append([]*core.Command(nil), h.specs...)
	h.Unlock()

	h.emit(ctx, &Emitted{
		Op:       OpSync,
		Commands: specs,
	})
	return nil
}

// ParseCommand extracts a positional command invocation from message
// content.
//
// The content must start with the prefix.  Whitespace between the
// prefix and the command name is allowed only when StripAfterPrefix
// is set.
func ParseCommand(s core.Settings, content string) (name string, args []string, ok bool) {
	if s.Prefix == "" || !strings.HasPrefix(content, s.Prefix) {
		return "", nil, false
	}
	rest := content[len(s.Prefix):]
	if rest == "" {
		return "", nil, false
	}
	if unicode.IsSpace([]rune(rest)[0]) && !s.StripAfterPrefix {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return fields[0], fields[1:], true
}

type batchKey struct{}

type batch struct {
	sync.Mutex
	emitted []*Emitted
}

// emit adds the Emitted to the current batch, if any.  Otherwise (for
// example, from a scheduled handler), the Emitted is published as its
// own Result.
func (h *Hub) emit(ctx context.Context, e *Emitted) {
	if b, is := ctx.Value(batchKey{}).(*batch); is {
		b.Lock()
		b.emitted = append(b.emitted, e)
		b.Unlock()
		return
	}
	h.publish(ctx, &Result{
		Emitted: []*Emitted{e},
	})
}

func (h *Hub) publish(ctx context.Context, r *Result) {
	select {
	case <-ctx.Done():
	case h.out <- r:
	}
}

// watch routes future interactions with the view's components to
// their handlers.
func (h *Hub) watch(v *core.ComponentView) {
	if v == nil {
		return
	}
	h.Lock()
	defer h.Unlock()
	for _, b := range v.Buttons {
		if b.OnClick != nil {
			h.interactions[b.CustomId] = b.OnClick
		}
	}
	if v.Select != nil && v.Select.OnSelect != nil {
		h.interactions[v.Select.CustomId] = v.Select.OnSelect
	}
}

func (h *Hub) watchModal(form *core.ModalForm) {
	h.Lock()
	h.interactions[form.CustomId] = form.OnSubmit
	h.Unlock()
}

func (h *Hub) interaction(customId string, once bool) (core.InteractionHandler, bool) {
	h.Lock()
	defer h.Unlock()
	f, have := h.interactions[customId]
	if have && once {
		delete(h.interactions, customId)
	}
	return f, have
}

func (h *Hub) commandHandler(name string, mode core.CommandMode) (core.CommandHandler, bool) {
	h.Lock()
	defer h.Unlock()
	hs, have := h.commands[h.key(name)]
	if !have {
		return nil, false
	}
	f, have := hs[mode]
	return f, have
}

func (h *Hub) eventHandlers(kind string) []core.EventHandler {
	h.Lock()
	defer h.Unlock()
	return append([]core.EventHandler(nil), h.events[EventKey(kind)]...)
}

// ProcessMsg processes the given message and returns the results,
// which can then be processed by the Hub's Result coupling.
func (h *Hub) ProcessMsg(ctx context.Context, msg interface{}) (*Result, error) {
	in, err := ParseInbound(msg)
	if err != nil {
		return nil, err
	}
	h.Logf("ProcessMsg %s", JS(in))

	if in.Channel == "" {
		in.Channel = h.Conf.DefaultChannel
	}
	if in.Author.Id == "" {
		in.Author = h.Conf.DefaultAuthor
	}
	if in.Channel != "" {
		h.Lock()
		if h.channels != nil {
			h.channels[in.Channel] = true
		}
		h.Unlock()
	}

	b := &batch{}
	ctx = context.WithValue(ctx, batchKey{}, b)

	var errs []error
	switch in.Type {
	case MsgMessage:
		errs = h.message(ctx, in)
	case MsgCommand:
		errs = h.command(ctx, in)
	case MsgComponent, MsgModal:
		errs = h.interact(ctx, in)
	case MsgEvent:
		errs = h.event(ctx, in, in.Event, in.Args)
	}

	r := &Result{
		In:      in,
		Emitted: b.emitted,
	}
	for _, err := range errs {
		r.Errors = append(r.Errors, err.Error())
	}
	return r, nil
}

// message dispatches message events and then, if the message is a
// command invocation, the command.
func (h *Hub) message(ctx context.Context, in *Inbound) []error {
	errs := h.event(ctx, in, MsgMessage, []string{in.Content})

	name, args, ok := ParseCommand(h.Conf.Settings, in.Content)
	if !ok {
		return errs
	}
	if in.Author.Id != "" && in.Author.Id == h.Conf.Self.Id {
		return errs
	}
	f, have := h.commandHandler(name, core.Positional)
	if !have {
		h.Logf("no command '%s'", name)
		return errs
	}
	err := f(ctx, &core.Invocation{
		Principal: in.Author,
		Mode:      core.Positional,
		Channel:   in.Channel,
		Args:      args,
		Surface:   h.surface(in),
	})
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (h *Hub) command(ctx context.Context, in *Inbound) []error {
	f, have := h.commandHandler(in.Name, core.Structured)
	if !have {
		err := &core.UnknownReference{Kind: "command", Name: in.Name}
		h.emit(ctx, &Emitted{
			Op:    OpError,
			To:    in.Id,
			Error: err.Error(),
		})
		return []error{err}
	}
	err := f(ctx, &core.Invocation{
		Principal: in.Author,
		Mode:      core.Structured,
		Channel:   in.Channel,
		Args:      in.Args,
		Options:   in.Options,
		Surface:   h.surface(in),
		Responder: h.responder(in),
	})
	if err != nil {
		return []error{err}
	}
	return nil
}

func (h *Hub) interact(ctx context.Context, in *Inbound) []error {
	f, have := h.interaction(in.CustomId, in.Type == MsgModal)
	if !have {
		err := &core.UnknownReference{Kind: in.Type, Name: in.CustomId}
		h.emit(ctx, &Emitted{
			Op:    OpError,
			To:    in.Id,
			Error: err.Error(),
		})
		return []error{err}
	}
	err := f(ctx, &core.Interaction{
		Principal: in.Author,
		Channel:   in.Channel,
		CustomId:  in.CustomId,
		Values:    in.Values,
		Inputs:    in.Inputs,
		Surface:   h.surface(in),
		Responder: h.responder(in),
	})
	if err != nil {
		return []error{err}
	}
	return nil
}

func (h *Hub) event(ctx context.Context, in *Inbound, kind string, args []string) []error {
	var errs []error
	for _, f := range h.eventHandlers(kind) {
		ev := &core.Event{
			Kind:    kind,
			Author:  in.Author,
			Channel: in.Channel,
			Args:    args,
		}
		if in.Channel != "" {
			ev.Surface = h.surface(in)
		}
		if err := f(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Loop processes in-bound messages until the context is done (or
// input is exhausted and HaltOnInputEOF).
func (h *Hub) Loop(ctx context.Context) error {
	if h.in == nil {
		return errors.New("no couplings")
	}
	h.Logf("Hub.Loop starting")
	done := h.done
LOOP:
	for {
		select {
		case <-done:
			if h.Conf.HaltOnInputEOF {
				h.Logf("Hub.Loop shutting down (done)")
				break LOOP
			}
			done = nil
		case <-ctx.Done():
			h.Logf("Hub.Loop shutting down (ctx.Done)")
			break LOOP
		case msg := <-h.in:
			if msg == nil {
				break LOOP
			}
			r, err := h.ProcessMsg(ctx, msg)
			if err != nil {
				h.logger().Error("bad in-bound message", "error", err)
				r = &Result{
					Emitted: []*Emitted{{
						Op:    OpError,
						Error: err.Error(),
					}},
				}
			}
			h.publish(ctx, r)
		}
	}

	h.Logf("Hub.Loop done")
	return nil
}
