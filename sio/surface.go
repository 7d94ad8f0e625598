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

	"github.com/xmlcord/xmlcord/core"
)

// surface is a core.Surface that emits OpSend and OpReply.
type surface struct {
	h       *Hub
	channel string

	// replyTo is the message that Reply answers.
	replyTo string
}

func (h *Hub) surface(in *Inbound) *surface {
	return &surface{
		h:       h,
		channel: in.Channel,
		replyTo: in.Id,
	}
}

func (s *surface) Send(ctx context.Context, out *core.Outbound) error {
	s.h.watch(out.View)
	s.h.emit(ctx, &Emitted{
		Op:      OpSend,
		Channel: s.channel,
		Message: out,
	})
	return nil
}

func (s *surface) Reply(ctx context.Context, out *core.Outbound) error {
	s.h.watch(out.View)
	s.h.emit(ctx, &Emitted{
		Op:      OpReply,
		Channel: s.channel,
		To:      s.replyTo,
		Message: out,
	})
	return nil
}

// responder is a core.Responder that emits OpRespond, OpDefer, and
// OpModal.
type responder struct {
	h           *Hub
	channel     string
	interaction string
}

func (h *Hub) responder(in *Inbound) *responder {
	return &responder{
		h:           h,
		channel:     in.Channel,
		interaction: in.Id,
	}
}

func (r *responder) Respond(ctx context.Context, out *core.Outbound) error {
	r.h.watch(out.View)
	r.h.emit(ctx, &Emitted{
		Op:      OpRespond,
		Channel: r.channel,
		To:      r.interaction,
		Message: out,
	})
	return nil
}

func (r *responder) Defer(ctx context.Context, opts core.DeferOptions) error {
	r.h.emit(ctx, &Emitted{
		Op:      OpDefer,
		Channel: r.channel,
		To:      r.interaction,
		Defer:   &opts,
	})
	return nil
}

func (r *responder) OpenModal(ctx context.Context, form *core.ModalForm) error {
	r.h.watchModal(form)
	r.h.emit(ctx, &Emitted{
		Op:      OpModal,
		Channel: r.channel,
		To:      r.interaction,
		Modal:   form,
	})
	return nil
}
