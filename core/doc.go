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

// Package core provides the declarative action engine: the gear that
// turns a normalized markup document into live handlers registered
// with a chat-platform Session.
//
// The primary type is Engine, and the primary function is
// Synthesize().  Synthesize walks the commands, events, tasks, views,
// and modals of a Document, builds one handler per
// Declaration, and registers each handler with the Session.  A
// Declaration that fails to build is reported (see Report) and
// skipped; the rest still register.
//
// Every handler follows the same path at runtime.  A fresh Bindings
// is built for the invocation (arguments, variables, modal inputs),
// then Engine.Run executes the Declaration's actions in document
// order.  Each action's payload is interpolated with the current
// Bindings immediately before the action fires, so an action can see
// bindings that an earlier "run_script" action produced.
//
// Actions are looked up in Engine.Actions, which starts as a copy of
// DefaultActions.  An action never sees the raw payload's
// "@attributes" key in what it forwards to the Session: attributes
// are read and the rest of the payload is projected into a fresh
// Outbound.
//
// Embedded scripts run through a ScriptRunner.  The engine does not
// sandbox them.  See the interpreters packages for implementations.
package core
