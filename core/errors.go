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

// Most of these errors are user errors (problems with a document or
// with an invocation), not internal errors.  Errors that can occur
// during an invocation are reported to the invoking surface when
// there is one.

import (
	"errors"
	"strings"
)

var (
	// NoSurface occurs when an action wants to send or reply but
	// the invocation has nowhere to send to (e.g. a scheduled
	// task replying).
	NoSurface = errors.New("invocation has no reply surface")

	// NotInteractive occurs when an interaction-only action
	// ("response", "defer") runs outside of a component or modal
	// callback.
	NotInteractive = errors.New("action requires an interaction")

	// NoScriptRunner occurs when a "run_script" action runs but
	// the Engine has no ScriptRunner.
	NoScriptRunner = errors.New("no script runner configured")
)

// MalformedDocument occurs when a markup tree isn't structurally
// usable.  Path is the slash-separated tag path to the offending
// element.
type MalformedDocument struct {
	Path   string
	Reason string
}

func (e *MalformedDocument) Error() string {
	return `malformed document at "` + e.Path + `": ` + e.Reason
}

// UnboundPlaceholder occurs when interpolation finds a {placeholder}
// with no binding.
type UnboundPlaceholder struct {
	Name string
}

func (e *UnboundPlaceholder) Error() string {
	return `unbound placeholder "` + e.Name + `"`
}

// TypeMismatch occurs when an argument literal can't be coerced to
// the declared type.
type TypeMismatch struct {
	Literal string
	Type    string
}

func (e *TypeMismatch) Error() string {
	return `expected ` + e.Type + `, got "` + e.Literal + `"`
}

// InvalidStructuredLiteral occurs when a structured (JSON) argument
// doesn't parse.
type InvalidStructuredLiteral struct {
	Literal string
	Err     error
}

func (e *InvalidStructuredLiteral) Error() string {
	return `invalid structured literal "` + e.Literal + `": ` + e.Err.Error()
}

func (e *InvalidStructuredLiteral) Unwrap() error {
	return e.Err
}

// MissingArgument occurs when a command is invoked with fewer tokens
// than it has required arguments.
type MissingArgument struct {
	Name string
}

func (e *MissingArgument) Error() string {
	return `missing argument "` + e.Name + `"`
}

// InsufficientPermissions occurs when the invoking principal lacks
// one or more permissions that a command requires.  Missing lists
// every missing permission in declaration order.
type InsufficientPermissions struct {
	Missing []string
}

func (e *InsufficientPermissions) Error() string {
	return "missing permissions: " + strings.Join(e.Missing, ", ")
}

// UnknownReference occurs when an action names a view or modal that
// no Declaration provides.
type UnknownReference struct {
	Kind string
	Name string
}

func (e *UnknownReference) Error() string {
	return `unknown ` + e.Kind + ` "` + e.Name + `"`
}

// InvalidDeclaration occurs when a Declaration can't be turned into a
// handler.
type InvalidDeclaration struct {
	Reason string
}

func (e *InvalidDeclaration) Error() string {
	return e.Reason
}

// DeclarationError attaches a Declaration's identity to an error
// that occurred while building or registering it.
type DeclarationError struct {
	Section string
	Name    string
	Err     error
}

func (e *DeclarationError) Error() string {
	return e.Section + ` "` + e.Name + `": ` + e.Err.Error()
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// DuplicateDeclaration is a warning: a section declared the same name
// more than once.  The last Declaration wins.
type DuplicateDeclaration struct {
	Section string
	Name    string
	Count   int
}

func (e *DuplicateDeclaration) Error() string {
	return e.Section + ` "` + e.Name + `" declared more than once; using the last one`
}

// ActionError attributes an action failure to its Declaration and
// action name.
type ActionError struct {
	Declaration string
	Action      string
	Err         error
}

func (e *ActionError) Error() string {
	return `action "` + e.Action + `" in "` + e.Declaration + `": ` + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// TargetNotFound occurs when a channel_message action names a target
// that the Session can't find.
type TargetNotFound struct {
	Id string
}

func (e *TargetNotFound) Error() string {
	return `target "` + e.Id + `" not found`
}
