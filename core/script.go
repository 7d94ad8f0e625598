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
)

// ScriptRunner executes embedded scripts for the "run_script" action.
//
// The engine does not sandbox scripts.  A ScriptRunner gets a copy of
// the invocation's Bindings and can return Bindings that extend them.
// RunScript should honor ctx cancellation.
type ScriptRunner interface {
	RunScript(ctx context.Context, src string, bs Bindings) (Bindings, error)
}

// ScriptsDisabled is returned by a ScriptRunner that doesn't run
// scripts.
var ScriptsDisabled = errors.New("scripts are disabled")

// ScriptRunnerFunc adapts a function to a ScriptRunner.
type ScriptRunnerFunc func(ctx context.Context, src string, bs Bindings) (Bindings, error)

func (f ScriptRunnerFunc) RunScript(ctx context.Context, src string, bs Bindings) (Bindings, error) {
	return f(ctx, src, bs)
}
