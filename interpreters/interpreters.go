// Package interpreters collects the standard script runners.
package interpreters

import (
	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/interpreters/goja"
	"github.com/xmlcord/xmlcord/interpreters/noop"
)

// DefaultName is the runner the command-line tools use.
const DefaultName = "goja"

// Standard returns the standard runners by name.
func Standard() map[string]core.ScriptRunner {
	rs := make(map[string]core.ScriptRunner)

	es := goja.NewRunner()
	rs["goja"] = es
	rs["ecmascript"] = es
	rs["ecmascript-5.1"] = es

	off := noop.NewRunner()
	rs["noop"] = off
	rs["disabled"] = off

	return rs
}
