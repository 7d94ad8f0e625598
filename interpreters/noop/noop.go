package noop

import (
	"context"
	"log/slog"

	"github.com/xmlcord/xmlcord/core"
)

// Runner is a core.ScriptRunner that refuses to run scripts.
type Runner struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func NewRunner() *Runner {
	return &Runner{}
}

// RunScript returns core.ScriptsDisabled.
func (r *Runner) RunScript(ctx context.Context, src string, bs core.Bindings) (core.Bindings, error) {
	if !r.Silent {
		logger := r.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("script not run", "reason", core.ScriptsDisabled)
	}
	return nil, core.ScriptsDisabled
}
