package tools

import (
	"context"
	"log/slog"

	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/sio"
)

// Check synthesizes the document against a detached hub and returns
// the report along with dangling references.
//
// Nothing is started, so no scheduled handler runs and no command is
// synced.
func Check(ctx context.Context, doc *core.Document, scripts core.ScriptRunner, logger *slog.Logger) (*core.Report, []Node, error) {
	conf := &sio.HubConf{
		Self:     core.Principal{Id: "xmlcord", Name: "xmlcord"},
		Settings: doc.Settings,
	}
	hub, err := sio.NewHub(ctx, conf, nil)
	if err != nil {
		return nil, nil, err
	}
	hub.Logger = logger

	_, report := core.Synthesize(ctx, doc, hub, core.Options{
		Scripts: scripts,
		Logger:  logger,
	})

	return report, Analyze(doc).Dangling, nil
}
