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
// Package main runs a bot described by an XML document.
//
// The bot talks JSON over stdin/stdout (-io std), an MQTT broker (-io
// mq), or a WebSocket (-io ws), or it connects to Discord (-io
// discord).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xmlcord/xmlcord/config"
	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/discord"
	"github.com/xmlcord/xmlcord/interpreters"
	"github.com/xmlcord/xmlcord/interpreters/goja"
	"github.com/xmlcord/xmlcord/markup"
	"github.com/xmlcord/xmlcord/sio"
	"github.com/xmlcord/xmlcord/util"
)

func main() {
	var (
		docName       = flag.String("doc", "bot", "Document name (.xml is optional)")
		coupling      = flag.String("io", "std", `IO: "std", "mq", "ws", or "discord"`)
		scripts       = flag.String("scripts", interpreters.DefaultName, `Script runner ("goja" or "noop")`)
		scriptTimeout = flag.Duration("script-timeout", 5*time.Second, "Limit for each script")
		libDir        = flag.String("lib-dir", "", "Directory for script libraries")
		channel       = flag.String("channel", "general", "Default channel for in-bound messages")
		author        = flag.String("author", "user", "Default author id for in-bound messages")
		guild         = flag.String("guild", "", "Discord guild for command sync (default global)")
		wait          = flag.Duration("wait", time.Second, "Wait this long before shutting down couplings")
		haltOnEOF     = flag.Bool("halt-on-eof", true, "Stop on input EOF")
		logLevel      = flag.String("log-level", "info", "debug, info, warn, or error")
		logFormat     = flag.String("log-format", "text", "text or json")
		verbose       = flag.Bool("v", false, "Verbose")
		help          = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()

		{
			fmt.Fprintf(os.Stderr, "\n-io std (default):\n\n")
			_, fs := NewStdCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io mq:\n\n")
			_, fs := NewMQTTCouplings(nil)
			fs.PrintDefaults()
		}

		{
			fmt.Fprintf(os.Stderr, "\n-io ws:\n\n")
			_, fs := NewWebSocketCouplings(nil)
			fs.PrintDefaults()
		}

		os.Exit(0)
	}

	logger := util.NewLogger(*logLevel, *logFormat, os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	doc, warnings, err := config.Load(*docName)
	if err != nil {
		Fatal(err)
	}
	for _, w := range warnings {
		logger.Warn("document", "warning", w)
	}

	runner, have := interpreters.Standard()[*scripts]
	if !have {
		Fatal(fmt.Errorf("unknown script runner '%s'", *scripts))
	}
	if g, is := runner.(*goja.Runner); is {
		g.Logger = logger
		g.Timeout = *scriptTimeout
		g.LibraryDir = *libDir
	}

	opts := core.Options{
		Scripts: runner,
		Logger:  logger,
	}

	if *coupling == "discord" {
		runDiscord(ctx, doc, opts, *guild)
		return
	}

	args := append([]string{}, flag.Args()...)

	var cio sio.Couplings
	switch *coupling {
	case "std":
		c, _ := NewStdCouplings(args)
		c.Logger = logger
		cio = c
	case "mq", "mqtt":
		c, _ := NewMQTTCouplings(args)
		cio = c
	case "ws":
		c, _ := NewWebSocketCouplings(args)
		cio = c
	default:
		Fatal(fmt.Errorf("unknown io: '%s'", *coupling))
	}

	if err := cio.Start(ctx); err != nil {
		Fatal(err)
	}

	conf := &sio.HubConf{
		Self:           core.Principal{Id: "xmlcord", Name: "xmlcord"},
		Settings:       doc.Settings,
		DefaultChannel: *channel,
		DefaultAuthor:  core.Principal{Id: *author, Name: *author},
		HaltOnInputEOF: *haltOnEOF,
	}
	hub, err := sio.NewHub(ctx, conf, cio)
	if err != nil {
		Fatal(err)
	}
	hub.Verbose = *verbose
	hub.Logger = logger
	hub.Scheduler.Logger = logger

	e, report := core.Synthesize(ctx, doc, hub, opts)
	if len(report.Registered) == 0 && report.Err() != nil {
		Fatal(report.Err())
	}
	if err := e.Start(ctx); err != nil {
		Fatal(err)
	}

	if err := hub.Loop(ctx); err != nil {
		Fatal(err)
	}

	if ctx.Err() == nil {
		logger.Info("input done", "wait", *wait)
		time.Sleep(*wait)
	}
	cancel()

	if err := cio.Stop(context.Background()); err != nil {
		logger.Error("io.Stop", "error", err)
	}
}

func runDiscord(ctx context.Context, doc *core.Document, opts core.Options, guild string) {
	token, err := config.NewCredentials().Token(doc)
	if err != nil {
		Fatal(err)
	}
	s, err := discord.New(token, doc.Settings)
	if err != nil {
		Fatal(err)
	}
	s.GuildId = guild
	s.Logger = opts.Logger
	s.Scheduler.Logger = opts.Logger

	e, report := core.Synthesize(ctx, doc, s, opts)
	if len(report.Registered) == 0 && report.Err() != nil {
		Fatal(report.Err())
	}

	if err := s.Open(ctx); err != nil {
		Fatal(err)
	}
	defer s.Close()

	if err := e.Start(ctx); err != nil {
		Fatal(err)
	}

	<-ctx.Done()
	slog.Info("shutting down")
}

// Diagnose classifies a fatal error.
func Diagnose(err error) string {
	var (
		notFound   *markup.DocumentNotFound
		unreadable *markup.DocumentUnreadable
		malformed  *markup.DocumentMalformed
		badDoc     *core.MalformedDocument
		noCred     *config.CredentialNotFound
		missing    *config.MissingOptionalDependency
	)
	switch {
	case errors.As(err, &notFound):
		return "document not found"
	case errors.As(err, &unreadable):
		return "document unreadable"
	case errors.As(err, &malformed), errors.As(err, &badDoc):
		return "document malformed"
	case errors.As(err, &noCred):
		return "credential not found"
	case errors.As(err, &missing):
		return "missing optional dependency"
	}
	return "startup failed"
}

// Fatal logs a diagnostic and exits.
func Fatal(err error) {
	slog.Error(Diagnose(err), "error", err)
	os.Exit(1)
}

// E logs the error and returns it.
func E(err error, args ...interface{}) error {
	slog.Error("error", "error", err, "context", args)
	return err
}
