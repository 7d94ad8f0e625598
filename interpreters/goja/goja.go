// Package goja provides a core.ScriptRunner backed by Goja, which is
// a Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xmlcord/xmlcord/core"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by RunScript if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// Runner implements core.ScriptRunner.
//
// A script is the body of a function, so it can "return" an object.
// The returned object's properties extend the invocation's bindings.
type Runner struct {
	// Logger receives _.log() output.  Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Timeout, if positive, limits each script's execution.
	Timeout time.Duration

	// LibraryDir, if not empty, is where _.require() finds
	// libraries.
	LibraryDir string

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	programs sync.Map
}

// NewRunner makes a new Runner.
func NewRunner() *Runner {
	return &Runner{}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// Compile compiles the script (once).
func (r *Runner) Compile(src string) (*goja.Program, error) {
	if p, have := r.programs.Load(src); have {
		return p.(*goja.Program), nil
	}
	p, err := goja.Compile("", wrapSrc(src), true)
	if err != nil {
		return nil, err
	}
	r.programs.Store(src, p)
	return p, nil
}

func protest(o *goja.Runtime, x interface{}) {
	panic(o.ToValue(x))
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// RunScript implements core.ScriptRunner.
//
// The following properties are available from the runtime at _.
//
//	bindings: the current bindings (a copy).
//	log(x): log the given value.
//	gensym(): generate a random string.
//	esc(s): URL query-escape the given string.
//	cronNext(expr): the next time (RFC3339) for the cron expression.
//	require(name): the source of a library in LibraryDir (evaluate it
//	  with eval).
//
// For testing only:
//
//	sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (r *Runner) RunScript(ctx context.Context, src string, bs core.Bindings) (core.Bindings, error) {
	p, err := r.Compile(src)
	if err != nil {
		return nil, err
	}

	bindings, err := core.Canonicalize(map[string]interface{}(bs))
	if err != nil {
		return nil, err
	}

	o := goja.New()

	env := map[string]interface{}{
		"bindings": bindings,
	}
	o.Set("_", env)

	if r.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	env["gensym"] = func() interface{} {
		return core.Gensym(32)
	}

	env["cronNext"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		cronExpr, is := x.(string)
		if !is {
			protest(o, "not a string")
		}

		c, err := cronexpr.Parse(cronExpr)
		if err != nil {
			protest(o, err.Error())
		}
		return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
	}

	env["esc"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		s, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		if s, is := x.(string); is {
			r.logger().Info(s, "source", "script")
			return x
		}
		js, err := json.Marshal(&x)
		if err != nil {
			r.logger().Warn("script log: can't marshal", "error", err)
		} else {
			r.logger().Info(string(js), "source", "script")
		}
		return x
	}

	env["require"] = func(x interface{}) interface{} {
		switch vv := x.(type) {
		case goja.Value:
			x = vv.Export()
		}
		name, is := x.(string)
		if !is {
			protest(o, "not a string")
		}
		lib, err := r.library(name)
		if err != nil {
			protest(o, err.Error())
		}
		return lib
	}

	if 0 < r.Timeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If RunScript calls cancel() after RunProgram returns,
		// then we'll never see this InterruptedMessage, which
		// is actually the behavior we want.  In this case, we
		// weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		if _, is := err.(*goja.InterruptedError); is {
			return nil, Interrupted
		}
		return nil, err
	}

	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	switch vv := v.Export().(type) {
	case map[string]interface{}:
		return core.Bindings(vv), nil
	default:
		return nil, fmt.Errorf("script returned %T, not an object", vv)
	}
}

// library reads a library from LibraryDir.
func (r *Runner) library(name string) (string, error) {
	if r.LibraryDir == "" {
		return "", errors.New("no library directory")
	}
	if strings.Contains(name, "..") {
		return "", fmt.Errorf("bad library name '%s'", name)
	}
	bs, err := os.ReadFile(filepath.Join(r.LibraryDir, name))
	if err != nil {
		return "", err
	}
	return string(bs), nil
}
