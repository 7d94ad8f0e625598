package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// spy replaces the named actions with recorders.
func spy(names ...string) (map[string]ActionFunc, *[]string) {
	var calls []string
	actions := CopyActions(DefaultActions)
	for _, name := range names {
		name := name
		actions[name] = func(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
			calls = append(calls, name+":"+Stringify(Plain(payload)))
			return nil
		}
	}
	return actions, &calls
}

func TestPermissionShortCircuit(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("ban", MapOf(
		"permissions", MapOf(AttrKey, MapOf("ban_members", true, "kick_members", "true")),
		"message", "banned",
		"log", "banned someone",
	))

	actions, calls := spy("message", "log")
	s := newFakeSession()
	_, r := Synthesize(ctx, doc, s, Options{Actions: actions, Logger: quiet})
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}

	surface := &fakeSurface{}
	err := s.commands["ban"][Positional](ctx, &Invocation{
		Principal: Principal{Id: "u1", Permissions: map[string]bool{"send_messages": true}},
		Mode:      Positional,
		Surface:   surface,
	})
	var denied *InsufficientPermissions
	if !errors.As(err, &denied) {
		t.Fatalf("wanted InsufficientPermissions, got %v", err)
	}
	if diff := cmp.Diff([]string{"ban_members", "kick_members"}, denied.Missing); diff != "" {
		t.Fatal(diff)
	}
	if 0 < len(*calls) {
		t.Fatal(*calls)
	}
	if len(surface.replies) != 1 || !strings.Contains(surface.replies[0].Content(), "ban_members") {
		t.Fatal("denial not reported")
	}

	// With both permissions, both actions run in order.
	err = s.commands["ban"][Positional](ctx, &Invocation{
		Principal: Principal{Id: "u2", Permissions: map[string]bool{"ban_members": true, "kick_members": true}},
		Surface:   surface,
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"message:banned", "log:banned someone"}, *calls); diff != "" {
		t.Fatal(diff)
	}
}

func TestCommandArguments(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Variables.Set("greeting", "Hello")
	doc.Commands.Set("greet", MapOf(
		"argument", []interface{}{
			MapOf(AttrKey, MapOf("name", "name")),
			MapOf(AttrKey, MapOf("name", "rest_args", "rest", true)),
		},
		"reply_message", MapOf(TextKey, "{var(greeting)} {argument(name)}: {argument(rest_args)}"),
	))
	doc.Commands.Set("add", MapOf(
		AttrKey, MapOf("prefix", "false"),
		"argument", MapOf(AttrKey, MapOf("name", "n", "type", "integer")),
		"message", "{argument(n)}",
	))

	s := newFakeSession()
	_, r := Synthesize(ctx, doc, s, Options{Logger: quiet})
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	if _, have := s.commands["add"][Positional]; have {
		t.Fatal("add shouldn't have a positional form")
	}
	if _, have := s.commands["greet"][Structured]; !have {
		t.Fatal("greet should have a structured form")
	}

	surface := &fakeSurface{}
	err := s.commands["greet"][Positional](ctx, &Invocation{
		Args:    strings.Fields("alpha beta gamma delta"),
		Surface: surface,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(surface.replies) != 1 {
		t.Fatal(surface.replies)
	}
	if got := surface.replies[0].Content(); got != "Hello alpha: beta gamma delta" {
		t.Fatal(got)
	}

	err = s.commands["add"][Structured](ctx, &Invocation{
		Options: map[string]string{"n": "abc"},
		Surface: surface,
	})
	var tm *TypeMismatch
	if !errors.As(err, &tm) || tm.Literal != "abc" {
		t.Fatalf("wanted a TypeMismatch, got %v", err)
	}
}

func TestIgnoreSelf(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Settings.IgnoreSelf = true
	doc.Events.Set("on_message", MapOf("reply", "seen"))

	s := newFakeSession()
	_, r := Synthesize(ctx, doc, s, Options{Logger: quiet})
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	hs := s.events["on_message"]
	if len(hs) != 1 {
		t.Fatal(hs)
	}

	surface := &fakeSurface{}
	if err := hs[0](ctx, &Event{Kind: "on_message", Author: s.self, Surface: surface}); err != nil {
		t.Fatal(err)
	}
	if 0 < len(surface.replies) {
		t.Fatal("self-authored message wasn't ignored")
	}

	if err := hs[0](ctx, &Event{Kind: "on_message", Author: Principal{Id: "u1"}, Surface: surface}); err != nil {
		t.Fatal(err)
	}
	if len(surface.replies) != 1 || surface.replies[0].Content() != "seen" {
		t.Fatal(surface.replies)
	}
}

func TestDeclarationIsolation(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("bad", MapOf(
		"argument", []interface{}{
			MapOf(AttrKey, MapOf("name", "all", "rest", true)),
			MapOf(AttrKey, MapOf("name", "after")),
		},
		"message", "never",
	))
	doc.Commands.Set("good", MapOf("message", "ok", "frobnicate", "?"))
	doc.Commands.Set("twice", []interface{}{
		MapOf("message", "first"),
		MapOf("message", "second"),
	})
	doc.Tasks.Set("nointerval", MapOf("log", "x"))

	s := newFakeSession()
	_, r := Synthesize(ctx, doc, s, Options{Logger: quiet})

	if len(r.Errors) != 2 {
		t.Fatal(r.Errors)
	}
	var de *DeclarationError
	if !errors.As(r.Errors[0], &de) || de.Name != "bad" || de.Section != SectionCommands {
		t.Fatal(r.Errors[0])
	}
	if diff := cmp.Diff([]string{"commands/good", "commands/twice"}, r.Registered); diff != "" {
		t.Fatal(diff)
	}

	var dup *DuplicateDeclaration
	var unknown *InvalidDeclaration
	var sawDup, sawUnknown bool
	for _, w := range r.Warnings {
		if errors.As(w, &dup) && dup.Name == "twice" {
			sawDup = true
		}
		if errors.As(w, &unknown) && strings.Contains(unknown.Reason, "frobnicate") {
			sawUnknown = true
		}
	}
	if !sawDup || !sawUnknown {
		t.Fatal(r.Warnings)
	}

	surface := &fakeSurface{}
	if err := s.commands["twice"][Positional](ctx, &Invocation{Surface: surface}); err != nil {
		t.Fatal(err)
	}
	if len(surface.sent) != 1 || surface.sent[0].Content() != "second" {
		t.Fatal(surface.sent)
	}
	if err := s.commands["good"][Positional](ctx, &Invocation{Surface: surface}); err != nil {
		t.Fatal(err)
	}
}

func TestTaskSchedule(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Tasks.Set("tick", MapOf(
		AttrKey, MapOf("minutes", "1.5", "seconds", "10", "enabled", true),
		"channel_message", MapOf(AttrKey, MapOf("id", "c1"), TextKey, "tick"),
	))

	s := newFakeSession()
	s.targets["c1"] = &fakeSurface{}
	e, r := Synthesize(ctx, doc, s, Options{Logger: quiet})
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	spec := s.schedule["tick"]
	if spec.Interval.Seconds() != 100 || !spec.Enabled {
		t.Fatalf("%#v", spec)
	}
	if err := s.tasks["tick"](ctx); err != nil {
		t.Fatal(err)
	}
	if sent := s.targets["c1"].sent; len(sent) != 1 || sent[0].Content() != "tick" {
		t.Fatal(sent)
	}
	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if !s.synced || !s.started {
		t.Fatal("not started")
	}
}

func TestChannelMessageNotFound(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("announce", MapOf(
		"argument", MapOf(AttrKey, MapOf("name", "ch")),
		"channel_message", MapOf(AttrKey, MapOf("id", "{argument(ch)}"), TextKey, "hi"),
	))
	s := newFakeSession()
	s.targets["c1"] = &fakeSurface{}
	Synthesize(ctx, doc, s, Options{Logger: quiet})

	h := s.commands["announce"][Positional]
	if err := h(ctx, &Invocation{Args: []string{"c1"}}); err != nil {
		t.Fatal(err)
	}
	if len(s.targets["c1"].sent) != 1 {
		t.Fatal("not sent")
	}
	var nf *TargetNotFound
	if err := h(ctx, &Invocation{Args: []string{"c2"}}); !errors.As(err, &nf) || nf.Id != "c2" {
		t.Fatalf("wanted TargetNotFound, got %v", err)
	}
}

func TestHandlerPanic(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("boom", MapOf("explode", "now"))
	actions := CopyActions(DefaultActions)
	actions["explode"] = func(ctx context.Context, e *Engine, s *Scope, payload interface{}) error {
		panic("kaboom")
	}
	s := newFakeSession()
	Synthesize(ctx, doc, s, Options{Logger: quiet, Actions: actions})

	surface := &fakeSurface{}
	err := s.commands["boom"][Positional](ctx, &Invocation{Surface: surface})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatal(err)
	}
	if len(surface.replies) != 1 {
		t.Fatal("panic not reported")
	}
}

func TestRunScriptExtendsBindings(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("calc", MapOf(
		"run_script", "return {total: 6}",
		"message", "total={total}",
	))
	var saw Bindings
	runner := ScriptRunnerFunc(func(ctx context.Context, src string, bs Bindings) (Bindings, error) {
		saw = bs
		if src != "return {total: 6}" {
			t.Fatal(src)
		}
		return Bindings{"total": 6}, nil
	})
	s := newFakeSession()
	Synthesize(ctx, doc, s, Options{Logger: quiet, Scripts: runner})

	surface := &fakeSurface{}
	if err := s.commands["calc"][Positional](ctx, &Invocation{Surface: surface}); err != nil {
		t.Fatal(err)
	}
	if _, have := saw[CtxKey]; !have {
		t.Fatal("script didn't see ctx")
	}
	if len(surface.sent) != 1 || surface.sent[0].Content() != "total=6" {
		t.Fatal(surface.sent)
	}
}

func TestReferenceWarningsInDocumentOrder(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	var want []string
	for _, name := range []string{"e", "d", "c", "b", "a"} {
		missing := "missing-" + name
		want = append(want, missing)
		doc.Views.Set(name, MapOf("button", MapOf(
			AttrKey, MapOf("label", "Go"),
			"on_click", MapOf("message", MapOf(AttrKey, MapOf("view", missing), TextKey, "hi")),
		)))
	}
	doc.Modals.Set("form", MapOf(
		"input", MapOf(AttrKey, MapOf("name", "x")),
		"on_submit", MapOf("open_modal", MapOf(AttrKey, MapOf("name", "missing-modal"))),
	))
	want = append(want, "missing-modal")

	for i := 0; i < 20; i++ {
		_, r := Synthesize(ctx, doc, newFakeSession(), Options{Logger: quiet})
		var got []string
		for _, w := range r.Warnings {
			var u *UnknownReference
			if errors.As(w, &u) {
				got = append(got, u.Name)
			}
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatal(diff)
		}
	}
}

func TestInteractionErrorsNameSection(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Views.Set("picker", MapOf("button", MapOf(
		AttrKey, MapOf("label", "Go"),
		"on_click", MapOf("channel_message", MapOf(AttrKey, MapOf("id", "nowhere"), TextKey, "x")),
	)))
	doc.Modals.Set("survey", MapOf(
		"input", MapOf(AttrKey, MapOf("name", "color")),
		"on_submit", MapOf("channel_message", MapOf(AttrKey, MapOf("id", "nowhere"), TextKey, "x")),
	))
	e, _ := Synthesize(ctx, doc, newFakeSession(), Options{Logger: quiet})

	v, err := e.View("picker")
	if err != nil {
		t.Fatal(err)
	}
	var ae *ActionError
	err = v.Buttons[0].OnClick(ctx, &Interaction{CustomId: v.Buttons[0].CustomId})
	if !errors.As(err, &ae) || ae.Declaration != SectionViews+"/picker/button Go" {
		t.Fatalf("got %v", err)
	}

	form, err := e.Modal("survey")
	if err != nil {
		t.Fatal(err)
	}
	err = form.OnSubmit(ctx, &Interaction{CustomId: form.CustomId, Inputs: map[string]string{"color": "red"}})
	if !errors.As(err, &ae) || ae.Declaration != SectionModals+"/survey" {
		t.Fatalf("got %v", err)
	}
}
