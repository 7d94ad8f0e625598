package core

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOutboundProjection(t *testing.T) {
	e := &Engine{}
	payload := MapOf(
		AttrKey, MapOf("ephemeral", true),
		TextKey, "hello",
		"tts", true,
	)
	out, err := e.outbound(payload, false)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"content": "hello",
		"tts":     true,
	}
	if diff := cmp.Diff(want, out.Params); diff != "" {
		t.Fatal(diff)
	}
	if !out.Ephemeral {
		t.Fatal("ephemeral attribute ignored")
	}
	// The payload keeps its attributes.
	if !payload.Has(AttrKey) {
		t.Fatal("payload modified")
	}
}

func TestEmbedColor(t *testing.T) {
	e := &Engine{}
	out, err := e.outbound(MapOf(
		"title", "t",
		"color", "#ff0000",
		TextKey, "d",
	), true)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{
		"title":       "t",
		"color":       0xff0000,
		"description": "d",
	}
	if diff := cmp.Diff(want, out.Embed); diff != "" {
		t.Fatal(diff)
	}

	for in, want := range map[string]int{
		"#00ff00":  0x00ff00,
		"0x0000ff": 0x0000ff,
		"abcdef":   0xabcdef,
	} {
		n, err := ParseColor(in)
		if err != nil {
			t.Fatal(err)
		}
		if n != want {
			t.Fatalf("%s: %d", in, n)
		}
	}
	var tm *TypeMismatch
	if _, err = ParseColor("#zz0000"); !errors.As(err, &tm) {
		t.Fatal(err)
	}
}

func testViewDoc() *Document {
	doc := NewDocument()
	doc.Views.Set("menu", MapOf(
		"button", []interface{}{
			MapOf(
				AttrKey, MapOf("label", "Yes", "style", "green"),
				"on_click", MapOf("response", MapOf(TextKey, "clicked by {ctx.author.name}")),
			),
			MapOf(AttrKey, MapOf("label", "Docs", "style", "link", "url", "https://example.com")),
		},
		"select_menu", MapOf(
			AttrKey, MapOf("max_values", "2"),
			"option", []interface{}{
				MapOf(
					AttrKey, MapOf("label", "Red", "value", "r"),
					"on_select", MapOf("response", "red"),
				),
				MapOf(
					AttrKey, MapOf("label", "Form", "value", "f", "default", true),
					"on_select", MapOf("response", MapOf(AttrKey, MapOf("type", "modal", "name", "feedback"))),
				),
			},
		),
	))
	doc.Modals.Set("feedback", MapOf(
		AttrKey, MapOf("title", "Feedback"),
		"input", MapOf(AttrKey, MapOf("name", "comment", "label", "Comment", "style", "paragraph")),
		"on_submit", MapOf("reply", "thanks: {inp(comment)}"),
	))
	doc.Commands.Set("menu", MapOf(
		"message", MapOf(AttrKey, MapOf("view", "menu"), TextKey, "pick"),
	))
	return doc
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	s := newFakeSession()
	e, r := Synthesize(ctx, testViewDoc(), s, Options{Logger: quiet})
	if err := r.Err(); err != nil {
		t.Fatal(err)
	}
	if 0 < len(r.Warnings) {
		t.Fatal(r.Warnings)
	}

	surface := &fakeSurface{}
	h := s.commands["menu"][Positional]
	for i := 0; i < 2; i++ {
		if err := h(ctx, &Invocation{Surface: surface}); err != nil {
			t.Fatal(err)
		}
	}
	if len(surface.sent) != 2 {
		t.Fatal(surface.sent)
	}
	v1, v2 := surface.sent[0].View, surface.sent[1].View
	if v1 == nil || v2 == nil {
		t.Fatal("no view")
	}
	if v1.Buttons[0].CustomId == v2.Buttons[0].CustomId {
		t.Fatal("view instances share custom ids")
	}
	if _, have := surface.sent[0].Params[AttrKey]; have {
		t.Fatal("attributes leaked")
	}

	yes, docs := v1.Buttons[0], v1.Buttons[1]
	if yes.Style != StyleSuccess || docs.Style != StyleLink || docs.OnClick != nil {
		t.Fatalf("%#v %#v", yes, docs)
	}
	if v1.Select.Placeholder != DefaultPlaceholder || v1.Select.MaxValues != 2 || !v1.Select.Options[1].Default {
		t.Fatalf("%#v", v1.Select)
	}

	responder := &fakeResponder{}
	click, have := v1.Handler(yes.CustomId)
	if !have {
		t.Fatal("no handler")
	}
	err := click(ctx, &Interaction{
		Principal: Principal{Id: "u1", Name: "homer"},
		Responder: responder,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(responder.responses) != 1 || responder.responses[0].Content() != "clicked by homer" {
		t.Fatal(responder.responses)
	}

	choose, _ := v1.Handler(v1.Select.CustomId)
	if err = choose(ctx, &Interaction{Values: []string{"f"}, Responder: responder}); err != nil {
		t.Fatal(err)
	}
	if len(responder.modals) != 1 || responder.modals[0].Title != "Feedback" {
		t.Fatal(responder.modals)
	}

	form := responder.modals[0]
	if form.Inputs[0].Style != InputParagraph || !form.Inputs[0].Required {
		t.Fatalf("%#v", form.Inputs[0])
	}
	surface = &fakeSurface{}
	err = form.OnSubmit(ctx, &Interaction{
		Inputs:    map[string]string{"comment": "great"},
		Surface:   surface,
		Responder: responder,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(surface.replies) != 1 || surface.replies[0].Content() != "thanks: great" {
		t.Fatal(surface.replies)
	}

	if _, err = e.View("nope"); err == nil {
		t.Fatal("unknown view should fail")
	}
}

func TestInteractionOnly(t *testing.T) {
	ctx := context.Background()
	doc := NewDocument()
	doc.Commands.Set("wait", MapOf("defer", MapOf(AttrKey, MapOf("thinking", true))))
	s := newFakeSession()
	Synthesize(ctx, doc, s, Options{Logger: quiet})

	err := s.commands["wait"][Positional](ctx, &Invocation{})
	if !errors.Is(err, NotInteractive) {
		t.Fatalf("wanted NotInteractive, got %v", err)
	}

	responder := &fakeResponder{}
	err = s.commands["wait"][Structured](ctx, &Invocation{Responder: responder})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]DeferOptions{{Thinking: true}}, responder.deferred); diff != "" {
		t.Fatal(diff)
	}
}

func TestUnknownViewWarning(t *testing.T) {
	doc := NewDocument()
	doc.Commands.Set("x", MapOf("message", MapOf(AttrKey, MapOf("view", "missing"), TextKey, "x")))
	_, r := Synthesize(context.Background(), doc, newFakeSession(), Options{Logger: quiet})
	var ur *UnknownReference
	if len(r.Warnings) != 1 || !errors.As(r.Warnings[0], &ur) || ur.Name != "missing" {
		t.Fatal(r.Warnings)
	}
}
