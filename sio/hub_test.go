package sio

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/xmlcord/xmlcord/config"
	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/markup"
	"github.com/xmlcord/xmlcord/timers"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const testBot = `
<bot>
  <config><tag prefix="!" case_insensitive="true"/></config>
  <variables><name>Nova</name></variables>
  <commands>
    <greet>
      <argument name="who"/>
      <reply_message>Hello {argument(who)}, I am {var(name)}</reply_message>
    </greet>
    <menu>
      <message view="picker">Pick one</message>
    </menu>
    <ask slash="true" prefix="false">
      <response type="modal" name="survey"/>
    </ask>
  </commands>
  <events>
    <on_message ignore_self="true">
      <log>seen</log>
    </on_message>
    <member_join>
      <argument name="member"/>
      <channel_message id="lobby">Welcome {argument(member)}</channel_message>
    </member_join>
  </events>
  <tasks>
    <tick seconds="30" enabled="true">
      <channel_message id="lobby">tick</channel_message>
    </tick>
  </tasks>
  <views>
    <picker>
      <button label="Yes" style="green"><on_click><response>clicked</response></on_click></button>
    </picker>
  </views>
  <modals>
    <survey title="Survey">
      <input name="color" label="Favorite color"/>
      <on_submit><response>You like {inp(color)}</response></on_submit>
    </survey>
  </modals>
</bot>`

func newTestHub(t *testing.T, ctx context.Context, clock timers.Clock) (*Hub, *core.Engine) {
	root, err := markup.ParseString(testBot)
	if err != nil {
		t.Fatal(err)
	}
	m, err := markup.Normalize(root)
	if err != nil {
		t.Fatal(err)
	}
	doc, _, err := config.Resolve(m)
	if err != nil {
		t.Fatal(err)
	}

	h, err := NewHub(ctx, &HubConf{
		Self:           core.Principal{Id: "bot"},
		Settings:       doc.Settings,
		DefaultChannel: "general",
		DefaultAuthor:  core.Principal{Id: "u1", Name: "homer"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	h.Logger = quiet
	h.Scheduler = timers.NewScheduler(clock)
	h.Scheduler.Logger = quiet

	e, report := core.Synthesize(ctx, doc, h, core.Options{Logger: quiet})
	if err := report.Err(); err != nil {
		t.Fatal(err)
	}
	return h, e
}

func process(t *testing.T, h *Hub, msg interface{}) *Result {
	r, err := h.ProcessMsg(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if 0 < len(r.Errors) {
		t.Fatal(r.Errors)
	}
	return r
}

func TestPositionalCommand(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)

	r := process(t, h, map[string]interface{}{
		"type":    "message",
		"id":      "m1",
		"content": "!GREET Marge",
	})
	if len(r.Emitted) != 1 {
		t.Fatal(JS(r))
	}
	e := r.Emitted[0]
	if e.Op != OpReply || e.To != "m1" || e.Channel != "general" {
		t.Fatal(JS(e))
	}
	if got := e.Message.Content(); got != "Hello Marge, I am Nova" {
		t.Fatal(got)
	}

	// Not a command.
	r = process(t, h, "hello")
	if len(r.Emitted) != 0 {
		t.Fatal(JS(r))
	}
}

func TestMissingArgumentReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)

	r, err := h.ProcessMsg(ctx, "!greet")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Errors) != 1 || len(r.Emitted) != 1 {
		t.Fatal(JS(r))
	}
	if !strings.HasPrefix(r.Emitted[0].Message.Content(), "Error: ") {
		t.Fatal(JS(r.Emitted[0]))
	}
}

func TestButtonFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)

	r := process(t, h, "!menu")
	if len(r.Emitted) != 1 || r.Emitted[0].Message.View == nil {
		t.Fatal(JS(r))
	}
	v := r.Emitted[0].Message.View
	if len(v.Buttons) != 1 || v.Buttons[0].Style != core.StyleSuccess {
		t.Fatal(JS(v))
	}

	r = process(t, h, &Inbound{
		Type:     MsgComponent,
		Id:       "i1",
		CustomId: v.Buttons[0].CustomId,
	})
	if len(r.Emitted) != 1 {
		t.Fatal(JS(r))
	}
	if e := r.Emitted[0]; e.Op != OpRespond || e.To != "i1" || e.Message.Content() != "clicked" {
		t.Fatal(JS(e))
	}

	r, err := h.ProcessMsg(ctx, &Inbound{
		Type:     MsgComponent,
		CustomId: "nope",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Errors) != 1 || r.Emitted[0].Op != OpError {
		t.Fatal(JS(r))
	}
}

func TestModalFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)

	if r, _ := h.ProcessMsg(ctx, "!ask"); len(r.Emitted) != 0 {
		t.Fatal("prefix invocation of a slash-only command")
	}

	r := process(t, h, &Inbound{
		Type: MsgCommand,
		Id:   "i1",
		Name: "ask",
	})
	if len(r.Emitted) != 1 || r.Emitted[0].Op != OpModal {
		t.Fatal(JS(r))
	}
	form := r.Emitted[0].Modal
	if form.Title != "Survey" || len(form.Inputs) != 1 {
		t.Fatal(JS(form))
	}

	submit := &Inbound{
		Type:     MsgModal,
		Id:       "i2",
		CustomId: form.CustomId,
		Inputs:   map[string]string{"color": "blue"},
	}
	r = process(t, h, submit)
	if got := r.Emitted[0].Message.Content(); got != "You like blue" {
		t.Fatal(got)
	}

	// A modal is submitted once.
	if r, _ = h.ProcessMsg(ctx, submit); len(r.Errors) != 1 {
		t.Fatal(JS(r))
	}
}

func TestEventToChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)

	r := process(t, h, &Inbound{
		Type:  MsgEvent,
		Event: "member_join",
		Args:  []string{"Bart"},
	})
	want := []*Emitted{{
		Op:      OpSend,
		Channel: "lobby",
		Message: &core.Outbound{
			Params: map[string]interface{}{"content": "Welcome Bart"},
		},
	}}
	if diff := cmp.Diff(want, r.Emitted); diff != "" {
		t.Fatal(diff)
	}
}

func TestRestrictedChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h, _ := newTestHub(t, ctx, nil)
	h.channels = map[string]bool{}

	r, err := h.ProcessMsg(ctx, &Inbound{
		Type:  MsgEvent,
		Event: "member_join",
		Args:  []string{"Bart"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Errors) != 1 || !strings.Contains(r.Errors[0], "lobby") {
		t.Fatal(JS(r))
	}
}

func TestScheduledTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := timers.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	h, e := newTestHub(t, ctx, clock)

	if err := e.Start(ctx); err != nil {
		t.Fatal(err)
	}

	r := <-h.Results()
	if len(r.Emitted) != 1 || r.Emitted[0].Op != OpSync {
		t.Fatal(JS(r))
	}
	if n := len(r.Emitted[0].Commands); n != 3 {
		t.Fatalf("synced %d commands", n)
	}

	for i := 0; i < 2; i++ {
		r = <-h.Results()
		if got := r.Emitted[0].Message.Content(); r.Emitted[0].Channel != "lobby" || got != "tick" {
			t.Fatal(JS(r))
		}
		clock.WaitForTimers(1)
		clock.Advance(30 * time.Second)
	}
}

func TestParseCommand(t *testing.T) {
	s := core.DefaultSettings()
	for _, c := range []struct {
		content string
		strip   bool
		name    string
		args    []string
		ok      bool
	}{
		{"!ping", false, "ping", []string{}, true},
		{"!ping  a b", false, "ping", []string{"a", "b"}, true},
		{"! ping", false, "", nil, false},
		{"! ping", true, "ping", []string{}, true},
		{"ping", false, "", nil, false},
		{"!", false, "", nil, false},
	} {
		s.StripAfterPrefix = c.strip
		name, args, ok := ParseCommand(s, c.content)
		if ok != c.ok || name != c.name {
			t.Fatalf("%q: %q %v", c.content, name, ok)
		}
		if ok && len(args) != len(c.args) {
			t.Fatalf("%q: %q", c.content, args)
		}
	}
}

func TestParseInbound(t *testing.T) {
	if _, err := ParseInbound(map[string]interface{}{"type": "frob"}); err == nil {
		t.Fatal("unknown type accepted")
	}
	in, err := ParseInbound(map[string]interface{}{"content": "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if in.Type != MsgMessage {
		t.Fatal(in.Type)
	}
}

func TestStdio(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out strings.Builder
	s := NewStdio(false)
	s.In = strings.NewReader("# comment\n!greet Lisa\n{\"type\":\"event\",\"event\":\"member_join\",\"args\":[\"Bart\"]}\n")
	s.Out = &out
	s.Tags = true

	root, _ := markup.ParseString(testBot)
	m, _ := markup.Normalize(root)
	doc, _, _ := config.Resolve(m)

	h, err := NewHub(ctx, &HubConf{
		Settings:       doc.Settings,
		DefaultChannel: "general",
		HaltOnInputEOF: true,
	}, s)
	if err != nil {
		t.Fatal(err)
	}
	h.Logger = quiet
	if _, report := core.Synthesize(ctx, doc, h, core.Options{Logger: quiet}); report.Err() != nil {
		t.Fatal(report.Err())
	}
	if err := h.Loop(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	s.Stop(context.Background())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatal(out.String())
	}
	if !strings.HasPrefix(lines[0], "emit ") || !strings.Contains(lines[0], "Hello Lisa") {
		t.Fatal(lines[0])
	}
	if !strings.Contains(lines[1], "Welcome Bart") {
		t.Fatal(lines[1])
	}
}
