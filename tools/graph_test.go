package tools

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xmlcord/xmlcord/config"
	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/markup"
)

var testBot = `
<bot>
  <commands>
    <menu description="Show the **menu**">
      <message view="picker">Pick one</message>
    </menu>
    <ask>
      <response type="modal" name="survey"/>
    </ask>
    <lost>
      <message view="nowhere">?</message>
    </lost>
  </commands>
  <events>
    <member_join>
      <channel_message id="lobby">Welcome</channel_message>
    </member_join>
  </events>
  <tasks>
    <tick seconds="30" enabled="true">
      <channel_message id="lobby">tick</channel_message>
      <channel_message id="{var(where)}">tock</channel_message>
    </tick>
  </tasks>
  <views>
    <picker>
      <button label="Yes" style="green">
        <on_click><open_modal>survey</open_modal></on_click>
      </button>
    </picker>
  </views>
  <modals>
    <survey title="Survey">
      <input name="color" label="Color"/>
      <on_submit><response>Thanks</response></on_submit>
    </survey>
  </modals>
</bot>`

func testDoc(t *testing.T) *core.Document {
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
	return doc
}

func TestAnalyze(t *testing.T) {
	g := Analyze(testDoc(t))

	var (
		menu   = Node{KindCommand, "menu"}
		ask    = Node{KindCommand, "ask"}
		lost   = Node{KindCommand, "lost"}
		join   = Node{KindEvent, "member_join"}
		tick   = Node{KindTask, "tick"}
		picker = Node{KindView, "picker"}
		survey = Node{KindModal, "survey"}
		lobby  = Node{KindChannel, "lobby"}
	)

	wantNodes := []Node{menu, ask, lost, join, tick, picker, survey, lobby}
	if diff := cmp.Diff(wantNodes, g.Nodes); diff != "" {
		t.Fatal(diff)
	}

	wantEdges := []Edge{
		{menu, picker, "message"},
		{ask, survey, "response"},
		{lost, Node{KindView, "nowhere"}, "message"},
		{join, lobby, "channel_message"},
		{tick, lobby, "channel_message"},
		{picker, survey, "open_modal"},
	}
	if diff := cmp.Diff(wantEdges, g.Edges); diff != "" {
		t.Fatal(diff)
	}

	if diff := cmp.Diff([]Node{{KindView, "nowhere"}}, g.Dangling); diff != "" {
		t.Fatal(diff)
	}

	if g.Docs[menu] != "Show the **menu**" {
		t.Fatal(g.Docs[menu])
	}
}

func TestNodeId(t *testing.T) {
	if id := (Node{KindChannel, "general-chat 2"}).Id(); id != "channel_general_chat_2" {
		t.Fatal(id)
	}
}
