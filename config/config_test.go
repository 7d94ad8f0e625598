package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xmlcord/xmlcord/core"
	"github.com/xmlcord/xmlcord/markup"
)

func resolve(t *testing.T, src string) (*core.Document, []error) {
	root, err := markup.ParseString(src)
	if err != nil {
		t.Fatal(err)
	}
	m, err := markup.Normalize(root)
	if err != nil {
		t.Fatal(err)
	}
	doc, warnings, err := Resolve(m)
	if err != nil {
		t.Fatal(err)
	}
	return doc, warnings
}

func TestResolve(t *testing.T) {
	doc, warnings := resolve(t, `
<bot>
  <config>
    <tag prefix="$" case_insensitive="True"/>
    <tag ignore_self="true" prefix="%"/>
    <tag limit="10"/>
  </config>
  <commands><ping><message>pong</message></ping></commands>
  <scheduled-tasks><tick seconds="5"><log>tick</log></tick></scheduled-tasks>
  <frobs/>
</bot>`)

	want := core.Tags{
		"prefix":           "%",
		"case_insensitive": true,
		"ignore_self":      true,
		"limit":            "10",
	}
	if diff := cmp.Diff(want, doc.Tags); diff != "" {
		t.Fatal(diff)
	}
	if doc.Settings.Prefix != "%" || !doc.Settings.IgnoreSelf || !doc.Settings.CaseInsensitive || !doc.Settings.SyncCommands {
		t.Fatalf("%#v", doc.Settings)
	}
	if !doc.Commands.Has("ping") || !doc.Tasks.Has("tick") {
		t.Fatal("missing declarations")
	}
	if doc.Events.Len() != 0 || doc.Views.Len() != 0 || doc.Modals.Len() != 0 {
		t.Fatal("missing sections should be empty")
	}
	var unknown *UnknownSection
	if len(warnings) != 1 || !errors.As(warnings[0], &unknown) || unknown.Name != "frobs" {
		t.Fatal(warnings)
	}
}

func TestResolveEmpty(t *testing.T) {
	doc, warnings := resolve(t, `<bot/>`)
	if 0 < len(warnings) {
		t.Fatal(warnings)
	}
	if doc.Settings.Prefix != "!" {
		t.Fatal(doc.Settings.Prefix)
	}
}

func TestInvalidSection(t *testing.T) {
	doc, warnings := resolve(t, `<bot><events>oops</events></bot>`)
	var invalid *InvalidSection
	if len(warnings) != 1 || !errors.As(warnings[0], &invalid) {
		t.Fatal(warnings)
	}
	if doc.Events.Len() != 0 {
		t.Fatal("invalid section should be empty")
	}
}

func TestTokenLiteral(t *testing.T) {
	doc, _ := resolve(t, `<bot><config><token>abc</token><tag token="x.json"/></config></bot>`)
	token, err := NewCredentials().Token(doc)
	if err != nil {
		t.Fatal(err)
	}
	if token != "abc" {
		t.Fatal(token)
	}
}

func TestTokenFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		filename := filepath.Join(dir, name)
		if err := os.WriteFile(filename, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return filename
	}

	for _, c := range []struct {
		file string
		src  string
		tags string
	}{
		{write("creds.yml", "token: from-yaml\n"), "", ""},
		{write("creds.json", `{"token":"from-json"}`), "", ""},
		{write("bot.env", "XMLCORD_TEST_TOKEN=from-env\n"), "", ` token_var="XMLCORD_TEST_TOKEN"`},
	} {
		doc, _ := resolve(t, `<bot><config><tag token="`+c.file+`"`+c.tags+`/></config></bot>`)
		token, err := NewCredentials().Token(doc)
		if err != nil {
			t.Fatal(err)
		}
		want := "from-" + Kind(c.file)
		if token != want {
			t.Fatalf("%s: got %q, wanted %q", c.file, token, want)
		}
	}
	os.Unsetenv("XMLCORD_TEST_TOKEN")
}

func TestTokenMissing(t *testing.T) {
	doc, _ := resolve(t, `<bot><config><tag token="creds.yaml"/></config></bot>`)

	creds := NewCredentials()
	delete(creds.Loaders, KindYAML)
	_, err := creds.Token(doc)
	var missing *MissingOptionalDependency
	if !errors.As(err, &missing) || missing.Kind != KindYAML {
		t.Fatalf("wanted MissingOptionalDependency, got %v", err)
	}

	var nf *CredentialNotFound
	doc, _ = resolve(t, `<bot/>`)
	if _, err = NewCredentials().Token(doc); !errors.As(err, &nf) {
		t.Fatalf("wanted CredentialNotFound, got %v", err)
	}

	doc, _ = resolve(t, `<bot><config><tag token="creds.txt"/></config></bot>`)
	if _, err = NewCredentials().Token(doc); !errors.As(err, &nf) {
		t.Fatalf("wanted CredentialNotFound, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "bot.xml")
	src := `<bot><commands><ping><message>pong</message></ping></commands></bot>`
	if err := os.WriteFile(filename, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	doc, _, err := Load(filename[:len(filename)-len(".xml")])
	if err != nil {
		t.Fatal(err)
	}
	if !doc.Commands.Has("ping") {
		t.Fatal("no ping")
	}

	var nf *markup.DocumentNotFound
	if _, _, err = Load(filepath.Join(t.TempDir(), "nope")); !errors.As(err, &nf) {
		t.Fatal(err)
	}
}

func TestPrefixElement(t *testing.T) {
	doc, _ := resolve(t, `<bot><config><prefix>?</prefix></config></bot>`)
	if doc.Settings.Prefix != "?" {
		t.Fatalf("got prefix %q", doc.Settings.Prefix)
	}

	doc, _ = resolve(t, `<bot><config><prefix>?</prefix><tag prefix="$"/></config></bot>`)
	if doc.Settings.Prefix != "$" {
		t.Fatalf("tag should win, got prefix %q", doc.Settings.Prefix)
	}
}
