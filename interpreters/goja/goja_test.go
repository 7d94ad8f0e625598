package goja

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xmlcord/xmlcord/core"
	. "github.com/xmlcord/xmlcord/util/testutil"
)

func TestRunSimple(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	r := NewRunner()
	bs, err := r.RunScript(ctx, `return {likes:"chips"};`, nil)
	if err != nil {
		t.Fatal(err)
	}
	x, have := bs["likes"]
	if !have {
		t.Fatalf("nothing liked in %#v", bs)
	}
	s, is := x.(string)
	if !is {
		t.Fatalf("liked %#v is a %T, not a %T", x, x, s)
	}
	if s != "chips" {
		t.Fatalf("didn't want \"%s\"", s)
	}
}

func TestRunBindings(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	in := core.Bindings{
		"argument(n)": 3,
		"var(name)":   "Nova",
	}
	code := `var bs = _.bindings; return {total: bs["argument(n)"] * 2, who: bs["var(name)"]};`
	bs, err := NewRunner().RunScript(ctx, code, in)
	if err != nil {
		t.Fatal(err)
	}
	if JS(bs) != `{"total":6,"who":"Nova"}` {
		t.Fatal(JS(bs))
	}
	if len(in) != 2 {
		t.Fatal("input bindings modified")
	}
}

func TestRunNoResult(t *testing.T) {
	bs, err := NewRunner().RunScript(context.Background(), `var x = 1;`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bs != nil {
		t.Fatal(bs)
	}
	if _, err = NewRunner().RunScript(context.Background(), `return 42;`, nil); err == nil {
		t.Fatal("a number isn't an object")
	}
}

func TestRunTimeout(t *testing.T) {
	code := `for (;;) { sleep(10); }`

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := NewRunner()
	r.Testing = true
	_, err := r.RunScript(ctx, code, nil)
	if err == nil {
		t.Fatal("didn't timeout")
	}
	if msg := err.Error(); msg != InterruptedMessage {
		t.Fatalf("surprised by \"%s\"", msg)
	}
}

func TestRunError(t *testing.T) {
	if _, err := NewRunner().RunScript(context.Background(), `likes + tacos;`, nil); err == nil {
		t.Fatal("didn't protest")
	}
	if _, err := NewRunner().RunScript(context.Background(), `{{{`, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestRunCronNext(t *testing.T) {
	r := NewRunner()
	code := fmt.Sprintf(`return {next: _.cronNext("%s")};`, "* 0 * * *")
	bs, err := r.RunScript(context.Background(), code, nil)
	if err != nil {
		t.Fatal(err)
	}
	s, _ := bs["next"].(string)
	if _, err = time.Parse(time.RFC3339Nano, s); err != nil {
		t.Fatal(err)
	}

	code = fmt.Sprintf(`return {next: _.cronNext("%s")};`, "bad")
	if _, err = r.RunScript(context.Background(), code, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestRunRequire(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "double.js"), []byte(`function double(x) { return 2*x; }`), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRunner()
	r.LibraryDir = dir
	bs, err := r.RunScript(context.Background(), `eval(_.require("double.js")); return {n: double(21)};`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if JS(bs) != `{"n":42}` {
		t.Fatal(JS(bs))
	}
}
