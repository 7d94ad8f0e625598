package noop

import (
	"context"
	"errors"
	"testing"

	"github.com/xmlcord/xmlcord/core"
)

func TestRunScript(t *testing.T) {
	r := &Runner{Silent: true}
	bs, err := r.RunScript(context.Background(), `return {x:1};`, core.Bindings{"a": 1})
	if !errors.Is(err, core.ScriptsDisabled) {
		t.Fatal(err)
	}
	if bs != nil {
		t.Fatal(bs)
	}
}
