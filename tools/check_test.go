package tools

import (
	"context"
	"testing"

	"github.com/xmlcord/xmlcord/interpreters/noop"
	"github.com/xmlcord/xmlcord/util/testutil"
)

func TestCheck(t *testing.T) {
	logger := testutil.Logger(t)
	runner := noop.NewRunner()
	runner.Silent = true

	report, dangling, err := Check(context.Background(), testDoc(t), runner, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err = report.Err(); err != nil {
		t.Fatal(err)
	}
	if len(report.Registered) != 5 {
		t.Fatal(report.Registered)
	}
	if len(dangling) != 1 || dangling[0].Name != "nowhere" {
		t.Fatal(dangling)
	}
	if len(report.Warnings) == 0 {
		t.Fatal("wanted a warning about view nowhere")
	}
}
