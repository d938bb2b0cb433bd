package clifmt_test

import (
	"strings"
	"testing"

	"github.com/quilldsl/quill/internal/clifmt"
)

func TestNeverModeEmitsNoEscapes(t *testing.T) {
	f := clifmt.New(clifmt.Never)
	got := f.Error("boom")
	if got != "boom" {
		t.Errorf("Error(%q) = %q, want plain text", "boom", got)
	}
}

func TestAlwaysModeWrapsInEscapes(t *testing.T) {
	f := clifmt.New(clifmt.Always)
	got := f.OK("done")
	if !strings.Contains(got, "done") || !strings.Contains(got, "\x1b[") {
		t.Errorf("OK(%q) = %q, want ANSI-wrapped", "done", got)
	}
}
