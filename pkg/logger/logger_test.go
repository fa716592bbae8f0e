package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(INFO)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(INFO)

	DebugC("test", "hidden")
	InfoC("test", "visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at INFO level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info line missing")
	}
}

func TestDebugLevelShowsEverything(t *testing.T) {
	buf := capture(t)
	SetLevel(DEBUG)

	DebugC("test", "dbg")
	ErrorC("test", "err")

	out := buf.String()
	for _, want := range []string{"[DEBUG]", "[ERROR]", "dbg", "err"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestComponentTag(t *testing.T) {
	buf := capture(t)

	InfoC("gateway", "started")
	if !strings.Contains(buf.String(), "[gateway] started") {
		t.Errorf("component tag missing: %s", buf.String())
	}
}

func TestFieldsSortedByKey(t *testing.T) {
	buf := capture(t)

	InfoCF("relay", "done", map[string]any{
		"zeta":  1,
		"alpha": "x",
		"mid":   true,
	})

	out := buf.String()
	alpha := strings.Index(out, "alpha=x")
	mid := strings.Index(out, "mid=true")
	zeta := strings.Index(out, "zeta=1")
	if alpha == -1 || mid == -1 || zeta == -1 {
		t.Fatalf("fields missing: %s", out)
	}
	if !(alpha < mid && mid < zeta) {
		t.Errorf("fields not sorted: %s", out)
	}
}
