package log

import (
	"bytes"
	"strings"
	"testing"

	logtesting "github.com/paularlott/logger/testing"
)

func TestFacadeForwardsToLogger(t *testing.T) {
	prev := current()
	t.Cleanup(func() { SetLogger(prev) })

	mock := logtesting.New()
	SetLogger(mock)

	Info("started", "addr", "127.0.0.1:7788")
	Warn("helper missing")
	Error("apply failed", "route", "office")
	Debug("probe")

	for _, level := range []string{"info", "warn", "error", "debug"} {
		if mock.CountEntries(level) != 1 {
			t.Errorf("%s entries = %d, want 1", level, mock.CountEntries(level))
		}
	}
	if !mock.HasEntry("warn", "helper missing") {
		t.Fatal("warn entry not recorded")
	}
	if last := mock.LastEntry(); last == nil || last.Message != "probe" {
		t.Fatalf("last entry = %+v", last)
	}
}

func TestRoleAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger("warn", "json", &buf).With("role", "helper")

	l.Info("not written")
	l.Warn("written", "socket", "/tmp/h.sock")

	out := buf.String()
	if strings.Contains(out, "not written") {
		t.Fatalf("info line passed a warn level: %s", out)
	}
	if !strings.Contains(out, `"role":"helper"`) || !strings.Contains(out, `"socket":"/tmp/h.sock"`) {
		t.Fatalf("missing attributes: %s", out)
	}
}
