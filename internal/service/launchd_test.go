package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type toolCall struct {
	name string
	args []string
}

type toolResult struct {
	out string
	err error
}

func newTestRegistry(t *testing.T, elevated bool, results map[string]toolResult) (*LaunchdRegistry, *[]toolCall) {
	t.Helper()
	var calls []toolCall
	r := NewLaunchdRegistry("com.example.helper", "/tmp/h.sock", "/usr/local/bin/routekeeper")
	r.Dir = t.TempDir()
	r.isElevated = func() bool { return elevated }
	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, toolCall{name: name, args: args})
		key := name + " " + strings.Join(args, " ")
		for prefix, res := range results {
			if strings.HasPrefix(key, prefix) {
				return []byte(res.out), res.err
			}
		}
		return nil, nil
	}
	return r, &calls
}

func TestLaunchdStatusWithoutPlist(t *testing.T) {
	r, calls := newTestRegistry(t, true, nil)
	state, err := r.Status(context.Background())
	if err != nil || state != StateNoService {
		t.Fatalf("Status = %s, %v", state, err)
	}
	if len(*calls) != 0 {
		t.Fatalf("launchctl should not be consulted, got %v", *calls)
	}
}

func TestLaunchdRegisterRequiresRoot(t *testing.T) {
	r, _ := newTestRegistry(t, false, nil)
	state, err := r.Register(context.Background())
	if !errors.Is(err, ErrPermissionDenied) || state != StateError {
		t.Fatalf("Register = %s, %v", state, err)
	}
}

func TestLaunchdRegisterWritesPlist(t *testing.T) {
	r, calls := newTestRegistry(t, true, nil)
	state, err := r.Register(context.Background())
	if err != nil || state != StateEnabled {
		t.Fatalf("Register = %s, %v", state, err)
	}

	data, err := os.ReadFile(filepath.Join(r.Dir, "com.example.helper.plist"))
	if err != nil {
		t.Fatalf("plist not written: %v", err)
	}
	for _, want := range []string{"<string>com.example.helper</string>", "<string>/usr/local/bin/routekeeper</string>", "<string>helper</string>", "<string>/tmp/h.sock</string>"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("plist missing %s", want)
		}
	}
	if len(*calls) != 1 || (*calls)[0].args[0] != "bootstrap" {
		t.Fatalf("unexpected calls %v", *calls)
	}
}

func TestLaunchdRegisterNeedsApproval(t *testing.T) {
	r, _ := newTestRegistry(t, true, map[string]toolResult{
		"launchctl bootstrap": {out: "Bootstrap failed: 1: Operation not permitted", err: errors.New("exit status 1")},
	})
	state, err := r.Register(context.Background())
	if err != nil || state != StateRequiresApproval {
		t.Fatalf("Register = %s, %v", state, err)
	}
}

func TestLaunchdStatusStates(t *testing.T) {
	r, _ := newTestRegistry(t, true, map[string]toolResult{
		"launchctl print": {out: "Could not find service \"com.example.helper\" in domain for system", err: errors.New("exit status 113")},
	})
	if err := os.WriteFile(r.plistPath(), []byte("<plist/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	state, err := r.Status(context.Background())
	if err != nil || state != StateRequiresApproval {
		t.Fatalf("Status = %s, %v", state, err)
	}

	r.run = func(ctx context.Context, name string, args ...string) ([]byte, error) { return []byte("state = running"), nil }
	if state, _ := r.Status(context.Background()); state != StateEnabled {
		t.Fatalf("Status = %s, want enabled", state)
	}
}

func TestLaunchdUnregister(t *testing.T) {
	r, calls := newTestRegistry(t, true, map[string]toolResult{
		"launchctl bootout": {out: "Boot-out failed: 3: No such process", err: errors.New("exit status 3")},
	})
	if err := r.Unregister(context.Background()); err != nil {
		t.Fatalf("Unregister without plist: %v", err)
	}
	if len(*calls) != 0 {
		t.Fatal("no launchctl call expected without a plist")
	}

	if err := os.WriteFile(r.plistPath(), []byte("<plist/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Unregister(context.Background()); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if _, err := os.Stat(r.plistPath()); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("plist should be removed")
	}
}
