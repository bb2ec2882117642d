package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/helper"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

type fakeRegistry struct {
	state       State
	statusErr   error
	registerErr error
	registered  int
	removed     int
}

func (f *fakeRegistry) Register(ctx context.Context) (State, error) {
	f.registered++
	if f.registerErr != nil {
		return StateError, f.registerErr
	}
	f.state = StateEnabled
	return f.state, nil
}

func (f *fakeRegistry) Unregister(ctx context.Context) error {
	f.removed++
	f.state = StateNoService
	return nil
}

func (f *fakeRegistry) Status(ctx context.Context) (State, error) {
	return f.state, f.statusErr
}

func socketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "rk")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "h.sock")
}

// startHelper serves an unauthenticated helper on socket and returns a stop func.
func startHelper(t *testing.T, socket string) func() {
	t.Helper()
	l, err := helper.Listen(socket)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		helper.NewServer(helper.NewExecutor(5*time.Second), nil, "test").Serve(ctx, l)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func TestRunCommandShortCircuitsWhenNotEnabled(t *testing.T) {
	for _, state := range []State{StateNoService, StateRequiresApproval} {
		reg := &fakeRegistry{state: state}
		m := NewManager(reg, socketPath(t), time.Second)
		dials := 0
		m.dial = func(ctx context.Context) (*Connection, error) {
			dials++
			return nil, errors.New("should not dial")
		}

		res := m.RunCommand(context.Background(), "route -n get 1.1.1.1")
		if res.Kind != model.FailureUnavailable {
			t.Fatalf("%s: kind = %q", state, res.Kind)
		}
		if !strings.HasPrefix(res.Output, unavailablePrefix) {
			t.Fatalf("%s: output = %q", state, res.Output)
		}
		if dials != 0 {
			t.Fatalf("%s: IPC attempted %d times", state, dials)
		}
	}
}

func TestRunCommandStatusErrorIsUnavailable(t *testing.T) {
	m := NewManager(&fakeRegistry{statusErr: errors.New("launchctl missing")}, socketPath(t), time.Second)
	res := m.RunCommand(context.Background(), "true")
	if res.Kind != model.FailureUnavailable || !strings.Contains(res.Output, "launchctl missing") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunCommandThroughHelper(t *testing.T) {
	socket := socketPath(t)
	stop := startHelper(t, socket)
	defer stop()

	m := NewManager(&fakeRegistry{state: StateEnabled}, socket, 5*time.Second)
	res := m.RunCommand(context.Background(), "echo routed")
	if res.Kind != model.FailureNone || res.Output != "routed" {
		t.Fatalf("unexpected result %+v", res)
	}

	first, err := m.GetConnection(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _ := m.GetConnection(context.Background())
	if first != second {
		t.Fatal("expected the connection to be reused")
	}
}

func TestRunCommandTransportFailure(t *testing.T) {
	m := NewManager(&fakeRegistry{state: StateEnabled}, socketPath(t), time.Second)
	res := m.RunCommand(context.Background(), "echo hi")
	if res.Kind != model.FailureTransport {
		t.Fatalf("kind = %q (%s)", res.Kind, res.Output)
	}
	if !strings.HasPrefix(res.Output, transportPrefix) {
		t.Fatalf("output = %q", res.Output)
	}
	if m.conn != nil {
		t.Fatal("no connection should be cached after a failed connect")
	}
}

func TestReconnectAfterHelperRestart(t *testing.T) {
	socket := socketPath(t)
	stop := startHelper(t, socket)

	m := NewManager(&fakeRegistry{state: StateEnabled}, socket, 5*time.Second)
	if res := m.RunCommand(context.Background(), "echo one"); res.Output != "one" {
		t.Fatalf("first command: %+v", res)
	}

	stop()
	res := m.RunCommand(context.Background(), "echo two")
	if res.Kind != model.FailureTransport {
		t.Fatalf("expected transport failure while helper is down, got %+v", res)
	}
	if m.conn != nil {
		t.Fatal("connection should be invalidated")
	}

	stop = startHelper(t, socket)
	defer stop()
	if res := m.RunCommand(context.Background(), "echo three"); res.Output != "three" {
		t.Fatalf("after restart: %+v", res)
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	reg := &fakeRegistry{state: StateEnabled}
	m := NewManager(reg, socketPath(t), time.Second)
	st := m.Install(context.Background())
	if !st.Enabled() || reg.registered != 0 {
		t.Fatalf("install on enabled helper: %v, registered=%d", st, reg.registered)
	}

	reg.state = StateNoService
	st = m.Install(context.Background())
	if !st.Enabled() || reg.registered != 1 {
		t.Fatalf("install: %v, registered=%d", st, reg.registered)
	}
}

func TestInstallPermissionDenied(t *testing.T) {
	reg := &fakeRegistry{state: StateNoService, registerErr: ErrPermissionDenied}
	m := NewManager(reg, socketPath(t), time.Second)
	st := m.Install(context.Background())
	if st.State != StateError || !strings.HasPrefix(st.Message, "Permission denied") {
		t.Fatalf("unexpected status %v", st)
	}
}

func TestUninstall(t *testing.T) {
	reg := &fakeRegistry{state: StateNoService}
	m := NewManager(reg, socketPath(t), time.Second)
	if st := m.Uninstall(context.Background()); st.State != StateNoService || reg.removed != 0 {
		t.Fatalf("uninstall of missing helper: %v removed=%d", st, reg.removed)
	}

	reg.state = StateEnabled
	if st := m.Uninstall(context.Background()); st.State != StateNoService || reg.removed != 1 {
		t.Fatalf("uninstall: %v removed=%d", st, reg.removed)
	}
}

func TestUninstallManualHelperStillRunning(t *testing.T) {
	socket := socketPath(t)
	stop := startHelper(t, socket)
	m := NewManager(&ManualRegistry{Socket: socket}, socket, time.Second)

	st := m.Uninstall(context.Background())
	if st.State != StateError || !strings.Contains(st.Message, "stop the running helper") {
		t.Fatalf("uninstall with live helper: %v", st)
	}
	if st := m.Status(context.Background()); st.State != StateEnabled {
		t.Fatalf("status after failed uninstall = %v", st)
	}

	stop()
	if err := os.Remove(socket); err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if st := m.Uninstall(context.Background()); st.State != StateNoService {
		t.Fatalf("uninstall after helper stopped: %v", st)
	}
}
