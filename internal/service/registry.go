package service

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// State is the registration state of the helper with the OS service manager.
type State string

const (
	StateNoService        State = "not_registered"
	StateRequiresApproval State = "requires_approval"
	StateEnabled          State = "enabled"
	StateError            State = "error"
)

var ErrPermissionDenied = errors.New("permission denied registering the helper service")

// Registry registers the helper with the OS service manager.
type Registry interface {
	Register(ctx context.Context) (State, error)
	Unregister(ctx context.Context) error
	Status(ctx context.Context) (State, error)
}

// Status is a registration state plus a user-facing explanation.
type Status struct {
	State   State  `json:"state"`
	Message string `json:"message"`
}

// Enabled reports whether commands can be sent to the helper.
func (s Status) Enabled() bool {
	return s.State == StateEnabled
}

func describe(state State) string {
	switch state {
	case StateEnabled:
		return "Helper service is installed and enabled"
	case StateRequiresApproval:
		return "Helper service is registered but needs approval in System Settings > General > Login Items"
	case StateNoService:
		return "Helper service is not installed"
	default:
		return "Helper service is in an unknown state"
	}
}

func (s Status) String() string {
	return fmt.Sprintf("%s (%s)", s.State, s.Message)
}

// ManualRegistry is used where no service manager integration exists: the
// helper is started by hand and is considered enabled while its socket exists.
type ManualRegistry struct {
	Socket string
}

func (r *ManualRegistry) Register(ctx context.Context) (State, error) {
	if state, _ := r.Status(ctx); state == StateEnabled {
		return StateEnabled, nil
	}
	return StateError, fmt.Errorf("no service manager integration on this platform: start `sudo routekeeper helper --helper-socket %s` manually", r.Socket)
}

// Unregister cannot stop a hand-started helper. It fails while the socket
// is still live so callers never report a running helper as removed.
func (r *ManualRegistry) Unregister(ctx context.Context) error {
	state, err := r.Status(ctx)
	if err != nil {
		return err
	}
	if state == StateEnabled {
		return fmt.Errorf("no service manager integration on this platform: stop the running helper by hand (socket %s)", r.Socket)
	}
	return nil
}

func (r *ManualRegistry) Status(ctx context.Context) (State, error) {
	fi, err := os.Stat(r.Socket)
	if errors.Is(err, os.ErrNotExist) {
		return StateNoService, nil
	}
	if err != nil {
		return StateError, err
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return StateError, fmt.Errorf("%s is not a socket", r.Socket)
	}
	return StateEnabled, nil
}
