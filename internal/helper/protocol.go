package helper

import "github.com/martinsuchenak/routekeeper/internal/model"

// Endpoints served by the helper on its unix socket.
const (
	CommandPath = "/v1/command"
	HealthPath  = "/v1/health"
	MetricsPath = "/v1/metrics"
)

// CommandRequest asks the helper to run one shell command line.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResponse carries the command's text output. Kind is set only when
// the helper itself gave up on the command (timeout).
type CommandResponse struct {
	Output string            `json:"output"`
	Kind   model.FailureKind `json:"kind,omitempty"`
}

// HealthResponse reports that the helper is up.
type HealthResponse struct {
	Status  string `json:"status"`
	PID     int    `json:"pid"`
	Version string `json:"version,omitempty"`
}
