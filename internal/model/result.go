package model

import "fmt"

// NoOutput stands in for a command that printed nothing.
const NoOutput = "No output"

// FailureKind classifies why a privileged command did not succeed.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureUnavailable FailureKind = "unavailable" // helper not installed or not enabled
	FailureTransport   FailureKind = "transport"   // connection to the helper failed
	FailureTimeout     FailureKind = "timeout"     // command exceeded its deadline
	FailureCommand     FailureKind = "command"     // the command's own output reports a failure
)

// CommandResult is the outcome of one privileged command. Output always holds
// text: the trimmed command output, or a prefixed explanation when the command
// never ran.
type CommandResult struct {
	Output string      `json:"output"`
	Kind   FailureKind `json:"kind,omitempty"`
}

// Delivered reports whether the command reached the helper and produced output.
func (r CommandResult) Delivered() bool {
	return r.Kind == FailureNone || r.Kind == FailureCommand
}

// RouteResult is the per-route outcome of an add or remove.
type RouteResult struct {
	RouteID   string      `json:"route_id"`
	RouteName string      `json:"route_name"`
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Kind      FailureKind `json:"kind,omitempty"`
}

// BatchSummary aggregates a batch of RouteResults.
type BatchSummary struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Results   []RouteResult `json:"results"`
}

// Summarize counts successes and failures, keeping results in input order.
func Summarize(results []RouteResult) BatchSummary {
	s := BatchSummary{Results: results}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// Message is the user-facing batch line, e.g. "2 succeeded, 1 failed".
func (s BatchSummary) Message() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}
