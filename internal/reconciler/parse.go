package reconciler

import (
	"bufio"
	"strings"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

// route(8) reports outcomes only as text. Every substring heuristic lives in
// this file so that it can be pinned by tests and replaced in one place.

const (
	addedMessage   = "Route added"
	removedMessage = "Route removed"
)

var (
	existsMarkers   = []string{"file exists", "already exists"}
	notFoundMarkers = []string{"not in table"}
)

func empty(output string) bool {
	s := strings.TrimSpace(output)
	return s == "" || s == model.NoOutput
}

func containsAny(lower string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// ParseAddOutput classifies the output of `route add`.
func ParseAddOutput(output string) (success bool, message string) {
	if empty(output) {
		return true, addedMessage
	}
	lower := strings.ToLower(output)
	if containsAny(lower, existsMarkers) || strings.Contains(lower, "error") {
		return false, output
	}
	return true, output
}

// ParseDeleteOutput classifies the output of `route delete`.
func ParseDeleteOutput(output string) (success bool, message string) {
	if empty(output) {
		return true, removedMessage
	}
	lower := strings.ToLower(output)
	if containsAny(lower, notFoundMarkers) || strings.Contains(lower, "error") {
		return false, output
	}
	return true, output
}

// fieldValue returns the value of the first "key: value" line in output.
func fieldValue(output, key string) (string, bool) {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		k, v, ok := strings.Cut(strings.TrimSpace(sc.Text()), ":")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// ParseStatusOutput reports whether `route -n get` output shows the route
// installed: the gateway field (or interface field for interface routes)
// must equal the configured value.
func ParseStatusOutput(output string, s Strategy, r *model.Route) bool {
	if s == StrategyInterface {
		v, ok := fieldValue(output, "interface")
		return ok && v == r.Interface
	}
	v, ok := fieldValue(output, "gateway")
	return ok && v == r.Gateway
}

// ParseGatewayOutput extracts the gateway from `route -n get` output.
func ParseGatewayOutput(output string) (string, bool) {
	v, ok := fieldValue(output, "gateway")
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
