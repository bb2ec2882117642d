package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/martinsuchenak/routekeeper/internal/log"
)

const launchDaemonsDir = "/Library/LaunchDaemons"

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardErrorPath</key>
	<string>/var/log/{{.Label}}.log</string>
</dict>
</plist>
`))

// ToolRunner runs an external tool and returns its combined output.
type ToolRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// LaunchdRegistry installs the helper as a launchd system daemon.
type LaunchdRegistry struct {
	Label      string
	Socket     string
	Executable string
	Dir        string

	run        ToolRunner
	isElevated func() bool
}

// NewLaunchdRegistry registers executable (this binary) to run `helper`.
func NewLaunchdRegistry(label, socket, executable string) *LaunchdRegistry {
	return &LaunchdRegistry{
		Label:      label,
		Socket:     socket,
		Executable: executable,
		Dir:        launchDaemonsDir,
		run:        execTool,
		isElevated: func() bool { return os.Geteuid() == 0 },
	}
}

func (r *LaunchdRegistry) plistPath() string {
	return filepath.Join(r.Dir, r.Label+".plist")
}

func (r *LaunchdRegistry) renderPlist() ([]byte, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Label string
		Args  []string
	}{
		Label: r.Label,
		Args:  []string{r.Executable, "helper", "--helper-socket", r.Socket, "--helper-label", r.Label},
	})
	return buf.Bytes(), err
}

func (r *LaunchdRegistry) Register(ctx context.Context) (State, error) {
	if !r.isElevated() {
		return StateError, fmt.Errorf("%w: run `sudo routekeeper service install` or enable the helper manually in System Settings", ErrPermissionDenied)
	}

	data, err := r.renderPlist()
	if err != nil {
		return StateError, fmt.Errorf("rendering launchd plist: %w", err)
	}
	if err := os.WriteFile(r.plistPath(), data, 0o644); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return StateError, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return StateError, fmt.Errorf("writing launchd plist: %w", err)
	}

	out, err := r.run(ctx, "launchctl", "bootstrap", "system", r.plistPath())
	if err != nil {
		text := string(out)
		if strings.Contains(text, "Operation not permitted") || strings.Contains(text, "disabled") {
			log.Warn("Helper registered but blocked pending approval", "label", r.Label, "output", strings.TrimSpace(text))
			return StateRequiresApproval, nil
		}
		if strings.Contains(text, "already") || strings.Contains(text, "service already loaded") {
			return StateEnabled, nil
		}
		return StateError, fmt.Errorf("launchctl bootstrap: %w: %s", err, strings.TrimSpace(text))
	}
	return StateEnabled, nil
}

func (r *LaunchdRegistry) Unregister(ctx context.Context) error {
	if _, err := os.Stat(r.plistPath()); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if !r.isElevated() {
		return fmt.Errorf("%w: run `sudo routekeeper service uninstall`", ErrPermissionDenied)
	}

	out, err := r.run(ctx, "launchctl", "bootout", "system/"+r.Label)
	if err != nil && !notLoaded(string(out)) {
		return fmt.Errorf("launchctl bootout: %w: %s", err, strings.TrimSpace(string(out)))
	}
	if err := os.Remove(r.plistPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing launchd plist: %w", err)
	}
	return nil
}

func (r *LaunchdRegistry) Status(ctx context.Context) (State, error) {
	if _, err := os.Stat(r.plistPath()); errors.Is(err, os.ErrNotExist) {
		return StateNoService, nil
	} else if err != nil {
		return StateError, fmt.Errorf("checking launchd plist: %w", err)
	}

	out, err := r.run(ctx, "launchctl", "print", "system/"+r.Label)
	if err == nil {
		return StateEnabled, nil
	}
	if notLoaded(string(out)) {
		return StateRequiresApproval, nil
	}
	return StateError, fmt.Errorf("launchctl print: %w: %s", err, strings.TrimSpace(string(out)))
}

func notLoaded(out string) bool {
	return strings.Contains(out, "Could not find service") ||
		strings.Contains(out, "No such process") ||
		strings.Contains(out, "not find")
}

// NewRegistry picks the registry for the running platform.
func NewRegistry(label, socket string) Registry {
	if runtime.GOOS == "darwin" {
		exe, err := os.Executable()
		if err == nil {
			return NewLaunchdRegistry(label, socket, exe)
		}
		log.Warn("Cannot locate own executable, falling back to manual helper management", "error", err)
	}
	return &ManualRegistry{Socket: socket}
}
