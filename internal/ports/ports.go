// Package ports lists hardware network ports and their link state.
package ports

import (
	"bufio"
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

const listCommand = "networksetup -listallhardwareports"

var deviceName = regexp.MustCompile(`^[A-Za-z0-9._-]{1,32}$`)

// CommandRunner runs one shell command line.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) model.CommandResult
}

// GatewayResolver finds the gateway an interface routes through.
type GatewayResolver interface {
	InterfaceGateway(ctx context.Context, iface string) (string, bool)
}

// ErrNoGateway is returned when an interface has no default gateway.
var ErrNoGateway = errors.New("no gateway found for interface")

// Discovery lists ports through a CommandRunner.
type Discovery struct {
	runner   CommandRunner
	gateways GatewayResolver
}

func NewDiscovery(runner CommandRunner, gateways GatewayResolver) *Discovery {
	return &Discovery{runner: runner, gateways: gateways}
}

// Gateway returns the gateway used by device.
func (d *Discovery) Gateway(ctx context.Context, device string) (string, error) {
	if d.gateways == nil {
		return "", ErrNoGateway
	}
	gw, ok := d.gateways.InterfaceGateway(ctx, device)
	if !ok {
		return "", ErrNoGateway
	}
	return gw, nil
}

// ListPorts returns a fresh snapshot of all hardware ports.
func (d *Discovery) ListPorts(ctx context.Context) ([]model.NetworkPort, error) {
	res := d.runner.RunCommand(ctx, listCommand)
	if !res.Delivered() {
		return nil, errors.New(res.Output)
	}

	ports := ParseHardwarePorts(res.Output)
	for i := range ports {
		ports[i].IsActive = d.isActive(ctx, ports[i].Device)
	}
	log.Debug("Listed hardware ports", "count", len(ports))
	return ports, nil
}

func (d *Discovery) isActive(ctx context.Context, device string) bool {
	if !deviceName.MatchString(device) {
		return false
	}
	res := d.runner.RunCommand(ctx, "ifconfig "+device+" | grep status")
	if !res.Delivered() {
		return false
	}
	return ParseInterfaceStatus(res.Output)
}

// ParseHardwarePorts reads the blocks printed by
// `networksetup -listallhardwareports`.
func ParseHardwarePorts(output string) []model.NetworkPort {
	ports := []model.NetworkPort{}
	var current *model.NetworkPort

	flush := func() {
		if current != nil && current.HardwarePort != "" {
			ports = append(ports, *current)
		}
		current = nil
	}

	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Hardware Port":
			flush()
			current = &model.NetworkPort{HardwarePort: value}
		case "Device":
			if current != nil {
				current.Device = value
			}
		case "Ethernet Address":
			if current != nil {
				current.EthernetAddress = value
			}
		}
	}
	flush()
	return ports
}

// ParseInterfaceStatus reads `ifconfig <dev> | grep status`. Only an explicit
// "status: active" counts; "inactive" or no status line means down.
func ParseInterfaceStatus(output string) bool {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "inactive") {
		return false
	}
	return strings.Contains(lower, "status: active")
}
