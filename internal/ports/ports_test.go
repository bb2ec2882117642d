package ports

import (
	"context"
	"errors"
	"testing"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

const hardwarePorts = `
Hardware Port: Ethernet
Device: en0
Ethernet Address: 3c:22:fb:00:00:01

Hardware Port: Wi-Fi
Device: en1
Ethernet Address: 3c:22:fb:00:00:02

Hardware Port: Thunderbolt Bridge
Device: bridge0
Ethernet Address: N/A

VLAN Configurations
===================
`

type stubRunner struct {
	outputs  map[string]model.CommandResult
	commands []string
}

func (s *stubRunner) RunCommand(ctx context.Context, command string) model.CommandResult {
	s.commands = append(s.commands, command)
	if res, ok := s.outputs[command]; ok {
		return res
	}
	return model.CommandResult{Output: model.NoOutput}
}

func TestParseHardwarePorts(t *testing.T) {
	ports := ParseHardwarePorts(hardwarePorts)
	if len(ports) != 3 {
		t.Fatalf("got %d ports, want 3: %+v", len(ports), ports)
	}
	want := []model.NetworkPort{
		{HardwarePort: "Ethernet", Device: "en0", EthernetAddress: "3c:22:fb:00:00:01"},
		{HardwarePort: "Wi-Fi", Device: "en1", EthernetAddress: "3c:22:fb:00:00:02"},
		{HardwarePort: "Thunderbolt Bridge", Device: "bridge0", EthernetAddress: "N/A"},
	}
	for i := range want {
		if ports[i] != want[i] {
			t.Errorf("ports[%d] = %+v, want %+v", i, ports[i], want[i])
		}
	}

	if got := ParseHardwarePorts(model.NoOutput); len(got) != 0 {
		t.Fatalf("expected no ports, got %+v", got)
	}
}

func TestParseInterfaceStatus(t *testing.T) {
	tests := map[string]bool{
		"\tstatus: active":   true,
		"\tstatus: inactive": false,
		model.NoOutput:       false,
		"":                   false,
	}
	for in, want := range tests {
		if got := ParseInterfaceStatus(in); got != want {
			t.Errorf("ParseInterfaceStatus(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestListPorts(t *testing.T) {
	runner := &stubRunner{outputs: map[string]model.CommandResult{
		listCommand:                      {Output: hardwarePorts},
		"ifconfig en0 | grep status":     {Output: "status: active"},
		"ifconfig en1 | grep status":     {Output: "status: inactive"},
		"ifconfig bridge0 | grep status": {Output: "status: active"},
	}}

	ports, err := NewDiscovery(runner, nil).ListPorts(context.Background())
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if !ports[0].IsActive || ports[1].IsActive || !ports[2].IsActive {
		t.Fatalf("unexpected states: %+v", ports)
	}
	if len(runner.commands) != 4 {
		t.Fatalf("commands = %v", runner.commands)
	}
}

func TestListPortsFailure(t *testing.T) {
	runner := &stubRunner{outputs: map[string]model.CommandResult{
		listCommand: {Output: "Helper connection error: refused", Kind: model.FailureTransport},
	}}
	if _, err := NewDiscovery(runner, nil).ListPorts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type stubGateways map[string]string

func (s stubGateways) InterfaceGateway(ctx context.Context, iface string) (string, bool) {
	gw, ok := s[iface]
	return gw, ok
}

func TestGateway(t *testing.T) {
	d := NewDiscovery(&stubRunner{}, stubGateways{"en0": "192.168.1.1"})
	gw, err := d.Gateway(context.Background(), "en0")
	if err != nil || gw != "192.168.1.1" {
		t.Fatalf("Gateway(en0) = %q, %v", gw, err)
	}
	if _, err := d.Gateway(context.Background(), "en9"); !errors.Is(err, ErrNoGateway) {
		t.Fatalf("expected ErrNoGateway, got %v", err)
	}
	if _, err := NewDiscovery(&stubRunner{}, nil).Gateway(context.Background(), "en0"); !errors.Is(err, ErrNoGateway) {
		t.Fatalf("expected ErrNoGateway without resolver, got %v", err)
	}
}
