// Package probe inspects a route's gateway before the route is applied:
// is it reachable, and what is its hardware address.
package probe

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

const DefaultTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context, ip string, timeout time.Duration) (bool, time.Duration, error)
}

type macResolver interface {
	MAC(ctx context.Context, ip string, timeout time.Duration) (string, error)
}

type reacher interface {
	Reach(ctx context.Context, ip string, timeout time.Duration) (bool, time.Duration)
}

// Prober combines ICMP, TCP, ARP and reverse DNS lookups.
type Prober struct {
	ping    pinger
	arp     macResolver
	tcp     reacher
	lookup  func(ctx context.Context, addr string) ([]string, error)
	timeout time.Duration
}

func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{
		ping:    NewICMPPinger(),
		arp:     ARPResolver{},
		tcp:     TCPDialer{},
		lookup:  net.DefaultResolver.LookupAddr,
		timeout: timeout,
	}
}

// Probe never fails; what could not be learned is left empty.
func (p *Prober) Probe(ctx context.Context, gateway string) model.GatewayProbe {
	result := model.GatewayProbe{Gateway: gateway}
	if !ipv4.IsValidIPAddress(gateway) {
		return result
	}

	alive, rtt, err := p.ping.Ping(ctx, gateway, p.timeout)
	if err != nil {
		log.Debug("Gateway ping failed", "gateway", gateway, "error", err)
	}
	if alive {
		result.Reachable, result.Method, result.Latency = true, "icmp", rtt
	} else if ok, rtt := p.tcp.Reach(ctx, gateway, p.timeout); ok {
		result.Reachable, result.Method, result.Latency = true, "tcp", rtt
	}

	if result.Reachable {
		if mac, err := p.arp.MAC(ctx, gateway, p.timeout); err == nil {
			result.MACAddress = mac
		}
		if names, err := p.lookup(ctx, gateway); err == nil && len(names) > 0 {
			result.Hostname = strings.TrimSuffix(names[0], ".")
		}
	}

	log.Info("Probed gateway", "gateway", gateway, "reachable", result.Reachable, "method", result.Method, "mac", result.MACAddress)
	return result
}
