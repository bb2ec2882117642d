package probe

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-ping/ping"
)

// ICMPPinger sends a single echo request.
type ICMPPinger struct {
	privileged bool
}

func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{privileged: os.Geteuid() == 0 || canUseRawSocket()}
}

// Ping reports whether ip answered and the round trip time. Without raw
// socket access it returns false immediately so the caller can fall back.
func (p *ICMPPinger) Ping(ctx context.Context, ip string, timeout time.Duration) (bool, time.Duration, error) {
	if !p.privileged {
		return false, 0, nil
	}

	pinger, err := ping.NewPinger(ip)
	if err != nil {
		return false, 0, fmt.Errorf("creating pinger: %w", err)
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(true)

	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return false, 0, ctx.Err()
	case err := <-done:
		if err != nil {
			return false, 0, fmt.Errorf("ping %s: %w", ip, err)
		}
	}

	stats := pinger.Statistics()
	return stats.PacketsRecv > 0, stats.AvgRtt, nil
}

func canUseRawSocket() bool {
	conn, err := net.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
