package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/j-keck/arping"
)

// ARPResolver looks up the hardware address of an on-link host.
type ARPResolver struct{}

// MAC returns the MAC address of ip. Only hosts on a directly attached
// network answer.
func (ARPResolver) MAC(ctx context.Context, ip string, timeout time.Duration) (string, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", fmt.Errorf("invalid address %q", ip)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	arping.SetTimeout(timeout)

	mac, _, err := arping.Ping(addr)
	if err != nil {
		return "", fmt.Errorf("arping failed: %w", err)
	}
	return mac.String(), nil
}
