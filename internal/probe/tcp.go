package probe

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// GatewayPorts are services routers commonly expose.
var GatewayPorts = []int{53, 80, 443, 22}

// TCPDialer checks reachability with plain TCP connects, for when ICMP is
// not available. A refused connection still proves the host is up.
type TCPDialer struct {
	Ports []int
}

// Reach dials every port concurrently and reports whether any answered.
func (d TCPDialer) Reach(ctx context.Context, ip string, timeout time.Duration) (bool, time.Duration) {
	ports := d.Ports
	if len(ports) == 0 {
		ports = GatewayPorts
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		reached bool
		best    time.Duration
	)
	for _, port := range ports {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			var dialer net.Dialer
			start := time.Now()
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(p)))
			rtt := time.Since(start)
			if err == nil {
				conn.Close()
			} else if !errors.Is(err, syscall.ECONNREFUSED) {
				return
			}
			mu.Lock()
			if !reached || rtt < best {
				best = rtt
			}
			reached = true
			mu.Unlock()
		}(port)
	}
	wg.Wait()
	return reached, best
}
