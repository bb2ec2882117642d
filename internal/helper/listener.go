package helper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/martinsuchenak/routekeeper/internal/log"
)

// Listen creates the helper's unix socket, replacing a stale one.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating socket directory: %w", err)
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket: %w", err)
	}
	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	// any local user may connect; the authorizer decides who stays
	if err := os.Chmod(socketPath, 0o666); err != nil {
		l.Close()
		return nil, fmt.Errorf("setting socket permissions: %w", err)
	}
	return l, nil
}

// authorizingListener hands out connections whose peer must pass the
// Authorizer before any byte is read from or written to them. The identity
// lookup runs on the connection's own goroutine so a slow or hostile peer
// never holds up Accept.
type authorizingListener struct {
	net.Listener
	auth *Authorizer
}

// NewAuthorizingListener gates l with auth.
func NewAuthorizingListener(l net.Listener, auth *Authorizer) net.Listener {
	return &authorizingListener{Listener: l, auth: auth}
}

func (l *authorizingListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		creds, err := peerCredentials(conn)
		if err != nil {
			log.Warn("Rejected helper client", "reason", err.Error())
			if l.auth.observer != nil {
				l.auth.observer.AuthorizationRejected("no peer credentials")
			}
			conn.Close()
			continue
		}
		return &authorizedConn{Conn: conn, auth: l.auth, pid: creds.PID}, nil
	}
}

var errUnauthorized = errors.New("helper client not authorized")

// authorizedConn runs the authorization check once, on first use.
type authorizedConn struct {
	net.Conn
	auth *Authorizer
	pid  int

	once sync.Once
	err  error
}

func (c *authorizedConn) authorize() error {
	c.once.Do(func() {
		if !c.auth.Accept(context.Background(), c.pid) {
			c.err = errUnauthorized
			c.Conn.Close()
		}
	})
	return c.err
}

func (c *authorizedConn) Read(b []byte) (int, error) {
	if err := c.authorize(); err != nil {
		return 0, err
	}
	return c.Conn.Read(b)
}

func (c *authorizedConn) Write(b []byte) (int, error) {
	if err := c.authorize(); err != nil {
		return 0, err
	}
	return c.Conn.Write(b)
}
