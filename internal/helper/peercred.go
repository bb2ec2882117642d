package helper

import (
	"errors"
	"fmt"
	"net"
)

var ErrNoPeerCredentials = errors.New("peer credentials unavailable")

// PeerCredentials identifies the process on the other end of a unix socket.
type PeerCredentials struct {
	PID int
	UID uint32
}

func peerCredentials(conn net.Conn) (PeerCredentials, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return PeerCredentials{}, fmt.Errorf("%w: %T is not a unix socket", ErrNoPeerCredentials, conn)
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return PeerCredentials{}, fmt.Errorf("%w: %v", ErrNoPeerCredentials, err)
	}

	var creds PeerCredentials
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		creds, credErr = readPeerCredentials(int(fd))
	}); err != nil {
		return PeerCredentials{}, fmt.Errorf("%w: %v", ErrNoPeerCredentials, err)
	}
	if credErr != nil {
		return PeerCredentials{}, fmt.Errorf("%w: %v", ErrNoPeerCredentials, credErr)
	}
	if creds.PID <= 0 {
		return PeerCredentials{}, fmt.Errorf("%w: invalid pid %d", ErrNoPeerCredentials, creds.PID)
	}
	return creds, nil
}
