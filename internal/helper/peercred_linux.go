//go:build linux

package helper

import "golang.org/x/sys/unix"

func readPeerCredentials(fd int) (PeerCredentials, error) {
	ucred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return PeerCredentials{}, err
	}
	return PeerCredentials{PID: int(ucred.Pid), UID: ucred.Uid}, nil
}
