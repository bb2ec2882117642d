//go:build darwin

package helper

import "golang.org/x/sys/unix"

func readPeerCredentials(fd int) (PeerCredentials, error) {
	xucred, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return PeerCredentials{}, err
	}
	pid, err := unix.GetsockoptInt(fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID)
	if err != nil {
		return PeerCredentials{}, err
	}
	return PeerCredentials{PID: pid, UID: xucred.Uid}, nil
}
