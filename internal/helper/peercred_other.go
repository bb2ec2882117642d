//go:build !linux && !darwin

package helper

import "errors"

func readPeerCredentials(fd int) (PeerCredentials, error) {
	return PeerCredentials{}, errors.New("peer credentials are not supported on this platform")
}
