//go:build !darwin

package helper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// DigestResolver identifies a process by the SHA-256 of its executable. It
// stands in for code signing on platforms without it, so only the exact same
// build is accepted.
type DigestResolver struct {
	procRoot string
}

func NewIdentityResolver() IdentityResolver {
	return &DigestResolver{procRoot: "/proc"}
}

func (r *DigestResolver) ResolvePID(ctx context.Context, pid int) (SigningIdentity, error) {
	return digestFile(fmt.Sprintf("%s/%d/exe", r.procRoot, pid))
}

func (r *DigestResolver) ResolveSelf(ctx context.Context) (SigningIdentity, error) {
	path, err := os.Executable()
	if err != nil {
		return SigningIdentity{}, fmt.Errorf("locating own executable: %w", err)
	}
	return digestFile(path)
}

func digestFile(path string) (SigningIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return SigningIdentity{}, fmt.Errorf("opening executable: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return SigningIdentity{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return SigningIdentity{Digest: "sha256:" + hex.EncodeToString(h.Sum(nil))}, nil
}
