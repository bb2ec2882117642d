//go:build darwin

package helper

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CodesignResolver resolves identities with codesign(1). A process is only
// given an identity if its signature also verifies. codesign is handed the
// pid, so it checks the code the kernel has mapped for that process rather
// than whatever file sits at its path now.
type CodesignResolver struct {
	run ToolRunner
}

func NewIdentityResolver() IdentityResolver {
	return &CodesignResolver{run: execTool}
}

func (r *CodesignResolver) ResolvePID(ctx context.Context, pid int) (SigningIdentity, error) {
	if pid <= 0 {
		return SigningIdentity{}, fmt.Errorf("invalid pid %d", pid)
	}
	return r.resolveProcess(ctx, pid)
}

func (r *CodesignResolver) ResolveSelf(ctx context.Context) (SigningIdentity, error) {
	return r.resolveProcess(ctx, os.Getpid())
}

func (r *CodesignResolver) resolveProcess(ctx context.Context, pid int) (SigningIdentity, error) {
	target := strconv.Itoa(pid)
	if out, err := r.run(ctx, "codesign", "--verify", "--strict", target); err != nil {
		return SigningIdentity{}, fmt.Errorf("verifying signature of pid %d: %w: %s", pid, err, strings.TrimSpace(string(out)))
	}
	out, err := r.run(ctx, "codesign", "--display", "--verbose=2", target)
	if err != nil {
		return SigningIdentity{}, fmt.Errorf("reading signature of pid %d: %w", pid, err)
	}
	id, err := parseCodesignDisplay(string(out))
	if err != nil {
		return SigningIdentity{}, fmt.Errorf("pid %d: %w", pid, err)
	}
	return id, nil
}
