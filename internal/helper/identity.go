package helper

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"
)

var ErrUnsigned = errors.New("code signature carries no usable identity")

// SigningIdentity is what two binaries are compared on. TeamID comes from a
// Developer ID signature; Digest is the code directory hash (or file digest
// where code signing does not exist) and identifies one exact build.
type SigningIdentity struct {
	TeamID     string `json:"team_id,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Authority  string `json:"authority,omitempty"`
	Digest     string `json:"digest,omitempty"`
}

// IsZero reports whether the identity carries nothing to compare on.
func (s SigningIdentity) IsZero() bool {
	return s.TeamID == "" && s.Digest == ""
}

// Matches reports whether other was produced by the same signer.
func (s SigningIdentity) Matches(other SigningIdentity) bool {
	if s.TeamID != "" && other.TeamID != "" {
		return s.TeamID == other.TeamID
	}
	return s.Digest != "" && s.Digest == other.Digest
}

// IdentityResolver looks up the signing identity of a running process or of
// the current executable.
type IdentityResolver interface {
	ResolvePID(ctx context.Context, pid int) (SigningIdentity, error)
	ResolveSelf(ctx context.Context) (SigningIdentity, error)
}

// ToolRunner runs an external tool and returns its combined output.
type ToolRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execTool(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// parseCodesignDisplay reads the key=value lines printed by
// `codesign --display --verbose=2`. Only the first Authority (the leaf
// certificate) is kept.
func parseCodesignDisplay(out string) (SigningIdentity, error) {
	var id SigningIdentity
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "TeamIdentifier":
			if value != "not set" {
				id.TeamID = value
			}
		case "Identifier":
			id.Identifier = value
		case "Authority":
			if id.Authority == "" {
				id.Authority = value
			}
		case "CDHash":
			id.Digest = value
		}
	}
	if id.IsZero() {
		return id, ErrUnsigned
	}
	return id, nil
}
