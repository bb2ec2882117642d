//go:build darwin

package helper

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const signedDisplay = `Executable=/usr/local/bin/routekeeper
Identifier=com.martinsuchenak.routekeeper
CDHash=4f1c2a
Authority=Developer ID Application: Example (TEAM123456)
TeamIdentifier=TEAM123456`

func TestCodesignResolverChecksRunningProcess(t *testing.T) {
	var calls []string
	r := &CodesignResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, name+" "+strings.Join(args, " "))
		if args[0] == "--display" {
			return []byte(signedDisplay), nil
		}
		return nil, nil
	}}

	id, err := r.ResolvePID(context.Background(), 4242)
	if err != nil {
		t.Fatalf("ResolvePID: %v", err)
	}
	if id.TeamID != "TEAM123456" || id.Digest != "4f1c2a" {
		t.Fatalf("identity = %+v", id)
	}

	want := []string{
		"codesign --verify --strict 4242",
		"codesign --display --verbose=2 4242",
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestCodesignResolverRejectsInvalidSignature(t *testing.T) {
	displayed := false
	r := &CodesignResolver{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if args[0] == "--display" {
			displayed = true
			return []byte(signedDisplay), nil
		}
		return []byte("4242: invalid signature (code or signature have been modified)"), errors.New("exit status 1")
	}}

	if _, err := r.ResolvePID(context.Background(), 4242); err == nil {
		t.Fatal("expected verification failure")
	}
	if displayed {
		t.Fatal("identity must not be read when verification fails")
	}
	if _, err := r.ResolvePID(context.Background(), 0); err == nil {
		t.Fatal("expected error for pid 0")
	}
}
