package helper

import (
	"context"
	"fmt"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/log"
)

const resolveTimeout = 10 * time.Second

// AuthObserver is notified of every authorization decision.
type AuthObserver interface {
	AuthorizationAccepted()
	AuthorizationRejected(reason string)
}

// Authorizer admits a connecting process only when its signing identity
// matches the helper's own, or its team is explicitly allowed. Every error
// path rejects.
type Authorizer struct {
	resolver     IdentityResolver
	self         SigningIdentity
	selfErr      error
	allowedTeams map[string]bool
	observer     AuthObserver
}

// NewAuthorizer resolves the helper's own identity once. If that fails the
// authorizer still works but only the allow-list can admit anyone.
func NewAuthorizer(ctx context.Context, resolver IdentityResolver, allowedTeamIDs []string, observer AuthObserver) *Authorizer {
	a := &Authorizer{
		resolver:     resolver,
		allowedTeams: make(map[string]bool, len(allowedTeamIDs)),
		observer:     observer,
	}
	for _, id := range allowedTeamIDs {
		a.allowedTeams[id] = true
	}

	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	a.self, a.selfErr = resolver.ResolveSelf(rctx)
	if a.selfErr != nil {
		log.Error("Cannot resolve helper signing identity; only allow-listed teams will be accepted", "error", a.selfErr)
	} else {
		log.Info("Helper signing identity", "team_id", a.self.TeamID, "identifier", a.self.Identifier, "digest", a.self.Digest)
	}
	return a
}

// Accept decides whether the process pid may use the helper.
func (a *Authorizer) Accept(ctx context.Context, pid int) bool {
	reason := a.check(ctx, pid)
	if reason != "" {
		log.Warn("Rejected helper client", "pid", pid, "reason", reason)
		if a.observer != nil {
			a.observer.AuthorizationRejected(reason)
		}
		return false
	}
	log.Debug("Accepted helper client", "pid", pid)
	if a.observer != nil {
		a.observer.AuthorizationAccepted()
	}
	return true
}

// check returns an empty string when pid is authorized and the rejection
// reason otherwise.
func (a *Authorizer) check(ctx context.Context, pid int) (reason string) {
	defer func() {
		if r := recover(); r != nil {
			reason = fmt.Sprintf("identity check panicked: %v", r)
		}
	}()

	if pid <= 0 {
		return fmt.Sprintf("invalid pid %d", pid)
	}

	rctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()
	peer, err := a.resolver.ResolvePID(rctx, pid)
	if err != nil {
		return fmt.Sprintf("identity lookup failed: %v", err)
	}
	if peer.IsZero() {
		return "client has no signing identity"
	}
	if peer.TeamID != "" && a.allowedTeams[peer.TeamID] {
		return ""
	}
	if a.selfErr != nil || a.self.IsZero() {
		return "helper identity unknown"
	}
	if !a.self.Matches(peer) {
		return fmt.Sprintf("signing identity mismatch (team %q)", peer.TeamID)
	}
	return ""
}
