// Package policy decides who may create and who may settle campaigns.
// Deployments differ on who is trusted to do what, so the mode is
// configuration rather than code.
package policy

import (
	"fmt"

	"fundledger/pkg/identity"
)

// Mode selects an authorization posture for an operation.
type Mode string

const (
	// ModeOpen lets any caller perform the operation.
	ModeOpen Mode = "open"
	// ModeOwnerOnly restricts the operation to the configured owner.
	ModeOwnerOnly Mode = "owner_only"
	// ModeAllowlist restricts the operation to an explicit set of
	// addresses; the owner is always included.
	ModeAllowlist Mode = "allowlist"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOpen, ModeOwnerOnly, ModeAllowlist:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown policy mode %q", s)
}

// Authorizer evaluates create and settle permissions.
type Authorizer struct {
	create    Mode
	settle    Mode
	owner     identity.Address
	allowlist map[identity.Address]struct{}
}

func New(create, settle Mode, owner identity.Address, allowlist []identity.Address) *Authorizer {
	set := make(map[identity.Address]struct{}, len(allowlist))
	for _, addr := range allowlist {
		set[addr] = struct{}{}
	}
	return &Authorizer{create: create, settle: settle, owner: owner, allowlist: set}
}

// Default returns the standard policy: open creation, owner-only settlement.
func Default(owner identity.Address) *Authorizer {
	return New(ModeOpen, ModeOwnerOnly, owner, nil)
}

// CanCreate reports whether the caller may register a campaign.
func (a *Authorizer) CanCreate(caller identity.Address) bool {
	return a.allowed(a.create, caller)
}

// CanSettle reports whether the caller may end a campaign.
func (a *Authorizer) CanSettle(caller identity.Address) bool {
	return a.allowed(a.settle, caller)
}

func (a *Authorizer) allowed(mode Mode, caller identity.Address) bool {
	switch mode {
	case ModeOpen:
		return true
	case ModeOwnerOnly:
		return !caller.IsZero() && caller == a.owner
	case ModeAllowlist:
		if caller.IsZero() {
			return false
		}
		if caller == a.owner {
			return true
		}
		_, ok := a.allowlist[caller]
		return ok
	}
	return false
}
