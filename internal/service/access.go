package service

import (
	"github.com/sie-engine/siechat/internal/domain"
)

// AccessMode controls who may use the chat endpoint.
type AccessMode string

const (
	// AccessPublic lets anyone chat, authenticated or not.
	AccessPublic AccessMode = "public"
	// AccessLoggedIn requires any valid API key.
	AccessLoggedIn AccessMode = "logged_in"
	// AccessRole requires a valid API key with a specific role (or admin).
	AccessRole AccessMode = "role"
)

// AccessPolicy evaluates whether a caller may use the chat endpoint. It is
// the single seam between endpoint logic and whatever authentication scheme
// the host runs, so handlers never inspect credentials themselves.
type AccessPolicy struct {
	Mode         AccessMode
	RequiredRole domain.Role
}

// NewAccessPolicy builds a policy from configuration strings. Unknown modes
// fall back to public, matching a fresh unconfigured install.
func NewAccessPolicy(mode, requiredRole string) AccessPolicy {
	m := AccessMode(mode)
	switch m {
	case AccessPublic, AccessLoggedIn, AccessRole:
	default:
		m = AccessPublic
	}
	return AccessPolicy{Mode: m, RequiredRole: domain.Role(requiredRole)}
}

// Allow returns nil when the caller passes the policy. authenticated is
// false for anonymous requests, in which case role is ignored.
func (p AccessPolicy) Allow(authenticated bool, role domain.Role) error {
	switch p.Mode {
	case AccessPublic:
		return nil
	case AccessLoggedIn:
		if !authenticated {
			return domain.ErrAccessDenied
		}
		return nil
	case AccessRole:
		if !authenticated {
			return domain.ErrAccessDenied
		}
		if role != p.RequiredRole && role != domain.RoleAdmin {
			return domain.ErrAccessDenied
		}
		return nil
	default:
		return domain.ErrAccessDenied
	}
}
