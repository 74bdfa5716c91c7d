package domain

import (
	"time"
)

// Role describes what an API key is allowed to do.
type Role string

const (
	// RoleAdmin can manage keys and topic terms in addition to everything
	// an editor can do.
	RoleAdmin Role = "admin"
	// RoleEditor can read the topic mapping and push knowledge documents.
	RoleEditor Role = "editor"
	// RoleMember can only use the chat endpoint (relevant when the chat
	// access policy is "logged_in" or "role").
	RoleMember Role = "member"
)

// IsValidRole reports whether r is one of the known roles.
func IsValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleMember:
		return true
	}
	return false
}

// CanEdit reports whether the role carries the edit-content capability
// required by the topics and knowledge endpoints.
func (r Role) CanEdit() bool {
	return r == RoleAdmin || r == RoleEditor
}

// APIKey represents an API key for authentication
type APIKey struct {
	ID        string
	Name      string
	KeyHash   string // Never store plaintext keys
	Role      Role
	CreatedAt time.Time
	RevokedAt *time.Time
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return NewDomainError(ErrCodeValidation, "api key cannot be nil")
	}
	if a.ID == "" {
		return NewDomainError(ErrCodeValidation, "api key ID is required")
	}
	if a.Name == "" {
		return NewDomainError(ErrCodeValidation, "api key Name is required")
	}
	if a.KeyHash == "" {
		return NewDomainError(ErrCodeValidation, "api key KeyHash is required")
	}
	if !IsValidRole(a.Role) {
		return ErrInvalidRole
	}
	return nil
}
