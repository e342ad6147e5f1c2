package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of roles a principal can hold. Each principal has
// exactly one role; it is assigned administratively and resolved server-side,
// never from client-supplied claims.
type Role string

const (
	RoleCreator   Role = "creator"
	RoleApproverA Role = "approver_a"
	RoleApproverB Role = "approver_b"
)

// Principal is an authenticated identity with its role binding.
type Principal struct {
	ID        string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// NewPrincipal creates a new Principal instance
func NewPrincipal(id, email string, role Role, createdAt time.Time) *Principal {
	return &Principal{
		ID:        id,
		Email:     email,
		Role:      role,
		CreatedAt: createdAt,
	}
}

// IsApprover returns true for roles that may approve or reject content.
func (p *Principal) IsApprover() bool {
	return p.Role == RoleApproverA || p.Role == RoleApproverB
}

// ValidatePrincipal validates a Principal instance
func ValidatePrincipal(p *Principal) error {
	if p == nil {
		return fmt.Errorf("principal cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("principal ID is required")
	}

	if p.Email == "" {
		return fmt.Errorf("principal Email is required")
	}

	if !IsValidRole(p.Role) {
		return fmt.Errorf("principal Role is invalid: %s", p.Role)
	}

	return nil
}

// IsValidRole checks if a Role is one of the closed set.
func IsValidRole(r Role) bool {
	switch r {
	case RoleCreator, RoleApproverA, RoleApproverB:
		return true
	}
	return false
}
