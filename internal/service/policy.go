package service

import "github.com/cadenlabs/brandgov/internal/domain"

// Action enumerates everything a principal can ask the system to do.
type Action string

const (
	ActionGenerateContent Action = "content.generate"
	ActionViewContent     Action = "content.view"
	ActionApproveContent  Action = "content.approve"
	ActionRejectContent   Action = "content.reject"
	ActionAuditImage      Action = "content.audit_image"
	ActionViewAudits      Action = "content.view_audits"
	ActionManageManual    Action = "manual.manage"
)

// Resource carries the ownership facts Authorize needs. A zero Resource
// means the action is not tied to a specific piece.
type Resource struct {
	OwnerID string
}

// Authorize is a pure function of the principal's role, the action and the
// resource's ownership. It has no side effects and consults nothing but its
// arguments; the role always comes from the server-side principal binding.
func Authorize(p *domain.Principal, action Action, res Resource) bool {
	if p == nil || !domain.IsValidRole(p.Role) {
		return false
	}

	switch action {
	case ActionGenerateContent, ActionManageManual:
		return p.Role == domain.RoleCreator

	case ActionViewContent:
		if p.IsApprover() {
			return true
		}
		return p.Role == domain.RoleCreator && res.OwnerID != "" && res.OwnerID == p.ID

	case ActionApproveContent, ActionRejectContent, ActionViewAudits:
		return p.IsApprover()

	case ActionAuditImage:
		return p.Role == domain.RoleApproverB
	}

	return false
}

// requireAction converts a failed Authorize check into the domain error the
// HTTP layer maps to 403.
func requireAction(p *domain.Principal, action Action, res Resource) error {
	if !Authorize(p, action, res) {
		return domain.ErrForbidden
	}
	return nil
}
