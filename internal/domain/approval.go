package domain

import (
	"fmt"
	"time"
)

// Decision records which terminal transition an approver took.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Approval is the record of a terminal transition on a content piece.
// A piece has at most one approval, matching its terminal state.
type Approval struct {
	ID         string
	PieceID    string
	ApproverID string
	Role       Role
	Decision   Decision
	Feedback   string
	CreatedAt  time.Time
}

// ValidateApproval validates an Approval instance
func ValidateApproval(a *Approval) error {
	if a == nil {
		return fmt.Errorf("approval cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("approval ID is required")
	}

	if a.PieceID == "" {
		return fmt.Errorf("approval PieceID is required")
	}

	if a.ApproverID == "" {
		return fmt.Errorf("approval ApproverID is required")
	}

	switch a.Decision {
	case DecisionApprove:
	case DecisionReject:
		if a.Feedback == "" {
			return fmt.Errorf("approval Feedback is required when rejecting")
		}
	default:
		return fmt.Errorf("approval Decision is invalid: %s", a.Decision)
	}

	return nil
}
