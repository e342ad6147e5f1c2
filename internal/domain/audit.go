package domain

import (
	"fmt"
	"time"
)

// Verdict classifies an audited image against the brand rules.
type Verdict string

const (
	// VerdictPass means the model explicitly validated enough rules and
	// found no violations.
	VerdictPass Verdict = "PASS"
	// VerdictCheck means the result is ambiguous and needs a human look.
	// Unparseable provider output always maps here, never to PASS.
	VerdictCheck Verdict = "CHECK"
	// VerdictFail means at least one rule violation was found.
	VerdictFail Verdict = "FAIL"
)

// Violation is one rule breach reported by the vision model.
type Violation struct {
	Rule     string `json:"rule"`
	Evidence string `json:"evidence"`
	Fix      string `json:"fix"`
}

// AuditRecord is the immutable result of one multimodal audit.
type AuditRecord struct {
	ID             string
	PieceID        string
	AuditorID      string
	ImageKey       string
	ImageURL       string
	Verdict        Verdict
	Explanation    string
	ValidatedRules []string
	Violations     []Violation
	RuleContext    []ContextChunk
	CreatedAt      time.Time
}

// ValidateAuditRecord validates an AuditRecord instance
func ValidateAuditRecord(a *AuditRecord) error {
	if a == nil {
		return fmt.Errorf("audit record cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("audit record ID is required")
	}

	if a.PieceID == "" {
		return fmt.Errorf("audit record PieceID is required")
	}

	if a.AuditorID == "" {
		return fmt.Errorf("audit record AuditorID is required")
	}

	if !IsValidVerdict(a.Verdict) {
		return fmt.Errorf("audit record Verdict is invalid: %s", a.Verdict)
	}

	return nil
}

// IsValidVerdict checks if a Verdict is valid
func IsValidVerdict(v Verdict) bool {
	switch v {
	case VerdictPass, VerdictCheck, VerdictFail:
		return true
	}
	return false
}
