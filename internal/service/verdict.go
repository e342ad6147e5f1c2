package service

import (
	"encoding/json"
	"fmt"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// AuditReport is the structured payload the vision model is asked to return.
type AuditReport struct {
	Verdict             string             `json:"verdict"`
	ValidatedRulesCount int                `json:"validated_rules_count"`
	ValidatedRules      []string           `json:"validated_rules"`
	Violations          []domain.Violation `json:"violations"`
	Notes               []string           `json:"notes"`
}

// ParseAuditReport extracts the JSON report from raw model output, which may
// be wrapped in markdown fences or surrounded by prose.
func ParseAuditReport(raw string) (*AuditReport, error) {
	obj, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var report AuditReport
	if err := json.Unmarshal([]byte(obj), &report); err != nil {
		return nil, fmt.Errorf("malformed JSON in model output: %w", err)
	}
	return &report, nil
}

// MapVerdict applies the verdict rules to a parsed report. The model's own
// verdict field is advisory only; the mapping here is authoritative:
// any violation fails, fewer than two validated rules is ambiguous, and
// only a clean report with enough validated rules passes.
func MapVerdict(report *AuditReport) domain.Verdict {
	if report == nil {
		return domain.VerdictCheck
	}

	if len(report.Violations) > 0 {
		return domain.VerdictFail
	}

	validated := report.ValidatedRulesCount
	if validated < len(report.ValidatedRules) {
		validated = len(report.ValidatedRules)
	}
	if validated >= 2 {
		return domain.VerdictPass
	}
	return domain.VerdictCheck
}
