package service

import (
	"testing"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuditReport(t *testing.T) {
	t.Run("parses plain JSON", func(t *testing.T) {
		raw := `{"verdict":"PASS","validated_rules_count":2,"validated_rules":["logo clear space","palette colors"],"violations":[],"notes":["copy not judged"]}`

		report, err := ParseAuditReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "PASS", report.Verdict)
		assert.Equal(t, 2, report.ValidatedRulesCount)
		assert.Len(t, report.ValidatedRules, 2)
		assert.Empty(t, report.Violations)
		assert.Equal(t, []string{"copy not judged"}, report.Notes)
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		raw := "```json\n{\"verdict\":\"FAIL\",\"violations\":[{\"rule\":\"logo\",\"evidence\":\"missing\",\"fix\":\"add it\"}]}\n```"

		report, err := ParseAuditReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "FAIL", report.Verdict)
		require.Len(t, report.Violations, 1)
		assert.Equal(t, "logo", report.Violations[0].Rule)
	})

	t.Run("tolerates surrounding prose", func(t *testing.T) {
		raw := `Here is my assessment: {"verdict":"CHECK","validated_rules_count":1} I hope this helps.`

		report, err := ParseAuditReport(raw)
		require.NoError(t, err)
		assert.Equal(t, "CHECK", report.Verdict)
	})

	t.Run("fails on empty output", func(t *testing.T) {
		_, err := ParseAuditReport("")
		assert.Error(t, err)
	})

	t.Run("fails when no JSON object present", func(t *testing.T) {
		_, err := ParseAuditReport("The image looks fine to me.")
		assert.Error(t, err)
	})

	t.Run("fails on malformed JSON", func(t *testing.T) {
		_, err := ParseAuditReport(`{"verdict": "PASS", "violations": [`)
		assert.Error(t, err)
	})
}

func TestMapVerdict(t *testing.T) {
	tests := []struct {
		name   string
		report *AuditReport
		want   domain.Verdict
	}{
		{
			"nil report is ambiguous",
			nil,
			domain.VerdictCheck,
		},
		{
			"any violation fails regardless of validated rules",
			&AuditReport{Verdict: "PASS", ValidatedRulesCount: 5, Violations: []domain.Violation{{Rule: "logo"}}},
			domain.VerdictFail,
		},
		{
			"two validated rules pass",
			&AuditReport{ValidatedRulesCount: 2},
			domain.VerdictPass,
		},
		{
			"validated rules list counts when count field is low",
			&AuditReport{ValidatedRulesCount: 0, ValidatedRules: []string{"a", "b", "c"}},
			domain.VerdictPass,
		},
		{
			"one validated rule is ambiguous",
			&AuditReport{ValidatedRulesCount: 1},
			domain.VerdictCheck,
		},
		{
			"model PASS claim without validation is ambiguous",
			&AuditReport{Verdict: "PASS", ValidatedRulesCount: 0},
			domain.VerdictCheck,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapVerdict(tt.report))
		})
	}
}
