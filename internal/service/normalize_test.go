package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeManualDocument(t *testing.T) {
	t.Run("decodes a well-formed document", func(t *testing.T) {
		raw := `{
			"brand_name": "Driftwell",
			"product": "Cold brew",
			"audience": "Professionals",
			"tone": {"description": "Calm", "dos": ["short sentences"], "donts": ["hype"]},
			"messaging": {"value_props": ["slow-brewed"], "forbidden_terms": ["buzz"]},
			"style_rules": {"reading_level": "simple", "length_guidelines": {"description": "short"}},
			"visual_guidelines": {"colors": ["navy"], "notes": "matte only"},
			"examples": {"good": [{"type": "description", "text": "Eighteen hours.", "why": "concrete"}]},
			"approval_checklist": ["no claims"],
			"assumptions": ["US only"]
		}`

		doc, err := NormalizeManualDocument(raw)
		require.NoError(t, err)

		assert.Equal(t, "Driftwell", doc.BrandName)
		assert.Equal(t, "Calm", doc.Tone.Description)
		assert.Equal(t, []string{"short sentences"}, doc.Tone.Dos)
		assert.Equal(t, []string{"buzz"}, doc.Messaging.ForbiddenTerms)
		assert.Equal(t, "simple", doc.StyleRules.ReadingLevel)
		assert.Equal(t, "matte only", doc.Visual.Notes)
		require.Len(t, doc.Examples.Good, 1)
		assert.Equal(t, "concrete", doc.Examples.Good[0].Why)
	})

	t.Run("strips markdown fences and prose", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"brand_name\": \"Driftwell\"}\n```\nLet me know if you need changes."

		doc, err := NormalizeManualDocument(raw)
		require.NoError(t, err)
		assert.Equal(t, "Driftwell", doc.BrandName)
	})

	t.Run("coerces a newline string into a list", func(t *testing.T) {
		raw := `{"tone": {"dos": "- be short\n- be concrete"}}`

		doc, err := NormalizeManualDocument(raw)
		require.NoError(t, err)
		assert.Equal(t, []string{"be short", "be concrete"}, doc.Tone.Dos)
	})

	t.Run("coerces a string section into a notes map", func(t *testing.T) {
		raw := `{"visual_guidelines": "matte finishes only"}`

		doc, err := NormalizeManualDocument(raw)
		require.NoError(t, err)
		assert.Equal(t, "matte finishes only", doc.Visual.Notes)
	})

	t.Run("collapses free-form reading levels", func(t *testing.T) {
		for raw, want := range map[string]string{
			`{"style_rules": {"reading_level": "Medium complexity"}}`: "medium",
			`{"style_rules": {"reading_level": "8th grade"}}`:         "simple",
			`{"style_rules": {}}`:                                     "simple",
		} {
			doc, err := NormalizeManualDocument(raw)
			require.NoError(t, err)
			assert.Equal(t, want, doc.StyleRules.ReadingLevel)
		}
	})

	t.Run("fails on empty output", func(t *testing.T) {
		_, err := NormalizeManualDocument("   ")
		assert.Error(t, err)
	})

	t.Run("fails when no JSON object present", func(t *testing.T) {
		_, err := NormalizeManualDocument("I could not produce a manual.")
		assert.Error(t, err)
	})

	t.Run("fails on malformed JSON", func(t *testing.T) {
		_, err := NormalizeManualDocument(`{"brand_name": `)
		assert.Error(t, err)
	})
}
