package service

import (
	"strings"
	"testing"

	"github.com/cadenlabs/brandgov/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() BrandRules {
	return BrandRules{
		ToneDescription:  "Calm and dry-witted",
		ForbiddenClaims:  []string{"health benefits"},
		ForbiddenTerms:   []string{"energy drink", "buzz"},
		PreferredTerms:   []string{"slow-brewed"},
		LengthGuidelines: map[string]string{"description": "under 120 words"},
	}
}

func TestBrandRules_Render(t *testing.T) {
	t.Run("renders all rule groups", func(t *testing.T) {
		out := testRules().Render()

		assert.Contains(t, out, "Tone: Calm and dry-witted")
		assert.Contains(t, out, "Forbidden claims: health benefits")
		assert.Contains(t, out, "Forbidden terms: energy drink; buzz")
		assert.Contains(t, out, "Preferred terms: slow-brewed")
		assert.Contains(t, out, "- description: under 120 words")
	})

	t.Run("empty rules render empty", func(t *testing.T) {
		assert.Equal(t, "", BrandRules{}.Render())
	})

	t.Run("map keys render sorted", func(t *testing.T) {
		rules := BrandRules{LengthGuidelines: map[string]string{"script": "b", "description": "a"}}
		out := rules.Render()
		assert.Less(t, strings.Index(out, "description"), strings.Index(out, "script"))
	})
}

func TestComposer_Compose(t *testing.T) {
	chunks := []ScoredChunk{
		scoredChunk("c-1", "messaging.forbidden_terms", 0, 0.9),
		scoredChunk("c-2", "tone.dos", 1, 0.8),
		scoredChunk("c-3", "examples.good", 2, 0.7),
	}

	t.Run("includes context, rules and brief", func(t *testing.T) {
		c := NewComposer(24000)

		prompt, err := c.Compose(chunks, testRules(), domain.ContentTypeDescription, "Launch copy for the 12oz can")
		require.NoError(t, err)

		assert.Equal(t, composerSystemPrompt, prompt.System)
		assert.Contains(t, prompt.User, "[messaging.forbidden_terms]")
		assert.Contains(t, prompt.User, "[examples.good]")
		assert.Contains(t, prompt.User, "Forbidden terms: energy drink; buzz")
		assert.Contains(t, prompt.User, "Launch copy for the 12oz can")
	})

	t.Run("same inputs produce byte-identical output", func(t *testing.T) {
		c := NewComposer(24000)

		first, err := c.Compose(chunks, testRules(), domain.ContentTypeScript, "Radio spot")
		require.NoError(t, err)
		second, err := c.Compose(chunks, testRules(), domain.ContentTypeScript, "Radio spot")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("drops lowest-ranked chunks under a tight budget", func(t *testing.T) {
		full, err := NewComposer(100000).Compose(chunks, testRules(), domain.ContentTypeDescription, "Launch copy")
		require.NoError(t, err)

		// A budget just below the full prompt forces the last chunk out.
		budget := full.Len() - 1
		prompt, err := NewComposer(budget).Compose(chunks, testRules(), domain.ContentTypeDescription, "Launch copy")
		require.NoError(t, err)

		assert.Contains(t, prompt.User, "[messaging.forbidden_terms]")
		assert.NotContains(t, prompt.User, "[examples.good]")
		assert.LessOrEqual(t, prompt.Len(), budget)
	})

	t.Run("fails when rules and brief alone exceed the budget", func(t *testing.T) {
		c := NewComposer(300)

		_, err := c.Compose(chunks, testRules(), domain.ContentTypeDescription, strings.Repeat("very long brief ", 50))
		assert.ErrorIs(t, err, domain.ErrPromptTooLarge)
	})

	t.Run("no chunks yields placeholder context", func(t *testing.T) {
		c := NewComposer(24000)

		prompt, err := c.Compose(nil, testRules(), domain.ContentTypeDescription, "Launch copy")
		require.NoError(t, err)
		assert.Contains(t, prompt.User, "(no context retrieved)")
	})

	t.Run("task prompt varies by content type", func(t *testing.T) {
		c := NewComposer(24000)

		desc, err := c.Compose(nil, BrandRules{}, domain.ContentTypeDescription, "b")
		require.NoError(t, err)
		script, err := c.Compose(nil, BrandRules{}, domain.ContentTypeScript, "b")
		require.NoError(t, err)
		image, err := c.Compose(nil, BrandRules{}, domain.ContentTypeImagePrompt, "b")
		require.NoError(t, err)

		assert.Contains(t, desc.User, "product description")
		assert.Contains(t, script.User, "video script")
		assert.Contains(t, image.User, "image prompt")
	})
}

func TestBrandRulesFromManual(t *testing.T) {
	doc := fullManualDoc()
	rules := BrandRulesFromManual(doc)

	assert.Equal(t, doc.Tone.Description, rules.ToneDescription)
	assert.Equal(t, doc.Messaging.ForbiddenClaims, rules.ForbiddenClaims)
	assert.Equal(t, doc.Messaging.ForbiddenTerms, rules.ForbiddenTerms)
	assert.Equal(t, doc.Messaging.PreferredTerms, rules.PreferredTerms)
	assert.Equal(t, doc.StyleRules.LengthGuidelines, rules.LengthGuidelines)
}
