package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cadenlabs/brandgov/internal/domain"
)

const composerSystemPrompt = "You are a brand copywriter. You must strictly obey the provided brand manual. " +
	"Never use forbidden terms or claims. Never invent facts that are not present in the context."

// BrandRules is the non-negotiable portion of a prompt. It is rendered from
// the manual document and is never truncated; only retrieved context chunks
// give way under the budget.
type BrandRules struct {
	ToneDescription  string
	ForbiddenClaims  []string
	ForbiddenTerms   []string
	PreferredTerms   []string
	LengthGuidelines map[string]string
}

// BrandRulesFromManual extracts the hard rules from a manual document.
func BrandRulesFromManual(doc domain.ManualDocument) BrandRules {
	return BrandRules{
		ToneDescription:  doc.Tone.Description,
		ForbiddenClaims:  doc.Messaging.ForbiddenClaims,
		ForbiddenTerms:   doc.Messaging.ForbiddenTerms,
		PreferredTerms:   doc.Messaging.PreferredTerms,
		LengthGuidelines: doc.StyleRules.LengthGuidelines,
	}
}

// Render produces a deterministic textual form of the rules. Map keys are
// sorted so the same rules always render byte-identically.
func (r BrandRules) Render() string {
	var b strings.Builder

	if r.ToneDescription != "" {
		fmt.Fprintf(&b, "Tone: %s\n", r.ToneDescription)
	}
	if len(r.ForbiddenClaims) > 0 {
		fmt.Fprintf(&b, "Forbidden claims: %s\n", strings.Join(r.ForbiddenClaims, "; "))
	}
	if len(r.ForbiddenTerms) > 0 {
		fmt.Fprintf(&b, "Forbidden terms: %s\n", strings.Join(r.ForbiddenTerms, "; "))
	}
	if len(r.PreferredTerms) > 0 {
		fmt.Fprintf(&b, "Preferred terms: %s\n", strings.Join(r.PreferredTerms, "; "))
	}
	if len(r.LengthGuidelines) > 0 {
		keys := make([]string, 0, len(r.LengthGuidelines))
		for k := range r.LengthGuidelines {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Length guidelines:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, r.LengthGuidelines[k])
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// FinalPrompt is the fully composed prompt sent to the language model.
type FinalPrompt struct {
	System string
	User   string
}

// Len returns the total character length counted against the budget.
func (p FinalPrompt) Len() int {
	return len(p.System) + len(p.User)
}

// Composer merges retrieved chunks, brand rules and the creator's brief into
// a final prompt. Same inputs in the same order always produce byte-identical
// output.
type Composer struct {
	budget int
}

// NewComposer creates a Composer with the given total character budget.
func NewComposer(budget int) *Composer {
	if budget <= 0 {
		budget = 24000
	}
	return &Composer{budget: budget}
}

// Compose builds the final prompt. Chunks are expected in rank order; when
// the budget is exceeded the lowest-ranked chunks are dropped first. The
// brief and rules are never truncated; if they alone exceed the budget the
// composition fails.
func (c *Composer) Compose(chunks []ScoredChunk, rules BrandRules, contentType domain.ContentType, brief string) (FinalPrompt, error) {
	task := taskPrompt(contentType, brief)
	rulesBlock := rules.Render()

	fixed := buildUserPrompt("", rulesBlock, task)
	if len(composerSystemPrompt)+len(fixed) > c.budget {
		return FinalPrompt{}, domain.ErrPromptTooLarge
	}

	include := len(chunks)
	for include > 0 {
		contextBlock := renderChunks(chunks[:include])
		user := buildUserPrompt(contextBlock, rulesBlock, task)
		if len(composerSystemPrompt)+len(user) <= c.budget {
			return FinalPrompt{System: composerSystemPrompt, User: user}, nil
		}
		include--
	}

	return FinalPrompt{System: composerSystemPrompt, User: fixed}, nil
}

func renderChunks(chunks []ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[%s] %s", c.Chunk.Section, c.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

func buildUserPrompt(contextBlock, rulesBlock, task string) string {
	var b strings.Builder

	b.WriteString("Brand manual (retrieved context):\n")
	if contextBlock != "" {
		b.WriteString(contextBlock)
	} else {
		b.WriteString("(no context retrieved)")
	}
	b.WriteString("\n\n")

	if rulesBlock != "" {
		b.WriteString("Brand rules (always apply):\n")
		b.WriteString(rulesBlock)
		b.WriteString("\n\n")
	}

	b.WriteString(task)
	return b.String()
}

func taskPrompt(contentType domain.ContentType, brief string) string {
	switch contentType {
	case domain.ContentTypeDescription:
		return fmt.Sprintf(`Task: Write a product description based on the brief.
Brief: %s

Requirements:
- 80-150 words (or follow the length guidelines if given).
- Tone per the manual.
- Avoid jargon if the manual forbids it.
- Do not use forbidden terms or claims.
Return only the final text.`, brief)

	case domain.ContentTypeScript:
		return fmt.Sprintf(`Task: Write a short 15s video script based on the brief.
Brief: %s

Format:
- Hook (0-3s)
- Body (3-12s)
- Close + CTA (12-15s)
Avoid forbidden terms and claims. Return only the script.`, brief)

	default:
		return fmt.Sprintf(`Task: Generate an image prompt based on the brief.
Brief: %s

Output format:
- Main prompt (1 paragraph)
- Negative prompt (short list)
- Compliance notes (1-3 bullets)
Avoid forbidden elements and claims. Return only that.`, brief)
	}
}
