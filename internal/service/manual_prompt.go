package service

import (
	"fmt"
	"strings"

	"github.com/cadenlabs/brandgov/internal/domain"
)

const manualSystemPrompt = `You are a Brand DNA Architect. Return ONLY valid JSON, no markdown, no explanations.
Respect TYPES strictly:
- tone.dos/donts: arrays of strings
- messaging.*: arrays of strings
- style_rules.reading_level: ONLY "simple" or "medium"
- style_rules.length_guidelines: object/dict
- visual_guidelines.*: arrays of strings
- approval_checklist: array of strings (minimum 8 items)
If you lack information, return empty lists or {} (NOT strings).`

const manualSchemaHint = `Return a JSON object with these keys:
brand_name, product, audience,
tone{description,dos[],donts[]},
messaging{value_props[],taglines[],forbidden_claims[],preferred_terms[],forbidden_terms[]},
style_rules{reading_level,length_guidelines},
visual_guidelines{colors[],logo_rules[],typography[],image_style[],notes},
examples{good[{type,text}],bad[{type,text,why}]},
approval_checklist[], assumptions[].`

// ManualParams is the creator-supplied input for generating a Brand DNA
// manual. VisualRules are taken as the source of truth: the model must not
// invent visual guidelines the user did not provide.
type ManualParams struct {
	BrandName        string
	Product          string
	Tone             string
	Audience         string
	ExtraConstraints string
	VisualRules      domain.VisualSpec
}

// buildManualPrompt renders the user prompt for the manual architect.
// Output is deterministic for a given set of params.
func buildManualPrompt(p ManualParams) string {
	brandName := p.BrandName
	if brandName == "" {
		brandName = p.Product
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parameters:\n- brand_name: %s\n- product: %s\n- tone: %s\n- audience: %s\n",
		brandName, p.Product, p.Tone, p.Audience)
	if extra := strings.TrimSpace(p.ExtraConstraints); extra != "" {
		fmt.Fprintf(&b, "- extra_constraints: %s\n", extra)
	}

	b.WriteString("\nVisual rules (USER SOURCE OF TRUTH):\n")
	fmt.Fprintf(&b, "- colors: %s\n", renderList(p.VisualRules.Colors))
	fmt.Fprintf(&b, "- logo_rules: %s\n", renderList(p.VisualRules.LogoRules))
	fmt.Fprintf(&b, "- typography: %s\n", renderList(p.VisualRules.Typography))
	fmt.Fprintf(&b, "- image_style: %s\n", renderList(p.VisualRules.ImageStyle))
	fmt.Fprintf(&b, "- notes: %s\n", p.VisualRules.Notes)

	b.WriteString(`
Non-negotiable rule:
- Do NOT invent new visual rules.
- If a list above is empty, it must stay empty in visual_guidelines, and notes must say "MISSING: user must define ...".

`)
	b.WriteString(manualSchemaHint)
	b.WriteString(`

Rules:
- Be specific in dos/donts and forbidden_terms.
- If you have no visual guidance, leave lists empty and explain in visual_guidelines.notes.
- Include 2 good and 2 bad examples (with "why").

Minimum required quality:
- approval_checklist: at least 8 verifiable checklist items (it can NOT be empty).
- style_rules.length_guidelines: use realistic defaults if no channel is given:
  { "title": "<= 6 words", "description": "<= 150 words", "script_15s": "60-90 words" }
- forbidden_claims: include 3-6 forbidden claims specific to the product.`)

	return b.String()
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	return "[" + strings.Join(items, ", ") + "]"
}
