package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// extractJSONObject pulls the first {...} object out of raw model output,
// tolerating markdown fences and surrounding prose.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty model output")
	}
	if json.Valid([]byte(text)) && strings.HasPrefix(text, "{") {
		return text, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return text[start : end+1], nil
}

// NormalizeManualDocument decodes loosely-typed model output into a
// ManualDocument. Models routinely return strings where lists are expected
// and vice versa, so every field is coerced rather than strictly decoded.
func NormalizeManualDocument(text string) (domain.ManualDocument, error) {
	var doc domain.ManualDocument

	obj, err := extractJSONObject(text)
	if err != nil {
		return doc, err
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return doc, fmt.Errorf("malformed manual JSON: %w", err)
	}

	doc.BrandName = asString(raw["brand_name"])
	doc.Product = asString(raw["product"])
	doc.Audience = asString(raw["audience"])

	tone := asMap(raw["tone"])
	doc.Tone = domain.ToneSpec{
		Description: asString(tone["description"]),
		Dos:         asStringList(tone["dos"]),
		Donts:       asStringList(tone["donts"]),
	}

	msg := asMap(raw["messaging"])
	doc.Messaging = domain.MessagingSpec{
		ValueProps:      asStringList(msg["value_props"]),
		Taglines:        asStringList(msg["taglines"]),
		ForbiddenClaims: asStringList(msg["forbidden_claims"]),
		PreferredTerms:  asStringList(msg["preferred_terms"]),
		ForbiddenTerms:  asStringList(msg["forbidden_terms"]),
	}

	sr := asMap(raw["style_rules"])
	doc.StyleRules = domain.StyleRules{
		ReadingLevel:     normalizeReadingLevel(asString(sr["reading_level"])),
		LengthGuidelines: asStringMap(sr["length_guidelines"]),
	}

	vg := asMap(raw["visual_guidelines"])
	doc.Visual = domain.VisualSpec{
		Colors:     asStringList(vg["colors"]),
		LogoRules:  asStringList(vg["logo_rules"]),
		Typography: asStringList(vg["typography"]),
		ImageStyle: asStringList(vg["image_style"]),
		Notes:      asString(vg["notes"]),
	}

	ex := asMap(raw["examples"])
	doc.Examples = domain.ExamplesSpec{
		Good: asExamples(ex["good"]),
		Bad:  asExamples(ex["bad"]),
	}

	doc.ApprovalChecklist = asStringList(raw["approval_checklist"])
	doc.Assumptions = asStringList(raw["assumptions"])

	return doc, nil
}

// normalizeReadingLevel collapses free-form reading levels onto the two
// supported values.
func normalizeReadingLevel(v string) string {
	if strings.Contains(strings.ToLower(v), "med") {
		return "medium"
	}
	return "simple"
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	if s, ok := v.(string); ok && s != "" {
		return map[string]any{"notes": s}
	}
	return map[string]any{}
}

// asStringList coerces a value to a string slice. Strings are split on
// newlines with bullet markers stripped, matching how models tend to
// flatten lists.
func asStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return []string{}
		}
		var out []string
		for _, line := range strings.Split(strings.ReplaceAll(trimmed, "\r", ""), "\n") {
			line = strings.Trim(line, " -•\t")
			if line != "" {
				out = append(out, line)
			}
		}
		if len(out) == 0 {
			return []string{trimmed}
		}
		return out
	default:
		return []string{asString(t)}
	}
}

func asStringMap(v any) map[string]string {
	out := map[string]string{}
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			out[k] = asString(item)
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out["notes"] = s
		}
	}
	return out
}

func asExamples(v any) []domain.Example {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]domain.Example, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		ex := domain.Example{
			Type: asString(m["type"]),
			Text: asString(m["text"]),
			Why:  asString(m["why"]),
		}
		if ex.Text != "" {
			out = append(out, ex)
		}
	}
	return out
}
