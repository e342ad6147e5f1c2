package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// maxChunkChars bounds the size of a single chunk. Manual sections are
// usually short, but model-written notes can run long enough to hurt
// embedding quality.
const maxChunkChars = 1600

// SectionChunk is one chunkable segment of a manual before persistence.
type SectionChunk struct {
	Section string
	Text    string
}

// ChunkManual splits a manual document into deterministic per-section
// chunks. Empty sections produce no chunk, so chunk counts vary between
// manuals. Ordinals are assigned by the caller from slice order.
func ChunkManual(doc domain.ManualDocument) []SectionChunk {
	var chunks []SectionChunk

	add := func(section, text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		for _, part := range splitLongText(text, maxChunkChars) {
			chunks = append(chunks, SectionChunk{Section: section, Text: part})
		}
	}

	add("tone.description", doc.Tone.Description)
	add("tone.dos", strings.Join(doc.Tone.Dos, "\n"))
	add("tone.donts", strings.Join(doc.Tone.Donts, "\n"))

	add("messaging.value_props", strings.Join(doc.Messaging.ValueProps, "\n"))
	add("messaging.taglines", strings.Join(doc.Messaging.Taglines, "\n"))
	add("messaging.forbidden_claims", strings.Join(doc.Messaging.ForbiddenClaims, "\n"))
	add("messaging.preferred_terms", strings.Join(doc.Messaging.PreferredTerms, "\n"))
	add("messaging.forbidden_terms", strings.Join(doc.Messaging.ForbiddenTerms, "\n"))

	add("style_rules.reading_level", doc.StyleRules.ReadingLevel)
	add("style_rules.length_guidelines", renderLengthGuidelines(doc.StyleRules.LengthGuidelines))

	add("visual.colors", strings.Join(doc.Visual.Colors, "\n"))
	add("visual.logo_rules", strings.Join(doc.Visual.LogoRules, "\n"))
	add("visual.typography", strings.Join(doc.Visual.Typography, "\n"))
	add("visual.image_style", strings.Join(doc.Visual.ImageStyle, "\n"))
	add("visual.notes", doc.Visual.Notes)

	add("examples.good", renderExamples(doc.Examples.Good, false))
	add("examples.bad", renderExamples(doc.Examples.Bad, true))

	add("approval_checklist", strings.Join(doc.ApprovalChecklist, "\n"))
	add("assumptions", strings.Join(doc.Assumptions, "\n"))

	return chunks
}

// renderLengthGuidelines renders the map with sorted keys so chunking is
// deterministic across runs.
func renderLengthGuidelines(lg map[string]string) string {
	if len(lg) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lg))
	for k := range lg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, lg[k]))
	}
	return strings.Join(lines, "\n")
}

func renderExamples(examples []domain.Example, withWhy bool) string {
	if len(examples) == 0 {
		return ""
	}
	parts := make([]string, 0, len(examples))
	for _, ex := range examples {
		if withWhy {
			parts = append(parts, fmt.Sprintf("%s: %s (why: %s)", ex.Type, ex.Text, ex.Why))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", ex.Type, ex.Text))
		}
	}
	return strings.Join(parts, "\n\n")
}

// splitLongText splits text at newline boundaries, falling back to a hard
// cut for a single oversized line.
func splitLongText(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	for _, line := range strings.Split(text, "\n") {
		for len(line) > limit {
			parts = appendPart(parts, &current)
			parts = append(parts, line[:limit])
			line = line[limit:]
		}
		if current.Len() > 0 && current.Len()+len(line)+1 > limit {
			parts = appendPart(parts, &current)
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	return appendPart(parts, &current)
}

func appendPart(parts []string, b *strings.Builder) []string {
	if s := strings.TrimSpace(b.String()); s != "" {
		parts = append(parts, s)
	}
	b.Reset()
	return parts
}
