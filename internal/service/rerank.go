package service

import (
	"sort"
	"strings"

	"github.com/cadenlabs/brandgov/internal/domain"
)

// sectionWeights maps manual sections to retrieval priority. Hard
// prohibitions always outrank stylistic guidance regardless of semantic
// similarity.
var sectionWeights = []struct {
	prefix string
	weight int
}{
	{"messaging.forbidden_claims", 100},
	{"messaging.forbidden_terms", 100},
	{"tone.donts", 90},
	{"tone.dos", 85},
	{"style_rules", 80},
	{"approval_checklist", 75},
	{"messaging.preferred_terms", 70},
	{"messaging.value_props", 65},
	{"messaging.taglines", 60},
	{"visual.logo_rules", 40},
	{"visual.typography", 35},
	{"visual.colors", 35},
	{"visual.image_style", 30},
	{"visual.notes", 20},
	{"examples.bad", 15},
	{"examples.good", 10},
}

func weightForSection(section string) int {
	section = strings.TrimSpace(section)
	for _, sw := range sectionWeights {
		if section == sw.prefix || strings.HasPrefix(section, sw.prefix) {
			return sw.weight
		}
	}
	return 0
}

func typeBonus(section string, contentType domain.ContentType) int {
	switch contentType {
	case domain.ContentTypeImagePrompt:
		if strings.HasPrefix(section, "visual.") {
			return 25
		}
	case domain.ContentTypeScript:
		if strings.HasPrefix(section, "tone.") {
			return 10
		}
	case domain.ContentTypeDescription:
		bonus := 0
		if strings.HasPrefix(section, "messaging.value_props") {
			bonus += 10
		}
		if strings.HasPrefix(section, "messaging.preferred_terms") {
			bonus += 10
		}
		return bonus
	}
	return 0
}

// rerankScore combines the section weight with semantic similarity. The
// weight is multiplied so it dominates; similarity only breaks ties within
// a section tier.
func rerankScore(c ScoredChunk, contentType domain.ContentType) float64 {
	w := weightForSection(c.Chunk.Section) + typeBonus(c.Chunk.Section, contentType)
	return float64(w)*1000.0 + c.Score*100.0
}

// RerankChunks reorders retrieved chunks by combined rule-priority and
// similarity score and keeps the top keepK. Equal scores fall back to chunk
// ordinal, then chunk ID, so the ordering is fully deterministic.
func RerankChunks(chunks []ScoredChunk, contentType domain.ContentType, keepK int) []ScoredChunk {
	ranked := make([]ScoredChunk, len(chunks))
	copy(ranked, chunks)

	sort.SliceStable(ranked, func(i, j int) bool {
		si := rerankScore(ranked[i], contentType)
		sj := rerankScore(ranked[j], contentType)
		if si != sj {
			return si > sj
		}
		if ranked[i].Chunk.Ordinal != ranked[j].Chunk.Ordinal {
			return ranked[i].Chunk.Ordinal < ranked[j].Chunk.Ordinal
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})

	if keepK > 0 && len(ranked) > keepK {
		ranked = ranked[:keepK]
	}
	return ranked
}
