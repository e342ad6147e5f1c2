package domain

import (
	"fmt"
	"time"
)

// Manual is an immutable snapshot of a brand's DNA. A brand may accumulate
// several manuals over time; generation and audits always use the latest one.
// Re-ingestion creates a new manual rather than mutating an existing one.
type Manual struct {
	ID        string
	BrandID   string
	Document  ManualDocument
	CreatedAt time.Time
}

// ManualDocument is the structured Brand DNA produced by the manual
// architect or supplied directly by the caller.
type ManualDocument struct {
	BrandName string   `json:"brand_name"`
	Product   string   `json:"product"`
	Audience  string   `json:"audience"`
	Tone      ToneSpec `json:"tone"`

	Messaging  MessagingSpec `json:"messaging"`
	StyleRules StyleRules    `json:"style_rules"`
	Visual     VisualSpec    `json:"visual_guidelines"`
	Examples   ExamplesSpec  `json:"examples"`

	ApprovalChecklist []string `json:"approval_checklist"`
	Assumptions       []string `json:"assumptions"`
}

type ToneSpec struct {
	Description string   `json:"description"`
	Dos         []string `json:"dos"`
	Donts       []string `json:"donts"`
}

type MessagingSpec struct {
	ValueProps      []string `json:"value_props"`
	Taglines        []string `json:"taglines"`
	ForbiddenClaims []string `json:"forbidden_claims"`
	PreferredTerms  []string `json:"preferred_terms"`
	ForbiddenTerms  []string `json:"forbidden_terms"`
}

type StyleRules struct {
	ReadingLevel     string            `json:"reading_level"`
	LengthGuidelines map[string]string `json:"length_guidelines"`
}

type VisualSpec struct {
	Colors     []string `json:"colors"`
	LogoRules  []string `json:"logo_rules"`
	Typography []string `json:"typography"`
	ImageStyle []string `json:"image_style"`
	Notes      string   `json:"notes"`
}

type ExamplesSpec struct {
	Good []Example `json:"good"`
	Bad  []Example `json:"bad"`
}

type Example struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Why  string `json:"why,omitempty"`
}

// ManualChunk is one retrievable segment of a manual. Chunks are immutable
// and only removed when the manual itself is deleted.
type ManualChunk struct {
	ID        string
	ManualID  string
	Section   string
	Ordinal   int
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// NewManual creates a new Manual instance
func NewManual(id, brandID string, doc ManualDocument, createdAt time.Time) *Manual {
	return &Manual{
		ID:        id,
		BrandID:   brandID,
		Document:  doc,
		CreatedAt: createdAt,
	}
}

// ValidateManual validates a Manual instance
func ValidateManual(m *Manual) error {
	if m == nil {
		return fmt.Errorf("manual cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("manual ID is required")
	}

	if m.BrandID == "" {
		return fmt.Errorf("manual BrandID is required")
	}

	return nil
}

// ValidateManualChunk validates a ManualChunk instance
func ValidateManualChunk(c *ManualChunk) error {
	if c == nil {
		return fmt.Errorf("manual chunk cannot be nil")
	}

	if c.ManualID == "" {
		return fmt.Errorf("manual chunk ManualID is required")
	}

	if c.Section == "" {
		return fmt.Errorf("manual chunk Section is required")
	}

	if c.Text == "" {
		return fmt.Errorf("manual chunk Text is required")
	}

	if c.Ordinal < 0 {
		return fmt.Errorf("manual chunk Ordinal cannot be negative")
	}

	return nil
}
