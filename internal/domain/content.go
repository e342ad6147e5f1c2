package domain

import (
	"fmt"
	"time"
)

// ContentType represents the kind of artifact being generated
type ContentType string

const (
	ContentTypeDescription ContentType = "description"
	ContentTypeScript      ContentType = "script"
	ContentTypeImagePrompt ContentType = "image_prompt"
)

// ContentStatus represents the lifecycle state of a content piece.
// PENDING is the only non-terminal state; APPROVED and REJECTED are
// terminal and can never be re-entered.
type ContentStatus string

const (
	ContentStatusPending  ContentStatus = "PENDING"
	ContentStatusApproved ContentStatus = "APPROVED"
	ContentStatusRejected ContentStatus = "REJECTED"
)

// ContextChunk is the snapshot of one retrieved manual chunk frozen onto a
// content piece at generation time, so the audit trail survives manual
// re-ingestion.
type ContextChunk struct {
	ChunkID    string  `json:"chunk_id"`
	Section    string  `json:"section"`
	Ordinal    int     `json:"ordinal"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// ContentPiece is a generated artifact flowing through the approval workflow.
// Pieces are never hard-deleted; a rejected piece is resubmitted by creating
// a new one.
type ContentPiece struct {
	ID        string
	BrandID   string
	ManualID  string
	CreatorID string
	Type      ContentType
	Brief     string
	Output    string
	Context   []ContextChunk
	Status    ContentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal returns true once the piece has been approved or rejected.
func (p *ContentPiece) IsTerminal() bool {
	return p.Status == ContentStatusApproved || p.Status == ContentStatusRejected
}

// ValidateContentPiece validates a ContentPiece instance
func ValidateContentPiece(p *ContentPiece) error {
	if p == nil {
		return fmt.Errorf("content piece cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("content piece ID is required")
	}

	if p.BrandID == "" {
		return fmt.Errorf("content piece BrandID is required")
	}

	if p.ManualID == "" {
		return fmt.Errorf("content piece ManualID is required")
	}

	if p.CreatorID == "" {
		return fmt.Errorf("content piece CreatorID is required")
	}

	if p.Brief == "" {
		return fmt.Errorf("content piece Brief is required")
	}

	if !IsValidContentType(p.Type) {
		return fmt.Errorf("content piece Type is invalid: %s", p.Type)
	}

	if !IsValidContentStatus(p.Status) {
		return fmt.Errorf("content piece Status is invalid: %s", p.Status)
	}

	return nil
}

// IsValidContentType checks if a ContentType is valid
func IsValidContentType(t ContentType) bool {
	switch t {
	case ContentTypeDescription, ContentTypeScript, ContentTypeImagePrompt:
		return true
	}
	return false
}

// IsValidContentStatus checks if a ContentStatus is valid
func IsValidContentStatus(s ContentStatus) bool {
	switch s {
	case ContentStatusPending, ContentStatusApproved, ContentStatusRejected:
		return true
	}
	return false
}
