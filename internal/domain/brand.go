package domain

import (
	"fmt"
	"time"
)

// Brand is the owner of manuals and generated content.
type Brand struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// NewBrand creates a new Brand instance
func NewBrand(id, name string, createdAt time.Time) *Brand {
	return &Brand{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

// ValidateBrand validates a Brand instance
func ValidateBrand(b *Brand) error {
	if b == nil {
		return fmt.Errorf("brand cannot be nil")
	}

	if b.ID == "" {
		return fmt.Errorf("brand ID is required")
	}

	if b.Name == "" {
		return fmt.Errorf("brand Name is required")
	}

	return nil
}
