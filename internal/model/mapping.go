package model

import "time"

// MappingStatus tracks the review state of an external taxonomy mapping.
type MappingStatus string

const (
	// MappingPending is a mapping seen but not yet reviewed; it is never
	// applied automatically.
	MappingPending MappingStatus = "pending"
	// MappingApproved is a human-approved mapping, applied at the higher
	// confidence tier.
	MappingApproved MappingStatus = "approved"
	// MappingRejected is a mapping a human explicitly declined.
	MappingRejected MappingStatus = "rejected"
	// MappingUnmapped marks an external value a human decided carries no
	// useful category signal.
	MappingUnmapped MappingStatus = "unmapped"
)

// Valid reports whether the status is one of the known variants.
func (s MappingStatus) Valid() bool {
	switch s {
	case MappingPending, MappingApproved, MappingRejected, MappingUnmapped:
		return true
	}
	return false
}

// ExternalMapping translates one value of a foreign category vocabulary
// (keyed by its source) into a registry category.
type ExternalMapping struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ExternalCategory string
	Source           string
	Status           MappingStatus
	UserCategoryID   *int64
	ID               int64
	Confidence       int
}
