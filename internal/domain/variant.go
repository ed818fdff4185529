package domain

// OriginalLabel is the label returned when a viewer is routed to the
// unmodified content instead of a variant.
const OriginalLabel = "original"

// Variant is an alternate rendering of a content item. Variants are
// deactivated, never deleted, to end their participation in allocation.
type Variant struct {
	ID              string `json:"id" db:"id"`
	ParentContentID string `json:"parentContentId" db:"parent_content_id"`
	Label           string `json:"label" db:"label"`
	IsActive        bool   `json:"isActive" db:"is_active"`
}
