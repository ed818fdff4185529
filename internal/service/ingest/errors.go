package ingest

import (
	"fmt"

	"github.com/soundbite/engagement/internal/domain"
)

// Sentinel errors for the ingest service layer.
var (
	ErrContentNotFound = fmt.Errorf("%w: content not found", domain.ErrValidation)
	ErrVariantMismatch = fmt.Errorf("%w: variantId does not belong to contentId", domain.ErrValidation)
)
