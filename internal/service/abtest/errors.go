package abtest

import (
	"fmt"

	"github.com/soundbite/engagement/internal/domain"
)

// Sentinel errors for the A/B test service layer.
var (
	ErrTestNotFound      = fmt.Errorf("%w: test not found or unauthorized", domain.ErrNotFound)
	ErrContentNotFound   = fmt.Errorf("%w: content not found or unauthorized", domain.ErrNotFound)
	ErrAlreadyConcluded  = fmt.Errorf("%w: test already concluded", domain.ErrConflict)
	ErrTestRunning       = fmt.Errorf("%w: a test is already running for this content", domain.ErrConflict)
	ErrNotEnoughVariants = fmt.Errorf("%w: at least two active variants are required", domain.ErrValidation)
	ErrVariantNotActive  = fmt.Errorf("%w: variantAId and variantBId must be active variants of contentId", domain.ErrValidation)
)
