package feed

import (
	"fmt"

	"github.com/soundbite/engagement/internal/domain"
)

// Sentinel errors for the feed service layer.
var (
	ErrInvalidLimit  = fmt.Errorf("%w: invalid limit", domain.ErrValidation)
	ErrFollowingAuth = fmt.Errorf("%w: the following rail requires sign-in", domain.ErrUnauthenticated)
)
