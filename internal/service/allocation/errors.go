package allocation

import (
	"fmt"

	"github.com/soundbite/engagement/internal/domain"
)

// ErrContentNotFound is returned when the requested content does not exist.
var ErrContentNotFound = fmt.Errorf("%w: content not found", domain.ErrNotFound)
