package api

import (
	"net/http"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/pkg/httputil"
)

type allocateRequest struct {
	ContentID string `json:"contentId"`
}

// AllocateVariant picks the variant a viewer hears.
//
//	POST /v1/variants/allocate
func (h *Handlers) AllocateVariant(w http.ResponseWriter, r *http.Request) {
	var in allocateRequest
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.alloc.Allocate(r.Context(), auth.FromContext(r.Context()), in.ContentID)
	if err != nil {
		respondError(w, r, "allocate variant", err)
		return
	}
	httputil.OK(w, res)
}
