package api

import (
	"net/http"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/service/ingest"
)

// TrackEvent records one engagement event. Deduped and throttled events are
// successful no-ops flagged in the response.
//
//	POST /v1/events
func (h *Handlers) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var in ingest.TrackInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	res, err := h.events.Track(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		respondError(w, r, "track event", err)
		return
	}
	httputil.OK(w, res)
}
