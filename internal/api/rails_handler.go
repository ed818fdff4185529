package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/service/feed"
)

// GetRail returns an ordered rail.
//
//	GET /v1/rails/{rail}?limit=20&genre=lofi
func (h *Handlers) GetRail(w http.ResponseWriter, r *http.Request) {
	q := feed.RailQuery{
		Rail:  chi.URLParam(r, "rail"),
		Genre: r.URL.Query().Get("genre"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	h.serveRail(w, r, q)
}

// PostRail is GetRail with the parameters in the body.
//
//	POST /v1/rails
func (h *Handlers) PostRail(w http.ResponseWriter, r *http.Request) {
	var q feed.RailQuery
	if !httputil.Decode(w, r, &q) {
		return
	}
	h.serveRail(w, r, q)
}

func (h *Handlers) serveRail(w http.ResponseWriter, r *http.Request, q feed.RailQuery) {
	res, err := h.rails.Rail(r.Context(), auth.FromContext(r.Context()), q)
	if err != nil {
		respondError(w, r, "get rail", err)
		return
	}
	httputil.OK(w, res)
}
