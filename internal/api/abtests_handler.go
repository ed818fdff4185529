package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/soundbite/engagement/internal/auth"
	"github.com/soundbite/engagement/internal/pkg/httputil"
	"github.com/soundbite/engagement/internal/service/abtest"
)

type concludeRequest struct {
	TestID string `json:"testId"`
}

// StartABTest creates a running test for content the caller owns.
//
//	POST /v1/ab-tests
func (h *Handlers) StartABTest(w http.ResponseWriter, r *http.Request) {
	var in abtest.StartInput
	if !httputil.Decode(w, r, &in) {
		return
	}

	test, err := h.tests.Start(r.Context(), auth.FromContext(r.Context()), in)
	if err != nil {
		respondError(w, r, "start ab test", err)
		return
	}
	httputil.Created(w, test)
}

// GetABTestResults computes current results without concluding.
//
//	GET /v1/ab-tests/{testId}/results
func (h *Handlers) GetABTestResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.tests.Preview(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "testId"))
	if err != nil {
		respondError(w, r, "preview ab test", err)
		return
	}
	httputil.OK(w, res)
}

// ConcludeABTest concludes the test named in the path.
//
//	POST /v1/ab-tests/{testId}/conclude
func (h *Handlers) ConcludeABTest(w http.ResponseWriter, r *http.Request) {
	h.conclude(w, r, chi.URLParam(r, "testId"))
}

// ConcludeABTestBody concludes the test named in the body.
//
//	POST /v1/ab-tests/conclude
func (h *Handlers) ConcludeABTestBody(w http.ResponseWriter, r *http.Request) {
	var in concludeRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	h.conclude(w, r, in.TestID)
}

func (h *Handlers) conclude(w http.ResponseWriter, r *http.Request, testID string) {
	res, err := h.tests.Conclude(r.Context(), auth.FromContext(r.Context()), testID)
	if err != nil {
		respondError(w, r, "conclude ab test", err)
		return
	}
	httputil.OK(w, res)
}
