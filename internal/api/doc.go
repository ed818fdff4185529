// Package api exposes the engagement operations over HTTP.
//
// Routes (all JSON):
//
//	POST /v1/events                        track an engagement event
//	POST /v1/variants/allocate             pick a variant for a viewer
//	GET  /v1/rails/{rail}?limit=&genre=    ordered rail
//	POST /v1/rails                         same, parameters in the body
//	POST /v1/ab-tests                      start a test (owner only)
//	GET  /v1/ab-tests/{testId}/results     preview without concluding
//	POST /v1/ab-tests/{testId}/conclude    conclude a running test
//	POST /v1/ab-tests/conclude             same, {testId} in the body
//	GET  /health                           liveness and database ping
//	GET  /metrics                          Prometheus exposition
//
// Callers authenticate with "Authorization: Bearer <jwt>". A missing header
// is anonymous; a malformed or invalid one is rejected with 401.
package api
