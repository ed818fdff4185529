// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Handlers write every response through these helpers so JSON formatting
// and the error envelope stay consistent across endpoints.
package httputil
