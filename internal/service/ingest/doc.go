// Package ingest validates and stores single engagement events.
//
// Track is the client path: it requires an identity, validates the payload,
// consults the deduplicator and writes at most one event. Emit is the
// shared write path other services use for server-side events; it skips
// deduplication.
//
// Dedup-then-write is not atomic. Two concurrent requests for the same key
// can both pass the check, which is accepted as best-effort.
package ingest
