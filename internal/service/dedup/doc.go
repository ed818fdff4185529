// Package dedup suppresses duplicate and rapid-fire engagement events.
//
// Policy, keyed by (user, content, kind):
//   - play_start within 60s of the previous one is "deduped"
//   - like, save and follow within 3s of the previous one are "throttled"
//   - every other kind is always accepted
//
// The last-seen timestamp is refreshed on every check of a ruled kind,
// accepted or not, so the window slides: a client that keeps firing faster
// than the window stays suppressed until it pauses for a full window. Likes
// at 0s, 2s and 4s accept only the first, since each is 2s after the one
// before. Entries older than twice the longest window are purged.
//
// Two backings exist. Memory is per-process and best-effort: replicas do
// not share state, so a user alternating between instances can double-fire
// inside a window. Redis shares state across instances at the cost of a
// round-trip per check.
package dedup
