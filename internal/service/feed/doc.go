// Package feed builds the ranked content rails served on the home screen.
//
// Rails:
//   - for_you: decayed trending score over the last 48 hours
//   - new_this_week: published in the last 7 days, newest first
//   - following: creators the caller follows, newest first (auth required)
//   - underground: published in the last 7 days or under 500 views
//
// Every rail passes through a creator diversity cap: walking the ranked
// candidates in order, an item is kept only while its creator has fewer
// than two kept items. A pool without enough distinct creators returns
// fewer than limit items.
package feed
