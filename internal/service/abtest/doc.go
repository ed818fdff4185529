// Package abtest runs two-variant experiments on a content item and
// decides them with a pooled two-proportion z-test.
//
// Metrics per variant:
//   - completion_rate: complete / play_start x 100
//   - engagement_score: like + 2 x share + 1.5 x save
//   - cta_click_rate: cta_click / impression x 100
//
// Sample size is the number of distinct users with any event on the
// variant since the test started. Concluding is terminal: a second
// conclude is rejected with ErrAlreadyConcluded and nothing is rewritten.
package abtest
