// Package allocation decides which variant of a content item a viewer is
// served.
//
// Anonymous viewers get a uniform random choice among the active variants.
// Authenticated viewers are bucketed by sha256(user:content:test) so a
// listener keeps seeing the same variant while a test runs. With no
// active variants the original is served.
package allocation
