// Package conflict prevents concurrently scheduled work from colliding on
// shared trading resources.
//
// A task of a mutating kind (order placement, position modification) must
// not coexist in flight with another mutating task that targets the same
// resource key. The key derives from the payload's symbol and ownerId
// fields. Kinds not registered in the mutating table (read-only analysis,
// data collection) always pass; the check is advisory-only for them.
//
// The detector is consulted at submission time; a conflicting candidate is
// rejected with ErrConflict and never enqueued.
package conflict
