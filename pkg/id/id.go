// Package id mints identifiers for trade records.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. IDs minted within the same millisecond stay
// lexicographically increasing, which keeps the trade log time-sortable.
func New() string {
	return ulid.Make().String()
}
