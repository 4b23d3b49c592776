package domain

import "errors"

// ErrNotFound is returned by stores when a write targets a listing that does
// not exist. Lookups report absence as a nil listing instead.
var ErrNotFound = errors.New("listing not found")
