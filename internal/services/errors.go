// Package services holds the listing entity accessor: the operations the HTTP
// layer performs against the listing store. This file centralizes the
// service-level error values so callers can check them with errors.Is.
//
// Translation into user-facing messages and HTTP statuses happens in the
// handler layer.
package services

import "github.com/tbourn/go-listings/internal/domain"

// ErrListingNotFound indicates that the listing targeted by an update does
// not exist. It aliases domain.ErrNotFound so store and service errors
// compare equal.
var ErrListingNotFound = domain.ErrNotFound
