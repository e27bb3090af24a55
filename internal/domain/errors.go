package domain

import "errors"

// ErrSetNotFound is returned when a set does not exist or is owned by someone
// else. The two cases are deliberately indistinguishable to callers.
// Handlers map this to HTTP 404.
var ErrSetNotFound = errors.New("SET_NOT_FOUND")

// ErrItemNotFound is returned when an item does not exist within the given set.
// Handlers map this to HTTP 404.
var ErrItemNotFound = errors.New("ITEM_NOT_FOUND")

// ErrNoRowReturned is returned when an INSERT reported success but produced no
// row. It is an internal fault, not a domain condition, and maps to HTTP 500.
var ErrNoRowReturned = errors.New("insert returned no row")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. blank set name, non-positive stop id).
// Handlers map this to HTTP 400.
var ErrValidation = errors.New("validation error")
