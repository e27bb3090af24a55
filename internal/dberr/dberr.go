// Package dberr translates errors coming out of the repo layer into the closed
// set of API error codes and HTTP statuses exposed to clients.
package dberr

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// API error codes produced by MapDatabaseError.
const (
	CodeSetNotFound            = "SET_NOT_FOUND"
	CodeDuplicateSetName       = "DUPLICATE_SET_NAME"
	CodeMaxSetsPerUserExceeded = "MAX_SETS_PER_USER_EXCEEDED"
	CodeSetItemAlreadyExists   = "SET_ITEM_ALREADY_EXISTS"
	CodeMaxItemsPerSetExceeded = "MAX_ITEMS_PER_SET_EXCEEDED"
	CodeItemNotFound           = "ITEM_NOT_FOUND"
	CodeForbidden              = "FORBIDDEN"
	CodeDatabaseError          = "DATABASE_ERROR"
)

// Markers that the schema puts into constraint names and trigger messages.
const (
	pgUniqueViolation    = "23505"
	pgInsufficientPriv   = "42501"
	noRowsCode           = "PGRST116"
	setNameUniqueMarker  = "btrim_name_uniq"
	setNameConstraint    = "sets_user_id_btrim_name_uniq"
	itemStopConstraint   = "set_items_set_id_stop_id_uniq"
	permissionDeniedText = "permission denied"
)

// Kind is the classification of a repo error. Every Kind maps to exactly one
// API error in MapDatabaseError.
type Kind int

const (
	KindDatabase Kind = iota
	KindSetNotFound
	KindDuplicateSetName
	KindMaxSetsPerUser
	KindSetItemExists
	KindMaxItemsPerSet
	KindItemNotFound
	KindForbidden
)

// Mapped is the client-facing form of an error.
type Mapped struct {
	Code    string
	Message string
	Status  int
}

// fields are the parts of an error the classifier looks at.
type fields struct {
	code       string
	constraint string
	message    string
}

// extract pulls code, constraint and message out of err. Postgres errors carry
// all three; anything else only contributes its message.
// Calling it with a nil error panics.
func extract(err error) fields {
	f := fields{message: err.Error()}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		f.code = pgErr.Code
		f.constraint = pgErr.ConstraintName
		f.message = pgErr.Message
	}
	return f
}

// Classify resolves err to a Kind. The checks run in a fixed order and the
// first match wins, since one error can satisfy several patterns.
func Classify(err error) Kind {
	f := extract(err)

	switch {
	case errors.Is(err, domain.ErrSetNotFound),
		errors.Is(err, pgx.ErrNoRows),
		f.code == CodeSetNotFound, f.code == noRowsCode,
		f.message == CodeSetNotFound:
		return KindSetNotFound

	case f.code == pgUniqueViolation &&
		(strings.Contains(f.constraint, setNameUniqueMarker) || strings.Contains(f.message, setNameConstraint)):
		return KindDuplicateSetName

	case strings.Contains(f.message, CodeMaxSetsPerUserExceeded):
		return KindMaxSetsPerUser

	case f.code == pgUniqueViolation &&
		(f.constraint == itemStopConstraint || strings.Contains(f.message, itemStopConstraint)):
		return KindSetItemExists

	case strings.Contains(f.message, CodeMaxItemsPerSetExceeded):
		return KindMaxItemsPerSet

	case errors.Is(err, domain.ErrItemNotFound),
		f.code == CodeItemNotFound,
		f.message == CodeItemNotFound:
		return KindItemNotFound

	case f.code == pgInsufficientPriv,
		strings.Contains(f.message, permissionDeniedText):
		return KindForbidden
	}

	return KindDatabase
}

// MapDatabaseError converts a repo error into its API code, message and HTTP
// status. Errors that match no known pattern are reported as a generic
// DATABASE_ERROR so internal details never reach the client; logging them is
// the caller's job.
//
// err must not be nil; a nil error panics.
func MapDatabaseError(err error) Mapped {
	switch Classify(err) {
	case KindSetNotFound:
		return Mapped{CodeSetNotFound, "Set not found or access denied", http.StatusNotFound}
	case KindDuplicateSetName:
		return Mapped{CodeDuplicateSetName, "A set with this name already exists", http.StatusConflict}
	case KindMaxSetsPerUser:
		return Mapped{CodeMaxSetsPerUserExceeded, "Maximum number of sets (6) reached for this user", http.StatusBadRequest}
	case KindSetItemExists:
		return Mapped{CodeSetItemAlreadyExists, "This stop is already added to the set", http.StatusConflict}
	case KindMaxItemsPerSet:
		return Mapped{CodeMaxItemsPerSetExceeded, "Maximum number of items (6) reached for this set", http.StatusBadRequest}
	case KindItemNotFound:
		return Mapped{CodeItemNotFound, "Item not found or access denied", http.StatusNotFound}
	case KindForbidden:
		return Mapped{CodeForbidden, "Access denied", http.StatusForbidden}
	case KindDatabase:
		return Mapped{CodeDatabaseError, "An unexpected error occurred", http.StatusInternalServerError}
	}
	panic("dberr: unhandled kind")
}
