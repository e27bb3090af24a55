package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgrabowski/tabliczki-ztm/internal/dberr"
	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

func TestMapDatabaseError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{
			name:   "set sentinel",
			err:    domain.ErrSetNotFound,
			code:   dberr.CodeSetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "wrapped set sentinel",
			err:    fmt.Errorf("repo.SetRepo.Rename: %w", domain.ErrSetNotFound),
			code:   dberr.CodeSetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "no rows",
			err:    fmt.Errorf("repo: %w", pgx.ErrNoRows),
			code:   dberr.CodeSetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "no rows code",
			err:    &pgconn.PgError{Code: "PGRST116"},
			code:   dberr.CodeSetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "plain string sentinel",
			err:    errors.New("SET_NOT_FOUND"),
			code:   dberr.CodeSetNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "duplicate set name by constraint",
			err:    &pgconn.PgError{Code: "23505", ConstraintName: "sets_user_id_btrim_name_uniq"},
			code:   dberr.CodeDuplicateSetName,
			status: http.StatusConflict,
		},
		{
			name: "duplicate set name by message",
			err: &pgconn.PgError{
				Code:    "23505",
				Message: `duplicate key value violates unique constraint "sets_user_id_btrim_name_uniq"`,
			},
			code:   dberr.CodeDuplicateSetName,
			status: http.StatusConflict,
		},
		{
			name:   "max sets trigger",
			err:    &pgconn.PgError{Code: "P0001", Message: "MAX_SETS_PER_USER_EXCEEDED: user cannot have more than 6 sets"},
			code:   dberr.CodeMaxSetsPerUserExceeded,
			status: http.StatusBadRequest,
		},
		{
			name:   "duplicate stop in set",
			err:    &pgconn.PgError{Code: "23505", ConstraintName: "set_items_set_id_stop_id_uniq"},
			code:   dberr.CodeSetItemAlreadyExists,
			status: http.StatusConflict,
		},
		{
			name:   "max items trigger",
			err:    &pgconn.PgError{Code: "P0001", Message: "MAX_ITEMS_PER_SET_EXCEEDED: set cannot have more than 6 items"},
			code:   dberr.CodeMaxItemsPerSetExceeded,
			status: http.StatusBadRequest,
		},
		{
			name:   "item sentinel",
			err:    fmt.Errorf("repo.SetItemRepo.Delete: %w", domain.ErrItemNotFound),
			code:   dberr.CodeItemNotFound,
			status: http.StatusNotFound,
		},
		{
			name:   "permission denied code",
			err:    &pgconn.PgError{Code: "42501"},
			code:   dberr.CodeForbidden,
			status: http.StatusForbidden,
		},
		{
			name:   "permission denied message",
			err:    errors.New("permission denied for table sets"),
			code:   dberr.CodeForbidden,
			status: http.StatusForbidden,
		},
		{
			name:   "permission denied wrong case falls through",
			err:    errors.New("Permission Denied"),
			code:   dberr.CodeDatabaseError,
			status: http.StatusInternalServerError,
		},
		{
			name:   "unknown unique violation falls through",
			err:    &pgconn.PgError{Code: "23505", ConstraintName: "some_other_uniq"},
			code:   dberr.CodeDatabaseError,
			status: http.StatusInternalServerError,
		},
		{
			name:   "empty pg error",
			err:    &pgconn.PgError{},
			code:   dberr.CodeDatabaseError,
			status: http.StatusInternalServerError,
		},
		{
			name:   "no row returned is internal",
			err:    fmt.Errorf("repo.SetItemRepo.Add: %w", domain.ErrNoRowReturned),
			code:   dberr.CodeDatabaseError,
			status: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := dberr.MapDatabaseError(tc.err)

			assert.Equal(t, tc.code, got.Code)
			assert.Equal(t, tc.status, got.Status)
			assert.NotEmpty(t, got.Message)
		})
	}
}

// A set-not-found signal outranks everything else, even when the same error
// also carries a unique violation.
func TestMapDatabaseError_FirstMatchWins(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "sets_user_id_btrim_name_uniq"}
	err := fmt.Errorf("%w: %w", domain.ErrSetNotFound, pgErr)

	got := dberr.MapDatabaseError(err)

	assert.Equal(t, dberr.CodeSetNotFound, got.Code)
}

func TestMapDatabaseError_DuplicateNameBeforeQuota(t *testing.T) {
	err := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "sets_user_id_btrim_name_uniq",
		Message:        "MAX_SETS_PER_USER_EXCEEDED",
	}

	got := dberr.MapDatabaseError(err)

	assert.Equal(t, dberr.CodeDuplicateSetName, got.Code)
}

func TestMapDatabaseError_UnmappedIsNotEchoed(t *testing.T) {
	got := dberr.MapDatabaseError(errors.New("connection reset by peer: secret-host:5432"))

	assert.Equal(t, dberr.CodeDatabaseError, got.Code)
	assert.Equal(t, "An unexpected error occurred", got.Message)
	assert.NotContains(t, got.Message, "secret-host")
}

func TestMapDatabaseError_NilPanics(t *testing.T) {
	require.Panics(t, func() { dberr.MapDatabaseError(nil) })
}

func TestClassify_Kinds(t *testing.T) {
	assert.Equal(t, dberr.KindSetNotFound, dberr.Classify(domain.ErrSetNotFound))
	assert.Equal(t, dberr.KindItemNotFound, dberr.Classify(domain.ErrItemNotFound))
	assert.Equal(t, dberr.KindDatabase, dberr.Classify(errors.New("boom")))
}
