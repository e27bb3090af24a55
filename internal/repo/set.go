// Package repo contains all database access logic for the sets API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping. Constraint and
// trigger violations are returned wrapped but uninterpreted; translating them
// is the job of package dberr.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SetRepo defines the persistence operations for Sets. Every operation is
// scoped to the owning user: a set owned by someone else behaves exactly like
// a set that does not exist.
type SetRepo interface {
	// Create inserts a set with the trimmed name and returns the stored row.
	Create(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error)

	// Rename sets a new trimmed name. Returns domain.ErrSetNotFound when no set
	// with that id belongs to userID.
	Rename(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error)

	// Delete removes a set and, through the foreign key, all its items.
	// Returns domain.ErrSetNotFound when nothing was deleted.
	Delete(ctx context.Context, userID, setID uuid.UUID) error

	// ListWithCounts returns every set owned by userID with its item count,
	// ordered by name ascending.
	ListWithCounts(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error)

	// VerifyOwnership returns domain.ErrSetNotFound unless setID exists and
	// belongs to userID. Store failures collapse into the same error.
	VerifyOwnership(ctx context.Context, userID, setID uuid.UUID) error
}

// pgSetRepo is the Postgres implementation of SetRepo.
type pgSetRepo struct {
	db db
}

// NewSetRepo constructs a SetRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewSetRepo(db db) SetRepo {
	return &pgSetRepo{db: db}
}

func (r *pgSetRepo) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error) {
	const q = `
		INSERT INTO sets (user_id, name)
		VALUES (@user_id, @name)
		RETURNING id, user_id, name, created_at, updated_at`

	args := pgx.NamedArgs{
		"user_id": userID,
		"name":    strings.TrimSpace(name),
	}

	set, err := scanSet(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Set{}, fmt.Errorf("repo.SetRepo.Create: %w", domain.ErrNoRowReturned)
		}
		return domain.Set{}, fmt.Errorf("repo.SetRepo.Create: %w", err)
	}
	return set, nil
}

func (r *pgSetRepo) Rename(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error) {
	const q = `
		UPDATE sets
		SET name       = @name,
		    updated_at = now()
		WHERE id = @id AND user_id = @user_id
		RETURNING id, user_id, name, created_at, updated_at`

	args := pgx.NamedArgs{
		"id":      setID,
		"user_id": userID,
		"name":    strings.TrimSpace(name),
	}

	set, err := scanSet(r.db.QueryRow(ctx, q, args))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Set{}, fmt.Errorf("repo.SetRepo.Rename: %w", domain.ErrSetNotFound)
		}
		return domain.Set{}, fmt.Errorf("repo.SetRepo.Rename: %w", err)
	}
	return set, nil
}

func (r *pgSetRepo) Delete(ctx context.Context, userID, setID uuid.UUID) error {
	const q = `DELETE FROM sets WHERE id = @id AND user_id = @user_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": setID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("repo.SetRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SetRepo.Delete: %w", domain.ErrSetNotFound)
	}
	return nil
}

func (r *pgSetRepo) ListWithCounts(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error) {
	const q = `
		SELECT s.id, s.user_id, s.name, s.created_at, s.updated_at, count(i.id)
		FROM sets s
		LEFT JOIN set_items i ON i.set_id = s.id
		WHERE s.user_id = @user_id
		GROUP BY s.id
		ORDER BY s.name ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.SetRepo.ListWithCounts: %w", err)
	}
	defer rows.Close()

	sets := []domain.SetSummary{}
	for rows.Next() {
		var (
			id    pgtype.UUID
			owner pgtype.UUID
			count int64
			s     domain.SetSummary
		)
		if err := rows.Scan(&id, &owner, &s.Name, &s.CreatedAt, &s.UpdatedAt, &count); err != nil {
			return nil, fmt.Errorf("repo.SetRepo.ListWithCounts: scan: %w", err)
		}
		s.ID = uuid.UUID(id.Bytes)
		s.UserID = uuid.UUID(owner.Bytes)
		s.ItemCount = int(count)
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SetRepo.ListWithCounts: rows: %w", err)
	}
	return sets, nil
}

func (r *pgSetRepo) VerifyOwnership(ctx context.Context, userID, setID uuid.UUID) error {
	return verifyOwnership(ctx, r.db, "repo.SetRepo.VerifyOwnership", userID, setID)
}

// verifyOwnership is shared by the set and item repos. The store error, if
// any, is kept in the chain for logging but ErrSetNotFound always matches.
func verifyOwnership(ctx context.Context, db db, op string, userID, setID uuid.UUID) error {
	const q = `SELECT EXISTS (SELECT 1 FROM sets WHERE id = @id AND user_id = @user_id)`

	var exists bool
	err := db.QueryRow(ctx, q, pgx.NamedArgs{"id": setID, "user_id": userID}).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrSetNotFound, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, domain.ErrSetNotFound)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSet(s scanner) (domain.Set, error) {
	var (
		set     domain.Set
		id      pgtype.UUID
		owner   pgtype.UUID
		created time.Time
		updated time.Time
	)
	if err := s.Scan(&id, &owner, &set.Name, &created, &updated); err != nil {
		return domain.Set{}, err
	}
	set.ID = uuid.UUID(id.Bytes)
	set.UserID = uuid.UUID(owner.Bytes)
	set.CreatedAt = created
	set.UpdatedAt = updated
	return set, nil
}
