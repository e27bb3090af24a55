package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// SetItemRepo defines the persistence operations for the stops inside a set.
// Apart from VerifyOwnership, methods take only the set id; callers must check
// ownership first.
type SetItemRepo interface {
	// VerifyOwnership returns domain.ErrSetNotFound unless setID belongs to userID.
	VerifyOwnership(ctx context.Context, userID, setID uuid.UUID) error

	// Add appends a stop to the set. The database assigns the position and
	// rejects the insert when the set is full or already holds the stop.
	Add(ctx context.Context, setID uuid.UUID, stopID int) (domain.SetItem, error)

	// List returns the set's items ordered by position ascending.
	List(ctx context.Context, setID uuid.UUID) ([]domain.SetItem, error)

	// Delete removes one item. Returns domain.ErrItemNotFound when the item is
	// not in the set.
	Delete(ctx context.Context, setID, itemID uuid.UUID) error
}

type pgSetItemRepo struct {
	db db
}

// NewSetItemRepo constructs a SetItemRepo backed by the provided db connection.
func NewSetItemRepo(db db) SetItemRepo {
	return &pgSetItemRepo{db: db}
}

func (r *pgSetItemRepo) VerifyOwnership(ctx context.Context, userID, setID uuid.UUID) error {
	return verifyOwnership(ctx, r.db, "repo.SetItemRepo.VerifyOwnership", userID, setID)
}

func (r *pgSetItemRepo) Add(ctx context.Context, setID uuid.UUID, stopID int) (domain.SetItem, error) {
	// position is filled in by the enforce_set_items_limit_and_position trigger.
	const q = `
		INSERT INTO set_items (set_id, stop_id)
		VALUES (@set_id, @stop_id)
		RETURNING id, set_id, stop_id, position, added_at`

	item, err := scanSetItem(r.db.QueryRow(ctx, q, pgx.NamedArgs{"set_id": setID, "stop_id": stopID}))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SetItem{}, fmt.Errorf("repo.SetItemRepo.Add: %w", domain.ErrNoRowReturned)
		}
		return domain.SetItem{}, fmt.Errorf("repo.SetItemRepo.Add: %w", err)
	}
	return item, nil
}

func (r *pgSetItemRepo) List(ctx context.Context, setID uuid.UUID) ([]domain.SetItem, error) {
	const q = `
		SELECT id, set_id, stop_id, position, added_at
		FROM set_items
		WHERE set_id = @set_id
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"set_id": setID})
	if err != nil {
		return nil, fmt.Errorf("repo.SetItemRepo.List: %w", err)
	}
	defer rows.Close()

	items := []domain.SetItem{}
	for rows.Next() {
		item, err := scanSetItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.SetItemRepo.List: scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.SetItemRepo.List: rows: %w", err)
	}
	return items, nil
}

func (r *pgSetItemRepo) Delete(ctx context.Context, setID, itemID uuid.UUID) error {
	const q = `DELETE FROM set_items WHERE id = @id AND set_id = @set_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": itemID, "set_id": setID})
	if err != nil {
		return fmt.Errorf("repo.SetItemRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.SetItemRepo.Delete: %w", domain.ErrItemNotFound)
	}
	return nil
}

func scanSetItem(s scanner) (domain.SetItem, error) {
	var (
		item  domain.SetItem
		id    pgtype.UUID
		setID pgtype.UUID
		stop  int32
		pos   int32
	)
	if err := s.Scan(&id, &setID, &stop, &pos, &item.AddedAt); err != nil {
		return domain.SetItem{}, err
	}
	item.ID = uuid.UUID(id.Bytes)
	item.SetID = uuid.UUID(setID.Bytes)
	item.StopID = int(stop)
	item.Position = int(pos)
	return item, nil
}
