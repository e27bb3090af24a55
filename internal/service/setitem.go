package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/repo"
)

// SetItemService implements business logic for the stops inside a set.
// Every operation first checks that the set belongs to the caller.
type SetItemService struct {
	items repo.SetItemRepo
}

// NewSetItemService constructs a SetItemService backed by the provided repo.
func NewSetItemService(items repo.SetItemRepo) *SetItemService {
	return &SetItemService{items: items}
}

// Add appends stopID to the set. The database assigns the position.
func (s *SetItemService) Add(ctx context.Context, userID, setID uuid.UUID, stopID int) (domain.SetItem, error) {
	if stopID <= 0 {
		return domain.SetItem{}, fmt.Errorf("%w: stop id must be a positive integer", domain.ErrValidation)
	}
	if err := s.items.VerifyOwnership(ctx, userID, setID); err != nil {
		return domain.SetItem{}, fmt.Errorf("service.SetItemService.Add: %w", err)
	}
	item, err := s.items.Add(ctx, setID, stopID)
	if err != nil {
		return domain.SetItem{}, fmt.Errorf("service.SetItemService.Add: %w", err)
	}
	return item, nil
}

// List returns the set's items ordered by position. Always returns a non-nil slice.
func (s *SetItemService) List(ctx context.Context, userID, setID uuid.UUID) ([]domain.SetItem, error) {
	if err := s.items.VerifyOwnership(ctx, userID, setID); err != nil {
		return nil, fmt.Errorf("service.SetItemService.List: %w", err)
	}
	items, err := s.items.List(ctx, setID)
	if err != nil {
		return nil, fmt.Errorf("service.SetItemService.List: %w", err)
	}
	if items == nil {
		return []domain.SetItem{}, nil
	}
	return items, nil
}

// Delete removes one item. Returns domain.ErrSetNotFound when the set is not
// the caller's, and domain.ErrItemNotFound when the item is not in the set.
func (s *SetItemService) Delete(ctx context.Context, userID, setID, itemID uuid.UUID) error {
	if err := s.items.VerifyOwnership(ctx, userID, setID); err != nil {
		return fmt.Errorf("service.SetItemService.Delete: %w", err)
	}
	if err := s.items.Delete(ctx, setID, itemID); err != nil {
		return fmt.Errorf("service.SetItemService.Delete: %w", err)
	}
	return nil
}
