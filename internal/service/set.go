// Package service holds the business operations behind the HTTP handlers.
// Services depend on repo interfaces so they can be unit-tested with mocks.
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/repo"
)

// SetService implements business logic for a user's sets.
type SetService struct {
	sets repo.SetRepo
}

// NewSetService constructs a SetService backed by the provided repo.
func NewSetService(sets repo.SetRepo) *SetService {
	return &SetService{sets: sets}
}

// Create validates and stores a new set for userID. Duplicate names and the
// per-user quota are enforced by the database and come back as raw errors.
func (s *SetService) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error) {
	name, err := normalizeSetName(name)
	if err != nil {
		return domain.Set{}, err
	}
	set, err := s.sets.Create(ctx, userID, name)
	if err != nil {
		return domain.Set{}, fmt.Errorf("service.SetService.Create: %w", err)
	}
	return set, nil
}

// Rename changes a set's name. Returns domain.ErrSetNotFound when the set is
// missing or owned by another user.
func (s *SetService) Rename(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error) {
	name, err := normalizeSetName(name)
	if err != nil {
		return domain.Set{}, err
	}
	set, err := s.sets.Rename(ctx, userID, setID, name)
	if err != nil {
		return domain.Set{}, fmt.Errorf("service.SetService.Rename: %w", err)
	}
	return set, nil
}

// Delete removes a set and its items.
func (s *SetService) Delete(ctx context.Context, userID, setID uuid.UUID) error {
	if err := s.sets.Delete(ctx, userID, setID); err != nil {
		return fmt.Errorf("service.SetService.Delete: %w", err)
	}
	return nil
}

// List returns the user's sets with item counts, ordered by name.
// Always returns a non-nil slice.
func (s *SetService) List(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error) {
	sets, err := s.sets.ListWithCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.SetService.List: %w", err)
	}
	if sets == nil {
		return []domain.SetSummary{}, nil
	}
	return sets, nil
}

// normalizeSetName trims name and enforces the length rule. Handlers validate
// first; this guards callers that bypass them.
func normalizeSetName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < 1 || n > domain.MaxSetNameRunes {
		return "", fmt.Errorf("%w: set name must be 1 to %d characters", domain.ErrValidation, domain.MaxSetNameRunes)
	}
	return name, nil
}
