package domain

import (
	"time"

	"github.com/google/uuid"
)

// Limits enforced by database triggers. They are mirrored here only so that
// user-facing messages and tests can refer to them.
const (
	MaxSetsPerUser  = 6
	MaxItemsPerSet  = 6
	MaxSetNameRunes = 20
)

// Set is a named, user-owned collection of transit stops.
type Set struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SetSummary is a Set annotated with the number of items it holds, as returned
// by the list query.
type SetSummary struct {
	Set
	ItemCount int
}

// SetItem is one stop's membership in a Set. Position is assigned by the
// database on insert and forms a dense 1-based sequence within the set.
type SetItem struct {
	ID       uuid.UUID
	SetID    uuid.UUID
	StopID   int
	Position int
	AddedAt  time.Time
}
