package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryError describes why a single board entry could not be filled.
type EntryError struct {
	Code    string
	Message string
	Status  int
}

// BoardEntry is the outcome of fetching departures for one item of a set.
// Exactly one of Data and Error is set. Stop is nil when the stop directory
// was unavailable or does not list the stop.
type BoardEntry struct {
	OK       bool
	ItemID   uuid.UUID
	StopID   int
	Position int
	Stop     *Stop
	Data     *DepartureBundle
	Error    *EntryError
}

// Board is the departure board for a whole set: one entry per item, in
// position order.
type Board struct {
	SetID     uuid.UUID
	OK        bool
	FetchedAt time.Time
	Entries   []BoardEntry
}

// SetStop is one item of a set joined with its stop directory record.
type SetStop struct {
	ItemID   uuid.UUID
	StopID   int
	Position int
	Stop     *Stop
}

// SetStops lists a set's stops with directory metadata.
// StopsLastUpdate is empty when the directory could not be fetched.
type SetStops struct {
	SetID           uuid.UUID
	Stops           []SetStop
	FetchedAt       time.Time
	StopsLastUpdate string
}
