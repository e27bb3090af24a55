// Package handler implements the HTTP handlers for the departure board API.
// All handlers are methods on Server. They are split into files by resource
// (sets.go, items.go, ztm.go, ...) but share the same Server dependencies.
package handler

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

// SetServicer defines the set operations the handlers depend on.
// Interfaces live here, in the consumer package, so handler tests can inject
// mocks without a database.
type SetServicer interface {
	Create(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error)
	Rename(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error)
	Delete(ctx context.Context, userID, setID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error)
}

// SetItemServicer defines the set item operations the handlers depend on.
type SetItemServicer interface {
	Add(ctx context.Context, userID, setID uuid.UUID, stopID int) (domain.SetItem, error)
	List(ctx context.Context, userID, setID uuid.UUID) ([]domain.SetItem, error)
	Delete(ctx context.Context, userID, setID, itemID uuid.UUID) error
}

// BoardServicer builds the per-set departure board and stop listing.
type BoardServicer interface {
	SetDepartures(ctx context.Context, userID, setID uuid.UUID) (domain.Board, error)
	SetStops(ctx context.Context, userID, setID uuid.UUID) (domain.SetStops, error)
}

// FeedGateway is the upstream ZTM feed, used directly by the public proxy
// endpoints. The policy accessors drive the Cache-Control headers.
type FeedGateway interface {
	Stops(ctx context.Context, opts ...ztm.Option) (domain.StopDirectory, error)
	Departures(ctx context.Context, stopID int, opts ...ztm.Option) (domain.DepartureBundle, error)
	AllDepartures(ctx context.Context, opts ...ztm.Option) (domain.AllDepartures, error)
	StopsPolicy() ztm.Policy
	DeparturesPolicy() ztm.Policy
	AllDeparturesPolicy() ztm.Policy
}

// LogoutServicer revokes the caller's token.
type LogoutServicer interface {
	Logout(ctx context.Context, id auth.Identity) error
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the Server's collaborators. Readiness maps a dependency name to
// its probe; a nil map means the server is always ready.
type Deps struct {
	Sets      SetServicer
	Items     SetItemServicer
	Board     BoardServicer
	Feed      FeedGateway
	Logout    LogoutServicer
	Readiness map[string]Pinger
	Logger    *slog.Logger
}

// Server holds the handler dependencies.
type Server struct {
	sets      SetServicer
	items     SetItemServicer
	board     BoardServicer
	feed      FeedGateway
	logout    LogoutServicer
	readiness map[string]Pinger
	log       *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		sets:      d.Sets,
		items:     d.Items,
		board:     d.Board,
		feed:      d.Feed,
		logout:    d.Logout,
		readiness: d.Readiness,
		log:       log,
	}
}
