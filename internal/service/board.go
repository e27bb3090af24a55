package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/repo"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

// Entry error codes that do not come from the feed gateway.
const (
	CodeInvalidStopID = "INVALID_STOP_ID"
	CodeInternalError = "INTERNAL_ERROR"
)

// Feed is the part of the ZTM gateway the board needs. CachedStops must not
// call upstream.
type Feed interface {
	Stops(ctx context.Context, opts ...ztm.Option) (domain.StopDirectory, error)
	CachedStops() (domain.StopDirectory, bool)
	Departures(ctx context.Context, stopID int, opts ...ztm.Option) (domain.DepartureBundle, error)
}

// BoardService builds departure boards for whole sets.
type BoardService struct {
	items repo.SetItemRepo
	feed  Feed
	log   *slog.Logger
	now   func() time.Time
}

// NewBoardService constructs a BoardService.
func NewBoardService(items repo.SetItemRepo, feed Feed, log *slog.Logger) *BoardService {
	if log == nil {
		log = slog.Default()
	}
	return &BoardService{items: items, feed: feed, log: log, now: time.Now}
}

// SetDepartures fetches departures for every stop in the set concurrently and
// waits for all of them. One failing stop never fails the board; it becomes
// an error entry. The board is OK only when at least one entry succeeded, so
// an empty set is not OK. Stop metadata is attached from the cached directory
// only; the board never waits on the directory.
func (s *BoardService) SetDepartures(ctx context.Context, userID, setID uuid.UUID) (domain.Board, error) {
	items, err := s.ownedItems(ctx, userID, setID)
	if err != nil {
		return domain.Board{}, fmt.Errorf("service.BoardService.SetDepartures: %w", err)
	}

	board := domain.Board{
		SetID:     setID,
		FetchedAt: s.now().UTC(),
		Entries:   make([]domain.BoardEntry, len(items)),
	}

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			board.Entries[i] = s.entry(ctx, item)
		}()
	}
	wg.Wait()

	var stops map[int]domain.Stop
	if dir, ok := s.feed.CachedStops(); ok {
		stops = dir.Index()
	}
	for i := range board.Entries {
		board.Entries[i].Stop = stopFor(stops, board.Entries[i].StopID)
		if board.Entries[i].OK {
			board.OK = true
		}
	}
	return board, nil
}

// SetStops lists the set's items joined with stop directory metadata. A
// directory failure leaves Stop nil on every entry instead of failing.
func (s *BoardService) SetStops(ctx context.Context, userID, setID uuid.UUID) (domain.SetStops, error) {
	items, err := s.ownedItems(ctx, userID, setID)
	if err != nil {
		return domain.SetStops{}, fmt.Errorf("service.BoardService.SetStops: %w", err)
	}

	out := domain.SetStops{
		SetID:     setID,
		Stops:     make([]domain.SetStop, 0, len(items)),
		FetchedAt: s.now().UTC(),
	}
	stops, lastUpdate := s.stopIndex(ctx)
	out.StopsLastUpdate = lastUpdate
	for _, item := range items {
		out.Stops = append(out.Stops, domain.SetStop{
			ItemID:   item.ID,
			StopID:   item.StopID,
			Position: item.Position,
			Stop:     stopFor(stops, item.StopID),
		})
	}
	return out, nil
}

func (s *BoardService) ownedItems(ctx context.Context, userID, setID uuid.UUID) ([]domain.SetItem, error) {
	if err := s.items.VerifyOwnership(ctx, userID, setID); err != nil {
		return nil, err
	}
	return s.items.List(ctx, setID)
}

// stopIndex returns the stop directory keyed by id, or nil if it could not
// be fetched.
func (s *BoardService) stopIndex(ctx context.Context) (map[int]domain.Stop, string) {
	dir, err := s.feed.Stops(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "stop directory unavailable for board", "error", err)
		return nil, ""
	}
	return dir.Index(), dir.LastUpdate
}

func stopFor(stops map[int]domain.Stop, id int) *domain.Stop {
	st, ok := stops[id]
	if !ok {
		return nil
	}
	return &st
}

// entry fetches one item's departures. It never panics: a panic inside the
// feed is recovered into an INTERNAL_ERROR entry.
func (s *BoardService) entry(ctx context.Context, item domain.SetItem) (e domain.BoardEntry) {
	e = domain.BoardEntry{ItemID: item.ID, StopID: item.StopID, Position: item.Position}

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "board entry panicked", "stop_id", item.StopID, "panic", r)
			e.OK, e.Data = false, nil
			e.Error = &domain.EntryError{
				Code:    CodeInternalError,
				Message: "Unexpected error while fetching departures",
				Status:  http.StatusInternalServerError,
			}
		}
	}()

	if item.StopID <= 0 {
		e.Error = &domain.EntryError{
			Code:    CodeInvalidStopID,
			Message: "Stop ID must be a positive integer",
			Status:  http.StatusBadRequest,
		}
		return e
	}

	data, err := s.feed.Departures(ctx, item.StopID)
	if err != nil {
		s.log.WarnContext(ctx, "board entry failed", "stop_id", item.StopID, "error", err)
		e.Error = entryError(err)
		return e
	}
	e.OK = true
	e.Data = &data
	return e
}

func entryError(err error) *domain.EntryError {
	var zErr *ztm.Error
	if errors.As(err, &zErr) {
		return &domain.EntryError{Code: zErr.Code(), Message: zErr.Message, Status: zErr.Status()}
	}
	return &domain.EntryError{
		Code:    CodeInternalError,
		Message: "Unexpected error while fetching departures",
		Status:  http.StatusInternalServerError,
	}
}
