package service_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/service"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

// mockFeed is a hand-written test double for service.Feed.
// departures is called concurrently, so it must be safe for that.
type mockFeed struct {
	stops      func(ctx context.Context) (domain.StopDirectory, error)
	cached     func() (domain.StopDirectory, bool)
	departures func(ctx context.Context, stopID int) (domain.DepartureBundle, error)
}

func (m *mockFeed) Stops(ctx context.Context, _ ...ztm.Option) (domain.StopDirectory, error) {
	if m.stops == nil {
		return domain.StopDirectory{}, errors.New("no directory")
	}
	return m.stops(ctx)
}
func (m *mockFeed) CachedStops() (domain.StopDirectory, bool) {
	if m.cached == nil {
		return domain.StopDirectory{}, false
	}
	return m.cached()
}
func (m *mockFeed) Departures(ctx context.Context, stopID int, _ ...ztm.Option) (domain.DepartureBundle, error) {
	return m.departures(ctx, stopID)
}

// compile-time check: mockFeed must satisfy service.Feed.
var _ service.Feed = (*mockFeed)(nil)

func itemsFixture(setID uuid.UUID, stopIDs ...int) []domain.SetItem {
	items := make([]domain.SetItem, len(stopIDs))
	for i, id := range stopIDs {
		items[i] = domain.SetItem{ID: uuid.New(), SetID: setID, StopID: id, Position: i + 1}
	}
	return items
}

func itemsRepo(items []domain.SetItem) *mockSetItemRepo {
	return &mockSetItemRepo{
		verifyOwnership: owned,
		list: func(context.Context, uuid.UUID) ([]domain.SetItem, error) {
			return items, nil
		},
	}
}

func bundle(stopID int) domain.DepartureBundle {
	return domain.DepartureBundle{
		LastUpdate: "2025-01-10T12:00:00Z",
		Departures: []domain.Departure{{ID: "dep", Status: "REALTIME"}},
	}
}

func TestBoardService_SetDepartures_PartialFailure(t *testing.T) {
	setID := uuid.New()
	items := itemsFixture(setID, 117, 199, 2041)
	feed := &mockFeed{
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			if stopID == 199 {
				return domain.DepartureBundle{}, &ztm.Error{Kind: ztm.KindTimeout, Message: "Upstream request timed out"}
			}
			return bundle(stopID), nil
		},
	}
	svc := service.NewBoardService(itemsRepo(items), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	assert.True(t, got.OK)
	assert.Equal(t, setID, got.SetID)
	require.Len(t, got.Entries, 3)

	var ok, failed int
	for i, e := range got.Entries {
		assert.Equal(t, items[i].ID, e.ItemID, "entries keep position order")
		assert.Equal(t, i+1, e.Position)
		if e.OK {
			ok++
			assert.NotNil(t, e.Data)
			assert.Nil(t, e.Error)
			continue
		}
		failed++
		assert.Equal(t, 199, e.StopID)
		require.NotNil(t, e.Error)
		assert.Equal(t, "ZTM_TIMEOUT", e.Error.Code)
		assert.Equal(t, http.StatusGatewayTimeout, e.Error.Status)
	}
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
}

func TestBoardService_SetDepartures_AllFailed(t *testing.T) {
	setID := uuid.New()
	feed := &mockFeed{
		departures: func(context.Context, int) (domain.DepartureBundle, error) {
			return domain.DepartureBundle{}, errors.New("boom")
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 1, 2)), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	assert.False(t, got.OK)
	for _, e := range got.Entries {
		require.NotNil(t, e.Error)
		assert.Equal(t, service.CodeInternalError, e.Error.Code)
	}
}

func TestBoardService_SetDepartures_EmptySetIsNotOK(t *testing.T) {
	svc := service.NewBoardService(itemsRepo(nil), &mockFeed{}, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), uuid.New())

	require.NoError(t, err)
	assert.False(t, got.OK, "no entry succeeded")
	assert.Empty(t, got.Entries)
}

func TestBoardService_SetDepartures_RecoversPanic(t *testing.T) {
	setID := uuid.New()
	feed := &mockFeed{
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			if stopID == 2 {
				panic("nil map")
			}
			return bundle(stopID), nil
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 1, 2)), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	assert.True(t, got.OK)
	require.NotNil(t, got.Entries[1].Error)
	assert.Equal(t, service.CodeInternalError, got.Entries[1].Error.Code)
}

func TestBoardService_SetDepartures_InvalidStopIDSkipsUpstream(t *testing.T) {
	setID := uuid.New()
	feed := &mockFeed{
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			if stopID <= 0 {
				t.Errorf("upstream called with stop id %d", stopID)
			}
			return bundle(stopID), nil
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 0, 5)), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	require.NotNil(t, got.Entries[0].Error)
	assert.Equal(t, service.CodeInvalidStopID, got.Entries[0].Error.Code)
	assert.Equal(t, http.StatusBadRequest, got.Entries[0].Error.Status)
	assert.True(t, got.Entries[1].OK)
}

// Every item's fetch must be in flight at the same time; a sequential
// implementation would never release the barrier.
func TestBoardService_SetDepartures_FetchesConcurrently(t *testing.T) {
	setID := uuid.New()
	const n = 3
	var started sync.WaitGroup
	started.Add(n)
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()
	feed := &mockFeed{
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			started.Done()
			select {
			case <-allStarted:
				return bundle(stopID), nil
			case <-time.After(2 * time.Second):
				return domain.DepartureBundle{}, errors.New("fetches were serialized")
			}
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 1, 2, 3)), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	for _, e := range got.Entries {
		assert.True(t, e.OK)
	}
}

func TestBoardService_SetDepartures_AttachesStopMetadata(t *testing.T) {
	setID := uuid.New()
	name := "Brama Wyżynna"
	feed := &mockFeed{
		cached: func() (domain.StopDirectory, bool) {
			return domain.StopDirectory{Stops: []domain.Stop{{StopID: 117, StopName: &name}}}, true
		},
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			return bundle(stopID), nil
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 117, 199)), feed, nil)

	got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	require.NotNil(t, got.Entries[0].Stop)
	assert.Equal(t, name, *got.Entries[0].Stop.StopName)
	assert.Nil(t, got.Entries[1].Stop, "stops missing from the directory stay nil")
}

// A slow or unreachable stop directory must not hold the board back: the
// board reads stop metadata from the cache and never fetches it.
func TestBoardService_SetDepartures_DoesNotWaitOnDirectory(t *testing.T) {
	setID := uuid.New()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	feed := &mockFeed{
		stops: func(ctx context.Context) (domain.StopDirectory, error) {
			<-release
			return domain.StopDirectory{}, errors.New("hung")
		},
		departures: func(_ context.Context, stopID int) (domain.DepartureBundle, error) {
			return bundle(stopID), nil
		},
	}
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 117)), feed, nil)

	done := make(chan domain.Board, 1)
	go func() {
		got, err := svc.SetDepartures(context.Background(), uuid.New(), setID)
		assert.NoError(t, err)
		done <- got
	}()

	select {
	case got := <-done:
		assert.True(t, got.OK)
		assert.Nil(t, got.Entries[0].Stop, "nothing cached, so no metadata")
	case <-time.After(time.Second):
		t.Fatal("board waited on the stop directory")
	}
}

func TestBoardService_SetDepartures_NotOwned(t *testing.T) {
	repo := &mockSetItemRepo{verifyOwnership: notOwned}
	svc := service.NewBoardService(repo, &mockFeed{}, nil)

	_, err := svc.SetDepartures(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrSetNotFound)
}

func TestBoardService_SetStops(t *testing.T) {
	setID := uuid.New()
	items := itemsFixture(setID, 117, 199)
	feed := &mockFeed{
		stops: func(context.Context) (domain.StopDirectory, error) {
			return domain.StopDirectory{LastUpdate: "today", Stops: []domain.Stop{{StopID: 199}}}, nil
		},
	}
	svc := service.NewBoardService(itemsRepo(items), feed, nil)

	got, err := svc.SetStops(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	assert.Equal(t, "today", got.StopsLastUpdate)
	require.Len(t, got.Stops, 2)
	assert.Nil(t, got.Stops[0].Stop)
	require.NotNil(t, got.Stops[1].Stop)
	assert.Equal(t, items[1].ID, got.Stops[1].ItemID)
}

func TestBoardService_SetStops_DirectoryDown(t *testing.T) {
	setID := uuid.New()
	svc := service.NewBoardService(itemsRepo(itemsFixture(setID, 117)), &mockFeed{}, nil)

	got, err := svc.SetStops(context.Background(), uuid.New(), setID)

	require.NoError(t, err)
	assert.Empty(t, got.StopsLastUpdate)
	require.Len(t, got.Stops, 1)
	assert.Nil(t, got.Stops[0].Stop)
}
