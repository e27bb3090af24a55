package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/handler"
	"github.com/wgrabowski/tabliczki-ztm/internal/middleware"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

// ---- mocks -----------------------------------------------------------------

// mockSetServicer is a test double for handler.SetServicer.
// Set only the method fields your test needs.
type mockSetServicer struct {
	create func(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error)
	rename func(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error)
	delete func(ctx context.Context, userID, setID uuid.UUID) error
	list   func(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error)
}

func (m *mockSetServicer) Create(ctx context.Context, userID uuid.UUID, name string) (domain.Set, error) {
	return m.create(ctx, userID, name)
}
func (m *mockSetServicer) Rename(ctx context.Context, userID, setID uuid.UUID, name string) (domain.Set, error) {
	return m.rename(ctx, userID, setID, name)
}
func (m *mockSetServicer) Delete(ctx context.Context, userID, setID uuid.UUID) error {
	return m.delete(ctx, userID, setID)
}
func (m *mockSetServicer) List(ctx context.Context, userID uuid.UUID) ([]domain.SetSummary, error) {
	return m.list(ctx, userID)
}

// compile-time check: mockSetServicer must satisfy handler.SetServicer.
var _ handler.SetServicer = (*mockSetServicer)(nil)

type mockSetItemServicer struct {
	add    func(ctx context.Context, userID, setID uuid.UUID, stopID int) (domain.SetItem, error)
	list   func(ctx context.Context, userID, setID uuid.UUID) ([]domain.SetItem, error)
	delete func(ctx context.Context, userID, setID, itemID uuid.UUID) error
}

func (m *mockSetItemServicer) Add(ctx context.Context, userID, setID uuid.UUID, stopID int) (domain.SetItem, error) {
	return m.add(ctx, userID, setID, stopID)
}
func (m *mockSetItemServicer) List(ctx context.Context, userID, setID uuid.UUID) ([]domain.SetItem, error) {
	return m.list(ctx, userID, setID)
}
func (m *mockSetItemServicer) Delete(ctx context.Context, userID, setID, itemID uuid.UUID) error {
	return m.delete(ctx, userID, setID, itemID)
}

var _ handler.SetItemServicer = (*mockSetItemServicer)(nil)

type mockBoardServicer struct {
	setDepartures func(ctx context.Context, userID, setID uuid.UUID) (domain.Board, error)
	setStops      func(ctx context.Context, userID, setID uuid.UUID) (domain.SetStops, error)
}

func (m *mockBoardServicer) SetDepartures(ctx context.Context, userID, setID uuid.UUID) (domain.Board, error) {
	return m.setDepartures(ctx, userID, setID)
}
func (m *mockBoardServicer) SetStops(ctx context.Context, userID, setID uuid.UUID) (domain.SetStops, error) {
	return m.setStops(ctx, userID, setID)
}

var _ handler.BoardServicer = (*mockBoardServicer)(nil)

// mockFeed is a test double for handler.FeedGateway with fixed policies.
type mockFeed struct {
	stops         func(ctx context.Context) (domain.StopDirectory, error)
	departures    func(ctx context.Context, stopID int) (domain.DepartureBundle, error)
	allDepartures func(ctx context.Context) (domain.AllDepartures, error)
}

func (m *mockFeed) Stops(ctx context.Context, _ ...ztm.Option) (domain.StopDirectory, error) {
	return m.stops(ctx)
}
func (m *mockFeed) Departures(ctx context.Context, stopID int, _ ...ztm.Option) (domain.DepartureBundle, error) {
	return m.departures(ctx, stopID)
}
func (m *mockFeed) AllDepartures(ctx context.Context, _ ...ztm.Option) (domain.AllDepartures, error) {
	return m.allDepartures(ctx)
}
func (m *mockFeed) StopsPolicy() ztm.Policy {
	return ztm.Policy{TTL: 6 * time.Hour, Timeout: 10 * time.Second}
}
func (m *mockFeed) DeparturesPolicy() ztm.Policy {
	return ztm.Policy{TTL: 20 * time.Second, Timeout: 8 * time.Second}
}
func (m *mockFeed) AllDeparturesPolicy() ztm.Policy {
	return ztm.Policy{TTL: 30 * time.Second, Timeout: 15 * time.Second}
}

var _ handler.FeedGateway = (*mockFeed)(nil)

type mockLogout struct {
	logout func(ctx context.Context, id auth.Identity) error
}

func (m *mockLogout) Logout(ctx context.Context, id auth.Identity) error {
	return m.logout(ctx, id)
}

var _ handler.LogoutServicer = (*mockLogout)(nil)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ---- helpers ---------------------------------------------------------------

var testUser = auth.Identity{UserID: uuid.MustParse("7f0c1a52-3f4e-4f8e-9b1a-2d6c1b0e9a11"), TokenID: "jti-1"}

// newHTTPHandler wires a Server into its router the way main.go does. When
// user is non-nil the request carries that identity, as if
// middleware.NewIdentity had accepted a token.
func newHTTPHandler(d handler.Deps, user *auth.Identity) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	routes := handler.NewServer(d).Routes()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user != nil {
			r = r.WithContext(middleware.WithIdentity(r.Context(), *user))
		}
		routes.ServeHTTP(w, r)
	})
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func setFixture(name string) domain.SetSummary {
	return domain.SetSummary{
		Set: domain.Set{
			ID:        uuid.New(),
			UserID:    testUser.UserID,
			Name:      name,
			CreatedAt: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		},
		ItemCount: 2,
	}
}

func jsonDecode(rec *httptest.ResponseRecorder, v any) error {
	return json.NewDecoder(rec.Body).Decode(v)
}
