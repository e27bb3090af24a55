package handler_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/handler"
)

func TestWriteError_UnmappedErrorLoggedWithRequestID(t *testing.T) {
	var logs bytes.Buffer
	svc := &mockSetServicer{list: func(context.Context, uuid.UUID) ([]domain.SetSummary, error) {
		return nil, errors.New("connection reset by peer: secret-host:5432")
	}}
	h := middleware.RequestID(newHTTPHandler(handler.Deps{
		Sets:   svc,
		Logger: slog.New(slog.NewJSONHandler(&logs, nil)),
	}, &testUser))

	req := httptest.NewRequest(http.MethodGet, "/api/sets", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-host")
	assert.Equal(t, "DATABASE_ERROR", decodeError(t, rec).Code)

	assert.Contains(t, logs.String(), `"request_id":"req-42"`)
	assert.Contains(t, logs.String(), `"code":"DATABASE_ERROR"`)
	assert.Contains(t, logs.String(), "secret-host")
}
