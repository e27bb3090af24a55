package handler

import (
	"errors"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wgrabowski/tabliczki-ztm/internal/dberr"
	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/validation"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

// Error codes owned by the transport layer.
const (
	codeUnauthorized    = "UNAUTHORIZED"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeNotReady        = "NOT_READY"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string                  `json:"code"`
	Message string                  `json:"message"`
	Details []validation.FieldIssue `json:"details,omitempty"`
}

// writeError translates err into an error response. This is the only place
// where service, gateway and repo errors become HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := s.errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"status", status,
			"code", body.Code,
			"request_id", chimiddleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func (s *Server) errorResponse(err error) (int, errorBody) {
	if vErr, ok := validation.AsError(err); ok {
		return http.StatusBadRequest, errorBody{Code: vErr.Code, Message: vErr.Message, Details: vErr.Details}
	}

	var zErr *ztm.Error
	if errors.As(err, &zErr) {
		return zErr.Status(), errorBody{Code: zErr.Code(), Message: zErr.Message}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, errorBody{Code: codePayloadTooLarge, Message: "Request body too large"}
	}

	if errors.Is(err, domain.ErrValidation) {
		return http.StatusBadRequest, errorBody{Code: validation.CodeInvalidInput, Message: validationMessage(err)}
	}

	m := dberr.MapDatabaseError(err)
	return m.Status, errorBody{Code: m.Code, Message: m.Message}
}

// validationMessage extracts the human-readable part of a wrapped
// domain.ErrValidation, e.g.
// "service.SetService.Create: validation error: name is required" gives
// "name is required".
func validationMessage(err error) string {
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorBody{Code: codeUnauthorized, Message: "Authentication required"})
}
