package ztm

import (
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed upstream call.
type ErrorKind int

const (
	// KindTimeout means the call did not finish within its timeout.
	KindTimeout ErrorKind = iota + 1
	// KindUpstream means a transport failure or a non-2xx response.
	KindUpstream
	// KindInvalidResponse means the body was not JSON or did not match the schema.
	KindInvalidResponse
)

// Error is returned by every Client operation that fails. It carries a fixed
// API code and HTTP status, and the underlying cause for logging.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Code is the API error code sent to clients.
func (e *Error) Code() string {
	switch e.Kind {
	case KindTimeout:
		return "ZTM_TIMEOUT"
	case KindInvalidResponse:
		return "ZTM_INVALID_RESPONSE"
	default:
		return "ZTM_UPSTREAM_ERROR"
	}
}

// Status is the HTTP status to forward to clients.
func (e *Error) Status() int {
	if e.Kind == KindTimeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: "Upstream request timed out", Err: err}
}

func upstreamError(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func invalidResponse(msg string, err error) *Error {
	return &Error{Kind: KindInvalidResponse, Message: msg, Err: err}
}
