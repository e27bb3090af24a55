// Package validation checks inbound request bodies, path parameters and query
// strings before they reach the services. Every failure is an *Error carrying
// the API code, a user-facing message and per-field detail.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// API error codes produced by this package.
const (
	CodeInvalidSetName = "INVALID_SET_NAME"
	CodeInvalidStopID  = "INVALID_STOP_ID"
	CodeInvalidInput   = "INVALID_INPUT"
)

// FieldIssue is one failed check on one field.
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a request validation failure. It matches domain.ErrValidation
// under errors.Is.
type Error struct {
	Code    string
	Message string
	Details []FieldIssue
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == domain.ErrValidation
}

func fieldError(code, field, msg string) *Error {
	return &Error{Code: code, Message: msg, Details: []FieldIssue{{Field: field, Message: msg}}}
}

// decodeObject parses body as a JSON object, keeping numbers exact.
func decodeObject(body []byte) (map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil || dec.More() {
		return nil, false
	}
	return obj, true
}

// SetName validates a {"name": "..."} body and returns the trimmed name.
// Length is counted in runes after trimming.
func SetName(body []byte) (string, error) {
	obj, ok := decodeObject(body)
	if !ok {
		return "", &Error{Code: CodeInvalidSetName, Message: "Invalid JSON body"}
	}
	raw, present := obj["name"]
	if !present || raw == nil {
		return "", fieldError(CodeInvalidSetName, "name", "Set name is required")
	}
	name, ok := raw.(string)
	if !ok {
		return "", fieldError(CodeInvalidSetName, "name", "Set name must be a string")
	}
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n < 1:
		return "", fieldError(CodeInvalidSetName, "name", "Set name must be at least 1 character")
	case n > domain.MaxSetNameRunes:
		return "", fieldError(CodeInvalidSetName, "name",
			fmt.Sprintf("Set name must be at most %d characters", domain.MaxSetNameRunes))
	}
	return name, nil
}

// StopIDBody validates a {"stop_id": 123} body. The value must be a JSON
// number holding a positive integer; numeric strings are rejected.
func StopIDBody(body []byte) (int, error) {
	obj, ok := decodeObject(body)
	if !ok {
		return 0, &Error{Code: CodeInvalidInput, Message: "Invalid JSON body"}
	}
	raw, present := obj["stop_id"]
	if !present {
		return 0, fieldError(CodeInvalidStopID, "stop_id", "Stop ID is required")
	}
	num, ok := raw.(json.Number)
	if !ok {
		return 0, fieldError(CodeInvalidStopID, "stop_id", "Stop ID must be a number")
	}
	f, err := num.Float64()
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fieldError(CodeInvalidStopID, "stop_id", "Stop ID must be a number")
	}
	if f != math.Trunc(f) {
		return 0, fieldError(CodeInvalidStopID, "stop_id", "Stop ID must be an integer")
	}
	if f <= 0 || f > math.MaxInt32 {
		return 0, fieldError(CodeInvalidStopID, "stop_id", "Stop ID must be a positive integer")
	}
	return int(f), nil
}

// PathUUID binds a UUID path parameter. label names the resource in the
// message, e.g. "set" gives "Invalid set ID format".
func PathUUID(raw, param, label string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", param, raw, &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil || len(raw) != 36 {
		return uuid.Nil, fieldError(CodeInvalidInput, param, fmt.Sprintf("Invalid %s ID format", label))
	}
	return id, nil
}

// positiveInt parses s as a positive integer, accepting forms such as "117"
// and "117.0".
func positiveInt(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f != math.Trunc(f) || f <= 0 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// DeparturesQuery reads the optional stopId query parameter. It returns 0
// when the parameter is absent, meaning departures for all stops.
func DeparturesQuery(q url.Values) (int, error) {
	if !q.Has("stopId") {
		return 0, nil
	}
	id, ok := positiveInt(q.Get("stopId"))
	if !ok {
		return 0, fieldError(CodeInvalidInput, "stopId", "stopId must be a positive integer")
	}
	return id, nil
}

// StopIDsQuery reads the optional stopIds query parameter, a comma-separated
// list of positive integers. Duplicates are dropped, keeping first-seen order.
func StopIDsQuery(q url.Values) ([]int, error) {
	raw := strings.TrimSpace(q.Get("stopIds"))
	if raw == "" {
		return nil, nil
	}

	var ids []int
	seen := map[int]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ok := positiveInt(part)
		if !ok {
			return nil, fieldError(CodeInvalidInput, "stopIds",
				"stopIds must be a comma-separated list of positive integers")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// AsError reports whether err is a validation failure and returns it.
func AsError(err error) (*Error, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
