package ztm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
)

// The upstream feed is loosely typed: numbers sometimes arrive as strings,
// empty strings stand in for null, and some descriptive fields are missing.
// Payloads are decoded into generic JSON values first and then normalized
// field by field with the coerce helpers below, collecting every mismatch.

// SchemaError lists every field that failed normalization.
type SchemaError struct {
	Issues []string
}

func (e *SchemaError) Error() string {
	const shown = 5
	if len(e.Issues) <= shown {
		return "schema mismatch: " + strings.Join(e.Issues, "; ")
	}
	return fmt.Sprintf("schema mismatch: %s; and %d more",
		strings.Join(e.Issues[:shown], "; "), len(e.Issues)-shown)
}

// decodeJSON parses body keeping numbers as json.Number so integers are not
// silently rounded through float64.
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

// coerceNullableString accepts null, strings and numbers (rendered as their
// decimal text).
func coerceNullableString(v any) (*string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return &t, true
	case json.Number:
		s := t.String()
		return &s, true
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		return &s, true
	}
	return nil, false
}

// coerceNullableNumber accepts null, "" (as null), numbers and numeric strings.
func coerceNullableNumber(v any) (*float64, bool) {
	var f float64
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		f = n
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil, false
		}
		f = n
	case float64:
		f = t
	default:
		return nil, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return &f, true
}

// maxSafeInteger is the largest integer the upstream's JSON encoder can
// represent exactly.
const maxSafeInteger = 1<<53 - 1

// coerceNullableInt is coerceNullableNumber restricted to integral values.
func coerceNullableInt(v any) (*int, bool) {
	f, ok := coerceNullableNumber(v)
	if !ok {
		return nil, false
	}
	if f == nil {
		return nil, true
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > maxSafeInteger {
		return nil, false
	}
	n := int(*f)
	return &n, true
}

// normalizer walks one payload and records every issue it finds.
type normalizer struct {
	issues []string
}

func (n *normalizer) fail(path, msg string) {
	n.issues = append(n.issues, path+": "+msg)
}

func (n *normalizer) err() error {
	if len(n.issues) == 0 {
		return nil
	}
	return &SchemaError{Issues: n.issues}
}

func (n *normalizer) object(v any, path string) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		n.fail(path, "expected object")
	}
	return m, ok
}

func (n *normalizer) array(v any, path string) ([]any, bool) {
	a, ok := v.([]any)
	if !ok {
		n.fail(path, "expected array")
	}
	return a, ok
}

func (n *normalizer) requiredString(obj map[string]any, key, path string) string {
	s, ok := obj[key].(string)
	if !ok {
		n.fail(path+"."+key, "expected string")
	}
	return s
}

// nullableString is strict: the key must be present and hold a string or null.
func (n *normalizer) nullableString(obj map[string]any, key, path string) *string {
	v, present := obj[key]
	if !present {
		n.fail(path+"."+key, "required")
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	}
	n.fail(path+"."+key, "expected string or null")
	return nil
}

// optionalString allows the key to be missing, null or a string.
func (n *normalizer) optionalString(obj map[string]any, key, path string) *string {
	if _, present := obj[key]; !present {
		return nil
	}
	return n.nullableString(obj, key, path)
}

func (n *normalizer) looseString(obj map[string]any, key, path string) *string {
	s, ok := coerceNullableString(obj[key])
	if !ok {
		n.fail(path+"."+key, "expected string")
	}
	return s
}

func (n *normalizer) number(obj map[string]any, key, path string) *float64 {
	f, ok := coerceNullableNumber(obj[key])
	if !ok {
		n.fail(path+"."+key, "expected number")
	}
	return f
}

func (n *normalizer) integer(obj map[string]any, key, path string) *int {
	i, ok := coerceNullableInt(obj[key])
	if !ok {
		n.fail(path+"."+key, "expected integer")
	}
	return i
}

// requiredInt accepts an integer or a numeric string, but not null.
func (n *normalizer) requiredInt(obj map[string]any, key, path string) int {
	v := obj[key]
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		v = nil
	}
	i, ok := coerceNullableInt(v)
	if !ok || i == nil {
		n.fail(path+"."+key, "expected integer")
		return 0
	}
	return *i
}

func (n *normalizer) stop(v any, path string) domain.Stop {
	obj, ok := n.object(v, path)
	if !ok {
		return domain.Stop{}
	}
	return domain.Stop{
		StopID:             n.requiredInt(obj, "stopId", path),
		StopCode:           n.looseString(obj, "stopCode", path),
		StopName:           n.looseString(obj, "stopName", path),
		StopShortname:      n.integer(obj, "stopShortname", path),
		StopDesc:           n.looseString(obj, "stopDesc", path),
		SubName:            n.looseString(obj, "subName", path),
		Date:               n.looseString(obj, "date", path),
		StopLat:            n.number(obj, "stopLat", path),
		StopLon:            n.number(obj, "stopLon", path),
		Type:               n.looseString(obj, "type", path),
		ZoneID:             n.integer(obj, "zoneId", path),
		ZoneName:           n.looseString(obj, "zoneName", path),
		StopURL:            n.optionalString(obj, "stopUrl", path),
		LocationType:       n.optionalString(obj, "locationType", path),
		ParentStation:      n.optionalString(obj, "parentStation", path),
		StopTimezone:       n.optionalString(obj, "stopTimezone", path),
		WheelchairBoarding: n.integer(obj, "wheelchairBoarding", path),
		Virtual:            n.integer(obj, "virtual", path),
		Nonpassenger:       n.integer(obj, "nonpassenger", path),
		Depot:              n.integer(obj, "depot", path),
		TicketZoneBorder:   n.integer(obj, "ticketZoneBorder", path),
		OnDemand:           n.integer(obj, "onDemand", path),
		ActivationDate:     n.looseString(obj, "activationDate", path),
	}
}

func (n *normalizer) departure(v any, path string) domain.Departure {
	obj, ok := n.object(v, path)
	if !ok {
		return domain.Departure{}
	}
	return domain.Departure{
		ID:                     n.requiredString(obj, "id", path),
		DelayInSeconds:         n.integer(obj, "delayInSeconds", path),
		EstimatedTime:          n.requiredString(obj, "estimatedTime", path),
		Headsign:               n.nullableString(obj, "headsign", path),
		RouteShortName:         n.nullableString(obj, "routeShortName", path),
		RouteID:                n.integer(obj, "routeId", path),
		ScheduledTripStartTime: n.nullableString(obj, "scheduledTripStartTime", path),
		TripID:                 n.integer(obj, "tripId", path),
		Status:                 n.requiredString(obj, "status", path),
		TheoreticalTime:        n.nullableString(obj, "theoreticalTime", path),
		Timestamp:              n.requiredString(obj, "timestamp", path),
		Trip:                   n.integer(obj, "trip", path),
		VehicleCode:            n.integer(obj, "vehicleCode", path),
		VehicleID:              n.integer(obj, "vehicleId", path),
		VehicleService:         n.nullableString(obj, "vehicleService", path),
	}
}

func (n *normalizer) bundle(v any, path string) domain.DepartureBundle {
	obj, ok := n.object(v, path)
	if !ok {
		return domain.DepartureBundle{}
	}
	out := domain.DepartureBundle{
		LastUpdate: n.requiredString(obj, "lastUpdate", path),
		Departures: []domain.Departure{},
	}
	deps, ok := n.array(obj["departures"], path+".departures")
	if !ok {
		return out
	}
	for i, d := range deps {
		out.Departures = append(out.Departures, n.departure(d, fmt.Sprintf("%s.departures[%d]", path, i)))
	}
	return out
}

// normalizeStops validates a decoded stop directory payload.
func normalizeStops(v any) (domain.StopDirectory, error) {
	var n normalizer
	out := domain.StopDirectory{Stops: []domain.Stop{}}

	obj, ok := n.object(v, "$")
	if !ok {
		return out, n.err()
	}
	out.LastUpdate = n.requiredString(obj, "lastUpdate", "$")
	if stops, ok := n.array(obj["stops"], "$.stops"); ok {
		for i, s := range stops {
			out.Stops = append(out.Stops, n.stop(s, fmt.Sprintf("$.stops[%d]", i)))
		}
	}
	return out, n.err()
}

// normalizeDepartures validates a decoded single-stop departure payload.
func normalizeDepartures(v any) (domain.DepartureBundle, error) {
	var n normalizer
	out := n.bundle(v, "$")
	return out, n.err()
}

// normalizeAllDepartures validates a decoded all-stops payload: an object
// keyed by stop id whose values are departure bundles.
func normalizeAllDepartures(v any) (domain.AllDepartures, error) {
	var n normalizer
	out := domain.AllDepartures{}

	obj, ok := n.object(v, "$")
	if !ok {
		return out, n.err()
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	// Sorted so issue order is stable.
	sort.Strings(keys)
	for _, k := range keys {
		out[k] = n.bundle(obj[k], "$["+strconv.Quote(k)+"]")
	}
	return out, n.err()
}
