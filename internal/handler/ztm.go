package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/validation"
)

type entryErrorJSON struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type boardEntryJSON struct {
	OK       bool                    `json:"ok"`
	ItemID   uuid.UUID               `json:"item_id"`
	StopID   int                     `json:"stop_id"`
	Position int                     `json:"position"`
	Stop     *domain.Stop            `json:"stop"`
	Data     *domain.DepartureBundle `json:"data,omitempty"`
	Error    *entryErrorJSON         `json:"error,omitempty"`
}

type boardJSON struct {
	OK        bool             `json:"ok"`
	SetID     uuid.UUID        `json:"set_id"`
	FetchedAt time.Time        `json:"fetched_at"`
	Results   []boardEntryJSON `json:"results"`
}

type setStopJSON struct {
	ItemID   uuid.UUID    `json:"item_id"`
	StopID   int          `json:"stop_id"`
	Position int          `json:"position"`
	Stop     *domain.Stop `json:"stop"`
}

type setStopsJSON struct {
	SetID           uuid.UUID     `json:"set_id"`
	Stops           []setStopJSON `json:"stops"`
	FetchedAt       time.Time     `json:"fetched_at"`
	StopsLastUpdate *string       `json:"stops_last_update"`
}

// GetStops handles GET /api/ztm/stops. ?stopIds=1,2 narrows the directory.
func (s *Server) GetStops(w http.ResponseWriter, r *http.Request) {
	ids, err := validation.StopIDsQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dir, err := s.feed.Stops(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	publicCache(w, s.feed.StopsPolicy().TTL, staleForADay)
	writeJSON(w, http.StatusOK, dir.Filter(ids))
}

// GetDepartures handles GET /api/ztm/departures. With ?stopId=N it returns
// that stop's bundle, otherwise the map of every stop's bundle.
func (s *Server) GetDepartures(w http.ResponseWriter, r *http.Request) {
	stopID, err := validation.DeparturesQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if stopID == 0 {
		all, err := s.feed.AllDepartures(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ttl := s.feed.AllDeparturesPolicy().TTL
		publicCache(w, ttl, ttl)
		writeJSON(w, http.StatusOK, all)
		return
	}

	bundle, err := s.feed.Departures(r.Context(), stopID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ttl := s.feed.DeparturesPolicy().TTL
	publicCache(w, ttl, ttl)
	writeJSON(w, http.StatusOK, bundle)
}

// GetSetDepartures handles GET /api/ztm/sets/{setId}/departures. A board
// with no successful entry is sent as 500 with the full body, so each
// per-item error stays visible.
func (s *Server) GetSetDepartures(w http.ResponseWriter, r *http.Request) {
	setID, err := setPathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	board, err := s.board.SetDepartures(r.Context(), user.UserID, setID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if !board.OK {
		status = http.StatusInternalServerError
	} else {
		ttl := s.feed.DeparturesPolicy().TTL
		privateCache(w, ttl, ttl)
	}
	writeJSON(w, status, boardToResponse(board))
}

// GetSetStops handles GET /api/ztm/sets/{setId}/stops.
func (s *Server) GetSetStops(w http.ResponseWriter, r *http.Request) {
	setID, err := setPathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	stops, err := s.board.SetStops(r.Context(), user.UserID, setID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	privateCache(w, s.feed.StopsPolicy().TTL, staleForADay)
	writeJSON(w, http.StatusOK, setStopsToResponse(stops))
}

func boardToResponse(b domain.Board) boardJSON {
	out := boardJSON{OK: b.OK, SetID: b.SetID, FetchedAt: b.FetchedAt, Results: make([]boardEntryJSON, len(b.Entries))}
	for i, e := range b.Entries {
		entry := boardEntryJSON{
			OK:       e.OK,
			ItemID:   e.ItemID,
			StopID:   e.StopID,
			Position: e.Position,
			Stop:     e.Stop,
			Data:     e.Data,
		}
		if e.Error != nil {
			entry.Error = &entryErrorJSON{Code: e.Error.Code, Message: e.Error.Message, Status: e.Error.Status}
		}
		out.Results[i] = entry
	}
	return out
}

func setStopsToResponse(ss domain.SetStops) setStopsJSON {
	out := setStopsJSON{SetID: ss.SetID, FetchedAt: ss.FetchedAt, Stops: make([]setStopJSON, len(ss.Stops))}
	if ss.StopsLastUpdate != "" {
		out.StopsLastUpdate = &ss.StopsLastUpdate
	}
	for i, st := range ss.Stops {
		out.Stops[i] = setStopJSON{ItemID: st.ItemID, StopID: st.StopID, Position: st.Position, Stop: st.Stop}
	}
	return out
}
