package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wgrabowski/tabliczki-ztm/internal/domain"
	"github.com/wgrabowski/tabliczki-ztm/internal/validation"
)

type setSummaryJSON struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ItemCount int       `json:"item_count"`
	CreatedAt time.Time `json:"created_at"`
}

type setRefJSON struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// setPathID binds the {setId} path parameter.
func setPathID(r *http.Request) (uuid.UUID, error) {
	return validation.PathUUID(chi.URLParam(r, "setId"), "setId", "set")
}

// ListSets handles GET /api/sets.
func (s *Server) ListSets(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	sets, err := s.listSets(r.Context(), user.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sets": sets, "total_count": len(sets)})
}

// CreateSet handles POST /api/sets. The response carries the refreshed list
// so clients never need a second round trip.
func (s *Server) CreateSet(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name, err := validation.SetName(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	created, err := s.sets.Create(r.Context(), user.UserID, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.listSets(r.Context(), user.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sets":        sets,
		"created_set": setRefJSON{ID: created.ID, Name: created.Name},
	})
}

// RenameSet handles PATCH /api/sets/{setId}.
func (s *Server) RenameSet(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	setID, err := setPathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := readBody(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name, err := validation.SetName(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	updated, err := s.sets.Rename(r.Context(), user.UserID, setID, name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.listSets(r.Context(), user.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sets":        sets,
		"updated_set": setRefJSON{ID: updated.ID, Name: updated.Name},
	})
}

// DeleteSet handles DELETE /api/sets/{setId}. Items go with the set.
func (s *Server) DeleteSet(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	setID, err := setPathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.sets.Delete(r.Context(), user.UserID, setID); err != nil {
		s.writeError(w, r, err)
		return
	}
	sets, err := s.listSets(r.Context(), user.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sets": sets, "deleted_set_id": setID})
}

func (s *Server) listSets(ctx context.Context, userID uuid.UUID) ([]setSummaryJSON, error) {
	sets, err := s.sets.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	return setsToResponse(sets), nil
}

func setsToResponse(sets []domain.SetSummary) []setSummaryJSON {
	out := make([]setSummaryJSON, len(sets))
	for i, st := range sets {
		out[i] = setSummaryJSON{ID: st.ID, Name: st.Name, ItemCount: st.ItemCount, CreatedAt: st.CreatedAt}
	}
	return out
}
