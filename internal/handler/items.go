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

type setItemJSON struct {
	ID       uuid.UUID `json:"id"`
	SetID    uuid.UUID `json:"set_id"`
	StopID   int       `json:"stop_id"`
	Position int       `json:"position"`
	AddedAt  time.Time `json:"added_at"`
}

type createdItemJSON struct {
	ID       uuid.UUID `json:"id"`
	StopID   int       `json:"stop_id"`
	Position int       `json:"position"`
}

// ListItems handles GET /api/sets/{setId}/items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
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

	items, err := s.listItems(r.Context(), user.UserID, setID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total_count": len(items)})
}

// AddItem handles POST /api/sets/{setId}/items.
func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
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
	stopID, err := validation.StopIDBody(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	created, err := s.items.Add(r.Context(), user.UserID, setID, stopID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.listItems(r.Context(), user.UserID, setID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"items":        items,
		"created_item": createdItemJSON{ID: created.ID, StopID: created.StopID, Position: created.Position},
	})
}

// DeleteItem handles DELETE /api/sets/{setId}/items/{itemId}. The remaining
// items are renumbered by the database, so the returned list is dense.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	setID, err := setPathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	itemID, err := validation.PathUUID(chi.URLParam(r, "itemId"), "itemId", "item")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.items.Delete(r.Context(), user.UserID, setID, itemID); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.listItems(r.Context(), user.UserID, setID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "deleted_item_id": itemID})
}

func (s *Server) listItems(ctx context.Context, userID, setID uuid.UUID) ([]setItemJSON, error) {
	items, err := s.items.List(ctx, userID, setID)
	if err != nil {
		return nil, err
	}
	return itemsToResponse(items), nil
}

func itemsToResponse(items []domain.SetItem) []setItemJSON {
	out := make([]setItemJSON, len(items))
	for i, it := range items {
		out[i] = setItemJSON{ID: it.ID, SetID: it.SetID, StopID: it.StopID, Position: it.Position, AddedAt: it.AddedAt}
	}
	return out
}
