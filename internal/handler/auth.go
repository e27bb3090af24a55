package handler

import "net/http"

// Logout handles POST /api/auth/logout. The presented token is revoked until
// it expires; the identity provider's own session is left alone.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	noStore(w)
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := s.logout.Logout(r.Context(), user); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
