package handler

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the router for every endpoint. Cross-cutting middleware
// (request IDs, logging, CORS, identity) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/readyz", s.GetReady)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/logout", s.Logout)

		r.Route("/sets", func(r chi.Router) {
			r.Get("/", s.ListSets)
			r.Post("/", s.CreateSet)
			r.Route("/{setId}", func(r chi.Router) {
				r.Patch("/", s.RenameSet)
				r.Delete("/", s.DeleteSet)
				r.Get("/items", s.ListItems)
				r.Post("/items", s.AddItem)
				r.Delete("/items/{itemId}", s.DeleteItem)
			})
		})

		r.Route("/ztm", func(r chi.Router) {
			r.Get("/stops", s.GetStops)
			r.Get("/departures", s.GetDepartures)
			r.Get("/sets/{setId}/departures", s.GetSetDepartures)
			r.Get("/sets/{setId}/stops", s.GetSetStops)
		})
	})

	return r
}
