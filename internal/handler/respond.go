package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
	"github.com/wgrabowski/tabliczki-ztm/internal/middleware"
)

// staleForADay is the stale-while-revalidate window for stop directory data,
// which changes at most daily.
const staleForADay = 24 * time.Hour

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readBody reads the whole request body. The size limit is enforced by
// middleware.NewMaxBodySizeHandler; crossing it surfaces as *http.MaxBytesError.
func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

// requireUser returns the caller's identity, or writes 401 and returns false.
func requireUser(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeUnauthorized(w)
		return auth.Identity{}, false
	}
	return id, true
}

// noStore marks a response as never cacheable. Used on every set and item
// endpoint so mutations are visible immediately.
func noStore(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}

// publicCache marks a response shared-cacheable for ttl, then servable stale
// for stale while it revalidates.
func publicCache(w http.ResponseWriter, ttl, stale time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d, stale-while-revalidate=%d",
		seconds(ttl), seconds(ttl), seconds(stale)))
}

// privateCache is publicCache for per-user data: browser cache only, keyed
// by the session cookie.
func privateCache(w http.ResponseWriter, ttl, stale time.Duration) {
	w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d, stale-while-revalidate=%d",
		seconds(ttl), seconds(stale)))
	w.Header().Add("Vary", "Cookie")
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}
