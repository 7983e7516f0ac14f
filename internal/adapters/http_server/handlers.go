package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
)

type Handlers struct {
	Catalog *app.Catalog
	Seeder  *app.Seeder
	Auth    domain.IdentityVerifier
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) MountHandlers(h *Handlers) {
	admin := RequireBearer(h.Auth)

	s.mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	s.mux.Get("/seed-all", h.seedAll)
	s.mux.With(admin).Get("/force-reseed", h.forceReseed)
	s.mux.With(admin).Get("/seed-status", h.seedStatus)

	c := h.Catalog
	s.mux.Route("/properties", func(r chi.Router) {
		mountEntity(r, admin, entityRoutes[domain.Property, *domain.Property]{c: c.Properties, filter: filterProperties, slugs: true})
	})
	s.mux.Route("/blog", func(r chi.Router) {
		mountEntity(r, admin, entityRoutes[domain.BlogPost, *domain.BlogPost]{c: c.BlogPosts, filter: filterBlogPosts, slugs: true})
	})
	s.mux.Route("/testimonials", func(r chi.Router) {
		mountEntity(r, admin, entityRoutes[domain.Testimonial, *domain.Testimonial]{c: c.Testimonials})
	})
	s.mux.Route("/recognitions", func(r chi.Router) {
		mountEntity(r, admin, entityRoutes[domain.Recognition, *domain.Recognition]{c: c.Recognitions})
	})
	s.mux.Route("/partnerships", func(r chi.Router) {
		mountEntity(r, admin, entityRoutes[domain.Partnership, *domain.Partnership]{c: c.Partnerships})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps an operation error to a status code. Store failures never leak details.
func fail(w http.ResponseWriter, r *http.Request, err error, display string) {
	switch {
	case errors.Is(err, domain.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, display+" not found")
	case errors.Is(err, domain.ErrSeedBusy):
		writeError(w, http.StatusTooManyRequests, "Seeding already in progress")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v with an ETag, answering 304 when the client already has it.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

// ---- seeding ----

func (h *Handlers) seedAll(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Seeder.SeedAll(r.Context())
	if err != nil {
		fail(w, r, err, "Seed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (h *Handlers) forceReseed(w http.ResponseWriter, r *http.Request) {
	clean, _ := strconv.ParseBool(r.URL.Query().Get("clean"))
	id, _ := IdentityFrom(r.Context())
	log.Warn().Str("by", id.DisplayName()).Bool("clean", clean).Msg("force reseed requested")

	rep, err := h.Seeder.ForceReseed(r.Context(), clean)
	if err != nil {
		fail(w, r, err, "Seed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "report": rep})
}

func (h *Handlers) seedStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Seeder.Status(r.Context())
	if err != nil {
		fail(w, r, err, "Seed")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
