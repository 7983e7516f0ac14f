package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"brokerage_site/internal/app"
	"brokerage_site/internal/domain"
)

const maxBody = 1 << 20

type entityRoutes[T any, P interface {
	*T
	domain.Record
}] struct {
	c      *app.Collection[T, P]
	filter func(url.Values, []*T) ([]*T, error)
	slugs  bool
}

// mountEntity registers the public and admin routes of one collection.
// Static segments (admin, featured, slug) win over {id} in chi.
func mountEntity[T any, P interface {
	*T
	domain.Record
}](r chi.Router, admin func(http.Handler) http.Handler, e entityRoutes[T, P]) {
	r.Get("/", e.list)
	r.Get("/featured", e.featured)
	if e.slugs {
		r.Get("/slug/{slug}", e.bySlug)
	}
	r.Get("/{id}", e.get)

	r.Route("/admin", func(r chi.Router) {
		r.Use(admin)
		r.Get("/", e.adminList)
		r.Post("/", e.create)
		r.Get("/{id}", e.adminGet)
		r.Put("/{id}", e.update)
		r.Delete("/{id}", e.remove)
	})
}

func (e entityRoutes[T, P]) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, e.c.DisplayName()+" not found")
}

func (e entityRoutes[T, P]) list(w http.ResponseWriter, r *http.Request) {
	items, err := e.c.ListPublished(r.Context())
	if err == nil && e.filter != nil {
		items, err = e.filter(r.URL.Query(), items)
	}
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	writeCached(w, r, items)
}

func (e entityRoutes[T, P]) featured(w http.ResponseWriter, r *http.Request) {
	items, err := e.c.ListFeatured(r.Context())
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	writeCached(w, r, items)
}

func (e entityRoutes[T, P]) bySlug(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := e.c.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	if !ok {
		e.notFound(w)
		return
	}
	writeCached(w, r, rec)
}

// get hides unpublished records from public callers.
func (e entityRoutes[T, P]) get(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := e.c.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	if !ok || !P(rec).Base().Published {
		e.notFound(w)
		return
	}
	writeCached(w, r, rec)
}

func (e entityRoutes[T, P]) adminList(w http.ResponseWriter, r *http.Request) {
	items, err := e.c.ListAll(r.Context())
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (e entityRoutes[T, P]) adminGet(w http.ResponseWriter, r *http.Request) {
	rec, ok, err := e.c.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	if !ok {
		e.notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e entityRoutes[T, P]) create(w http.ResponseWriter, r *http.Request) {
	var in T
	if err := decodeBody(w, r, &in); err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	id, _ := IdentityFrom(r.Context())
	rec, err := e.c.Create(r.Context(), in, id)
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (e entityRoutes[T, P]) update(w http.ResponseWriter, r *http.Request) {
	var patch domain.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	rec, ok, err := e.c.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	if !ok {
		e.notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e entityRoutes[T, P]) remove(w http.ResponseWriter, r *http.Request) {
	ok, err := e.c.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err, e.c.DisplayName())
		return
	}
	if !ok {
		e.notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decodeBody reads one JSON value; malformed, oversized or empty bodies are ErrInvalid.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return fmt.Errorf("%w: body exceeds %d bytes", domain.ErrInvalid, maxBody)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalid)
		default:
			return fmt.Errorf("%w: malformed JSON: %v", domain.ErrInvalid, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: body must contain a single JSON value", domain.ErrInvalid)
	}
	return nil
}

// ---- listing filters ----

func filterProperties(q url.Values, items []*domain.Property) ([]*domain.Property, error) {
	minPrice, err := floatParam(q, "minPrice")
	if err != nil {
		return nil, err
	}
	maxPrice, err := floatParam(q, "maxPrice")
	if err != nil {
		return nil, err
	}
	beds, err := floatParam(q, "bedrooms")
	if err != nil {
		return nil, err
	}
	typ, status, city := q.Get("type"), q.Get("status"), q.Get("city")

	out := make([]*domain.Property, 0, len(items))
	for _, p := range items {
		switch {
		case typ != "" && !strings.EqualFold(p.PropertyType, typ),
			status != "" && !strings.EqualFold(p.Status, status),
			city != "" && !strings.EqualFold(p.City, city),
			minPrice != nil && p.Price < *minPrice,
			maxPrice != nil && p.Price > *maxPrice,
			beds != nil && float64(p.Bedrooms) < *beds:
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func filterBlogPosts(q url.Values, items []*domain.BlogPost) ([]*domain.BlogPost, error) {
	cat, tag := q.Get("category"), q.Get("tag")
	out := make([]*domain.BlogPost, 0, len(items))
	for _, b := range items {
		if cat != "" && !strings.EqualFold(b.Category, cat) {
			continue
		}
		if tag != "" && !slices.ContainsFunc(b.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalid, name)
	}
	return &f, nil
}
