package domain

import (
	"encoding/json"
	"time"
)

// Meta holds the server-managed fields shared by every content record.
// Entities embed it so the fields are inlined in the stored JSON.
type Meta struct {
	ID        string    `json:"id"`
	Published bool      `json:"published"`
	Featured  bool      `json:"featured"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *Meta) Base() *Meta { return m }

type Record interface {
	Base() *Meta
}

// Sluggable records carry a slug derived from their title.
type Sluggable interface {
	Record
	SlugSource() string
	CurrentSlug() string
	SetSlug(string)
}

// Ordered records are listed by an explicit display order instead of recency.
type Ordered interface {
	Record
	DisplayRank() int
}

// Authored records get a default author from the identity that created them.
type Authored interface {
	Record
	DefaultAuthor(name string)
}

// Patch is a partial update keyed by JSON field name.
type Patch map[string]json.RawMessage

// Has reports whether the patch touches field.
func (p Patch) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// protectedFields are never taken from a patch.
var protectedFields = []string{"id", "createdAt", "updatedAt", "createdBy", "slug"}

// Sanitized returns a copy of p without server-managed fields.
func (p Patch) Sanitized() Patch {
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, k := range protectedFields {
		delete(out, k)
	}
	return out
}
