package models

import (
	"time"

	"github.com/google/uuid"
)

// Silo is a cluster of pages organized as one Pillar, a linear chain of
// Support pages and optional Aux pages, with constrained internal linking.
// Stored in silos table.
type Silo struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is one content page inside a silo. Immutable for the duration of one
// audit or suggestion pass. Stored in silo_pages table.
type Page struct {
	ID       uuid.UUID `json:"id"`
	SiloID   uuid.UUID `json:"silo_id"`
	Title    string    `json:"title"`
	Slug     string    `json:"slug"`
	Keyword  string    `json:"keyword,omitempty"`  // target keyword, may be empty
	Entities []string  `json:"entities,omitempty"` // topical terms, may be empty
	Body     string    `json:"body"`               // stored markup

	UpdatedAt time.Time `json:"updated_at"`
}

// NewPage validates and builds a Page from loosely-typed storage values.
// Optional columns that drifted away degrade to zero values; identity fields
// are required.
func NewPage(id, siloID uuid.UUID, title, slug, keyword string, entities []string, body string, updatedAt time.Time) (*Page, error) {
	if id == uuid.Nil {
		return nil, ErrMissingID
	}
	if siloID == uuid.Nil {
		return nil, ErrMissingSiloID
	}
	clean := make([]string, 0, len(entities))
	for _, e := range entities {
		if e != "" {
			clean = append(clean, e)
		}
	}
	if len(clean) == 0 {
		clean = nil
	}
	return &Page{
		ID:        id,
		SiloID:    siloID,
		Title:     title,
		Slug:      slug,
		Keyword:   keyword,
		Entities:  clean,
		Body:      body,
		UpdatedAt: updatedAt,
	}, nil
}
