package models

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Validation errors for record constructors.
var (
	ErrMissingID     = errors.New("missing id")
	ErrMissingSiloID = errors.New("missing silo id")
	ErrMissingPageID = errors.New("missing page id")
)

// Role is a page's place in the silo hierarchy.
type Role string

const (
	RolePillar  Role = "PILLAR"
	RoleSupport Role = "SUPPORT"
	RoleAux     Role = "AUX"
)

// ParseRole normalizes raw role strings from storage. Unknown or empty values
// degrade to Support, the least privileged linking role.
func ParseRole(raw string) Role {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PILLAR", "PILAR":
		return RolePillar
	case "AUX", "AUXILIARY", "AUXILIAR":
		return RoleAux
	default:
		return RoleSupport
	}
}

// HierarchyEntry is the stored (role, position) row for one page of a silo.
// The derived fields (SupportIndex, Ordinal) are recomputed on every run; the
// stored copies are only a cache of the last normalization.
type HierarchyEntry struct {
	SiloID   uuid.UUID `json:"silo_id"`
	PageID   uuid.UUID `json:"page_id"`
	Role     Role      `json:"role"`
	Position *float64  `json:"position,omitempty"` // explicit ordering hint, may be absent or invalid

	// Derived by hierarchy.Normalize. Never trusted from storage.
	SupportIndex int `json:"support_index,omitempty"` // 1-based rank among support pages
	Ordinal      int `json:"ordinal,omitempty"`       // 1-based rank within the role group
}

// NewHierarchyEntry validates a raw row. Non-finite or non-positive positions
// are dropped so they sort last in normalization.
func NewHierarchyEntry(siloID, pageID uuid.UUID, role string, position *float64) (*HierarchyEntry, error) {
	if siloID == uuid.Nil {
		return nil, ErrMissingSiloID
	}
	if pageID == uuid.Nil {
		return nil, ErrMissingPageID
	}
	pos := position
	if pos != nil && (math.IsNaN(*pos) || math.IsInf(*pos, 0) || *pos <= 0) {
		pos = nil
	}
	return &HierarchyEntry{
		SiloID:   siloID,
		PageID:   pageID,
		Role:     ParseRole(role),
		Position: pos,
	}, nil
}

// SortPosition returns the effective sort key: the explicit position when
// valid, +inf otherwise so unpositioned pages sort last.
func (e *HierarchyEntry) SortPosition() float64 {
	if e.Position == nil {
		return math.Inf(1)
	}
	return *e.Position
}
