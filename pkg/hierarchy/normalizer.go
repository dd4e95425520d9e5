// Package hierarchy derives the canonical Pillar/Support/Aux shape of a silo
// from raw, possibly inconsistent role/position rows, and owns the adjacency
// rule shared by the audit scorer and the suggestion extractor.
package hierarchy

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Map is the normalized hierarchy of one silo for one run. It is recomputed
// on every audit/suggestion pass; stored derived fields are only a cache.
type Map struct {
	SiloID  uuid.UUID
	Pillar  uuid.UUID
	entries map[uuid.UUID]*models.HierarchyEntry
	titles  map[uuid.UUID]string
	// support page ids ordered by support index (1-based index i lives at i-1)
	supports []uuid.UUID
	auxes    []uuid.UUID
}

// Normalize builds the canonical hierarchy for a silo. Pages without a stored
// entry default to Support with no position. Stored support indexes and
// ordinals are ignored and assigned fresh.
func Normalize(siloID uuid.UUID, pages []*models.Page, raw []*models.HierarchyEntry) (*Map, error) {
	if len(pages) == 0 {
		return nil, apperrors.ErrEmptySilo
	}

	byPage := make(map[uuid.UUID]*models.HierarchyEntry, len(raw))
	for _, e := range raw {
		if e.SiloID != siloID {
			continue
		}
		byPage[e.PageID] = e
	}

	m := &Map{
		SiloID:  siloID,
		entries: make(map[uuid.UUID]*models.HierarchyEntry, len(pages)),
		titles:  make(map[uuid.UUID]string, len(pages)),
	}

	ordered := make([]*models.Page, len(pages))
	copy(ordered, pages)
	sortKey := func(p *models.Page) float64 {
		if e, ok := byPage[p.ID]; ok {
			return e.SortPosition()
		}
		return math.Inf(1)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, pj := sortKey(ordered[i]), sortKey(ordered[j])
		if pi != pj {
			return pi < pj
		}
		return textutil.TitleCompare(ordered[i].Title, ordered[j].Title) < 0
	})

	// Pillar: first explicitly marked by sort key, else first page overall.
	for _, p := range ordered {
		if e, ok := byPage[p.ID]; ok && e.Role == models.RolePillar {
			m.Pillar = p.ID
			break
		}
	}
	if m.Pillar == uuid.Nil {
		m.Pillar = ordered[0].ID
	}

	for _, p := range ordered {
		m.titles[p.ID] = p.Title

		stored, hasStored := byPage[p.ID]
		var pos *float64
		if hasStored {
			pos = stored.Position
		}

		entry := &models.HierarchyEntry{SiloID: siloID, PageID: p.ID, Position: pos}
		switch {
		case p.ID == m.Pillar:
			entry.Role = models.RolePillar
			entry.Ordinal = 1
		case hasStored && stored.Role == models.RoleAux:
			entry.Role = models.RoleAux
			m.auxes = append(m.auxes, p.ID)
			entry.Ordinal = len(m.auxes)
		default:
			// Everything else, including extra pages marked pillar, becomes
			// support re-ranked by the same sort key.
			entry.Role = models.RoleSupport
			m.supports = append(m.supports, p.ID)
			entry.SupportIndex = len(m.supports)
			entry.Ordinal = entry.SupportIndex
		}
		m.entries[p.ID] = entry
	}

	return m, nil
}

// Entry returns the derived entry for a page.
func (m *Map) Entry(pageID uuid.UUID) (*models.HierarchyEntry, bool) {
	e, ok := m.entries[pageID]
	return e, ok
}

// Entries returns every derived entry, pillar first, then supports in chain
// order, then auxes.
func (m *Map) Entries() []*models.HierarchyEntry {
	out := make([]*models.HierarchyEntry, 0, len(m.entries))
	out = append(out, m.entries[m.Pillar])
	for _, id := range m.supports {
		out = append(out, m.entries[id])
	}
	for _, id := range m.auxes {
		out = append(out, m.entries[id])
	}
	return out
}

// Role returns the derived role for a page.
func (m *Map) Role(pageID uuid.UUID) (models.Role, bool) {
	e, ok := m.entries[pageID]
	if !ok {
		return "", false
	}
	return e.Role, true
}

// Supports returns the support chain in order.
func (m *Map) Supports() []uuid.UUID {
	return m.supports
}

// Title returns the page title captured during normalization.
func (m *Map) Title(pageID uuid.UUID) string {
	return m.titles[pageID]
}

// MayLink reports whether a src→dst internal link respects the adjacency
// rule: Pillar links only Supports; Support[i] links the Pillar or
// Support[i±1]; Aux links only the Pillar.
func (m *Map) MayLink(src, dst uuid.UUID) bool {
	if src == dst {
		return false
	}
	se, ok := m.entries[src]
	if !ok {
		return false
	}
	de, ok := m.entries[dst]
	if !ok {
		return false
	}

	switch se.Role {
	case models.RolePillar:
		return de.Role == models.RoleSupport
	case models.RoleSupport:
		if de.Role == models.RolePillar {
			return true
		}
		if de.Role != models.RoleSupport {
			return false
		}
		diff := se.SupportIndex - de.SupportIndex
		return diff == 1 || diff == -1
	case models.RoleAux:
		return de.Role == models.RolePillar
	default:
		return false
	}
}

// EligibleTargets lists every page the source page may link, in hierarchy
// order (pillar before supports).
func (m *Map) EligibleTargets(src uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for _, e := range m.Entries() {
		if m.MayLink(src, e.PageID) {
			out = append(out, e.PageID)
		}
	}
	return out
}

// PairScore grades a hierarchy-valid pairing for the ranker: the
// support→pillar backbone is worth most, pillar→support and the support
// chain a bit less. Invalid pairs score zero.
func (m *Map) PairScore(src, dst uuid.UUID) float64 {
	if !m.MayLink(src, dst) {
		return 0
	}
	se := m.entries[src]
	de := m.entries[dst]
	switch {
	case se.Role == models.RoleSupport && de.Role == models.RolePillar:
		return 100
	case se.Role == models.RoleAux && de.Role == models.RolePillar:
		return 95
	case se.Role == models.RolePillar && de.Role == models.RoleSupport:
		return 85
	default: // support chain neighbor
		return 75
	}
}
