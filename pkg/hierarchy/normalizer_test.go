package hierarchy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

type fixture struct {
	siloID  uuid.UUID
	pillar  *models.Page
	sup1    *models.Page
	sup2    *models.Page
	sup3    *models.Page
	aux     *models.Page
	pages   []*models.Page
	entries []*models.HierarchyEntry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	siloID := uuid.New()
	page := func(title string) *models.Page {
		return &models.Page{ID: uuid.New(), SiloID: siloID, Title: title}
	}
	f := &fixture{
		siloID: siloID,
		pillar: page("Guia completo de jardinagem"),
		sup1:   page("Adubação orgânica"),
		sup2:   page("Poda de árvores frutíferas"),
		sup3:   page("Controle de pragas"),
		aux:    page("Glossário de jardinagem"),
	}
	f.pages = []*models.Page{f.sup3, f.pillar, f.aux, f.sup1, f.sup2}
	entry := func(p *models.Page, role string, pos float64) *models.HierarchyEntry {
		e, err := models.NewHierarchyEntry(siloID, p.ID, role, &pos)
		require.NoError(t, err)
		return e
	}
	f.entries = []*models.HierarchyEntry{
		entry(f.pillar, "pillar", 1),
		entry(f.sup1, "support", 1),
		entry(f.sup2, "support", 2),
		entry(f.sup3, "support", 3),
		entry(f.aux, "aux", 1),
	}
	return f
}

func TestNormalizeAssignsRolesAndIndexes(t *testing.T) {
	f := newFixture(t)
	m, err := Normalize(f.siloID, f.pages, f.entries)
	require.NoError(t, err)

	assert.Equal(t, f.pillar.ID, m.Pillar)

	e, ok := m.Entry(f.sup2.ID)
	require.True(t, ok)
	assert.Equal(t, models.RoleSupport, e.Role)
	assert.Equal(t, 2, e.SupportIndex)

	e, ok = m.Entry(f.aux.ID)
	require.True(t, ok)
	assert.Equal(t, models.RoleAux, e.Role)
	assert.Equal(t, 0, e.SupportIndex)
	assert.Equal(t, 1, e.Ordinal)

	assert.Equal(t, []uuid.UUID{f.sup1.ID, f.sup2.ID, f.sup3.ID}, m.Supports())
}

func TestNormalizePromotesFirstPageWithoutExplicitPillar(t *testing.T) {
	f := newFixture(t)
	var entries []*models.HierarchyEntry
	for _, e := range f.entries {
		if e.Role == models.RolePillar {
			continue
		}
		entries = append(entries, e)
	}

	m, err := Normalize(f.siloID, f.pages, entries)
	require.NoError(t, err)

	// The pillar page lost its entry, so it has no position and sorts last;
	// sup1 (position 1) is promoted instead.
	assert.Equal(t, f.sup1.ID, m.Pillar)

	// The old pillar page falls back to support.
	role, ok := m.Role(f.pillar.ID)
	require.True(t, ok)
	assert.Equal(t, models.RoleSupport, role)
}

func TestNormalizeBreaksPositionTiesByTitle(t *testing.T) {
	siloID := uuid.New()
	a := &models.Page{ID: uuid.New(), SiloID: siloID, Title: "Árvores nativas"}
	z := &models.Page{ID: uuid.New(), SiloID: siloID, Title: "Zinco no solo"}

	m, err := Normalize(siloID, []*models.Page{z, a}, nil)
	require.NoError(t, err)

	// No entries at all: both sort by title, accent-insensitively.
	assert.Equal(t, a.ID, m.Pillar)
	assert.Equal(t, []uuid.UUID{z.ID}, m.Supports())
}

func TestNormalizeEmptySilo(t *testing.T) {
	_, err := Normalize(uuid.New(), nil, nil)
	assert.ErrorIs(t, err, apperrors.ErrEmptySilo)
}

func TestMayLink(t *testing.T) {
	f := newFixture(t)
	m, err := Normalize(f.siloID, f.pages, f.entries)
	require.NoError(t, err)

	// Pillar → only supports.
	assert.True(t, m.MayLink(f.pillar.ID, f.sup1.ID))
	assert.True(t, m.MayLink(f.pillar.ID, f.sup3.ID))
	assert.False(t, m.MayLink(f.pillar.ID, f.aux.ID))
	assert.False(t, m.MayLink(f.pillar.ID, f.pillar.ID))

	// Support → pillar and immediate neighbors only.
	assert.True(t, m.MayLink(f.sup2.ID, f.pillar.ID))
	assert.True(t, m.MayLink(f.sup2.ID, f.sup1.ID))
	assert.True(t, m.MayLink(f.sup2.ID, f.sup3.ID))
	assert.False(t, m.MayLink(f.sup1.ID, f.sup3.ID))
	assert.False(t, m.MayLink(f.sup2.ID, f.aux.ID))

	// The chain is valid in both directions.
	assert.True(t, m.MayLink(f.sup1.ID, f.sup2.ID))
	assert.True(t, m.MayLink(f.sup2.ID, f.sup1.ID))

	// Aux → pillar only.
	assert.True(t, m.MayLink(f.aux.ID, f.pillar.ID))
	assert.False(t, m.MayLink(f.aux.ID, f.sup1.ID))

	// Unknown pages never link.
	assert.False(t, m.MayLink(uuid.New(), f.pillar.ID))
	assert.False(t, m.MayLink(f.sup1.ID, uuid.New()))
}

func TestEligibleTargetsAndPairScore(t *testing.T) {
	f := newFixture(t)
	m, err := Normalize(f.siloID, f.pages, f.entries)
	require.NoError(t, err)

	targets := m.EligibleTargets(f.sup2.ID)
	assert.Equal(t, []uuid.UUID{f.pillar.ID, f.sup1.ID, f.sup3.ID}, targets)

	assert.Equal(t, 100.0, m.PairScore(f.sup2.ID, f.pillar.ID))
	assert.Equal(t, 95.0, m.PairScore(f.aux.ID, f.pillar.ID))
	assert.Equal(t, 85.0, m.PairScore(f.pillar.ID, f.sup1.ID))
	assert.Equal(t, 75.0, m.PairScore(f.sup2.ID, f.sup3.ID))
	assert.Equal(t, 0.0, m.PairScore(f.sup1.ID, f.sup3.ID))
}
