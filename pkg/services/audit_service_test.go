package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

// auditFixture is a three-page silo with in-memory repository state, so
// consecutive runs see each other's writes the way real runs do.
type auditFixture struct {
	siloID uuid.UUID
	silo   *models.Silo
	pillar *models.Page
	sup1   *models.Page
	sup2   *models.Page
	pages  []*models.Page

	siloRepo      *MockSiloRepository
	hierRepo      *MockHierarchyRepository
	occRepo       *MockOccurrenceRepository
	linkRepo      *MockLinkAuditRepository
	siloAuditRepo *MockSiloAuditRepository
	svc           AuditService

	mu          sync.Mutex
	entries     []*models.HierarchyEntry
	occStore    map[uuid.UUID][]*models.LinkOccurrence
	linkAudits  []*models.LinkAudit
	siloAudit   *models.SiloAudit
	failSources map[uuid.UUID]bool
}

func newAuditFixture(t *testing.T) *auditFixture {
	t.Helper()
	siloID := uuid.New()

	page := func(title, slug, body string) *models.Page {
		return &models.Page{
			ID: uuid.New(), SiloID: siloID,
			Title: title, Slug: slug, Body: body,
			UpdatedAt: time.Now(),
		}
	}

	f := &auditFixture{
		siloID: siloID,
		silo:   &models.Silo{ID: siloID, Name: "Jardinagem", Slug: "jardinagem"},
		pillar: page("Guia completo de jardinagem", "guia-de-jardinagem",
			`<p>Comece pela <a href="/poda-de-arvores">poda de árvores frutíferas no inverno</a> e depois estude o <a href="/controle-de-pragas">controle de pragas na horta</a>.</p>`),
		sup1: page("Poda de árvores frutíferas", "poda-de-arvores",
			`<p>Volte ao <a href="/guia-de-jardinagem">guia completo de jardinagem</a> para montar o plano do pomar.</p>`),
		sup2: page("Controle de pragas", "controle-de-pragas",
			`<p>O <a href="/guia-de-jardinagem">guia completo de jardinagem</a> traz o calendário de plantio. Fonte: <a href="https://exemplo.org/estudo">estudo sobre pragas</a>.</p>`),
		occStore:    make(map[uuid.UUID][]*models.LinkOccurrence),
		failSources: make(map[uuid.UUID]bool),
	}
	f.pages = []*models.Page{f.pillar, f.sup1, f.sup2}

	entry := func(p *models.Page, role string, pos float64) *models.HierarchyEntry {
		e, err := models.NewHierarchyEntry(siloID, p.ID, role, &pos)
		require.NoError(t, err)
		return e
	}
	f.entries = []*models.HierarchyEntry{
		entry(f.pillar, "pillar", 1),
		entry(f.sup1, "support", 1),
		entry(f.sup2, "support", 2),
	}

	f.siloRepo = &MockSiloRepository{
		GetSiloFunc: func(_ context.Context, id uuid.UUID) (*models.Silo, error) {
			if id != siloID {
				return nil, apperrors.ErrNotFound
			}
			return f.silo, nil
		},
		GetPageFunc: func(_ context.Context, id uuid.UUID) (*models.Page, error) {
			for _, p := range f.pages {
				if p.ID == id {
					return p, nil
				}
			}
			return nil, apperrors.ErrNotFound
		},
		ListPagesFunc: func(_ context.Context, _ uuid.UUID) ([]*models.Page, error) {
			return f.pages, nil
		},
	}
	f.hierRepo = &MockHierarchyRepository{
		ListEntriesFunc: func(_ context.Context, _ uuid.UUID) ([]*models.HierarchyEntry, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.entries, nil
		},
		ReplaceEntriesFunc: func(_ context.Context, _ uuid.UUID, entries []*models.HierarchyEntry) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.entries = entries
			return nil
		},
	}
	f.occRepo = &MockOccurrenceRepository{
		SyncForSourceFunc: func(_ context.Context, _, sourceID uuid.UUID, fresh []*models.LinkOccurrence) ([]*models.LinkOccurrence, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failSources[sourceID] {
				return nil, errors.New("sync blew up")
			}
			if stored, ok := f.occStore[sourceID]; ok {
				return stored, nil
			}
			f.occStore[sourceID] = fresh
			return fresh, nil
		},
		ListBySiloFunc: func(_ context.Context, _ uuid.UUID) ([]*models.LinkOccurrence, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			var out []*models.LinkOccurrence
			for _, p := range f.pages {
				out = append(out, f.occStore[p.ID]...)
			}
			return out, nil
		},
	}
	f.linkRepo = &MockLinkAuditRepository{
		ListBySiloFunc: func(_ context.Context, _ uuid.UUID) ([]*models.LinkAudit, error) {
			return f.linkAudits, nil
		},
		ReplaceForSiloFunc: func(_ context.Context, _ uuid.UUID, audits []*models.LinkAudit) error {
			f.linkAudits = audits
			return nil
		},
	}
	f.siloAuditRepo = &MockSiloAuditRepository{
		GetFunc: func(_ context.Context, _ uuid.UUID) (*models.SiloAudit, error) {
			if f.siloAudit == nil {
				return nil, apperrors.ErrNotFound
			}
			return f.siloAudit, nil
		},
		ReplaceFunc: func(_ context.Context, audit *models.SiloAudit) error {
			f.siloAudit = audit
			return nil
		},
	}

	f.svc = NewAuditService(f.siloRepo, f.hierRepo, f.occRepo, f.linkRepo, f.siloAuditRepo, zap.NewNop())
	return f
}

func TestAuditRunScoresAndPersists(t *testing.T) {
	f := newAuditFixture(t)

	report, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)

	assert.False(t, report.Cached)
	assert.Equal(t, 3, report.SyncedPages)
	assert.Equal(t, 0, report.FailedPages)
	assert.NotEmpty(t, report.Fingerprint)

	// Four internal links across the three pages; the external study link is
	// never audited.
	require.Len(t, report.LinkAudits, 4)
	for _, la := range report.LinkAudits {
		assert.GreaterOrEqual(t, la.Score, 0)
		assert.LessOrEqual(t, la.Score, 100)
		assert.Contains(t, []models.Label{models.LabelStrong, models.LabelOK, models.LabelWeak}, la.Label)
		assert.NotEmpty(t, la.Recommendation)
	}

	assert.Equal(t, 3, report.Summary.TotalPages)
	assert.Equal(t, 4, report.Summary.TotalInternalLinks)
	assert.GreaterOrEqual(t, report.HealthScore, 0)
	assert.LessOrEqual(t, report.HealthScore, 100)

	assert.Equal(t, 1, f.linkRepo.ReplaceForSiloCalls)
	assert.Equal(t, 1, f.siloAuditRepo.ReplaceCalls)
	require.NotNil(t, f.siloAudit)
	assert.Equal(t, report.Fingerprint, f.siloAudit.Fingerprint)
}

func TestAuditRunFingerprintCacheHit(t *testing.T) {
	f := newAuditFixture(t)

	first, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)
	require.False(t, first.Cached)

	second, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, first.HealthScore, second.HealthScore)
	require.Len(t, second.LinkAudits, len(first.LinkAudits))
	for i := range first.LinkAudits {
		assert.Equal(t, first.LinkAudits[i].ID, second.LinkAudits[i].ID)
		assert.Equal(t, first.LinkAudits[i].Score, second.LinkAudits[i].Score)
	}

	// The cached run never rewrote anything.
	assert.Equal(t, 1, f.linkRepo.ReplaceForSiloCalls)
	assert.Equal(t, 1, f.siloAuditRepo.ReplaceCalls)
}

func TestAuditRunForceRefreshRecomputes(t *testing.T) {
	f := newAuditFixture(t)

	first, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)

	second, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{ForceRefresh: true})
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 2, f.linkRepo.ReplaceForSiloCalls)
}

func TestAuditRunToleratesSyncFailure(t *testing.T) {
	f := newAuditFixture(t)
	f.failSources[f.sup2.ID] = true

	report, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, report.SyncedPages)
	assert.Equal(t, 1, report.FailedPages)

	// sup2's links are absent from this run's dataset but everything else
	// was still audited.
	assert.Equal(t, 3, report.Summary.TotalInternalLinks)
}

func TestAuditRunEmptySilo(t *testing.T) {
	f := newAuditFixture(t)
	f.siloRepo.ListPagesFunc = func(_ context.Context, _ uuid.UUID) ([]*models.Page, error) {
		return nil, nil
	}

	_, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	assert.ErrorIs(t, err, apperrors.ErrEmptySilo)
}

func TestAuditRunExternalSuggestionBypassesCache(t *testing.T) {
	f := newAuditFixture(t)

	first, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, first.LinkAudits)

	occID := first.LinkAudits[0].OccurrenceID
	intent := 80.0
	second, err := f.svc.Run(context.Background(), f.siloID, AuditOptions{
		External: map[uuid.UUID]*models.ExternalSuggestion{
			occID: {IntentMatch: &intent},
		},
	})
	require.NoError(t, err)

	assert.False(t, second.Cached, "external suggestions must force a recompute")

	var merged *models.LinkAudit
	for _, la := range second.LinkAudits {
		if la.OccurrenceID == occID {
			merged = la
		}
	}
	require.NotNil(t, merged)
	require.NotNil(t, merged.IntentMatch)
	assert.InDelta(t, intent, *merged.IntentMatch, 0.001)
}

func TestSlugResolver(t *testing.T) {
	siloID := uuid.New()
	page := &models.Page{ID: uuid.New(), SiloID: siloID, Slug: "poda-de-arvores"}
	resolve := slugResolver([]*models.Page{page})

	got := resolve("/poda-de-arvores")
	require.NotNil(t, got)
	assert.Equal(t, page.ID, *got)

	assert.NotNil(t, resolve("/blog/poda-de-arvores.html"))
	assert.Nil(t, resolve("https://exemplo.org/poda-de-arvores"), "absolute URLs stay external")
	assert.Nil(t, resolve("/outra-pagina"))
}
