package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/repositories"
)

// Function-field mocks for the repository interfaces. Tests set only the
// funcs they need; unset funcs return zero values.

type MockSiloRepository struct {
	GetSiloFunc   func(ctx context.Context, id uuid.UUID) (*models.Silo, error)
	GetPageFunc   func(ctx context.Context, id uuid.UUID) (*models.Page, error)
	ListPagesFunc func(ctx context.Context, siloID uuid.UUID) ([]*models.Page, error)
}

func (m *MockSiloRepository) GetSilo(ctx context.Context, id uuid.UUID) (*models.Silo, error) {
	if m.GetSiloFunc == nil {
		return nil, nil
	}
	return m.GetSiloFunc(ctx, id)
}

func (m *MockSiloRepository) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	if m.GetPageFunc == nil {
		return nil, nil
	}
	return m.GetPageFunc(ctx, id)
}

func (m *MockSiloRepository) ListPages(ctx context.Context, siloID uuid.UUID) ([]*models.Page, error) {
	if m.ListPagesFunc == nil {
		return nil, nil
	}
	return m.ListPagesFunc(ctx, siloID)
}

var _ repositories.SiloRepository = (*MockSiloRepository)(nil)

type MockHierarchyRepository struct {
	ListEntriesFunc    func(ctx context.Context, siloID uuid.UUID) ([]*models.HierarchyEntry, error)
	ReplaceEntriesFunc func(ctx context.Context, siloID uuid.UUID, entries []*models.HierarchyEntry) error

	ReplaceEntriesCalls int
}

func (m *MockHierarchyRepository) ListEntries(ctx context.Context, siloID uuid.UUID) ([]*models.HierarchyEntry, error) {
	if m.ListEntriesFunc == nil {
		return nil, nil
	}
	return m.ListEntriesFunc(ctx, siloID)
}

func (m *MockHierarchyRepository) ReplaceEntries(ctx context.Context, siloID uuid.UUID, entries []*models.HierarchyEntry) error {
	m.ReplaceEntriesCalls++
	if m.ReplaceEntriesFunc == nil {
		return nil
	}
	return m.ReplaceEntriesFunc(ctx, siloID, entries)
}

var _ repositories.HierarchyRepository = (*MockHierarchyRepository)(nil)

type MockOccurrenceRepository struct {
	ListBySiloFunc    func(ctx context.Context, siloID uuid.UUID) ([]*models.LinkOccurrence, error)
	ListBySourceFunc  func(ctx context.Context, sourceID uuid.UUID) ([]*models.LinkOccurrence, error)
	SyncForSourceFunc func(ctx context.Context, siloID, sourceID uuid.UUID, fresh []*models.LinkOccurrence) ([]*models.LinkOccurrence, error)
}

func (m *MockOccurrenceRepository) ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkOccurrence, error) {
	if m.ListBySiloFunc == nil {
		return nil, nil
	}
	return m.ListBySiloFunc(ctx, siloID)
}

func (m *MockOccurrenceRepository) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]*models.LinkOccurrence, error) {
	if m.ListBySourceFunc == nil {
		return nil, nil
	}
	return m.ListBySourceFunc(ctx, sourceID)
}

func (m *MockOccurrenceRepository) SyncForSource(ctx context.Context, siloID, sourceID uuid.UUID, fresh []*models.LinkOccurrence) ([]*models.LinkOccurrence, error) {
	if m.SyncForSourceFunc == nil {
		return fresh, nil
	}
	return m.SyncForSourceFunc(ctx, siloID, sourceID, fresh)
}

var _ repositories.OccurrenceRepository = (*MockOccurrenceRepository)(nil)

type MockLinkAuditRepository struct {
	ListBySiloFunc     func(ctx context.Context, siloID uuid.UUID) ([]*models.LinkAudit, error)
	ReplaceForSiloFunc func(ctx context.Context, siloID uuid.UUID, audits []*models.LinkAudit) error

	ReplaceForSiloCalls int
}

func (m *MockLinkAuditRepository) ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkAudit, error) {
	if m.ListBySiloFunc == nil {
		return nil, nil
	}
	return m.ListBySiloFunc(ctx, siloID)
}

func (m *MockLinkAuditRepository) ReplaceForSilo(ctx context.Context, siloID uuid.UUID, audits []*models.LinkAudit) error {
	m.ReplaceForSiloCalls++
	if m.ReplaceForSiloFunc == nil {
		return nil
	}
	return m.ReplaceForSiloFunc(ctx, siloID, audits)
}

var _ repositories.LinkAuditRepository = (*MockLinkAuditRepository)(nil)

type MockSiloAuditRepository struct {
	GetFunc     func(ctx context.Context, siloID uuid.UUID) (*models.SiloAudit, error)
	ReplaceFunc func(ctx context.Context, audit *models.SiloAudit) error

	ReplaceCalls int
}

func (m *MockSiloAuditRepository) Get(ctx context.Context, siloID uuid.UUID) (*models.SiloAudit, error) {
	if m.GetFunc == nil {
		return nil, nil
	}
	return m.GetFunc(ctx, siloID)
}

func (m *MockSiloAuditRepository) Replace(ctx context.Context, audit *models.SiloAudit) error {
	m.ReplaceCalls++
	if m.ReplaceFunc == nil {
		return nil
	}
	return m.ReplaceFunc(ctx, audit)
}

var _ repositories.SiloAuditRepository = (*MockSiloAuditRepository)(nil)
