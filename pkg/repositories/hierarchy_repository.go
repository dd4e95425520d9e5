package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/database"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

// HierarchyRepository provides data access for silo hierarchy rows. The
// stored derived fields are only a cache of the last normalization; readers
// must renormalize.
type HierarchyRepository interface {
	// ListEntries returns the raw hierarchy rows of a silo.
	ListEntries(ctx context.Context, siloID uuid.UUID) ([]*models.HierarchyEntry, error)

	// ReplaceEntries writes back a normalized hierarchy, superseding all rows
	// of the silo.
	ReplaceEntries(ctx context.Context, siloID uuid.UUID, entries []*models.HierarchyEntry) error
}

type hierarchyRepository struct {
	db *database.DB
}

// NewHierarchyRepository creates a new HierarchyRepository.
func NewHierarchyRepository(db *database.DB) HierarchyRepository {
	return &hierarchyRepository{db: db}
}

var _ HierarchyRepository = (*hierarchyRepository)(nil)

func (r *hierarchyRepository) ListEntries(ctx context.Context, siloID uuid.UUID) ([]*models.HierarchyEntry, error) {
	query := `
		SELECT silo_id, page_id, COALESCE(role, ''), position
		FROM hierarchy_entries
		WHERE silo_id = $1`

	rows, err := r.db.Query(ctx, query, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to query hierarchy entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.HierarchyEntry
	for rows.Next() {
		var (
			sid, pageID uuid.UUID
			role        string
			position    *float64
		)
		if err := rows.Scan(&sid, &pageID, &role, &position); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy entry: %w", err)
		}
		entry, err := models.NewHierarchyEntry(sid, pageID, role, position)
		if err != nil {
			return nil, fmt.Errorf("invalid hierarchy entry for page %s: %w", pageID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hierarchy entries: %w", err)
	}
	return entries, nil
}

func (r *hierarchyRepository) ReplaceEntries(ctx context.Context, siloID uuid.UUID, entries []*models.HierarchyEntry) error {
	// Delete-then-insert: the cached normalization is always rewritten whole.
	if _, err := r.db.Exec(ctx, `DELETE FROM hierarchy_entries WHERE silo_id = $1`, siloID); err != nil {
		return fmt.Errorf("failed to delete hierarchy entries: %w", err)
	}

	query := `
		INSERT INTO hierarchy_entries (id, silo_id, page_id, role, position, support_index, ordinal, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())`

	for _, e := range entries {
		if _, err := r.db.Exec(ctx, query,
			uuid.New(), siloID, e.PageID, string(e.Role), e.Position, e.SupportIndex, e.Ordinal,
		); err != nil {
			return fmt.Errorf("failed to insert hierarchy entry for page %s: %w", e.PageID, err)
		}
	}
	return nil
}
