package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/database"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

// SiloRepository provides data access for silos and their pages.
type SiloRepository interface {
	// GetSilo returns one silo by id.
	GetSilo(ctx context.Context, id uuid.UUID) (*models.Silo, error)

	// GetPage returns one page by id.
	GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error)

	// ListPages returns all pages of a silo ordered by title.
	ListPages(ctx context.Context, siloID uuid.UUID) ([]*models.Page, error)
}

type siloRepository struct {
	db   *database.DB
	caps *Capabilities
}

// NewSiloRepository creates a new SiloRepository.
func NewSiloRepository(db *database.DB, caps *Capabilities) SiloRepository {
	return &siloRepository{db: db, caps: caps}
}

var _ SiloRepository = (*siloRepository)(nil)

func (r *siloRepository) GetSilo(ctx context.Context, id uuid.UUID) (*models.Silo, error) {
	query := `SELECT id, name, slug, created_at FROM silos WHERE id = $1`

	var s models.Silo
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Slug, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get silo: %w", err)
	}
	return &s, nil
}

func (r *siloRepository) GetPage(ctx context.Context, id uuid.UUID) (*models.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM silo_pages WHERE id = $1`, r.pageColumns())

	row := r.db.QueryRow(ctx, query, id)
	page, err := r.scanPage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return page, nil
}

func (r *siloRepository) ListPages(ctx context.Context, siloID uuid.UUID) ([]*models.Page, error) {
	query := fmt.Sprintf(`SELECT %s FROM silo_pages WHERE silo_id = $1 ORDER BY title`, r.pageColumns())

	rows, err := r.db.Query(ctx, query, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		page, err := r.scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}
	return pages, nil
}

// pageColumns builds the select list, substituting NULL for columns the
// connected schema does not have.
func (r *siloRepository) pageColumns() string {
	entities := "entities"
	if !r.caps.PageEntities {
		entities = "NULL::jsonb AS entities"
	}
	return "id, silo_id, title, slug, COALESCE(keyword, ''), " + entities + ", COALESCE(body, ''), updated_at"
}

func (r *siloRepository) scanPage(row pgx.Row) (*models.Page, error) {
	var (
		id, siloID           uuid.UUID
		title, slug, keyword string
		entitiesJSON         []byte
		body                 string
		updatedAt            time.Time
	)
	if err := row.Scan(&id, &siloID, &title, &slug, &keyword, &entitiesJSON, &body, &updatedAt); err != nil {
		return nil, err
	}

	// Entities are advisory; a malformed column degrades to none.
	var entities []string
	if len(entitiesJSON) > 0 {
		_ = json.Unmarshal(entitiesJSON, &entities)
	}

	return models.NewPage(id, siloID, title, slug, keyword, entities, body, updatedAt)
}
