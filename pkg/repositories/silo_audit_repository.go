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

// SiloAuditRepository provides data access for the one-row-per-silo health
// report. The fingerprint column is the cache key for the scoring pass.
type SiloAuditRepository interface {
	// Get returns the stored audit of a silo. A missing row reads as
	// apperrors.ErrNotFound, which callers treat as "not yet audited".
	Get(ctx context.Context, siloID uuid.UUID) (*models.SiloAudit, error)

	// Replace supersedes the stored audit of the silo.
	Replace(ctx context.Context, audit *models.SiloAudit) error
}

type siloAuditRepository struct {
	db *database.DB
}

// NewSiloAuditRepository creates a new SiloAuditRepository.
func NewSiloAuditRepository(db *database.DB) SiloAuditRepository {
	return &siloAuditRepository{db: db}
}

var _ SiloAuditRepository = (*siloAuditRepository)(nil)

func (r *siloAuditRepository) Get(ctx context.Context, siloID uuid.UUID) (*models.SiloAudit, error) {
	query := `
		SELECT id, silo_id, health_score, status, issues, summary, COALESCE(fingerprint, ''), created_at
		FROM silo_audits
		WHERE silo_id = $1`

	var a models.SiloAudit
	var issuesJSON, summaryJSON []byte
	err := r.db.QueryRow(ctx, query, siloID).Scan(
		&a.ID, &a.SiloID, &a.HealthScore, &a.Status, &issuesJSON, &summaryJSON, &a.Fingerprint, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get silo audit: %w", err)
	}

	if len(issuesJSON) > 0 {
		if err := json.Unmarshal(issuesJSON, &a.Issues); err != nil {
			return nil, fmt.Errorf("failed to decode issues: %w", err)
		}
	}
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &a.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
	}
	return &a, nil
}

func (r *siloAuditRepository) Replace(ctx context.Context, audit *models.SiloAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	issuesJSON, err := json.Marshal(audit.Issues)
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	summaryJSON, err := json.Marshal(audit.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	query := `
		INSERT INTO silo_audits (id, silo_id, health_score, status, issues, summary, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (silo_id) DO UPDATE SET
			id = EXCLUDED.id,
			health_score = EXCLUDED.health_score,
			status = EXCLUDED.status,
			issues = EXCLUDED.issues,
			summary = EXCLUDED.summary,
			fingerprint = EXCLUDED.fingerprint,
			created_at = EXCLUDED.created_at`

	if _, err := r.db.Exec(ctx, query,
		audit.ID, audit.SiloID, audit.HealthScore, string(audit.Status),
		issuesJSON, summaryJSON, audit.Fingerprint, audit.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to replace silo audit: %w", err)
	}
	return nil
}
