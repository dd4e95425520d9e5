package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/database"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

// LinkAuditRepository provides data access for per-link audit rows. Rows are
// replaced wholesale on every non-cached run.
type LinkAuditRepository interface {
	// ListBySilo returns the stored audit rows of a silo in a stable order.
	ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkAudit, error)

	// ReplaceForSilo deletes all audit rows of the silo and inserts the new
	// set. Not transactional with the silo audit write; readers tolerate the
	// gap.
	ReplaceForSilo(ctx context.Context, siloID uuid.UUID, audits []*models.LinkAudit) error
}

type linkAuditRepository struct {
	db   *database.DB
	caps *Capabilities
}

// NewLinkAuditRepository creates a new LinkAuditRepository.
func NewLinkAuditRepository(db *database.DB, caps *Capabilities) LinkAuditRepository {
	return &linkAuditRepository{db: db, caps: caps}
}

var _ LinkAuditRepository = (*linkAuditRepository)(nil)

func (r *linkAuditRepository) ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkAudit, error) {
	intent := "intent_match"
	if !r.caps.AuditIntentMatch {
		intent = "NULL::double precision AS intent_match"
	}
	query := fmt.Sprintf(`
		SELECT id, occurrence_id, silo_id, score, label, reasons, spam_risk,
		       suggested_anchor, note, %s, action, COALESCE(recommendation, ''), created_at
		FROM link_audits
		WHERE silo_id = $1
		ORDER BY occurrence_id`, intent)

	rows, err := r.db.Query(ctx, query, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to query link audits: %w", err)
	}
	defer rows.Close()

	var audits []*models.LinkAudit
	for rows.Next() {
		var (
			a           models.LinkAudit
			reasonsJSON []byte
		)
		if err := rows.Scan(
			&a.ID, &a.OccurrenceID, &a.SiloID, &a.Score, &a.Label, &reasonsJSON, &a.SpamRisk,
			&a.SuggestedAnchor, &a.Note, &a.IntentMatch, &a.Action, &a.Recommendation, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan link audit: %w", err)
		}
		if len(reasonsJSON) > 0 {
			if err := json.Unmarshal(reasonsJSON, &a.Reasons); err != nil {
				return nil, fmt.Errorf("failed to decode reasons for audit %s: %w", a.ID, err)
			}
		}
		audits = append(audits, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link audits: %w", err)
	}
	return audits, nil
}

func (r *linkAuditRepository) ReplaceForSilo(ctx context.Context, siloID uuid.UUID, audits []*models.LinkAudit) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM link_audits WHERE silo_id = $1`, siloID); err != nil {
		return fmt.Errorf("failed to delete link audits: %w", err)
	}

	query := `
		INSERT INTO link_audits (id, occurrence_id, silo_id, score, label, reasons, spam_risk,
		                         suggested_anchor, note, intent_match, action, recommendation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	now := time.Now()
	for _, a := range audits {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		reasonsJSON, err := json.Marshal(a.Reasons)
		if err != nil {
			return fmt.Errorf("failed to marshal reasons: %w", err)
		}
		if _, err := r.db.Exec(ctx, query,
			a.ID, a.OccurrenceID, siloID, a.Score, string(a.Label), reasonsJSON, a.SpamRisk,
			a.SuggestedAnchor, a.Note, a.IntentMatch, string(a.Action), a.Recommendation, a.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert link audit: %w", err)
		}
	}
	return nil
}
