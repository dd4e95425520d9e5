package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/database"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// OccurrenceRepository provides data access for link occurrences. Occurrences
// are superseded wholesale per source page, never mutated in place.
type OccurrenceRepository interface {
	// ListBySilo returns all occurrences of a silo ordered by source page.
	ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkOccurrence, error)

	// ListBySource returns the stored occurrences of one source page.
	ListBySource(ctx context.Context, sourceID uuid.UUID) ([]*models.LinkOccurrence, error)

	// SyncForSource replaces the stored occurrences of a source page with the
	// freshly extracted set. When the extracted set is equivalent to the
	// stored one, the stored rows (and their ids) are kept so downstream
	// fingerprints stay stable. Returns the surviving rows.
	SyncForSource(ctx context.Context, siloID, sourceID uuid.UUID, fresh []*models.LinkOccurrence) ([]*models.LinkOccurrence, error)
}

type occurrenceRepository struct {
	db   *database.DB
	caps *Capabilities
}

// NewOccurrenceRepository creates a new OccurrenceRepository.
func NewOccurrenceRepository(db *database.DB, caps *Capabilities) OccurrenceRepository {
	return &occurrenceRepository{db: db, caps: caps}
}

var _ OccurrenceRepository = (*occurrenceRepository)(nil)

func (r *occurrenceRepository) columns() string {
	bucket := "COALESCE(bucket, 'MIDDLE')"
	if !r.caps.OccurrenceBucket {
		bucket = "'MIDDLE'"
	}
	group := "COALESCE(context_group, '')"
	if !r.caps.OccurrenceContextGroup {
		group = "''"
	}
	return fmt.Sprintf(
		"id, silo_id, source_id, target_id, COALESCE(anchor, ''), COALESCE(context, ''), COALESCE(link_class, ''), nofollow, target_blank, %s, %s, synced_at",
		bucket, group)
}

func (r *occurrenceRepository) ListBySilo(ctx context.Context, siloID uuid.UUID) ([]*models.LinkOccurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM link_occurrences WHERE silo_id = $1 ORDER BY source_id, synced_at`, r.columns())
	return r.list(ctx, query, siloID)
}

func (r *occurrenceRepository) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]*models.LinkOccurrence, error) {
	query := fmt.Sprintf(`SELECT %s FROM link_occurrences WHERE source_id = $1 ORDER BY synced_at`, r.columns())
	return r.list(ctx, query, sourceID)
}

func (r *occurrenceRepository) list(ctx context.Context, query string, arg any) ([]*models.LinkOccurrence, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}
	defer rows.Close()

	var out []*models.LinkOccurrence
	for rows.Next() {
		var (
			id, siloID, sourceID  uuid.UUID
			targetID              *uuid.UUID
			anchor, snippet       string
			class                 string
			nofollow, targetBlank bool
			bucket, group         string
			syncedAt              time.Time
		)
		if err := rows.Scan(&id, &siloID, &sourceID, &targetID, &anchor, &snippet, &class, &nofollow, &targetBlank, &bucket, &group, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		occ, err := models.NewLinkOccurrence(id, siloID, sourceID, targetID, anchor, snippet, class, textutil.PositionBucket(bucket), group, syncedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid occurrence %s: %w", id, err)
		}
		occ.NoFollow = nofollow
		occ.TargetBlank = targetBlank
		out = append(out, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return out, nil
}

func (r *occurrenceRepository) SyncForSource(ctx context.Context, siloID, sourceID uuid.UUID, fresh []*models.LinkOccurrence) ([]*models.LinkOccurrence, error) {
	stored, err := r.ListBySource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if occurrenceSetsEquivalent(stored, fresh) {
		return stored, nil
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM link_occurrences WHERE source_id = $1`, sourceID); err != nil {
		return nil, fmt.Errorf("failed to delete occurrences: %w", err)
	}

	query := `
		INSERT INTO link_occurrences (id, silo_id, source_id, target_id, anchor, context, link_class, nofollow, target_blank, bucket, context_group, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	for _, o := range fresh {
		var class *string
		if o.Class != nil {
			c := string(*o.Class)
			class = &c
		}
		if _, err := r.db.Exec(ctx, query,
			o.ID, siloID, sourceID, o.TargetID, o.Anchor, o.Context, class,
			o.NoFollow, o.TargetBlank, string(o.Bucket), o.ContextGroup, o.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to insert occurrence: %w", err)
		}
	}
	return fresh, nil
}

// occurrenceSetsEquivalent compares stored and fresh occurrence lists by
// content, ignoring ids and sync timestamps. Equivalent sets keep the stored
// rows so an unchanged body never invalidates the audit fingerprint.
func occurrenceSetsEquivalent(stored, fresh []*models.LinkOccurrence) bool {
	if len(stored) != len(fresh) {
		return false
	}
	key := func(o *models.LinkOccurrence) string {
		target := ""
		if o.TargetID != nil {
			target = o.TargetID.String()
		}
		class := ""
		if o.Class != nil {
			class = string(*o.Class)
		}
		return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%t|%t", target, o.Anchor, o.Context, class, o.Bucket, o.ContextGroup, o.NoFollow, o.TargetBlank)
	}
	counts := make(map[string]int, len(stored))
	for _, o := range stored {
		counts[key(o)]++
	}
	for _, o := range fresh {
		counts[key(o)]--
		if counts[key(o)] < 0 {
			return false
		}
	}
	return true
}
