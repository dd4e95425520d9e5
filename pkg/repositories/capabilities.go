// Package repositories provides pgx data access for the engine. Replacement
// writes are delete-then-insert and deliberately not transactional across
// tables; readers tolerate the gap.
package repositories

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/database"
)

// Capabilities records which optional columns the connected schema actually
// has. Collaborator-owned databases drift; queries consult this instead of
// failing on a missing column.
type Capabilities struct {
	PageEntities           bool // silo_pages.entities
	OccurrenceBucket       bool // link_occurrences.bucket
	OccurrenceContextGroup bool // link_occurrences.context_group
	AuditIntentMatch       bool // link_audits.intent_match
}

var (
	capsOnce sync.Once
	caps     *Capabilities
	capsErr  error
)

// DetectCapabilities probes the schema once per process. Subsequent calls
// return the cached probe; a probe failure is an error, not a silent
// everything-missing result.
func DetectCapabilities(ctx context.Context, db *database.DB, logger *zap.Logger) (*Capabilities, error) {
	capsOnce.Do(func() {
		caps, capsErr = probeCapabilities(ctx, db, logger)
	})
	return caps, capsErr
}

func probeCapabilities(ctx context.Context, db *database.DB, logger *zap.Logger) (*Capabilities, error) {
	const query = `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_name IN ('silo_pages', 'link_occurrences', 'link_audits')
		  AND column_name IN ('entities', 'bucket', 'context_group', 'intent_match')`

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("probe schema capabilities: %w", err)
	}
	defer rows.Close()

	c := &Capabilities{}
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan capability row: %w", err)
		}
		switch table + "." + column {
		case "silo_pages.entities":
			c.PageEntities = true
		case "link_occurrences.bucket":
			c.OccurrenceBucket = true
		case "link_occurrences.context_group":
			c.OccurrenceContextGroup = true
		case "link_audits.intent_match":
			c.AuditIntentMatch = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capability rows: %w", err)
	}

	logger.Named("repositories").Info("schema capabilities detected",
		zap.Bool("page_entities", c.PageEntities),
		zap.Bool("occurrence_bucket", c.OccurrenceBucket),
		zap.Bool("occurrence_context_group", c.OccurrenceContextGroup),
		zap.Bool("audit_intent_match", c.AuditIntentMatch))
	return c, nil
}

// FullCapabilities is the no-drift default, used by tests and fresh schemas.
func FullCapabilities() *Capabilities {
	return &Capabilities{
		PageEntities:           true,
		OccurrenceBucket:       true,
		OccurrenceContextGroup: true,
		AuditIntentMatch:       true,
	}
}
