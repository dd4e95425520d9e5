package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus is the silo-wide verdict.
type HealthStatus string

const (
	StatusOK       HealthStatus = "OK"
	StatusWarning  HealthStatus = "WARNING"
	StatusCritical HealthStatus = "CRITICAL"
)

// StatusForScore maps a 0-100 health score to its status band.
func StatusForScore(score int) HealthStatus {
	switch {
	case score < 50:
		return StatusCritical
	case score < 80:
		return StatusWarning
	default:
		return StatusOK
	}
}

// IssueSeverity ranks a health issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "CRITICAL"
	SeverityWarning  IssueSeverity = "WARNING"
	SeverityInfo     IssueSeverity = "INFO"
)

// HealthIssue is one surfaced problem in a silo audit. The issue list on a
// SiloAudit is bounded; not every detected problem becomes an issue row.
type HealthIssue struct {
	Severity     IssueSeverity `json:"severity"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	PageID       *uuid.UUID    `json:"page_id,omitempty"`
	OccurrenceID *uuid.UUID    `json:"occurrence_id,omitempty"`
}

// AuditSummary carries the counters of one silo audit run.
type AuditSummary struct {
	TotalPages          int `json:"total_pages"`
	TotalInternalLinks  int `json:"total_internal_links"`
	StrongLinks         int `json:"strong_links"`
	OKLinks             int `json:"ok_links"`
	WeakLinks           int `json:"weak_links"`
	OrphanPages         int `json:"orphan_pages"`
	HierarchyViolations int `json:"hierarchy_violations"`
	GenericAnchors      int `json:"generic_anchors"`
	TopicMismatches     int `json:"topic_mismatches"`
}

// SiloAudit is the one-row-per-silo health report. Superseded wholesale on
// every non-cached run; Fingerprint is the cache key. Stored in silo_audits.
type SiloAudit struct {
	ID          uuid.UUID     `json:"id"`
	SiloID      uuid.UUID     `json:"silo_id"`
	HealthScore int           `json:"health_score"` // 0-100
	Status      HealthStatus  `json:"status"`
	Issues      []HealthIssue `json:"issues"`
	Summary     AuditSummary  `json:"summary"`
	Fingerprint string        `json:"fingerprint"`
	CreatedAt   time.Time     `json:"created_at"`
}
