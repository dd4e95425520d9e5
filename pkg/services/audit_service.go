package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/audit"
	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/repositories"
)

// syncConcurrency bounds the occurrence-sync fan-out per audit run.
const syncConcurrency = 8

// AuditOptions tune one audit run.
type AuditOptions struct {
	// ForceRefresh recomputes even when the fingerprint matches the stored
	// audit.
	ForceRefresh bool

	// External carries optional advisory suggestions keyed by occurrence id.
	// Supplying any forces a recompute, since they change the merged audits.
	External map[uuid.UUID]*models.ExternalSuggestion
}

// AuditReport is the full result of one audit run.
type AuditReport struct {
	SiloID      uuid.UUID            `json:"silo_id"`
	HealthScore int                  `json:"health_score"`
	Status      models.HealthStatus  `json:"status"`
	Issues      []models.HealthIssue `json:"issues"`
	Summary     models.AuditSummary  `json:"summary"`
	LinkAudits  []*models.LinkAudit  `json:"link_audits"`
	Fingerprint string               `json:"fingerprint"`
	Cached      bool                 `json:"cached"`
	SyncedPages int                  `json:"synced_pages"`
	FailedPages int                  `json:"failed_pages"`
}

// AuditService runs the deterministic link audit for one silo.
type AuditService interface {
	// Run audits the silo: syncs occurrences from stored markup, normalizes
	// the hierarchy, scores every internal link and aggregates the silo
	// health report. Idempotent on unchanged input via the fingerprint gate.
	Run(ctx context.Context, siloID uuid.UUID, opts AuditOptions) (*AuditReport, error)

	// GetStored returns the last persisted report without recomputing
	// anything. A silo that was never audited returns apperrors.ErrNotFound.
	GetStored(ctx context.Context, siloID uuid.UUID) (*AuditReport, error)
}

type auditService struct {
	siloRepo      repositories.SiloRepository
	hierarchyRepo repositories.HierarchyRepository
	occRepo       repositories.OccurrenceRepository
	linkAuditRepo repositories.LinkAuditRepository
	siloAuditRepo repositories.SiloAuditRepository
	logger        *zap.Logger
}

// NewAuditService creates a new AuditService.
func NewAuditService(
	siloRepo repositories.SiloRepository,
	hierarchyRepo repositories.HierarchyRepository,
	occRepo repositories.OccurrenceRepository,
	linkAuditRepo repositories.LinkAuditRepository,
	siloAuditRepo repositories.SiloAuditRepository,
	logger *zap.Logger,
) AuditService {
	return &auditService{
		siloRepo:      siloRepo,
		hierarchyRepo: hierarchyRepo,
		occRepo:       occRepo,
		linkAuditRepo: linkAuditRepo,
		siloAuditRepo: siloAuditRepo,
		logger:        logger.Named("audit-service"),
	}
}

var _ AuditService = (*auditService)(nil)

func (s *auditService) Run(ctx context.Context, siloID uuid.UUID, opts AuditOptions) (*AuditReport, error) {
	silo, err := s.siloRepo.GetSilo(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load silo: %w", err)
	}

	pages, err := s.siloRepo.ListPages(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, apperrors.ErrEmptySilo
	}

	synced, failed := s.syncOccurrences(ctx, pages)

	occurrences, err := s.occRepo.ListBySilo(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load occurrences: %w", err)
	}

	rawEntries, err := s.hierarchyRepo.ListEntries(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}
	hmap, err := hierarchy.Normalize(siloID, pages, rawEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize hierarchy: %w", err)
	}

	// Persist the normalized shape as the cache of the last run. A failure
	// here only costs the next run a renormalization.
	if err := s.hierarchyRepo.ReplaceEntries(ctx, siloID, hmap.Entries()); err != nil {
		s.logger.Warn("Failed to persist normalized hierarchy",
			zap.String("silo_id", siloID.String()),
			zap.Error(err))
	}

	fingerprint := audit.Fingerprint(hmap.Entries(), occurrences)

	// Fingerprint gate. An empty stored audit set reads as a miss: the cache
	// must never serve a run that wrote nothing.
	if !opts.ForceRefresh && len(opts.External) == 0 {
		if cached, ok := s.cachedReport(ctx, siloID, fingerprint); ok {
			cached.SyncedPages = synced
			cached.FailedPages = failed
			return cached, nil
		}
	}

	linkAudits := s.score(hmap, pages, occurrences, opts.External)
	health := audit.AggregateHealth(hmap, pages, occurrences, linkAudits)

	now := time.Now()
	siloAudit := &models.SiloAudit{
		ID:          uuid.New(),
		SiloID:      siloID,
		HealthScore: health.Score,
		Status:      health.Status,
		Issues:      health.Issues,
		Summary:     health.Summary,
		Fingerprint: fingerprint,
		CreatedAt:   now,
	}

	// Two-step replacement write, link audits first. Not transactional
	// across the two tables; a persistence failure is logged but never
	// invalidates the already-computed report.
	if err := s.linkAuditRepo.ReplaceForSilo(ctx, siloID, linkAudits); err != nil {
		s.logger.Error("Failed to persist link audits",
			zap.String("silo", silo.Name),
			zap.Error(err))
	} else if err := s.siloAuditRepo.Replace(ctx, siloAudit); err != nil {
		s.logger.Error("Failed to persist silo audit",
			zap.String("silo", silo.Name),
			zap.Error(err))
	}

	s.logger.Info("Audit complete",
		zap.String("silo", silo.Name),
		zap.Int("health_score", health.Score),
		zap.String("status", string(health.Status)),
		zap.Int("link_audits", len(linkAudits)),
		zap.Int("synced_pages", synced),
		zap.Int("failed_pages", failed))

	return &AuditReport{
		SiloID:      siloID,
		HealthScore: health.Score,
		Status:      health.Status,
		Issues:      health.Issues,
		Summary:     health.Summary,
		LinkAudits:  linkAudits,
		Fingerprint: fingerprint,
		SyncedPages: synced,
		FailedPages: failed,
	}, nil
}

func (s *auditService) GetStored(ctx context.Context, siloID uuid.UUID) (*AuditReport, error) {
	stored, err := s.siloAuditRepo.Get(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load silo audit: %w", err)
	}
	linkAudits, err := s.linkAuditRepo.ListBySilo(ctx, siloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load link audits: %w", err)
	}
	return &AuditReport{
		SiloID:      siloID,
		HealthScore: stored.HealthScore,
		Status:      stored.Status,
		Issues:      stored.Issues,
		Summary:     stored.Summary,
		LinkAudits:  linkAudits,
		Fingerprint: stored.Fingerprint,
		Cached:      true,
	}, nil
}

// syncOccurrences re-extracts every page's occurrences from its stored markup
// concurrently. A page that fails to sync keeps its previous rows; the audit
// continues without it.
func (s *auditService) syncOccurrences(ctx context.Context, pages []*models.Page) (synced, failed int) {
	resolve := slugResolver(pages)
	now := time.Now()

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)

	for _, page := range pages {
		g.Go(func() error {
			fresh, err := repositories.ExtractOccurrences(page, resolve, now)
			if err == nil {
				_, err = s.occRepo.SyncForSource(gctx, page.SiloID, page.ID, fresh)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				s.logger.Warn("Failed to sync page occurrences",
					zap.String("page_id", page.ID.String()),
					zap.Error(err))
				return nil
			}
			synced++
			return nil
		})
	}
	_ = g.Wait()
	return synced, failed
}

// cachedReport rebuilds a report from the stored audit when the fingerprint
// matches and stored link audits exist.
func (s *auditService) cachedReport(ctx context.Context, siloID uuid.UUID, fingerprint string) (*AuditReport, bool) {
	stored, err := s.siloAuditRepo.Get(ctx, siloID)
	if err != nil || stored.Fingerprint != fingerprint {
		return nil, false
	}
	linkAudits, err := s.linkAuditRepo.ListBySilo(ctx, siloID)
	if err != nil || len(linkAudits) == 0 {
		return nil, false
	}

	s.logger.Info("Audit served from fingerprint cache",
		zap.String("silo_id", siloID.String()),
		zap.Int("link_audits", len(linkAudits)))

	return &AuditReport{
		SiloID:      siloID,
		HealthScore: stored.HealthScore,
		Status:      stored.Status,
		Issues:      stored.Issues,
		Summary:     stored.Summary,
		LinkAudits:  linkAudits,
		Fingerprint: stored.Fingerprint,
		Cached:      true,
	}, true
}

// score runs the deterministic scorer and resolver over every internal
// occurrence with a known target page.
func (s *auditService) score(hmap *hierarchy.Map, pages []*models.Page, occurrences []*models.LinkOccurrence, external map[uuid.UUID]*models.ExternalSuggestion) []*models.LinkAudit {
	pageByID := make(map[uuid.UUID]*models.Page, len(pages))
	for _, p := range pages {
		pageByID[p.ID] = p
	}

	counters := audit.BuildCounters(occurrences, pages, hmap)
	now := time.Now()

	var out []*models.LinkAudit
	for _, occ := range occurrences {
		if !occ.IsInternal() {
			continue
		}
		target, ok := pageByID[*occ.TargetID]
		if !ok {
			s.logger.Warn("Occurrence targets a page outside the silo snapshot",
				zap.String("occurrence_id", occ.ID.String()))
			continue
		}

		base := audit.ScoreOccurrence(occ, target, counters, hmap)
		resolved := audit.Resolve(base, external[occ.ID])

		out = append(out, &models.LinkAudit{
			ID:              uuid.New(),
			OccurrenceID:    occ.ID,
			SiloID:          occ.SiloID,
			Score:           resolved.Score,
			Label:           resolved.Label,
			Reasons:         resolved.Reasons,
			SpamRisk:        resolved.SpamRisk,
			SuggestedAnchor: resolved.SuggestedAnchor,
			Note:            resolved.Note,
			IntentMatch:     resolved.IntentMatch,
			Action:          resolved.Action,
			Recommendation:  resolved.Recommendation,
			CreatedAt:       now,
		})
	}
	return out
}

// slugResolver maps relative hrefs to silo pages by their final path segment.
// Absolute URLs never resolve internally.
func slugResolver(pages []*models.Page) func(href string) *uuid.UUID {
	bySlug := make(map[string]uuid.UUID, len(pages))
	for _, p := range pages {
		if p.Slug != "" {
			bySlug[p.Slug] = p.ID
		}
	}

	return func(href string) *uuid.UUID {
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || u.Host != "" || u.Scheme != "" {
			return nil
		}
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		last := strings.TrimSuffix(segments[len(segments)-1], ".html")
		if id, ok := bySlug[last]; ok {
			return &id
		}
		return nil
	}
}
