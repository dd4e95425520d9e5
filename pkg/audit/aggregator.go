package audit

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
)

// Aggregate penalty table and ceilings for the silo health score.
const (
	healthPenNoPillar           = 40
	healthPenOrphan             = 5
	healthPenSupportNoPillar    = 10
	healthPenSupportNoPillarCap = 30
	healthPenPillarNoSupport    = 5
	healthPenPillarNoSupportCap = 20
	healthPenViolation          = 6
	healthPenViolationCap       = 35

	weakPctCeilingThreshold = 15.0
	maxViolationIssues      = 12
	maxOrphanIssues         = 8
	maxWorstLinks           = 5
)

// HealthReport is the aggregated verdict for one silo.
type HealthReport struct {
	Score   int
	Status  models.HealthStatus
	Issues  []models.HealthIssue
	Summary models.AuditSummary
}

// AggregateHealth walks every page and internal occurrence of a silo and
// produces the 0-100 health score with a bounded issue list. Audits must come
// from the same run as hmap; stale audits from a previous hierarchy shape are
// the caller's responsibility to discard.
func AggregateHealth(hmap *hierarchy.Map, pages []*models.Page, occurrences []*models.LinkOccurrence, audits []*models.LinkAudit) *HealthReport {
	score := 100
	var issues []models.HealthIssue

	summary := models.AuditSummary{TotalPages: len(pages)}

	inbound := make(map[uuid.UUID]int, len(pages))
	outbound := make(map[uuid.UUID]int, len(pages))
	linksPillar := make(map[uuid.UUID]bool)
	pillarLinks := make(map[uuid.UUID]bool)
	var violations []*models.LinkOccurrence

	for _, occ := range occurrences {
		if !occ.IsInternal() {
			continue
		}
		summary.TotalInternalLinks++
		outbound[occ.SourceID]++
		inbound[*occ.TargetID]++
		if hmap != nil {
			if *occ.TargetID == hmap.Pillar {
				linksPillar[occ.SourceID] = true
			}
			if occ.SourceID == hmap.Pillar {
				pillarLinks[*occ.TargetID] = true
			}
			if !hmap.MayLink(occ.SourceID, *occ.TargetID) {
				violations = append(violations, occ)
			}
		}
	}

	if hmap == nil || hmap.Pillar == uuid.Nil {
		score -= healthPenNoPillar
		issues = append(issues, models.HealthIssue{
			Severity: models.SeverityCritical,
			Code:     "MISSING_PILLAR",
			Message:  "O silo não tem página pilar definida.",
		})
	}

	// Orphans: no inbound and no outbound internal links. Uncapped penalty,
	// bounded issue sample.
	titleOf := func(id uuid.UUID) string {
		if hmap != nil {
			return hmap.Title(id)
		}
		return ""
	}
	orphanIssues := 0
	for _, p := range pages {
		if inbound[p.ID] == 0 && outbound[p.ID] == 0 {
			summary.OrphanPages++
			score -= healthPenOrphan
			if orphanIssues < maxOrphanIssues {
				orphanIssues++
				pid := p.ID
				issues = append(issues, models.HealthIssue{
					Severity: models.SeverityWarning,
					Code:     "ORPHAN_PAGE",
					Message:  fmt.Sprintf("A página %q não tem nenhum link interno de entrada ou saída.", p.Title),
					PageID:   &pid,
				})
			}
		}
	}

	supportsMissingPillar := 0
	pillarMissingSupports := 0
	if hmap != nil {
		supportPenalty := 0
		for _, supID := range hmap.Supports() {
			if !linksPillar[supID] {
				supportsMissingPillar++
				if supportPenalty < healthPenSupportNoPillarCap {
					supportPenalty += healthPenSupportNoPillar
				}
				sid := supID
				issues = append(issues, models.HealthIssue{
					Severity: models.SeverityWarning,
					Code:     "SUPPORT_MISSING_PILLAR_LINK",
					Message:  fmt.Sprintf("A página de suporte %q não linka a pilar.", titleOf(supID)),
					PageID:   &sid,
				})
			}
			if !pillarLinks[supID] {
				pillarMissingSupports++
			}
		}
		if supportPenalty > healthPenSupportNoPillarCap {
			supportPenalty = healthPenSupportNoPillarCap
		}
		score -= supportPenalty

		pillarPenalty := pillarMissingSupports * healthPenPillarNoSupport
		if pillarPenalty > healthPenPillarNoSupportCap {
			pillarPenalty = healthPenPillarNoSupportCap
		}
		score -= pillarPenalty
		if pillarMissingSupports > 0 {
			issues = append(issues, models.HealthIssue{
				Severity: models.SeverityWarning,
				Code:     "PILLAR_MISSING_SUPPORT_LINKS",
				Message:  fmt.Sprintf("A pilar não linka %d página(s) de suporte.", pillarMissingSupports),
			})
		}
	}

	summary.HierarchyViolations = len(violations)
	violationPenalty := len(violations) * healthPenViolation
	if violationPenalty > healthPenViolationCap {
		violationPenalty = healthPenViolationCap
	}
	score -= violationPenalty
	for i, occ := range violations {
		if i == maxViolationIssues {
			break
		}
		oid := occ.ID
		pid := occ.SourceID
		issues = append(issues, models.HealthIssue{
			Severity:     models.SeverityCritical,
			Code:         "HIERARCHY_VIOLATION",
			Message:      fmt.Sprintf("Link de %q viola a regra de adjacência do silo.", titleOf(occ.SourceID)),
			PageID:       &pid,
			OccurrenceID: &oid,
		})
	}

	// Per-link tallies from the audits of this run.
	for _, a := range audits {
		switch a.Label {
		case models.LabelStrong:
			summary.StrongLinks++
		case models.LabelWeak:
			summary.WeakLinks++
		default:
			summary.OKLinks++
		}
		for _, r := range a.Reasons {
			switch r {
			case models.ReasonGenericAnchor:
				summary.GenericAnchors++
			case models.ReasonTopicMismatch:
				summary.TopicMismatches++
			}
		}
	}

	// Ceilings are absolute caps, never additive.
	ceiling := 100
	lower := func(v int) {
		if v < ceiling {
			ceiling = v
		}
	}
	if summary.TotalInternalLinks > 0 {
		weakPct := float64(summary.WeakLinks) * 100 / float64(summary.TotalInternalLinks)
		if weakPct >= weakPctCeilingThreshold {
			lower(85)
		}
	}
	if summary.TopicMismatches >= 3 {
		lower(80)
	} else if summary.TopicMismatches >= 1 {
		lower(95)
	}
	if summary.GenericAnchors >= 5 {
		lower(70)
	}
	if supportsMissingPillar > 0 {
		lower(60)
	}
	if pillarMissingSupports > 0 {
		lower(70)
	}
	if summary.HierarchyViolations >= 3 {
		lower(55)
	} else if summary.HierarchyViolations >= 1 {
		lower(65)
	}

	if score > ceiling {
		score = ceiling
	}
	score = clamp(score)

	issues = append(issues, worstLinkIssues(audits)...)

	return &HealthReport{
		Score:   score,
		Status:  models.StatusForScore(score),
		Issues:  issues,
		Summary: summary,
	}
}

// worstLinkIssues surfaces the five lowest-scoring WEAK and five
// lowest-scoring OK links, ascending by score, each with its top reason and
// recommendation.
func worstLinkIssues(audits []*models.LinkAudit) []models.HealthIssue {
	var weak, ok []*models.LinkAudit
	for _, a := range audits {
		switch a.Label {
		case models.LabelWeak:
			weak = append(weak, a)
		case models.LabelOK:
			ok = append(ok, a)
		}
	}
	byScore := func(list []*models.LinkAudit) {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score < list[j].Score })
	}
	byScore(weak)
	byScore(ok)

	var out []models.HealthIssue
	emit := func(list []*models.LinkAudit, severity models.IssueSeverity, code string) {
		for i, a := range list {
			if i == maxWorstLinks {
				break
			}
			oid := a.OccurrenceID
			topReason := ""
			if len(a.Reasons) > 0 {
				topReason = string(a.Reasons[0])
			}
			msg := fmt.Sprintf("Link com pontuação %d", a.Score)
			if topReason != "" {
				msg += " (" + topReason + ")"
			}
			msg += ": " + a.Recommendation
			out = append(out, models.HealthIssue{
				Severity:     severity,
				Code:         code,
				Message:      msg,
				OccurrenceID: &oid,
			})
		}
	}
	emit(weak, models.SeverityWarning, "WEAK_LINK")
	emit(ok, models.SeverityInfo, "LOW_SCORE_LINK")
	return out
}
