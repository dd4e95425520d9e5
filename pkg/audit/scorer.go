package audit

import (
	"strings"

	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Penalty and bonus table. The magnitudes are empirically tuned; keep their
// relative ordering intact unless a calibration dataset says otherwise.
const (
	penGenericAnchor        = 40
	penShortAnchor          = 20
	penTopicMismatch        = 35
	penHierarchyViolation   = 35
	penVagueAnchor          = 10
	penOverOptimized        = 20
	penLinkChaining         = 15
	penHiddenPattern        = 40
	penSupportMissingPillar = 25
	penSameTargetRepeated   = 12
	penHighDensity          = 12
	penLowValueLink         = 10
	penSpamModerate         = 10
	penSpamHigh             = 20

	bonusOverlapTwo    = 8
	bonusOverlapOne    = 4
	bonusSupportPillar = 6
	bonusPillarSupport = 4

	// Over-optimization and repetition thresholds.
	dupAnchorLimit     = 3
	chainingLimit      = 3
	sameTargetLimit    = 4
	densityPer100Limit = 4.0
	densityLinkFloor   = 6

	// Spam risk weights and bands.
	spamHiddenWeight     = 30
	spamGenericWeight    = 25
	spamOverOptWeight    = 25
	spamChainingWeight   = 20
	spamSameTargetWeight = 15
	spamDensityWeight    = 15
	spamModerateBand     = 40
	spamHighBand         = 70
)

// Result is the deterministic verdict for one occurrence, before the external
// suggestion merge.
type Result struct {
	Score    int // 0-100
	SpamRisk int // 0-100
	Label    models.Label
	Reasons  []models.ReasonCode

	AnchorOverlap  int
	ContextOverlap int
}

// reasonList keeps reason codes unique and in first-trigger order.
type reasonList struct {
	codes []models.ReasonCode
	seen  map[models.ReasonCode]bool
}

func (r *reasonList) add(code models.ReasonCode) {
	if r.seen == nil {
		r.seen = make(map[models.ReasonCode]bool)
	}
	if r.seen[code] {
		return
	}
	r.seen[code] = true
	r.codes = append(r.codes, code)
}

func (r *reasonList) has(code models.ReasonCode) bool {
	return r.seen[code]
}

// targetText joins the fields that describe what the target page is about.
func targetText(target *models.Page) string {
	parts := []string{target.Title, target.Keyword}
	parts = append(parts, target.Entities...)
	return strings.Join(parts, " ")
}

// ScoreOccurrence computes the deterministic 0-100 score, spam risk, label and
// reason codes for one internal occurrence. Pure: same inputs, same output.
// Returns nil for non-internal occurrences.
func ScoreOccurrence(occ *models.LinkOccurrence, target *models.Page, counters *Counters, hmap *hierarchy.Map) *Result {
	if !occ.IsInternal() {
		return nil
	}
	score := 100
	var reasons reasonList

	anchorNorm := textutil.NormalizePhrase(occ.Anchor)
	anchorTokens := textutil.Tokenize(occ.Anchor)
	targetSet := textutil.TokenSet(targetText(target))
	ctxTokens := textutil.Tokenize(occ.Context)

	anchorOverlap := textutil.Overlap(anchorTokens, targetSet)
	ctxOverlap := textutil.Overlap(ctxTokens, targetSet)

	hidden := textutil.IsHiddenAnchor(occ.Anchor)
	generic := !hidden && textutil.IsGenericAnchor(occ.Anchor)

	srcRole, _ := hmap.Role(occ.SourceID)
	dstRole, _ := hmap.Role(*occ.TargetID)

	if hidden {
		score -= penHiddenPattern
		reasons.add(models.ReasonHiddenLinkPattern)
	}
	if generic {
		score -= penGenericAnchor
		reasons.add(models.ReasonGenericAnchor)
	}
	if !hidden && !generic && textutil.MeaningfulTokens(occ.Anchor) <= 1 && anchorOverlap == 0 {
		score -= penShortAnchor
		reasons.add(models.ReasonShortAnchor)
	}
	if anchorOverlap == 0 && ctxOverlap == 0 {
		score -= penTopicMismatch
		reasons.add(models.ReasonTopicMismatch)
	}
	if !hmap.MayLink(occ.SourceID, *occ.TargetID) {
		score -= penHierarchyViolation
		reasons.add(models.ReasonHierarchyViolation)
	}
	if !hidden && !generic && textutil.IsVagueAnchor(occ.Anchor) {
		score -= penVagueAnchor
		reasons.add(models.ReasonVagueAnchor)
	}

	overOptimized := counters.DupAnchorPerTarget[AnchorTarget{anchorNorm, *occ.TargetID}] >= dupAnchorLimit ||
		counters.DupAnchorPerSource[AnchorSource{anchorNorm, occ.SourceID}] >= dupAnchorLimit
	if overOptimized && !hidden {
		score -= penOverOptimized
		reasons.add(models.ReasonOverOptimizedAnchor)
	}

	chaining := occ.ContextGroup != "" &&
		counters.ContextGroupLinks[ContextGroup{occ.SourceID, occ.ContextGroup}] >= chainingLimit
	if chaining {
		score -= penLinkChaining
		reasons.add(models.ReasonLinkChaining)
	}

	if srcRole == models.RoleSupport && !counters.SourceLinksPillar[occ.SourceID] {
		score -= penSupportMissingPillar
		reasons.add(models.ReasonSupportMissingPillar)
	}

	sameTarget := counters.SameSourceTarget[SourceTarget{occ.SourceID, *occ.TargetID}] >= sameTargetLimit
	if sameTarget {
		score -= penSameTargetRepeated
		reasons.add(models.ReasonSameTargetRepeated)
	}

	highDensity := counters.LinkDensity(occ.SourceID) >= densityPer100Limit &&
		counters.SourceLinkCount[occ.SourceID] >= densityLinkFloor
	if highDensity {
		score -= penHighDensity
		reasons.add(models.ReasonHighLinkDensity)
	}

	if srcRole == models.RoleSupport && dstRole == models.RoleSupport && anchorOverlap == 0 {
		score -= penLowValueLink
		reasons.add(models.ReasonLowValueLink)
	}

	// Bounded bonuses.
	switch {
	case anchorOverlap >= 2:
		score += bonusOverlapTwo
	case anchorOverlap == 1:
		score += bonusOverlapOne
	}
	if srcRole == models.RoleSupport && dstRole == models.RolePillar {
		score += bonusSupportPillar
	}
	if srcRole == models.RolePillar && dstRole == models.RoleSupport {
		score += bonusPillarSupport
	}

	// Independent spam risk over the manipulation-shaped triggers.
	spam := 0
	if hidden {
		spam += spamHiddenWeight
	}
	if generic {
		spam += spamGenericWeight
	}
	if overOptimized {
		spam += spamOverOptWeight
	}
	if chaining {
		spam += spamChainingWeight
	}
	if sameTarget {
		spam += spamSameTargetWeight
	}
	if highDensity {
		spam += spamDensityWeight
	}
	if spam > 100 {
		spam = 100
	}
	switch {
	case spam >= spamHighBand:
		reasons.add(models.ReasonSpamRisk)
		score -= penSpamHigh
	case spam >= spamModerateBand:
		reasons.add(models.ReasonSpamRisk)
		score -= penSpamModerate
	}

	score = clamp(score)

	label := deriveLabel(score, spam, &reasons, anchorTokens, anchorOverlap, ctxOverlap)

	return &Result{
		Score:          score,
		SpamRisk:       spam,
		Label:          label,
		Reasons:        reasons.codes,
		AnchorOverlap:  anchorOverlap,
		ContextOverlap: ctxOverlap,
	}
}

func deriveLabel(score, spam int, reasons *reasonList, anchorTokens []string, anchorOverlap, ctxOverlap int) models.Label {
	if models.HasCritical(reasons.codes) || spam >= spamHighBand {
		return models.LabelWeak
	}
	if len(reasons.codes) > 0 {
		return models.LabelOK
	}
	descriptive := len(anchorTokens) >= 3 && anchorOverlap >= 1
	if score >= 80 && descriptive && ctxOverlap >= 1 {
		return models.LabelStrong
	}
	return models.LabelOK
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
