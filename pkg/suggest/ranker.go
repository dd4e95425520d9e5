package suggest

import (
	"sort"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/semantic"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Ranking weights. They sum over differently-scaled inputs, so changing one
// shifts the effective share of the others.
const (
	weightSemantic  = 0.58
	weightHierarchy = 0.23
	weightKeyword   = 0.08
	weightAnchor    = 0.11

	anchorScoreCeiling = 40.0

	alreadyLinkedPenalty = 25.0
	relaxedModePenalty   = 12.0

	maxPerTargetInList = 4
)

// scoreFloors is the graceful-relaxation ladder: the strictest floor that
// still leaves every candidate-bearing uncovered target represented wins.
var scoreFloors = []float64{45, 30, 0}

// Ranker merges semantic, hierarchy, keyword and anchor-quality signals into
// one final ordering and diversifies the output list.
type Ranker struct {
	MaxSuggestions int
}

// NewRanker returns a ranker producing at most max suggestions.
func NewRanker(max int) *Ranker {
	return &Ranker{MaxSuggestions: max}
}

// RankInput carries everything one ranking pass needs.
type RankInput struct {
	SourceID   uuid.UUID
	Article    *semantic.Profile
	Hierarchy  *hierarchy.Map
	Targets    []Target
	Candidates map[uuid.UUID][]*Candidate
	// Linked holds target ids the article body already links to.
	Linked map[uuid.UUID]bool
}

// Rank scores every (target, candidate) pair, applies the score floor with
// graceful relaxation and returns the diversified suggestion list.
func (r *Ranker) Rank(in *RankInput) []*models.Suggestion {
	scored := r.scoreAll(in)
	if len(scored) == 0 {
		return nil
	}

	survivors := r.applyFloor(scored, in)
	return r.diversifySelection(survivors, in)
}

func (r *Ranker) scoreAll(in *RankInput) []*models.Suggestion {
	var out []*models.Suggestion
	for _, tgt := range in.Targets {
		cands := in.Candidates[tgt.ID]
		if len(cands) == 0 {
			continue
		}

		semScore := semantic.Similarity(in.Article, tgt.Profile)
		hierScore := in.Hierarchy.PairScore(in.SourceID, tgt.ID)
		role, _ := in.Hierarchy.Role(tgt.ID)
		linked := in.Linked[tgt.ID]

		for _, c := range cands {
			kwScore := keywordScore(c, tgt)
			anchorScore := clampFloat(c.Score, 0, anchorScoreCeiling)

			final := weightSemantic*semScore +
				weightHierarchy*hierScore +
				weightKeyword*kwScore +
				weightAnchor*anchorScore
			if linked {
				final -= alreadyLinkedPenalty
			}
			if c.Relaxed {
				final -= relaxedModePenalty
			}
			final = clampFloat(final, 0, 100)

			out = append(out, &models.Suggestion{
				TargetID:       tgt.ID,
				TargetTitle:    tgt.Title,
				TargetRole:     role,
				Anchor:         c.Anchor,
				Bucket:         c.Bucket,
				FinalScore:     final,
				SemanticScore:  semScore,
				HierarchyScore: hierScore,
				KeywordScore:   kwScore,
				AnchorScore:    anchorScore,
				Relaxed:        c.Relaxed,
				AlreadyLinked:  linked,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return out[i].Anchor < out[j].Anchor
	})
	return out
}

// keywordScore measures how much of the target's core keyword set the anchor
// phrase itself covers.
func keywordScore(c *Candidate, tgt Target) float64 {
	if len(tgt.Profile.Core) == 0 {
		return 0
	}
	tokens := textutil.Tokenize(c.Anchor)
	hit := textutil.Overlap(tokens, tgt.Profile.Core)
	return 100 * float64(hit) / float64(len(tgt.Profile.Core))
}

// applyFloor drops low scorers. The floor relaxes step by step until every
// uncovered target that produced candidates keeps at least one, so a silo
// with a link gap is never answered with an empty list.
func (r *Ranker) applyFloor(scored []*models.Suggestion, in *RankInput) []*models.Suggestion {
	for _, floor := range scoreFloors {
		var kept []*models.Suggestion
		for _, s := range scored {
			if s.FinalScore >= floor {
				kept = append(kept, s)
			}
		}
		if coversGaps(kept, in) {
			return kept
		}
	}
	return scored
}

// coversGaps reports whether every unlinked target that produced candidates
// survives in kept.
func coversGaps(kept []*models.Suggestion, in *RankInput) bool {
	surviving := make(map[uuid.UUID]bool, len(kept))
	for _, s := range kept {
		surviving[s.TargetID] = true
	}
	for _, tgt := range in.Targets {
		if in.Linked[tgt.ID] || len(in.Candidates[tgt.ID]) == 0 {
			continue
		}
		if !surviving[tgt.ID] {
			return false
		}
	}
	return true
}

// diversifySelection fills the final list: one candidate per position bucket
// first, then by score, capping per-target entries and rejecting repeated
// anchor text unless the target would otherwise go uncovered.
func (r *Ranker) diversifySelection(survivors []*models.Suggestion, in *RankInput) []*models.Suggestion {
	limit := r.MaxSuggestions
	if limit <= 0 {
		limit = maxPerTargetInList
	}

	var out []*models.Suggestion
	perTarget := make(map[uuid.UUID]int)
	usedAnchor := make(map[string]bool)
	usedBucket := make(map[textutil.PositionBucket]bool, 3)
	picked := make(map[*models.Suggestion]bool, limit)

	admit := func(s *models.Suggestion) bool {
		if perTarget[s.TargetID] >= maxPerTargetInList {
			return false
		}
		norm := textutil.NormalizePhrase(s.Anchor)
		if usedAnchor[norm] && perTarget[s.TargetID] > 0 {
			return false
		}
		out = append(out, s)
		picked[s] = true
		perTarget[s.TargetID]++
		usedAnchor[norm] = true
		return true
	}

	// Bucket-diversity pass: the best survivor of each position bucket.
	for _, s := range survivors {
		if len(out) == limit {
			break
		}
		if usedBucket[s.Bucket] {
			continue
		}
		if admit(s) {
			usedBucket[s.Bucket] = true
		}
	}

	// Fill remaining slots strictly by score.
	for _, s := range survivors {
		if len(out) == limit {
			break
		}
		if picked[s] {
			continue
		}
		admit(s)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].FinalScore > out[j].FinalScore })
	return out
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
