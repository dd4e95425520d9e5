package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siloforge/siloforge-engine/pkg/apperrors"
	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/oracle"
	"github.com/siloforge/siloforge-engine/pkg/ratelimit"
	"github.com/siloforge/siloforge-engine/pkg/repositories"
	"github.com/siloforge/siloforge-engine/pkg/semantic"
	"github.com/siloforge/siloforge-engine/pkg/suggest"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// oracleSummaryRunes bounds the article excerpt sent to the reranking oracle.
const oracleSummaryRunes = 400

// SuggestLimits bound one suggestion request.
type SuggestLimits struct {
	BodyMinWords      int
	BodyMaxWords      int
	MaxSuggestions    int
	MaxSuggestionsCap int
}

// SuggestRequest is one suggestion run for an article being edited. Title,
// Keyword and Body come from the editor, not storage, so suggestions track
// the draft rather than the last save.
type SuggestRequest struct {
	Caller string

	PostID uuid.UUID
	SiloID uuid.UUID

	Title   string
	Keyword string
	Body    string

	// ExistingLinks are target page ids the draft already links to.
	ExistingLinks []uuid.UUID

	MaxSuggestions int
}

// SuggestResponse carries the ranked suggestions plus the diagnostics and
// coverage report the editor renders alongside them.
type SuggestResponse struct {
	Suggestions []*models.Suggestion      `json:"suggestions"`
	Diagnostics models.SuggestDiagnostics `json:"diagnostics"`
	Coverage    []models.TargetCoverage   `json:"coverage"`
	Message     string                    `json:"message,omitempty"`
}

// SuggestService proposes internal links for an article draft.
type SuggestService interface {
	// Suggest extracts, ranks and optionally reranks anchor candidates for
	// the draft. Empty-result conditions (no eligible targets, everything
	// already linked, all candidates filtered) return a response with a
	// message, never an error.
	Suggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error)
}

type suggestService struct {
	siloRepo      repositories.SiloRepository
	hierarchyRepo repositories.HierarchyRepository
	limiter       *ratelimit.CallerLimiter
	reranker      oracle.Reranker // nil when no oracle is configured
	limits        SuggestLimits
	logger        *zap.Logger
}

// NewSuggestService creates a new SuggestService. reranker may be nil.
func NewSuggestService(
	siloRepo repositories.SiloRepository,
	hierarchyRepo repositories.HierarchyRepository,
	limiter *ratelimit.CallerLimiter,
	reranker oracle.Reranker,
	limits SuggestLimits,
	logger *zap.Logger,
) SuggestService {
	return &suggestService{
		siloRepo:      siloRepo,
		hierarchyRepo: hierarchyRepo,
		limiter:       limiter,
		reranker:      reranker,
		limits:        limits,
		logger:        logger.Named("suggest-service"),
	}
}

var _ SuggestService = (*suggestService)(nil)

func (s *suggestService) Suggest(ctx context.Context, req *SuggestRequest) (*SuggestResponse, error) {
	maxSuggestions, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Allow(req.Caller); err != nil {
		return nil, err
	}

	post, err := s.siloRepo.GetPage(ctx, req.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	if post.SiloID != req.SiloID {
		return nil, apperrors.ErrSiloMismatch
	}

	pages, err := s.siloRepo.ListPages(ctx, req.SiloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	rawEntries, err := s.hierarchyRepo.ListEntries(ctx, req.SiloID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hierarchy: %w", err)
	}
	hmap, err := hierarchy.Normalize(req.SiloID, pages, rawEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize hierarchy: %w", err)
	}

	// Profiles are built over the draft content, not the stored body, with
	// the rest of the silo as the IDF corpus.
	profiles := semantic.BuildProfiles(draftPages(pages, req))

	linked := make(map[uuid.UUID]bool, len(req.ExistingLinks))
	for _, id := range req.ExistingLinks {
		linked[id] = true
	}

	eligible := hmap.EligibleTargets(req.PostID)
	targets := make([]suggest.Target, 0, len(eligible))
	for _, id := range eligible {
		targets = append(targets, suggest.Target{
			ID:      id,
			Title:   hmap.Title(id),
			Profile: profiles[id],
		})
	}

	resp := &SuggestResponse{
		Diagnostics: models.SuggestDiagnostics{
			EligibleTargets: len(targets),
			Oracle:          models.OracleSkipped,
		},
	}
	if len(targets) == 0 {
		resp.Message = "Nenhuma página elegível para links a partir desta posição na hierarquia."
		return resp, nil
	}

	candidates, stats := suggest.NewExtractor().Extract(req.Body, targets)
	resp.Diagnostics.SentencesScanned = stats.SentencesScanned
	resp.Diagnostics.PhrasesConsidered = stats.PhrasesConsidered
	resp.Diagnostics.StrictCandidates = stats.StrictCandidates
	resp.Diagnostics.RelaxedCandidates = stats.RelaxedCandidates

	suggestions := suggest.NewRanker(maxSuggestions).Rank(&suggest.RankInput{
		SourceID:   req.PostID,
		Article:    profiles[req.PostID],
		Hierarchy:  hmap,
		Targets:    targets,
		Candidates: candidates,
		Linked:     linked,
	})
	resp.Diagnostics.RankedCandidates = len(suggestions)

	if s.reranker != nil && len(suggestions) > 1 {
		suggestions, resp.Diagnostics.Oracle = s.rerank(ctx, req, hmap, suggestions, maxSuggestions)
	}
	resp.Suggestions = suggestions

	resp.Coverage = coverageReport(hmap, eligible, linked, suggestions)
	if len(suggestions) == 0 {
		if allCovered(resp.Coverage) {
			resp.Message = "Todas as páginas elegíveis já estão interligadas; nada a sugerir."
		} else {
			resp.Message = "Nenhuma frase âncora adequada foi encontrada no texto."
		}
	}

	s.logger.Info("Suggestion run complete",
		zap.String("post_id", req.PostID.String()),
		zap.Int("eligible_targets", len(targets)),
		zap.Int("suggestions", len(resp.Suggestions)),
		zap.String("oracle", string(resp.Diagnostics.Oracle)))

	return resp, nil
}

// validate applies the body bounds and returns the capped suggestion limit.
func (s *suggestService) validate(req *SuggestRequest) (int, error) {
	if req.PostID == uuid.Nil || req.SiloID == uuid.Nil {
		return 0, apperrors.ErrInvalidRequest
	}

	words := len(textutil.Words(req.Body))
	if words < s.limits.BodyMinWords {
		return 0, apperrors.ErrBodyTooShort
	}
	if words > s.limits.BodyMaxWords {
		return 0, apperrors.ErrBodyTooLong
	}

	max := req.MaxSuggestions
	if max <= 0 {
		max = s.limits.MaxSuggestions
	}
	if max > s.limits.MaxSuggestionsCap {
		max = s.limits.MaxSuggestionsCap
	}
	return max, nil
}

// rerank sends the shortlist to the oracle and applies its ordering. Any
// failure leaves the heuristic order untouched.
func (s *suggestService) rerank(ctx context.Context, req *SuggestRequest, hmap *hierarchy.Map, suggestions []*models.Suggestion, maxResults int) ([]*models.Suggestion, models.OracleStatus) {
	offered := make([]oracle.Candidate, len(suggestions))
	byID := make(map[string]*models.Suggestion, len(suggestions))
	for i, sug := range suggestions {
		id := fmt.Sprintf("c%d", i)
		offered[i] = oracle.Candidate{
			ID:          id,
			Anchor:      sug.Anchor,
			TargetTitle: sug.TargetTitle,
			TargetRole:  string(sug.TargetRole),
			FinalScore:  sug.FinalScore,
		}
		byID[id] = sug
	}

	result, err := s.reranker.Rerank(ctx, &oracle.Request{
		ArticleTitle:   req.Title,
		ArticleKeyword: req.Keyword,
		Summary:        truncateRunes(req.Body, oracleSummaryRunes),
		Candidates:     offered,
		MaxResults:     maxResults,
	})
	if err != nil {
		s.logger.Warn("Oracle rerank failed, keeping heuristic order",
			zap.String("post_id", req.PostID.String()),
			zap.Error(err))
		return suggestions, models.OracleFailed
	}

	reordered := make([]*models.Suggestion, 0, len(suggestions))
	taken := make(map[string]bool, len(result.Rankings))
	for _, r := range result.Rankings {
		sug, ok := byID[r.CandidateID]
		if !ok || taken[r.CandidateID] {
			continue
		}
		taken[r.CandidateID] = true
		sug.Rationale = r.Rationale
		reordered = append(reordered, sug)
	}
	// Candidates the oracle left out keep their heuristic order at the tail.
	for i, sug := range suggestions {
		if !taken[fmt.Sprintf("c%d", i)] {
			reordered = append(reordered, sug)
		}
	}
	if len(reordered) > maxResults {
		reordered = reordered[:maxResults]
	}
	return reordered, models.OracleSuccess
}

// draftPages substitutes the draft title/keyword/body for the post's stored
// content before profile building.
func draftPages(pages []*models.Page, req *SuggestRequest) []*models.Page {
	out := make([]*models.Page, len(pages))
	for i, p := range pages {
		if p.ID != req.PostID {
			out[i] = p
			continue
		}
		draft := *p
		if req.Title != "" {
			draft.Title = req.Title
		}
		if req.Keyword != "" {
			draft.Keyword = req.Keyword
		}
		draft.Body = req.Body
		out[i] = &draft
	}
	return out
}

func coverageReport(hmap *hierarchy.Map, eligible []uuid.UUID, linked map[uuid.UUID]bool, suggestions []*models.Suggestion) []models.TargetCoverage {
	suggested := make(map[uuid.UUID]bool, len(suggestions))
	for _, s := range suggestions {
		suggested[s.TargetID] = true
	}

	out := make([]models.TargetCoverage, 0, len(eligible))
	for _, id := range eligible {
		role, _ := hmap.Role(id)
		out = append(out, models.TargetCoverage{
			TargetID:      id,
			TargetTitle:   hmap.Title(id),
			Role:          role,
			AlreadyLinked: linked[id],
			Suggested:     suggested[id],
		})
	}
	return out
}

func allCovered(coverage []models.TargetCoverage) bool {
	for _, c := range coverage {
		if !c.AlreadyLinked && !c.Suggested {
			return false
		}
	}
	return true
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
