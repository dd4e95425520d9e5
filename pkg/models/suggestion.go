package models

import (
	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Suggestion is one proposed internal link: an anchor phrase found in the
// article plus the hierarchy-eligible target it should point at.
type Suggestion struct {
	TargetID    uuid.UUID               `json:"target_id"`
	TargetTitle string                  `json:"target_title"`
	TargetRole  Role                    `json:"target_role"`
	Anchor      string                  `json:"anchor"`
	Bucket      textutil.PositionBucket `json:"bucket"`

	FinalScore     float64 `json:"final_score"`     // 0-100
	SemanticScore  float64 `json:"semantic_score"`  // 0-100
	HierarchyScore float64 `json:"hierarchy_score"` // 0-100
	KeywordScore   float64 `json:"keyword_score"`   // 0-100
	AnchorScore    float64 `json:"anchor_score"`    // raw extractor score

	Relaxed       bool   `json:"relaxed"`        // produced by the relaxed fallback pass
	AlreadyLinked bool   `json:"already_linked"` // source already links this target
	Rationale     string `json:"rationale,omitempty"`
}

// OracleStatus reports what the optional reranking oracle did for a request.
type OracleStatus string

const (
	OracleSkipped OracleStatus = "skipped"
	OracleSuccess OracleStatus = "success"
	OracleFailed  OracleStatus = "failed"
)

// SuggestDiagnostics counts candidates through each filter stage. Needed to
// tune thresholds without rerunning with a debugger attached.
type SuggestDiagnostics struct {
	EligibleTargets   int          `json:"eligible_targets"`
	SentencesScanned  int          `json:"sentences_scanned"`
	PhrasesConsidered int          `json:"phrases_considered"`
	StrictCandidates  int          `json:"strict_candidates"`
	RelaxedCandidates int          `json:"relaxed_candidates"`
	RankedCandidates  int          `json:"ranked_candidates"`
	Oracle            OracleStatus `json:"oracle"`
}

// TargetCoverage reports, per hierarchy-eligible target, whether the article
// already links it and whether a suggestion now covers it.
type TargetCoverage struct {
	TargetID      uuid.UUID `json:"target_id"`
	TargetTitle   string    `json:"target_title"`
	Role          Role      `json:"role"`
	AlreadyLinked bool      `json:"already_linked"`
	Suggested     bool      `json:"suggested"`
}
