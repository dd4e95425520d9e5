// Package oracle is the optional external re-ranking pass for link
// suggestions. It may reorder and annotate the heuristic shortlist but never
// invents anchors or targets, and every failure leaves the caller on the
// pure-heuristic path.
package oracle

import (
	"context"
)

// Candidate is one already-ranked suggestion offered to the oracle.
type Candidate struct {
	ID          string  `json:"id"`
	Anchor      string  `json:"anchor"`
	TargetTitle string  `json:"target_title"`
	TargetRole  string  `json:"target_role"`
	FinalScore  float64 `json:"final_score"`
}

// Request carries the article context and the candidate shortlist.
type Request struct {
	ArticleTitle   string
	ArticleKeyword string
	Summary        string
	Candidates     []Candidate
	MaxResults     int
}

// Ranking is one reordered candidate with the oracle's rationale.
type Ranking struct {
	CandidateID string
	Rationale   string
}

// Result is the validated oracle response. Rankings only reference offered
// candidate ids, in the oracle's preferred order.
type Result struct {
	Rankings   []Ranking
	Confidence float64
}

// Reranker reorders a candidate shortlist. Implementations must respect the
// context deadline and return an error rather than a partial result.
type Reranker interface {
	Rerank(ctx context.Context, req *Request) (*Result, error)
}
