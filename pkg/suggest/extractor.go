// Package suggest scans article text for natural anchor phrases, scores them
// against hierarchy-eligible targets and assembles the final diversified
// suggestion list.
package suggest

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/semantic"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Extraction thresholds. Empirically tuned together with the audit penalty
// table; keep relative magnitudes intact.
const (
	minWindowWords = 2
	maxWindowWords = 7
	maxAnchorChars = 72
	maxVerbatim    = 2 // verbatim repeats allowed per article

	strictDensity  = 0.42
	relaxedDensity = 0.30
	marginFloor    = 0.45
	ratioFloor     = 1.1

	relaxedMinOverlap    = 1
	relaxedMinSemOverlap = 2

	defaultMaxPerTarget = 3

	rejectedPunctuation = ",:;()"
)

// Target is one hierarchy-eligible link destination for the article.
type Target struct {
	ID      uuid.UUID
	Title   string
	Profile *semantic.Profile
}

// Candidate is one anchor phrase proposed for one target.
type Candidate struct {
	TargetID   uuid.UUID
	Anchor     string
	Normalized string
	Bucket     textutil.PositionBucket

	Score   float64 // raw relevance (length-weighted term overlap)
	Overlap int     // distinct topic terms matched
	Density float64 // overlap ÷ meaningful token count
	Margin  float64 // advantage over the best competing target
	Relaxed bool    // produced by the relaxed fallback pass
}

// Stats counts candidates through the extraction stages.
type Stats struct {
	SentencesScanned  int
	PhrasesConsidered int
	StrictCandidates  int
	RelaxedCandidates int
}

// Extractor slides 2-7 word windows over non-commercial sentences and keeps
// phrases that are topically discriminative for exactly one eligible target.
type Extractor struct {
	MaxPerTarget int
}

// NewExtractor returns an extractor with the default per-target limit.
func NewExtractor() *Extractor {
	return &Extractor{MaxPerTarget: defaultMaxPerTarget}
}

// Extract returns the per-target candidate lists for an article. Targets with
// no strict candidate get a relaxed, lower-confidence pass.
func (e *Extractor) Extract(article string, targets []Target) (map[uuid.UUID][]*Candidate, *Stats) {
	stats := &Stats{}
	out := make(map[uuid.UUID][]*Candidate, len(targets))
	if len(targets) == 0 || strings.TrimSpace(article) == "" {
		return out, stats
	}

	sentences := textutil.Sentences(article)
	normArticle := textutil.NormalizePhrase(article)

	var phrases []phrase
	for _, sent := range sentences {
		if textutil.HasCommercialTerm(sent.Text) {
			continue
		}
		stats.SentencesScanned++
		phrases = append(phrases, windows(sent)...)
	}
	stats.PhrasesConsidered = len(phrases)

	topicSets := make([]map[string]bool, len(targets))
	titleNorms := make([]string, len(targets))
	for i, tgt := range targets {
		topicSets[i] = tgt.Profile.TopicSet()
		titleNorms[i] = textutil.NormalizePhrase(tgt.Title)
	}

	for i, tgt := range targets {
		strict := e.pass(phrases, normArticle, targets, topicSets, titleNorms, i, false)
		if len(strict) > 0 {
			stats.StrictCandidates += len(strict)
			out[tgt.ID] = e.diversify(strict)
			continue
		}
		relaxed := e.pass(phrases, normArticle, targets, topicSets, titleNorms, i, true)
		stats.RelaxedCandidates += len(relaxed)
		out[tgt.ID] = e.diversify(relaxed)
	}

	return out, stats
}

// phrase is one n-gram window with its position bucket.
type phrase struct {
	text   string
	bucket textutil.PositionBucket
}

// windows returns every 2-7 word contiguous span of a sentence, sliced from
// the original text so casing and accents survive into the anchor.
func windows(sent textutil.Sentence) []phrase {
	spans := textutil.WordSpans(sent.Text)
	var out []phrase
	for size := minWindowWords; size <= maxWindowWords; size++ {
		for start := 0; start+size <= len(spans); start++ {
			text := sent.Text[spans[start][0]:spans[start+size-1][1]]
			out = append(out, phrase{text: text, bucket: sent.Bucket})
		}
	}
	return out
}

// pass runs one filtering pass (strict or relaxed) for the target at index ti.
func (e *Extractor) pass(phrases []phrase, normArticle string, targets []Target, topicSets []map[string]bool, titleNorms []string, ti int, relaxed bool) []*Candidate {
	tgt := targets[ti]
	var out []*Candidate

	for _, ph := range phrases {
		if rejectPhrase(ph.text, normArticle, titleNorms[ti]) {
			continue
		}

		tokens := textutil.Tokenize(ph.text)
		if len(tokens) < 2 {
			continue
		}

		overlap, weighted := scoreAgainst(tokens, topicSets[ti], tgt.Profile)
		density := float64(overlap) / float64(len(tokens))

		if relaxed {
			// The relaxed pass also credits corpus-wide matches, so a phrase
			// built from the target's body vocabulary can still qualify.
			semOverlap := semanticOverlap(tokens, tgt.Profile)
			if overlap < relaxedMinOverlap && semOverlap < relaxedMinSemOverlap {
				continue
			}
			density = float64(semOverlap) / float64(len(tokens))
			if density < relaxedDensity {
				continue
			}
			if weighted == 0 {
				weighted = float64(semOverlap)
			}
		} else {
			if overlap == 0 || density < strictDensity {
				continue
			}
		}

		// Discriminative margin: the phrase must match this target clearly
		// better than every competing eligible target.
		margin, ok := discriminativeMargin(weighted, tokens, targets, topicSets, ti)
		if !ok {
			continue
		}

		out = append(out, &Candidate{
			TargetID:   tgt.ID,
			Anchor:     ph.text,
			Normalized: textutil.NormalizePhrase(ph.text),
			Bucket:     ph.bucket,
			Score:      weighted * 10,
			Overlap:    overlap,
			Density:    density,
			Margin:     margin,
			Relaxed:    relaxed,
		})
	}

	return out
}

func rejectPhrase(text, normArticle, titleNorm string) bool {
	if len(text) > maxAnchorChars {
		return true
	}
	if strings.ContainsAny(text, rejectedPunctuation) {
		return true
	}
	if textutil.HasWeakPrefix(text) || textutil.HasStopConnectorSuffix(text) {
		return true
	}
	if textutil.IsGenericAnchor(text) {
		return true
	}
	if textutil.HasCommercialTerm(text) {
		return true
	}
	norm := textutil.NormalizePhrase(text)
	if norm == titleNorm {
		return true
	}
	if strings.Count(normArticle, norm) > maxVerbatim {
		return true
	}
	if textutil.MeaningfulTokens(text) < 2 {
		return true
	}
	return false
}

// scoreAgainst returns the distinct topic-term overlap and the
// length-weighted score: rarer (higher tf-idf) and longer tokens weigh more.
func scoreAgainst(tokens []string, topic map[string]bool, profile *semantic.Profile) (int, float64) {
	overlap := 0
	weighted := 0.0
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] || !topic[tok] {
			continue
		}
		seen[tok] = true
		overlap++
		w := profile.Weight(tok)
		if w <= 0 {
			w = 1
		}
		weighted += w * (1 + float64(len(tok))/10)
	}
	return overlap, weighted
}

// semanticOverlap counts phrase tokens that occur anywhere in the target's
// corpus, not just in its topic set.
func semanticOverlap(tokens []string, profile *semantic.Profile) int {
	n := 0
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		if profile.Has(tok) {
			n++
		}
	}
	return n
}

// discriminativeMargin verifies the phrase is not an equally good match for a
// competing target. Returns the margin over the best competitor.
func discriminativeMargin(own float64, tokens []string, targets []Target, topicSets []map[string]bool, ti int) (float64, bool) {
	best := 0.0
	for i := range targets {
		if i == ti {
			continue
		}
		_, w := scoreAgainst(tokens, topicSets[i], targets[i].Profile)
		if w > best {
			best = w
		}
	}
	margin := own - best
	if margin < marginFloor {
		return margin, false
	}
	if best > 0 && own/best < ratioFloor {
		return margin, false
	}
	return margin, true
}

// diversify dedupes by normalized text, keeps one candidate per position
// bucket greedily by score, then tops up to the per-target limit.
func (e *Extractor) diversify(cands []*Candidate) []*Candidate {
	if len(cands) == 0 {
		return nil
	}

	byNorm := make(map[string]*Candidate, len(cands))
	for _, c := range cands {
		if cur, ok := byNorm[c.Normalized]; !ok || c.Score > cur.Score {
			byNorm[c.Normalized] = c
		}
	}
	unique := make([]*Candidate, 0, len(byNorm))
	for _, c := range byNorm {
		unique = append(unique, c)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		if unique[i].Score != unique[j].Score {
			return unique[i].Score > unique[j].Score
		}
		return unique[i].Normalized < unique[j].Normalized
	})

	limit := e.MaxPerTarget
	if limit <= 0 {
		limit = defaultMaxPerTarget
	}

	var out []*Candidate
	usedBucket := make(map[textutil.PositionBucket]bool, 3)
	taken := make(map[string]bool, limit)
	for _, c := range unique {
		if len(out) == limit {
			break
		}
		if usedBucket[c.Bucket] {
			continue
		}
		usedBucket[c.Bucket] = true
		taken[c.Normalized] = true
		out = append(out, c)
	}
	for _, c := range unique {
		if len(out) == limit {
			break
		}
		if taken[c.Normalized] {
			continue
		}
		taken[c.Normalized] = true
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
