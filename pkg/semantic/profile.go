// Package semantic builds weighted term profiles for silo pages and scores
// article/target topical similarity. Profiles are transient: rebuilt on every
// suggestion request, never persisted.
package semantic

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// relatedTermLimit bounds the latent term set per page.
const relatedTermLimit = 12

// Profile is the weighted term vector of one page plus its core and related
// term sets.
type Profile struct {
	PageID uuid.UUID

	// Weights maps stemmed terms to tf×idf weight over the full corpus text
	// (title + keyword + entities + body).
	Weights map[string]float64

	// Core is the token set of title + keyword + entities only.
	Core map[string]bool

	// Related holds the top-weighted corpus terms excluding core terms.
	Related []string

	norm float64
}

// coreText concatenates the fields that define what a page is about.
func coreText(p *models.Page) string {
	parts := []string{p.Title, p.Keyword}
	parts = append(parts, p.Entities...)
	return strings.Join(parts, " ")
}

// BuildProfiles builds a profile per page, with document frequencies computed
// once across all pages of the silo.
func BuildProfiles(pages []*models.Page) map[uuid.UUID]*Profile {
	n := len(pages)
	corpusTokens := make(map[uuid.UUID][]string, n)
	df := make(map[string]int)

	for _, p := range pages {
		tokens := textutil.Tokenize(coreText(p) + " " + textutil.StripHTML(p.Body))
		corpusTokens[p.ID] = tokens
		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	idf := func(term string) float64 {
		return math.Log(float64(n+1)/float64(df[term]+1)) + 1
	}

	profiles := make(map[uuid.UUID]*Profile, n)
	for _, p := range pages {
		tokens := corpusTokens[p.ID]
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}

		weights := make(map[string]float64, len(tf))
		var sumSquares float64
		for term, count := range tf {
			w := float64(count) * idf(term)
			weights[term] = w
			sumSquares += w * w
		}

		core := textutil.TokenSet(coreText(p))

		type weighted struct {
			term   string
			weight float64
		}
		var latent []weighted
		for term, w := range weights {
			if core[term] {
				continue
			}
			latent = append(latent, weighted{term, w})
		}
		sort.Slice(latent, func(i, j int) bool {
			if latent[i].weight != latent[j].weight {
				return latent[i].weight > latent[j].weight
			}
			return latent[i].term < latent[j].term
		})
		related := make([]string, 0, relatedTermLimit)
		for _, lw := range latent {
			if len(related) == relatedTermLimit {
				break
			}
			related = append(related, lw.term)
		}

		profiles[p.ID] = &Profile{
			PageID:  p.ID,
			Weights: weights,
			Core:    core,
			Related: related,
			norm:    math.Sqrt(sumSquares),
		}
	}

	return profiles
}

// Weight returns the tf×idf weight of a term in the profile.
func (p *Profile) Weight(term string) float64 {
	return p.Weights[term]
}

// Has reports whether the term occurs anywhere in the page corpus.
func (p *Profile) Has(term string) bool {
	_, ok := p.Weights[term]
	return ok
}

// TopicSet returns core ∪ related, the terms anchor candidates are matched
// against.
func (p *Profile) TopicSet() map[string]bool {
	out := make(map[string]bool, len(p.Core)+len(p.Related))
	for term := range p.Core {
		out[term] = true
	}
	for _, term := range p.Related {
		out[term] = true
	}
	return out
}

// Similarity scores how well an article's profile matches a target page:
// 100 × (0.5·cosine + 0.35·core coverage + 0.15·related coverage), where
// coverage is the fraction of the target set present in the article corpus.
func Similarity(article, target *Profile) float64 {
	if article == nil || target == nil {
		return 0
	}

	var dot float64
	// Iterate the smaller map.
	a, b := article, target
	if len(b.Weights) < len(a.Weights) {
		a, b = b, a
	}
	for term, wa := range a.Weights {
		if wb, ok := b.Weights[term]; ok {
			dot += wa * wb
		}
	}

	var cosine float64
	if article.norm > 0 && target.norm > 0 {
		cosine = dot / (article.norm * target.norm)
	}

	coreCov := coverage(target.Core, article)
	relatedCov := coverageSlice(target.Related, article)

	score := 100 * (0.5*cosine + 0.35*coreCov + 0.15*relatedCov)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func coverage(set map[string]bool, article *Profile) float64 {
	if len(set) == 0 {
		return 0
	}
	hits := 0
	for term := range set {
		if article.Has(term) {
			hits++
		}
	}
	return float64(hits) / float64(len(set))
}

func coverageSlice(terms []string, article *Profile) float64 {
	if len(terms) == 0 {
		return 0
	}
	hits := 0
	for _, term := range terms {
		if article.Has(term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
