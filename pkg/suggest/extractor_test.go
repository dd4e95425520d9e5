package suggest

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/semantic"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// gardenTargets builds two topically distinct target pages with real profiles.
func gardenTargets(t *testing.T) (poda, pragas Target) {
	t.Helper()
	siloID := uuid.New()
	podaPage := &models.Page{
		ID:      uuid.New(),
		SiloID:  siloID,
		Title:   "Poda de árvores frutíferas",
		Keyword: "poda de frutíferas",
		Body:    "<p>A poda de macieiras e pereiras no inverno remove galhos doentes da copa. Ferramentas afiadas evitam doenças.</p>",
	}
	pragasPage := &models.Page{
		ID:      uuid.New(),
		SiloID:  siloID,
		Title:   "Controle de pragas",
		Keyword: "pragas da horta",
		Body:    "<p>Pulgões e cochonilhas atacam as hortaliças. A calda de sabão controla infestações.</p>",
	}
	profiles := semantic.BuildProfiles([]*models.Page{podaPage, pragasPage})
	poda = Target{ID: podaPage.ID, Title: podaPage.Title, Profile: profiles[podaPage.ID]}
	pragas = Target{ID: pragasPage.ID, Title: pragasPage.Title, Profile: profiles[pragasPage.ID]}
	return poda, pragas
}

func TestExtractFindsStrictCandidatesPerTarget(t *testing.T) {
	poda, pragas := gardenTargets(t)
	article := "A poda de inverno das macieiras remove galhos doentes e fortalece a copa. " +
		"O controle de pragas na horta protege as mudas novas. " +
		"Ferramentas limpas reduzem o risco de doenças."

	cands, stats := NewExtractor().Extract(article, []Target{poda, pragas})

	assert.Equal(t, 3, stats.SentencesScanned)
	assert.Positive(t, stats.PhrasesConsidered)
	assert.Positive(t, stats.StrictCandidates)

	require.NotEmpty(t, cands[poda.ID])
	for _, c := range cands[poda.ID] {
		assert.False(t, c.Relaxed)
		assert.GreaterOrEqual(t, c.Density, strictDensity)
		assert.GreaterOrEqual(t, c.Overlap, 1)
		assert.LessOrEqual(t, len(c.Anchor), maxAnchorChars)
		assert.GreaterOrEqual(t, textutil.MeaningfulTokens(c.Anchor), 2)
	}

	found := false
	for _, c := range cands[poda.ID] {
		if textutil.Overlap(textutil.Tokenize(c.Anchor), map[string]bool{"poda": true}) > 0 {
			found = true
		}
	}
	assert.True(t, found, "expected a poda-bearing anchor for the poda target")

	require.NotEmpty(t, cands[pragas.ID])
	assert.Equal(t, "controle de pragas na horta", cands[pragas.ID][0].Normalized)
}

func TestExtractRejectsExactTargetTitle(t *testing.T) {
	poda, pragas := gardenTargets(t)
	article := "O controle de pragas na horta precisa de atenção diária das hortaliças."

	cands, _ := NewExtractor().Extract(article, []Target{poda, pragas})

	for _, c := range cands[pragas.ID] {
		assert.NotEqual(t, "controle de pragas", c.Normalized)
	}
}

func TestExtractRejectsConnectorOpeningPhrases(t *testing.T) {
	poda, pragas := gardenTargets(t)
	article := "Saiba tudo sobre poda de macieiras no inverno e mantenha a copa das frutíferas saudável."

	cands, _ := NewExtractor().Extract(article, []Target{poda, pragas})

	require.NotEmpty(t, cands[poda.ID])
	for _, c := range cands[poda.ID] {
		first := strings.Fields(textutil.Fold(c.Anchor))[0]
		assert.NotEqual(t, "sobre", first, "anchor %q opens on a connector", c.Anchor)
		assert.NotEqual(t, "das", first, "anchor %q opens on a connector", c.Anchor)
		assert.False(t, textutil.HasWeakPrefix(c.Anchor), "anchor %q opens on a function word", c.Anchor)
	}
}

func TestExtractSkipsCommercialSentences(t *testing.T) {
	poda, pragas := gardenTargets(t)
	article := "As mudas custam R$ 20 na loja junto com a poda de macieiras. " +
		"A poda de inverno das macieiras remove galhos doentes."

	cands, stats := NewExtractor().Extract(article, []Target{poda, pragas})

	assert.Equal(t, 1, stats.SentencesScanned)
	for _, c := range cands[poda.ID] {
		assert.NotContains(t, c.Normalized, "custam")
		assert.NotContains(t, c.Normalized, "loja")
	}
	assert.NotEmpty(t, cands[poda.ID])
}

func TestExtractRejectsVerbatimRepeats(t *testing.T) {
	poda, pragas := gardenTargets(t)
	article := "A poda de inverno fortalece plantas. " +
		"A poda de inverno protege mudas. " +
		"A poda de inverno ajuda os galhos doentes."

	cands, _ := NewExtractor().Extract(article, []Target{poda, pragas})

	require.NotEmpty(t, cands[poda.ID])
	for _, c := range cands[poda.ID] {
		assert.NotEqual(t, "poda de inverno", c.Normalized)
	}
}

func TestExtractDiscardsAmbiguousPhrases(t *testing.T) {
	// Both targets mention "jardim" with the same weight, so a phrase whose
	// only topical token is "jardim" matches neither discriminatively.
	siloID := uuid.New()
	a := &models.Page{ID: uuid.New(), SiloID: siloID, Title: "Poda", Keyword: "poda",
		Body: "<p>Cuidados no jardim durante o inverno.</p>"}
	b := &models.Page{ID: uuid.New(), SiloID: siloID, Title: "Pragas", Keyword: "pragas",
		Body: "<p>Insetos do jardim durante o verão.</p>"}
	profiles := semantic.BuildProfiles([]*models.Page{a, b})
	targets := []Target{
		{ID: a.ID, Title: a.Title, Profile: profiles[a.ID]},
		{ID: b.ID, Title: b.Title, Profile: profiles[b.ID]},
	}

	cands, _ := NewExtractor().Extract("Cuide bem desse jardim florido.", targets)

	assert.Empty(t, cands[a.ID])
	assert.Empty(t, cands[b.ID])
}

func TestExtractRelaxedFallback(t *testing.T) {
	// The article never uses the target's topic terms, only its body
	// vocabulary, so the strict pass is empty and the relaxed pass applies.
	adubo := Target{
		ID:    uuid.New(),
		Title: "Adubação orgânica",
		Profile: &semantic.Profile{
			Weights: map[string]float64{
				"adubacao": 3, "organico": 2.5, "compostagem": 2,
				"humus": 1.8, "resto": 0.4, "cozinha": 0.4,
			},
			Core:    map[string]bool{"adubacao": true, "organico": true},
			Related: []string{"compostagem", "humus"},
		},
	}

	cands, stats := NewExtractor().Extract("Os restos da cozinha viram nutrientes para o solo.", []Target{adubo})

	require.NotEmpty(t, cands[adubo.ID])
	assert.Zero(t, stats.StrictCandidates)
	assert.Positive(t, stats.RelaxedCandidates)
	for _, c := range cands[adubo.ID] {
		assert.True(t, c.Relaxed)
		assert.GreaterOrEqual(t, c.Density, relaxedDensity)
	}
}

func TestExtractEmptyInputs(t *testing.T) {
	poda, _ := gardenTargets(t)

	cands, _ := NewExtractor().Extract("", []Target{poda})
	assert.Empty(t, cands)

	cands, _ = NewExtractor().Extract("A poda de inverno ajuda.", nil)
	assert.Empty(t, cands)
}

func TestDiversifyBucketsFirstThenScore(t *testing.T) {
	tid := uuid.New()
	cand := func(norm string, bucket textutil.PositionBucket, score float64) *Candidate {
		return &Candidate{TargetID: tid, Anchor: norm, Normalized: norm, Bucket: bucket, Score: score}
	}
	e := NewExtractor()

	out := e.diversify([]*Candidate{
		cand("a", textutil.BucketStart, 10),
		cand("b", textutil.BucketStart, 9),
		cand("c", textutil.BucketMiddle, 8),
		cand("d", textutil.BucketEnd, 7),
	})

	require.Len(t, out, 3)
	norms := []string{out[0].Normalized, out[1].Normalized, out[2].Normalized}
	assert.Equal(t, []string{"a", "c", "d"}, norms)
}

func TestDiversifyDedupesByNormalizedText(t *testing.T) {
	tid := uuid.New()
	e := NewExtractor()

	out := e.diversify([]*Candidate{
		{TargetID: tid, Normalized: "poda de inverno", Bucket: textutil.BucketStart, Score: 5},
		{TargetID: tid, Normalized: "poda de inverno", Bucket: textutil.BucketEnd, Score: 9},
	})

	require.Len(t, out, 1)
	assert.Equal(t, 9.0, out[0].Score)
	assert.Equal(t, textutil.BucketEnd, out[0].Bucket)
}
