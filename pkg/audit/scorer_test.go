package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

type silo struct {
	id     uuid.UUID
	pillar *models.Page
	sup1   *models.Page
	sup2   *models.Page
	pages  []*models.Page
	hmap   *hierarchy.Map
}

func newSilo(t *testing.T) *silo {
	t.Helper()
	id := uuid.New()
	page := func(title, keyword, body string) *models.Page {
		return &models.Page{ID: uuid.New(), SiloID: id, Title: title, Keyword: keyword, Body: body}
	}
	s := &silo{
		id:     id,
		pillar: page("Guia completo de jardinagem", "jardinagem", "<p>Guia de jardinagem para iniciantes: canteiros, solo e plantio ao longo do ano.</p>"),
		sup1:   page("Adubação orgânica", "adubo orgânico", "<p>Adubo orgânico e compostagem caseira para a horta render mais o ano todo.</p>"),
		sup2:   page("Poda de árvores frutíferas", "poda de frutíferas", "<p>Como fazer a poda das macieiras e pereiras no inverno sem ferir os galhos.</p>"),
	}
	s.pages = []*models.Page{s.pillar, s.sup1, s.sup2}

	pos := func(v float64) *float64 { return &v }
	entries := []*models.HierarchyEntry{
		{SiloID: id, PageID: s.pillar.ID, Role: models.RolePillar, Position: pos(1)},
		{SiloID: id, PageID: s.sup1.ID, Role: models.RoleSupport, Position: pos(1)},
		{SiloID: id, PageID: s.sup2.ID, Role: models.RoleSupport, Position: pos(2)},
	}
	hmap, err := hierarchy.Normalize(id, s.pages, entries)
	require.NoError(t, err)
	s.hmap = hmap
	return s
}

func (s *silo) occurrence(t *testing.T, source, target uuid.UUID, anchor, context string) *models.LinkOccurrence {
	t.Helper()
	occ, err := models.NewLinkOccurrence(uuid.New(), s.id, source, &target, anchor, context, "internal", textutil.BucketMiddle, "g-"+uuid.NewString()[:8], time.Unix(1700000000, 0))
	require.NoError(t, err)
	return occ
}

func TestScoreOccurrenceStrongLink(t *testing.T) {
	s := newSilo(t)
	occ := s.occurrence(t, s.sup1.ID, s.pillar.ID,
		"guia completo de jardinagem",
		"Veja o nosso guia completo de jardinagem para montar os canteiros.")

	counters := BuildCounters([]*models.LinkOccurrence{occ}, s.pages, s.hmap)
	res := ScoreOccurrence(occ, s.pillar, counters, s.hmap)
	require.NotNil(t, res)

	assert.Equal(t, models.LabelStrong, res.Label)
	assert.Empty(t, res.Reasons)
	// 100 + overlap bonus + support→pillar bonus, clamped.
	assert.Equal(t, 100, res.Score)
	assert.Zero(t, res.SpamRisk)
}

func TestScoreOccurrenceHiddenAnchorAlwaysWeak(t *testing.T) {
	s := newSilo(t)
	occ := s.occurrence(t, s.sup1.ID, s.pillar.ID, "[Sem texto]",
		"Aprenda jardinagem no nosso guia de canteiros.")

	counters := BuildCounters([]*models.LinkOccurrence{occ}, s.pages, s.hmap)
	res := ScoreOccurrence(occ, s.pillar, counters, s.hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonHiddenLinkPattern)
	assert.Equal(t, models.LabelWeak, res.Label)
}

func TestScoreOccurrenceGenericAnchor(t *testing.T) {
	s := newSilo(t)
	occ := s.occurrence(t, s.sup1.ID, s.pillar.ID, "clique aqui",
		"Para aprender jardinagem e montar canteiros, clique aqui.")

	counters := BuildCounters([]*models.LinkOccurrence{occ}, s.pages, s.hmap)
	res := ScoreOccurrence(occ, s.pillar, counters, s.hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonGenericAnchor)
	assert.NotContains(t, res.Reasons, models.ReasonTopicMismatch, "on-topic context saves it from mismatch")
	assert.Equal(t, models.LabelOK, res.Label)
	// 100 − 40 generic + 6 support→pillar = 66.
	assert.Equal(t, 66, res.Score)
}

func TestScoreOccurrenceHierarchyViolation(t *testing.T) {
	s := newSilo(t)
	// A third support makes Support[1]→Support[3] possible, which skips the chain.
	extra := &models.Page{ID: uuid.New(), SiloID: s.id, Title: "Calendário de plantio", Keyword: "calendário de plantio", Body: "<p>Datas de plantio.</p>"}
	pos := func(v float64) *float64 { return &v }
	entries := []*models.HierarchyEntry{
		{SiloID: s.id, PageID: s.pillar.ID, Role: models.RolePillar, Position: pos(1)},
		{SiloID: s.id, PageID: s.sup1.ID, Role: models.RoleSupport, Position: pos(1)},
		{SiloID: s.id, PageID: s.sup2.ID, Role: models.RoleSupport, Position: pos(2)},
		{SiloID: s.id, PageID: extra.ID, Role: models.RoleSupport, Position: pos(3)},
	}
	pages := append(s.pages, extra)
	hmap, err := hierarchy.Normalize(s.id, pages, entries)
	require.NoError(t, err)

	// Support[1] → Support[3]: skips the chain.
	occ := s.occurrence(t, s.sup1.ID, extra.ID, "calendário de plantio",
		"Consulte o calendário de plantio antes de adubar.")
	pillarLink := s.occurrence(t, s.sup1.ID, s.pillar.ID, "guia de jardinagem", "Veja o guia de jardinagem.")

	counters := BuildCounters([]*models.LinkOccurrence{occ, pillarLink}, pages, hmap)
	res := ScoreOccurrence(occ, extra, counters, hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonHierarchyViolation)
	assert.Equal(t, models.LabelWeak, res.Label)
}

func TestScoreOccurrenceSupportMissingPillarPenalty(t *testing.T) {
	s := newSilo(t)
	// sup1 links only its neighbor, never the pillar.
	occ := s.occurrence(t, s.sup1.ID, s.sup2.ID, "poda de frutíferas",
		"Depois de adubar, veja a poda de frutíferas.")

	counters := BuildCounters([]*models.LinkOccurrence{occ}, s.pages, s.hmap)
	res := ScoreOccurrence(occ, s.sup2, counters, s.hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonSupportMissingPillar)
	assert.Equal(t, models.LabelOK, res.Label)
}

func TestScoreOccurrenceOverOptimizedAndSameTarget(t *testing.T) {
	s := newSilo(t)
	var occs []*models.LinkOccurrence
	for i := 0; i < 4; i++ {
		occs = append(occs, s.occurrence(t, s.sup1.ID, s.pillar.ID,
			"guia completo de jardinagem", "Veja o guia completo de jardinagem."))
	}

	counters := BuildCounters(occs, s.pages, s.hmap)
	res := ScoreOccurrence(occs[0], s.pillar, counters, s.hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonOverOptimizedAnchor)
	assert.Contains(t, res.Reasons, models.ReasonSameTargetRepeated)
	assert.Contains(t, res.Reasons, models.ReasonSpamRisk)
	assert.Less(t, res.Score, 80)
	assert.GreaterOrEqual(t, res.SpamRisk, 40)
}

func TestScoreOccurrenceLinkChaining(t *testing.T) {
	s := newSilo(t)
	group := "same-paragraph"
	make3 := func(target uuid.UUID, anchor string) *models.LinkOccurrence {
		occ := s.occurrence(t, s.sup1.ID, target, anchor, "Parágrafo com muitos links de jardinagem e adubo e poda.")
		occ.ContextGroup = group
		return occ
	}
	occs := []*models.LinkOccurrence{
		make3(s.pillar.ID, "guia de jardinagem"),
		make3(s.sup2.ID, "poda de frutíferas"),
		make3(s.pillar.ID, "canteiros do guia"),
	}

	counters := BuildCounters(occs, s.pages, s.hmap)
	res := ScoreOccurrence(occs[0], s.pillar, counters, s.hmap)
	require.NotNil(t, res)

	assert.Contains(t, res.Reasons, models.ReasonLinkChaining)
}

func TestScoreOccurrenceScoreAlwaysInRange(t *testing.T) {
	s := newSilo(t)
	// Pathological link: hidden anchor, violation, repeated — stacks every
	// penalty but must clamp at 0.
	var occs []*models.LinkOccurrence
	for i := 0; i < 5; i++ {
		occ := s.occurrence(t, s.sup1.ID, s.sup1.ID, "[Sem texto]", "preço e desconto")
		occ.ContextGroup = "g"
		occs = append(occs, occ)
	}

	counters := BuildCounters(occs, s.pages, s.hmap)
	res := ScoreOccurrence(occs[0], s.sup1, counters, s.hmap)
	require.NotNil(t, res)

	assert.GreaterOrEqual(t, res.Score, 0)
	assert.LessOrEqual(t, res.Score, 100)
	assert.LessOrEqual(t, res.SpamRisk, 100)
	assert.Equal(t, models.LabelWeak, res.Label)
}

func TestScoreOccurrenceNonInternalReturnsNil(t *testing.T) {
	s := newSilo(t)
	occ, err := models.NewLinkOccurrence(uuid.New(), s.id, s.sup1.ID, nil, "loja", "ctx", "external", textutil.BucketStart, "", time.Now())
	require.NoError(t, err)
	counters := BuildCounters([]*models.LinkOccurrence{occ}, s.pages, s.hmap)
	assert.Nil(t, ScoreOccurrence(occ, s.pillar, counters, s.hmap))
}

func TestBuildCountersDensity(t *testing.T) {
	s := newSilo(t)
	var occs []*models.LinkOccurrence
	for i := 0; i < 6; i++ {
		occs = append(occs, s.occurrence(t, s.sup1.ID, s.pillar.ID, "guia de jardinagem", "ctx"))
	}
	counters := BuildCounters(occs, s.pages, s.hmap)

	assert.Equal(t, 6, counters.SourceLinkCount[s.sup1.ID])
	assert.Greater(t, counters.LinkDensity(s.sup1.ID), densityPer100Limit)
	assert.True(t, counters.SourceLinksPillar[s.sup1.ID])
	assert.False(t, counters.SourceLinksPillar[s.sup2.ID])
}
