// Package audit implements the deterministic link scorer, the merge/action
// resolver, the silo health aggregator and the dataset fingerprint.
package audit

import (
	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/hierarchy"
	"github.com/siloforge/siloforge-engine/pkg/models"
	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// Composite map keys. Value-equality structs, never concatenated strings.

// AnchorTarget keys duplicate-anchor counts per target.
type AnchorTarget struct {
	Anchor string // normalized
	Target uuid.UUID
}

// AnchorSource keys duplicate-anchor counts per source, regardless of target.
type AnchorSource struct {
	Anchor string // normalized
	Source uuid.UUID
}

// SourceTarget keys same-source/same-target repeat counts.
type SourceTarget struct {
	Source uuid.UUID
	Target uuid.UUID
}

// ContextGroup keys link counts per context group of one source page.
type ContextGroup struct {
	Source uuid.UUID
	Group  string
}

// Counters hold the cross-occurrence tallies the scorer needs. Built once per
// audit run over the silo's internal occurrences.
type Counters struct {
	DupAnchorPerTarget map[AnchorTarget]int
	DupAnchorPerSource map[AnchorSource]int
	SameSourceTarget   map[SourceTarget]int
	ContextGroupLinks  map[ContextGroup]int
	SourceLinkCount    map[uuid.UUID]int
	SourceGenericCount map[uuid.UUID]int
	SourceWordCount    map[uuid.UUID]int
	SourceLinksPillar  map[uuid.UUID]bool
}

// BuildCounters tallies the internal occurrences of one silo. External and
// affiliate links are ignored; they never enter audit scoring.
func BuildCounters(occurrences []*models.LinkOccurrence, pages []*models.Page, hmap *hierarchy.Map) *Counters {
	c := &Counters{
		DupAnchorPerTarget: make(map[AnchorTarget]int),
		DupAnchorPerSource: make(map[AnchorSource]int),
		SameSourceTarget:   make(map[SourceTarget]int),
		ContextGroupLinks:  make(map[ContextGroup]int),
		SourceLinkCount:    make(map[uuid.UUID]int),
		SourceGenericCount: make(map[uuid.UUID]int),
		SourceWordCount:    make(map[uuid.UUID]int),
		SourceLinksPillar:  make(map[uuid.UUID]bool),
	}

	for _, p := range pages {
		c.SourceWordCount[p.ID] = textutil.WordCount(textutil.StripHTML(p.Body))
	}

	for _, occ := range occurrences {
		if !occ.IsInternal() {
			continue
		}
		anchor := textutil.NormalizePhrase(occ.Anchor)
		target := *occ.TargetID

		c.DupAnchorPerTarget[AnchorTarget{anchor, target}]++
		c.DupAnchorPerSource[AnchorSource{anchor, occ.SourceID}]++
		c.SameSourceTarget[SourceTarget{occ.SourceID, target}]++
		if occ.ContextGroup != "" {
			c.ContextGroupLinks[ContextGroup{occ.SourceID, occ.ContextGroup}]++
		}
		c.SourceLinkCount[occ.SourceID]++
		if textutil.IsGenericAnchor(occ.Anchor) {
			c.SourceGenericCount[occ.SourceID]++
		}
		if hmap != nil && target == hmap.Pillar {
			c.SourceLinksPillar[occ.SourceID] = true
		}
	}

	return c
}

// LinkDensity returns internal links per 100 words for a source page.
func (c *Counters) LinkDensity(source uuid.UUID) float64 {
	words := c.SourceWordCount[source]
	if words == 0 {
		return 0
	}
	return float64(c.SourceLinkCount[source]) * 100 / float64(words)
}
