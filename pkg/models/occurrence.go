package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/textutil"
)

// LinkClass classifies a hyperlink occurrence.
type LinkClass string

const (
	LinkInternal  LinkClass = "INTERNAL"
	LinkExternal  LinkClass = "EXTERNAL"
	LinkAffiliate LinkClass = "AFFILIATE"
)

// LinkOccurrence is one physical hyperlink instance inside a source page's
// body. Superseded, never mutated, when the body changes. Stored in
// link_occurrences table.
type LinkOccurrence struct {
	ID       uuid.UUID  `json:"id"`
	SiloID   uuid.UUID  `json:"silo_id"`
	SourceID uuid.UUID  `json:"source_id"`
	TargetID *uuid.UUID `json:"target_id,omitempty"` // nil for external links
	Anchor   string     `json:"anchor"`
	Context  string     `json:"context"` // surrounding snippet
	Class    *LinkClass `json:"class,omitempty"`

	NoFollow    bool `json:"nofollow"`
	TargetBlank bool `json:"target_blank"`

	Bucket       textutil.PositionBucket `json:"bucket"`
	ContextGroup string                  `json:"context_group"` // groups links sharing one snippet/paragraph

	SyncedAt time.Time `json:"synced_at"`
}

// NewLinkOccurrence validates a raw occurrence row. The class string degrades
// to nil when unknown; anchor and context are trimmed but otherwise kept
// verbatim because scoring inspects the raw text.
func NewLinkOccurrence(id, siloID, sourceID uuid.UUID, targetID *uuid.UUID, anchor, context, class string, bucket textutil.PositionBucket, contextGroup string, syncedAt time.Time) (*LinkOccurrence, error) {
	if id == uuid.Nil {
		return nil, ErrMissingID
	}
	if siloID == uuid.Nil {
		return nil, ErrMissingSiloID
	}
	if sourceID == uuid.Nil {
		return nil, ErrMissingPageID
	}
	if targetID != nil && *targetID == uuid.Nil {
		targetID = nil
	}
	var cls *LinkClass
	switch LinkClass(strings.ToUpper(strings.TrimSpace(class))) {
	case LinkInternal:
		c := LinkInternal
		cls = &c
	case LinkExternal:
		c := LinkExternal
		cls = &c
	case LinkAffiliate:
		c := LinkAffiliate
		cls = &c
	}
	if bucket != textutil.BucketStart && bucket != textutil.BucketMiddle && bucket != textutil.BucketEnd {
		bucket = textutil.BucketMiddle
	}
	return &LinkOccurrence{
		ID:           id,
		SiloID:       siloID,
		SourceID:     sourceID,
		TargetID:     targetID,
		Anchor:       strings.TrimSpace(anchor),
		Context:      strings.TrimSpace(context),
		Class:        cls,
		Bucket:       bucket,
		ContextGroup: contextGroup,
		SyncedAt:     syncedAt,
	}, nil
}

// IsInternal reports whether the occurrence points at a page inside the silo.
func (o *LinkOccurrence) IsInternal() bool {
	return o.TargetID != nil && (o.Class == nil || *o.Class == LinkInternal)
}
