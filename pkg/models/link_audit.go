package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/siloforge/siloforge-engine/pkg/jsonutil"
)

// Label is the qualitative verdict for one link.
type Label string

const (
	LabelStrong Label = "STRONG"
	LabelOK     Label = "OK"
	LabelWeak   Label = "WEAK"
)

// ReasonCode names one triggered audit condition. Codes are deduplicated and
// kept in first-trigger order on the audit row.
type ReasonCode string

const (
	ReasonGenericAnchor        ReasonCode = "GENERIC_ANCHOR"
	ReasonShortAnchor          ReasonCode = "SHORT_ANCHOR"
	ReasonTopicMismatch        ReasonCode = "TOPIC_MISMATCH"
	ReasonHierarchyViolation   ReasonCode = "HIERARCHY_VIOLATION"
	ReasonVagueAnchor          ReasonCode = "VAGUE_ANCHOR"
	ReasonOverOptimizedAnchor  ReasonCode = "OVER_OPTIMIZED_ANCHOR"
	ReasonLinkChaining         ReasonCode = "LINK_CHAINING"
	ReasonHiddenLinkPattern    ReasonCode = "HIDDEN_LINK_PATTERN"
	ReasonSupportMissingPillar ReasonCode = "SUPPORT_MISSING_PILLAR_LINK"
	ReasonSameTargetRepeated   ReasonCode = "SAME_TARGET_REPEATED"
	ReasonHighLinkDensity      ReasonCode = "HIGH_LINK_DENSITY"
	ReasonLowValueLink         ReasonCode = "LOW_VALUE_LINK"
	ReasonSpamRisk             ReasonCode = "SPAM_RISK"
)

// criticalReasons force a WEAK label regardless of score.
var criticalReasons = map[ReasonCode]bool{
	ReasonHierarchyViolation: true,
	ReasonHiddenLinkPattern:  true,
	ReasonTopicMismatch:      true,
}

// IsCritical reports whether the code forces a WEAK label.
func (c ReasonCode) IsCritical() bool {
	return criticalReasons[c]
}

// HasCritical reports whether any code in the list is critical.
func HasCritical(codes []ReasonCode) bool {
	for _, c := range codes {
		if c.IsCritical() {
			return true
		}
	}
	return false
}

// Action is the one corrective action resolved for a link.
type Action string

const (
	ActionKeep         Action = "KEEP"
	ActionChangeAnchor Action = "CHANGE_ANCHOR"
	ActionChangeTarget Action = "CHANGE_TARGET"
	ActionRemoveLink   Action = "REMOVE_LINK"
	ActionAddLink      Action = "ADD_LINK"
)

// LinkAudit is the scored verdict for one occurrence. Rows are fully replaced
// on every non-cached run, never patched, so the reason set always matches
// the scoring pass that produced it. Stored in link_audits table.
type LinkAudit struct {
	ID           uuid.UUID    `json:"id"`
	OccurrenceID uuid.UUID    `json:"occurrence_id"`
	SiloID       uuid.UUID    `json:"silo_id"`
	Score        int          `json:"score"` // 0-100
	Label        Label        `json:"label"`
	Reasons      []ReasonCode `json:"reasons"`
	SpamRisk     int          `json:"spam_risk"` // 0-100

	SuggestedAnchor *string  `json:"suggested_anchor,omitempty"`
	Note            *string  `json:"note,omitempty"`
	IntentMatch     *float64 `json:"intent_match,omitempty"` // 0-100, external

	Action         Action `json:"action"`
	Recommendation string `json:"recommendation"`

	CreatedAt time.Time `json:"created_at"`
}

// ExternalSuggestion is the optional advisory object merged into a base
// audit: an alternate anchor (array or string), free-text notes and a 0-100
// intent-match number.
type ExternalSuggestion struct {
	AlternateAnchors []string `json:"alternate_anchors,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	IntentMatch      *float64 `json:"intent_match,omitempty"`
}

// externalSuggestionWire mirrors the loosely-typed JSON external tools send.
type externalSuggestionWire struct {
	AlternateAnchor json.RawMessage `json:"alternate_anchor"`
	Anchor          json.RawMessage `json:"anchor"`
	Notes           json.RawMessage `json:"notes"`
	IntentMatch     json.RawMessage `json:"intent_match"`
}

// ParseExternalSuggestion decodes an external suggestion payload, tolerating
// string-or-array anchors and quoted numbers. Returns nil for empty payloads.
func ParseExternalSuggestion(raw json.RawMessage) (*ExternalSuggestion, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var wire externalSuggestionWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	out := &ExternalSuggestion{
		Notes: jsonutil.FlexibleStringValue(wire.Notes),
	}
	out.AlternateAnchors = jsonutil.FlexibleStringSlice(wire.AlternateAnchor)
	if out.AlternateAnchors == nil {
		out.AlternateAnchors = jsonutil.FlexibleStringSlice(wire.Anchor)
	}
	if v, ok := jsonutil.FlexibleFloat(wire.IntentMatch); ok {
		if v < 0 {
			v = 0
		}
		if v > 100 {
			v = 100
		}
		out.IntentMatch = &v
	}
	if out.AlternateAnchors == nil && out.Notes == "" && out.IntentMatch == nil {
		return nil, nil
	}
	return out, nil
}
