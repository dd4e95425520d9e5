package audit

import (
	"math"
	"strings"

	"github.com/siloforge/siloforge-engine/pkg/models"
)

// criticalScoreCap bounds the merged score whenever a critical reason is
// present, no matter how optimistic the external intent match is.
const criticalScoreCap = 49

// Resolved is the final verdict for one link after merging the deterministic
// result with an optional external suggestion.
type Resolved struct {
	Score          int
	Label          models.Label
	SpamRisk       int
	Reasons        []models.ReasonCode
	Action         models.Action
	Recommendation string

	SuggestedAnchor *string
	Note            *string
	IntentMatch     *float64
}

// Resolve merges a deterministic result with an optional external suggestion,
// re-derives the label, picks the one corrective action and renders the
// recommendation text.
func Resolve(base *Result, ext *models.ExternalSuggestion) *Resolved {
	score := base.Score
	critical := models.HasCritical(base.Reasons) || base.SpamRisk >= spamHighBand

	out := &Resolved{
		SpamRisk: base.SpamRisk,
		Reasons:  base.Reasons,
	}

	if ext != nil {
		if len(ext.AlternateAnchors) > 0 {
			anchor := strings.TrimSpace(ext.AlternateAnchors[0])
			if anchor != "" {
				out.SuggestedAnchor = &anchor
			}
		}
		if ext.Notes != "" {
			note := ext.Notes
			out.Note = &note
		}
		if ext.IntentMatch != nil {
			im := *ext.IntentMatch
			out.IntentMatch = &im
			if !critical {
				score += int(math.Round((im - 50) / 10))
			}
		}
	}

	if critical && score > criticalScoreCap {
		score = criticalScoreCap
	}
	score = clamp(score)
	out.Score = score

	// Label re-derivation after merge.
	hasWarning := len(base.Reasons) > 0
	switch {
	case critical:
		out.Label = models.LabelWeak
	case hasWarning && score >= 80:
		out.Label = models.LabelOK
	case !hasWarning && score >= 80:
		out.Label = models.LabelStrong
	case score < 50:
		out.Label = models.LabelWeak
	default:
		out.Label = models.LabelOK
	}

	out.Action = resolveAction(base.Reasons)
	out.Recommendation = recommendationFor(out.Action, out.SuggestedAnchor)

	return out
}

// Fixed priority: the highest-ranked triggered reason picks the action.
func resolveAction(reasons []models.ReasonCode) models.Action {
	has := make(map[models.ReasonCode]bool, len(reasons))
	for _, r := range reasons {
		has[r] = true
	}

	switch {
	case has[models.ReasonHierarchyViolation]:
		return models.ActionChangeTarget
	case has[models.ReasonHiddenLinkPattern],
		has[models.ReasonLinkChaining],
		has[models.ReasonOverOptimizedAnchor],
		has[models.ReasonHighLinkDensity],
		has[models.ReasonSameTargetRepeated],
		has[models.ReasonSpamRisk]:
		return models.ActionRemoveLink
	case has[models.ReasonTopicMismatch], has[models.ReasonLowValueLink]:
		return models.ActionChangeTarget
	case has[models.ReasonSupportMissingPillar]:
		return models.ActionAddLink
	case has[models.ReasonGenericAnchor],
		has[models.ReasonShortAnchor],
		has[models.ReasonVagueAnchor]:
		return models.ActionChangeAnchor
	default:
		return models.ActionKeep
	}
}

func recommendationFor(action models.Action, suggestedAnchor *string) string {
	switch action {
	case models.ActionChangeTarget:
		return "Aponte este link para uma página permitida pela hierarquia do silo e alinhada ao tema do texto âncora."
	case models.ActionRemoveLink:
		return "Remova este link: o padrão atual (repetição, ocultação ou excesso de links) prejudica o silo."
	case models.ActionAddLink:
		return "Adicione um link desta página de suporte para a pilar do silo, com um texto âncora descritivo."
	case models.ActionChangeAnchor:
		if suggestedAnchor != nil {
			return "Troque o texto âncora por algo descritivo, por exemplo: \"" + *suggestedAnchor + "\"."
		}
		return "Troque o texto âncora genérico por uma frase descritiva do conteúdo da página de destino."
	default:
		return "Link saudável: mantenha como está."
	}
}
