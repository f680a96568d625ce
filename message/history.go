package message

import "strings"

// HistorySentinel is rendered in place of an empty conversation.
const HistorySentinel = "(beginning of conversation)"

// Speaker labels used when rendering history lines.
const (
	LearnerLabel = "Learner"
	PartnerLabel = "AI"
)

// SpeakerLabel returns the history label for a role.
func SpeakerLabel(r Role) string {
	if r == RoleUser {
		return LearnerLabel
	}
	return PartnerLabel
}

// RenderHistory renders turns as "<Speaker>: <text>" lines. Blank turns are
// dropped without reordering the rest; an empty result renders as
// HistorySentinel.
func RenderHistory(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		lines = append(lines, SpeakerLabel(t.Role)+": "+t.Content)
	}
	if len(lines) == 0 {
		return HistorySentinel
	}
	return strings.Join(lines, "\n")
}
