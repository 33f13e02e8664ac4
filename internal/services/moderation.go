package services

import "strings"

// Severity thresholds. A comment accumulates the weight of every matched
// category; the total decides the outcome.
const (
	severityWarn  = 1
	severityFlag  = 2
	severityBlock = 3
)

// ModerationRule maps one content category to its trigger phrases and the
// severity weight a match contributes. A category counts at most once per
// comment no matter how many of its phrases appear.
type ModerationRule struct {
	Category string
	Weight   int
	Keywords []string
}

var defaultModerationRules = []ModerationRule{
	{
		Category: "profanity",
		Weight:   1,
		Keywords: []string{"damn", "hell", "crap", "shit", "fuck"},
	},
	{
		Category: "abusive",
		Weight:   1,
		Keywords: []string{"idiot", "stupid", "moron", "loser", "pathetic"},
	},
	{
		Category: "hate",
		Weight:   2,
		Keywords: []string{"nazi", "subhuman", "go back to your country"},
	},
	{
		Category: "spam",
		Weight:   1,
		Keywords: []string{"http://", "https://", "buy now", "click here", "promo code", "free money"},
	},
}

// ModerationResult lists the matched categories and the accumulated severity.
type ModerationResult struct {
	Categories []string
	Severity   int
}

// Blocked reports whether the content must be rejected outright.
func (r *ModerationResult) Blocked() bool { return r.Severity >= severityBlock }

// Flagged reports whether the content is accepted but held for human review.
func (r *ModerationResult) Flagged() bool { return r.Severity >= severityFlag }

// Warned reports whether the content carries a moderation note.
func (r *ModerationResult) Warned() bool { return r.Severity >= severityWarn }

// Note returns a short human-readable summary for the review record.
func (r *ModerationResult) Note() string {
	if len(r.Categories) == 0 {
		return ""
	}
	return "moderation: " + strings.Join(r.Categories, ", ")
}

// ModerationService screens comment text against a data-driven rule table.
// Rules live in code rather than config so the gate has no external
// dependency at intake time.
type ModerationService struct {
	rules []ModerationRule
}

func NewModerationService() *ModerationService {
	return &ModerationService{rules: defaultModerationRules}
}

// Moderate scans the comment case-insensitively. An empty comment always
// passes clean.
func (s *ModerationService) Moderate(comment string) *ModerationResult {
	result := &ModerationResult{}
	if comment == "" {
		return result
	}

	lowered := strings.ToLower(comment)
	for _, rule := range s.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lowered, kw) {
				result.Categories = append(result.Categories, rule.Category)
				result.Severity += rule.Weight
				break
			}
		}
	}
	return result
}
