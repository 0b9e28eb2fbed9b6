package classifier

import (
	"context"
	"strings"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// KeywordClassifier is the built-in rule-based classifier used when no
// external model endpoint is configured. It is deliberately crude; the
// routing engine only needs a category, a tier and the against-authority
// flag, and the caller degrades to Defaults anyway when unsure.
type KeywordClassifier struct{}

// NewKeywordClassifier builds the rule-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

type keywordRule struct {
	category domain.GrievanceCategory
	priority domain.PriorityTier
	words    []string
}

// keywordRules are matched in declaration order; first hit wins.
var keywordRules = []keywordRule{
	{domain.CategoryHarassment, domain.PriorityCritical, []string{"harass", "ragging", "abuse", "threat", "bully"}},
	{domain.CategoryHostel, domain.PriorityMedium, []string{"hostel", "room", "roommate", "dorm"}},
	{domain.CategoryMess, domain.PriorityMedium, []string{"mess", "food", "canteen", "meal"}},
	{domain.CategoryAcademic, domain.PriorityMedium, []string{"exam", "course", "professor", "lecture", "grade", "marks"}},
	{domain.CategoryInfrastructure, domain.PriorityMedium, []string{"wifi", "water", "electricity", "broken", "leak", "repair"}},
	{domain.CategoryAdministration, domain.PriorityMedium, []string{"fee", "certificate", "document", "office", "admission"}},
}

var urgentWords = []string{"urgent", "emergency", "immediately", "danger", "unsafe"}

var authorityWords = []string{"warden", "officer", "staff", "professor", "hod", "administration", "dean"}
var accusationWords = []string{"misbehav", "rude", "corrupt", "bribe", "harass", "threatened", "abused"}

// Categorize applies the keyword rules.
func (k *KeywordClassifier) Categorize(ctx context.Context, text, extra string) (Classification, error) {
	lower := strings.ToLower(text + " " + extra)

	result := Defaults()
	result.Reasoning = "keyword rules"
	for _, rule := range keywordRules {
		if containsAny(lower, rule.words) {
			result.Category = rule.category
			result.Priority = rule.priority
			break
		}
	}
	if containsAny(lower, urgentWords) {
		result.Priority = bumpTier(result.Priority)
	}
	result.AgainstAuthority = containsAny(lower, authorityWords) && containsAny(lower, accusationWords)
	return result, nil
}

// Rephrase collapses whitespace; real rephrasing is the external model's job.
func (k *KeywordClassifier) Rephrase(ctx context.Context, text string) (string, error) {
	return strings.Join(strings.Fields(text), " "), nil
}

// DetectSpam flags very short bodies and link floods.
func (k *KeywordClassifier) DetectSpam(ctx context.Context, text string) (SpamVerdict, error) {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 10 {
		return SpamVerdict{IsSpam: true, Confidence: 0.7, Reason: "body too short"}, nil
	}
	if strings.Count(strings.ToLower(trimmed), "http") >= 3 {
		return SpamVerdict{IsSpam: true, Confidence: 0.8, Reason: "link flood"}, nil
	}
	return SpamVerdict{}, nil
}

func bumpTier(tier domain.PriorityTier) domain.PriorityTier {
	switch tier {
	case domain.PriorityLow:
		return domain.PriorityMedium
	case domain.PriorityMedium:
		return domain.PriorityHigh
	case domain.PriorityHigh, domain.PriorityCritical:
		return domain.PriorityCritical
	default:
		return tier
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
