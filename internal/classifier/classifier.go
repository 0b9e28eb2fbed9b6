package classifier

import (
	"context"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Classification is the categorize contract's result.
type Classification struct {
	Category         domain.GrievanceCategory `json:"category"`
	Priority         domain.PriorityTier      `json:"priority"`
	AgainstAuthority bool                     `json:"against_authority"`
	Reasoning        string                   `json:"reasoning,omitempty"`
}

// SpamVerdict is the spam-check contract's result.
type SpamVerdict struct {
	IsSpam     bool    `json:"is_spam"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Classifier is the external language-model contract this core consumes. Any
// implementation failure must be absorbed by the caller via Defaults so
// ticket creation never blocks on classification.
type Classifier interface {
	Categorize(ctx context.Context, text, extra string) (Classification, error)
	Rephrase(ctx context.Context, text string) (string, error)
	DetectSpam(ctx context.Context, text string) (SpamVerdict, error)
}

// Defaults is the fixed safe classification used whenever the classifier
// fails or is unavailable.
func Defaults() Classification {
	return Classification{
		Category:         domain.CategoryGeneral,
		Priority:         domain.PriorityMedium,
		AgainstAuthority: false,
		Reasoning:        "classifier unavailable, defaults applied",
	}
}
