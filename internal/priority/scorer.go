package priority

import (
	"github.com/spec-kit/grievance-service/internal/domain"
)

// VoteMultiplier weights the aggregate vote balance in the score.
const VoteMultiplier = 2.0

// baseScores is the fixed 4-tier base weight table. The same values serve as
// tier thresholds when deriving the tier from a score.
var baseScores = map[domain.PriorityTier]float64{
	domain.PriorityLow:      10,
	domain.PriorityMedium:   50,
	domain.PriorityHigh:     100,
	domain.PriorityCritical: 200,
}

// BaseScore returns the base weight for a tier, defaulting to MEDIUM for
// unknown tiers so a bad classifier value never zeroes a ticket.
func BaseScore(tier domain.PriorityTier) float64 {
	if score, ok := baseScores[tier]; ok {
		return score
	}
	return baseScores[domain.PriorityMedium]
}

// TierForScore derives the tier implied by a score, highest qualifying wins.
func TierForScore(score float64) domain.PriorityTier {
	switch {
	case score >= baseScores[domain.PriorityCritical]:
		return domain.PriorityCritical
	case score >= baseScores[domain.PriorityHigh]:
		return domain.PriorityHigh
	case score >= baseScores[domain.PriorityMedium]:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Recompute returns the score and tier for a ticket's base priority and vote
// tallies. Pure and idempotent: no state beyond the inputs.
func Recompute(base domain.PriorityTier, upvotes, downvotes int) (float64, domain.PriorityTier) {
	score := BaseScore(base) + float64(upvotes-downvotes)*VoteMultiplier
	if score < 0 {
		score = 0
	}
	return score, TierForScore(score)
}
