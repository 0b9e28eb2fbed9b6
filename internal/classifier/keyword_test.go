package classifier

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
)

func TestCategorize(t *testing.T) {
	k := NewKeywordClassifier()

	cases := []struct {
		name         string
		text         string
		wantCategory domain.GrievanceCategory
		wantPriority domain.PriorityTier
	}{
		{"harassment outranks later rules", "my roommate keeps threatening and bullying me", domain.CategoryHarassment, domain.PriorityCritical},
		{"hostel keywords", "the hostel room window is jammed", domain.CategoryHostel, domain.PriorityMedium},
		{"mess keywords", "the canteen food is stale", domain.CategoryMess, domain.PriorityMedium},
		{"academic keywords", "my exam marks were entered wrong", domain.CategoryAcademic, domain.PriorityMedium},
		{"infrastructure keywords", "the wifi has been down for days", domain.CategoryInfrastructure, domain.PriorityMedium},
		{"administration keywords", "my fee receipt certificate is missing", domain.CategoryAdministration, domain.PriorityMedium},
		{"no match defaults to general", "something vague happened", domain.CategoryGeneral, domain.PriorityMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := k.Categorize(context.Background(), tc.text, "")
			require.NoError(t, err)
			assert.Equal(t, tc.wantCategory, result.Category)
			assert.Equal(t, tc.wantPriority, result.Priority)
		})
	}
}

func TestCategorizeUrgencyBump(t *testing.T) {
	k := NewKeywordClassifier()

	result, err := k.Categorize(context.Background(), "urgent: the water supply in the hostel has failed", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityHigh, result.Priority, "urgency lifts MEDIUM to HIGH")

	result, err = k.Categorize(context.Background(), "emergency, someone is threatening students", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityCritical, result.Priority, "CRITICAL never overflows")
}

func TestCategorizeAgainstAuthority(t *testing.T) {
	k := NewKeywordClassifier()

	result, err := k.Categorize(context.Background(), "the warden was very rude when I asked for help", "")
	require.NoError(t, err)
	assert.True(t, result.AgainstAuthority)

	// naming an authority without an accusation is not a complaint against them
	result, err = k.Categorize(context.Background(), "the warden asked me to report the broken window", "")
	require.NoError(t, err)
	assert.False(t, result.AgainstAuthority)
}

func TestRephraseCollapsesWhitespace(t *testing.T) {
	k := NewKeywordClassifier()
	out, err := k.Rephrase(context.Background(), "  too   many\n\nspaces here ")
	require.NoError(t, err)
	assert.Equal(t, "too many spaces here", out)
}

func TestDetectSpam(t *testing.T) {
	k := NewKeywordClassifier()

	verdict, err := k.DetectSpam(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
	assert.Equal(t, 0.7, verdict.Confidence)

	verdict, err = k.DetectSpam(context.Background(), "visit http://a.example http://b.example http://c.example now")
	require.NoError(t, err)
	assert.True(t, verdict.IsSpam)
	assert.Equal(t, 0.8, verdict.Confidence)

	verdict, err = k.DetectSpam(context.Background(), "the mess served undercooked rice again today")
	require.NoError(t, err)
	assert.False(t, verdict.IsSpam)
}
