package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

type voteFixture struct {
	service    *VoteService
	tickets    *memTicketRepo
	votes      *memVoteRepo
	dispatcher *captureDispatcher
}

func newVoteFixture(t *testing.T) *voteFixture {
	t.Helper()
	tickets := newMemTicketRepo()
	votes := newMemVoteRepo()
	dispatcher := &captureDispatcher{}
	svc := NewVoteService(VoteDependencies{
		TicketRepo: tickets,
		VoteRepo:   votes,
		Dispatcher: dispatcher,
	})
	return &voteFixture{service: svc, tickets: tickets, votes: votes, dispatcher: dispatcher}
}

func (fx *voteFixture) seedTicket(t *testing.T, visibility domain.TicketVisibility) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		SubmitterID:   "owner",
		Category:      domain.CategoryGeneral,
		Subject:       "subject",
		Body:          "body",
		Visibility:    visibility,
		Status:        domain.TicketStatusRaised,
		BasePriority:  domain.PriorityMedium,
		PriorityScore: 50,
		PriorityTier:  domain.PriorityMedium,
	}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))
	return ticket
}

func TestCastVoteRecomputesPriority(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	updated, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Upvotes)
	assert.Equal(t, 0, updated.Downvotes)
	assert.Equal(t, 52.0, updated.PriorityScore)

	published := fx.dispatcher.byType(events.EventVoteCast)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.VoteCastPayload)
	require.NotNil(t, payload.VoteType)
	assert.Equal(t, domain.VoteUp, *payload.VoteType)
}

func TestCastVoteDuplicateRejected(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	_, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	require.NoError(t, err)

	_, err = fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "DUPLICATE_VOTE"))

	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Upvotes, "a repeated vote never double counts")
}

func TestCastVoteSwitchDirection(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	_, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	require.NoError(t, err)

	updated, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Upvotes)
	assert.Equal(t, 1, updated.Downvotes)
	assert.Equal(t, 48.0, updated.PriorityScore)
}

func TestCastVoteInvalidType(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	_, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteType("SIDEWAYS"))
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestCastVotePrivateTicket(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPrivate)

	_, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	assert.True(t, apperrors.HasCode(err, "PERMISSION_DENIED"))

	// the submitter can still vote their own private ticket
	_, err = fx.service.CastVote(context.Background(), "owner", ticket.ID, domain.VoteUp)
	assert.NoError(t, err)
}

func TestRemoveVote(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	_, err := fx.service.CastVote(context.Background(), "voter-1", ticket.ID, domain.VoteUp)
	require.NoError(t, err)

	updated, err := fx.service.RemoveVote(context.Background(), "voter-1", ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Upvotes)
	assert.Equal(t, 50.0, updated.PriorityScore)

	_, err = fx.service.RemoveVote(context.Background(), "voter-1", ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "NO_SUCH_VOTE"))
}

func TestCastVoteTicketNotFound(t *testing.T) {
	fx := newVoteFixture(t)

	_, err := fx.service.CastVote(context.Background(), "voter-1", "missing", domain.VoteUp)
	assert.True(t, apperrors.HasCode(err, "NOT_FOUND"))
}

func TestConcurrentVotersConsistentTally(t *testing.T) {
	fx := newVoteFixture(t)
	ticket := fx.seedTicket(t, domain.VisibilityPublic)

	const voters = 20
	var wg sync.WaitGroup
	wg.Add(voters)
	for i := 0; i < voters; i++ {
		go func(n int) {
			defer wg.Done()
			_, _ = fx.service.CastVote(context.Background(), fmt.Sprintf("voter-%d", n), ticket.ID, domain.VoteUp)
		}(i)
	}
	wg.Wait()

	stored, err := fx.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	up, down, err := fx.votes.TallyForTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, up, stored.Upvotes, "stored tally matches the vote rows")
	assert.Equal(t, 0, down)
	assert.Equal(t, 50.0+float64(up)*2, stored.PriorityScore)
}
