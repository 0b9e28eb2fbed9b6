package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/priority"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// VoteService manages peer votes and the resulting priority recomputation.
// All vote work for one ticket runs under a per-ticket lock: the
// read-modify-write on tallies is not safe under concurrent writers.
type VoteService struct {
	tickets    repository.TicketRepository
	votes      repository.VoteRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	locks      *keyedMutex
}

// VoteDependencies bundles collaborators.
type VoteDependencies struct {
	TicketRepo repository.TicketRepository
	VoteRepo   repository.VoteRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewVoteService constructs the service.
func NewVoteService(deps VoteDependencies) *VoteService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteService{
		tickets:    deps.TicketRepo,
		votes:      deps.VoteRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		locks:      newKeyedMutex(),
	}
}

// CastVote records or changes a vote. Repeating the same vote is a
// DUPLICATE_VOTE conflict, never a double count. Score and tier are
// recomputed from the stored tallies afterward.
func (s *VoteService) CastVote(ctx context.Context, voterID, ticketID string, voteType domain.VoteType) (*domain.Ticket, error) {
	if voteType != domain.VoteUp && voteType != domain.VoteDown {
		return nil, apperrors.NewValidationError("vote type must be UP or DOWN", nil)
	}

	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.votableTicket(ctx, voterID, ticketID)
	if err != nil {
		return nil, err
	}

	existing, err := s.votes.GetByTicketVoter(ctx, ticketID, voterID)
	switch {
	case err == nil:
		if existing.Type == voteType {
			return nil, apperrors.NewDuplicateVote(ticketID)
		}
		if err := s.votes.UpdateType(ctx, existing.ID, voteType); err != nil {
			return nil, apperrors.MapError(err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		vote := &domain.Vote{TicketID: ticketID, VoterID: voterID, Type: voteType}
		if err := s.votes.Create(ctx, vote); err != nil {
			return nil, apperrors.MapError(err)
		}
	default:
		return nil, apperrors.MapError(err)
	}

	if err := s.recompute(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishVote(ctx, voterID, ticket, &voteType)
	return ticket, nil
}

// RemoveVote deletes the voter's row for the ticket and recomputes.
func (s *VoteService) RemoveVote(ctx context.Context, voterID, ticketID string) (*domain.Ticket, error) {
	s.locks.Lock(ticketID)
	defer s.locks.Unlock(ticketID)

	ticket, err := s.votableTicket(ctx, voterID, ticketID)
	if err != nil {
		return nil, err
	}

	existing, err := s.votes.GetByTicketVoter(ctx, ticketID, voterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNoSuchVote(ticketID)
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.votes.Delete(ctx, existing.ID); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.recompute(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishVote(ctx, voterID, ticket, nil)
	return ticket, nil
}

func (s *VoteService) votableTicket(ctx context.Context, voterID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.Visibility != domain.VisibilityPublic && ticket.SubmitterID != voterID {
		return nil, apperrors.NewPermissionDenied("ticket is private")
	}
	return ticket, nil
}

// recompute pulls the tallies and rewrites score and tier. Votes never touch
// status or assignment.
func (s *VoteService) recompute(ctx context.Context, ticket *domain.Ticket) error {
	upvotes, downvotes, err := s.votes.TallyForTicket(ctx, ticket.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	score, tier := priority.Recompute(ticket.BasePriority, upvotes, downvotes)
	if err := s.tickets.UpdatePriority(ctx, ticket.ID, upvotes, downvotes, score, tier); err != nil {
		return apperrors.MapError(err)
	}
	ticket.Upvotes = upvotes
	ticket.Downvotes = downvotes
	ticket.PriorityScore = score
	ticket.PriorityTier = tier
	return nil
}

func (s *VoteService) publishVote(ctx context.Context, voterID string, ticket *domain.Ticket, voteType *domain.VoteType) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventVoteCast,
		TicketID: ticket.ID,
		Actor:    eventActor(UserActor(voterID)),
		Payload: events.VoteCastPayload{
			VoteType:      voteType,
			Upvotes:       ticket.Upvotes,
			Downvotes:     ticket.Downvotes,
			PriorityScore: ticket.PriorityScore,
			PriorityTier:  ticket.PriorityTier,
		},
	})
}
