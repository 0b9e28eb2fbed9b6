package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// VoteRepository encapsulates vote persistence. The (ticket, voter) pair is
// unique; vote changes mutate the row in place.
type VoteRepository interface {
	Create(ctx context.Context, vote *domain.Vote) error
	GetByTicketVoter(ctx context.Context, ticketID, voterID string) (*domain.Vote, error)
	UpdateType(ctx context.Context, id string, t domain.VoteType) error
	Delete(ctx context.Context, id string) error
	TallyForTicket(ctx context.Context, ticketID string) (upvotes, downvotes int, err error)
}

type voteRepository struct {
	pool *pgxpool.Pool
}

// NewVoteRepository instantiates repository.
func NewVoteRepository(pool *pgxpool.Pool) VoteRepository {
	return &voteRepository{pool: pool}
}

func (r *voteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	const query = `
        INSERT INTO ticket_votes (ticket_id, voter_id, vote_type)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		vote.TicketID,
		vote.VoterID,
		vote.Type,
	).Scan(&vote.ID, &vote.CreatedAt, &vote.UpdatedAt)
}

func (r *voteRepository) GetByTicketVoter(ctx context.Context, ticketID, voterID string) (*domain.Vote, error) {
	const query = `
        SELECT id, ticket_id, voter_id, vote_type, created_at, updated_at
        FROM ticket_votes WHERE ticket_id=$1 AND voter_id=$2`
	var vote domain.Vote
	if err := r.pool.QueryRow(ctx, query, ticketID, voterID).Scan(
		&vote.ID,
		&vote.TicketID,
		&vote.VoterID,
		&vote.Type,
		&vote.CreatedAt,
		&vote.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) UpdateType(ctx context.Context, id string, t domain.VoteType) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE ticket_votes SET vote_type=$1, updated_at=NOW() WHERE id=$2`, t, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_votes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *voteRepository) TallyForTicket(ctx context.Context, ticketID string) (int, int, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE vote_type='UP'),
            COUNT(*) FILTER (WHERE vote_type='DOWN')
        FROM ticket_votes WHERE ticket_id=$1`
	var upvotes, downvotes int
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&upvotes, &downvotes); err != nil {
		return 0, 0, err
	}
	return upvotes, downvotes, nil
}
