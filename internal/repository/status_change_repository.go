package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// StatusChangeRepository stores the append-only transition audit trail.
type StatusChangeRepository interface {
	Create(ctx context.Context, record *domain.StatusChangeRecord) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.StatusChangeRecord, error)
}

type statusChangeRepository struct {
	pool *pgxpool.Pool
}

// NewStatusChangeRepository instantiates repository.
func NewStatusChangeRepository(pool *pgxpool.Pool) StatusChangeRepository {
	return &statusChangeRepository{pool: pool}
}

func (r *statusChangeRepository) Create(ctx context.Context, record *domain.StatusChangeRecord) error {
	const query = `
        INSERT INTO ticket_status_changes (ticket_id, old_status, new_status, actor_type, actor_id, reason)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		record.TicketID,
		record.OldStatus,
		record.NewStatus,
		record.ActorType,
		record.ActorID,
		record.Reason,
	).Scan(&record.ID, &record.CreatedAt)
}

func (r *statusChangeRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.StatusChangeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, old_status, new_status, actor_type, actor_id, reason, created_at
        FROM ticket_status_changes
        WHERE ticket_id=$1
        ORDER BY created_at
        LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusChangeRecord
	for rows.Next() {
		var record domain.StatusChangeRecord
		if err := rows.Scan(
			&record.ID,
			&record.TicketID,
			&record.OldStatus,
			&record.NewStatus,
			&record.ActorType,
			&record.ActorID,
			&record.Reason,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}
