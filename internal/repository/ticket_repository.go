package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	SubmitterID         *string
	AssignedAuthorityID *string
	Department          *string
	Categories          []domain.GrievanceCategory
	Statuses            []domain.TicketStatus
	Tiers               []domain.PriorityTier
	Visibility          *domain.TicketVisibility
	CreatedFrom         *time.Time
	CreatedTo           *time.Time
	Limit               int
	Offset              int
}

// TicketRepository encapsulates ticket persistence. UpdateStatusCAS is the
// compare-and-swap guard serializing status writes on the same ticket.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
	UpdateStatusCAS(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error
	UpdatePriority(ctx context.Context, id string, upvotes, downvotes int, score float64, tier domain.PriorityTier) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, external_key, submitter_user_id, category, department, subject, body,
               rephrased_body, visibility, status, base_priority, priority_score, priority_tier,
               assigned_authority_id, against_authority, upvotes, downvotes,
               created_at, updated_at, last_status_change_at, resolved_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, submitter_user_id, category, department, subject, body,
            rephrased_body, visibility, status, base_priority, priority_score, priority_tier,
            assigned_authority_id, against_authority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at, last_status_change_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.SubmitterID,
		ticket.Category,
		ticket.Department,
		ticket.Subject,
		ticket.Body,
		ticket.RephrasedBody,
		ticket.Visibility,
		ticket.Status,
		ticket.BasePriority,
		ticket.PriorityScore,
		ticket.PriorityTier,
		ticket.AssignedAuthorityID,
		ticket.AgainstAuthority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt, &ticket.LastStatusChangeAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

func (r *ticketRepository) GetByExternalKey(ctx context.Context, key string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE external_key=$1`, key)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, arg).Scan(ticketFields(&ticket)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// UpdateStatusCAS writes the ticket's status, assignment and timestamps only
// when the stored status still equals expected. A failed precondition is
// reported as pgx.ErrNoRows so callers can surface a retryable conflict.
func (r *ticketRepository) UpdateStatusCAS(ctx context.Context, ticket *domain.Ticket, expected domain.TicketStatus) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_authority_id=$2, last_status_change_at=$3,
            resolved_at=$4, updated_at=NOW()
        WHERE id=$5 AND status=$6`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Status,
		ticket.AssignedAuthorityID,
		ticket.LastStatusChangeAt,
		ticket.ResolvedAt,
		ticket.ID,
		expected,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdatePriority(ctx context.Context, id string, upvotes, downvotes int, score float64, tier domain.PriorityTier) error {
	const query = `
        UPDATE tickets SET upvotes=$1, downvotes=$2, priority_score=$3, priority_tier=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query, upvotes, downvotes, score, tier, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListStale returns non-terminal tickets whose last status change predates
// cutoff, oldest first, for the escalation sweep.
func (r *ticketRepository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE status NOT IN ('CLOSED') AND last_status_change_at < $1
        ORDER BY last_status_change_at
        LIMIT %d`, ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_user_id=$%d", len(args)))
	}
	if filter.AssignedAuthorityID != nil {
		args = append(args, *filter.AssignedAuthorityID)
		clauses = append(clauses, fmt.Sprintf("assigned_authority_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if filter.Visibility != nil {
		args = append(args, *filter.Visibility)
		clauses = append(clauses, fmt.Sprintf("visibility=$%d", len(args)))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Tiers) > 0 {
		placeholders := make([]string, len(filter.Tiers))
		for i, tier := range filter.Tiers {
			args = append(args, tier)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority_tier IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY priority_score DESC, updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func ticketFields(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.SubmitterID,
		&ticket.Category,
		&ticket.Department,
		&ticket.Subject,
		&ticket.Body,
		&ticket.RephrasedBody,
		&ticket.Visibility,
		&ticket.Status,
		&ticket.BasePriority,
		&ticket.PriorityScore,
		&ticket.PriorityTier,
		&ticket.AssignedAuthorityID,
		&ticket.AgainstAuthority,
		&ticket.Upvotes,
		&ticket.Downvotes,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.LastStatusChangeAt,
		&ticket.ResolvedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
