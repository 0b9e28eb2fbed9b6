package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// AuthorityRepository encapsulates authority persistence. It also satisfies
// routing.Directory.
type AuthorityRepository interface {
	Create(ctx context.Context, authority *domain.Authority) error
	GetByID(ctx context.Context, id string) (*domain.Authority, error)
	GetByEmail(ctx context.Context, email string) (*domain.Authority, error)
	ListActiveByType(ctx context.Context, t domain.AuthorityType) ([]domain.Authority, error)
	ListActiveAbove(ctx context.Context, level int) ([]domain.Authority, error)
	Deactivate(ctx context.Context, id string) error
}

type authorityRepository struct {
	pool *pgxpool.Pool
}

// NewAuthorityRepository instantiates repository.
func NewAuthorityRepository(pool *pgxpool.Pool) AuthorityRepository {
	return &authorityRepository{pool: pool}
}

const authorityColumns = `id, name, email, password_hash, type, level, department, is_active, created_at, updated_at`

func (r *authorityRepository) Create(ctx context.Context, authority *domain.Authority) error {
	const query = `
        INSERT INTO authorities (name, email, password_hash, type, level, department, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		authority.Name,
		authority.Email,
		authority.PasswordHash,
		authority.Type,
		authority.Level,
		authority.Department,
		authority.Active,
	).Scan(&authority.ID, &authority.CreatedAt, &authority.UpdatedAt)
}

func (r *authorityRepository) GetByID(ctx context.Context, id string) (*domain.Authority, error) {
	return r.fetchSingle(ctx, `SELECT `+authorityColumns+` FROM authorities WHERE id=$1`, id)
}

func (r *authorityRepository) GetByEmail(ctx context.Context, email string) (*domain.Authority, error) {
	return r.fetchSingle(ctx, `SELECT `+authorityColumns+` FROM authorities WHERE email=$1`, email)
}

func (r *authorityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Authority, error) {
	var authority domain.Authority
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&authority.ID,
		&authority.Name,
		&authority.Email,
		&authority.PasswordHash,
		&authority.Type,
		&authority.Level,
		&authority.Department,
		&authority.Active,
		&authority.CreatedAt,
		&authority.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &authority, nil
}

func (r *authorityRepository) ListActiveByType(ctx context.Context, t domain.AuthorityType) ([]domain.Authority, error) {
	const query = `
        SELECT ` + authorityColumns + `
        FROM authorities WHERE type=$1 AND is_active ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, t)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuthorities(rows)
}

func (r *authorityRepository) ListActiveAbove(ctx context.Context, level int) ([]domain.Authority, error) {
	const query = `
        SELECT ` + authorityColumns + `
        FROM authorities WHERE level > $1 AND is_active ORDER BY level, created_at`
	rows, err := r.pool.Query(ctx, query, level)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuthorities(rows)
}

func (r *authorityRepository) Deactivate(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE authorities SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAuthorities(rows pgx.Rows) ([]domain.Authority, error) {
	var result []domain.Authority
	for rows.Next() {
		var authority domain.Authority
		if err := rows.Scan(
			&authority.ID,
			&authority.Name,
			&authority.Email,
			&authority.PasswordHash,
			&authority.Type,
			&authority.Level,
			&authority.Department,
			&authority.Active,
			&authority.CreatedAt,
			&authority.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, authority)
	}
	return result, rows.Err()
}
