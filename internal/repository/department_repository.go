package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// DepartmentRepository encapsulates department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, department *domain.Department) error
	GetByCode(ctx context.Context, code string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository instantiates repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, department *domain.Department) error {
	const query = `
        INSERT INTO departments (code, name, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		department.Code,
		department.Name,
		department.Active,
	).Scan(&department.ID, &department.CreatedAt, &department.UpdatedAt)
}

func (r *departmentRepository) GetByCode(ctx context.Context, code string) (*domain.Department, error) {
	const query = `SELECT id, code, name, is_active, created_at, updated_at FROM departments WHERE code=$1`
	var department domain.Department
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&department.ID,
		&department.Code,
		&department.Name,
		&department.Active,
		&department.CreatedAt,
		&department.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, is_active, created_at, updated_at FROM departments ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDepartments(rows)
}

func scanDepartments(rows pgx.Rows) ([]domain.Department, error) {
	var result []domain.Department
	for rows.Next() {
		var department domain.Department
		if err := rows.Scan(
			&department.ID,
			&department.Code,
			&department.Name,
			&department.Active,
			&department.CreatedAt,
			&department.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, department)
	}
	return result, rows.Err()
}
