// Package repository reads the quotation and project records consulted by
// project validation.
package repository

import (
	"context"
	"errors"

	"hvac_crm_backend/internal/projects/validation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetQuotation(ctx context.Context, id uuid.UUID) (validation.Quotation, error) {
	var q validation.Quotation
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, status, total_amount::float8
		FROM quotations
		WHERE id = $1`, id,
	).Scan(&q.ID, &q.CustomerID, &q.Status, &q.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return validation.Quotation{}, validation.ErrNotFound
	}
	return q, err
}

// GetProjectByQuotation returns the oldest project created from quotationID.
func (r *Repository) GetProjectByQuotation(ctx context.Context, quotationID uuid.UUID) (validation.Project, error) {
	var p validation.Project
	err := r.pool.QueryRow(ctx, `
		SELECT id, quotation_id, customer_id, status
		FROM projects
		WHERE quotation_id = $1
		ORDER BY created_at
		LIMIT 1`, quotationID,
	).Scan(&p.ID, &p.QuotationID, &p.CustomerID, &p.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return validation.Project{}, validation.ErrNotFound
	}
	return p, err
}

var _ validation.Store = (*Repository)(nil)
