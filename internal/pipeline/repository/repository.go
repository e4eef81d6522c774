// Package repository reads the per-customer records behind the pipeline view.
package repository

import (
	"context"

	"hvac_crm_backend/internal/pipeline/service"

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

func (r *Repository) CustomerExists(ctx context.Context, customerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID).Scan(&exists)
	return exists, err
}

func (r *Repository) ListLeads(ctx context.Context, customerID uuid.UUID) ([]service.LeadRef, error) {
	return collect(ctx, r.pool, `SELECT id, status FROM leads WHERE customer_id = $1 ORDER BY created_at`, customerID,
		func(row pgx.CollectableRow) (service.LeadRef, error) {
			var ref service.LeadRef
			err := row.Scan(&ref.ID, &ref.Status)
			return ref, err
		})
}

func (r *Repository) ListQuotations(ctx context.Context, customerID uuid.UUID) ([]service.QuotationRef, error) {
	return collect(ctx, r.pool, `SELECT id, status FROM quotations WHERE customer_id = $1 ORDER BY created_at`, customerID,
		func(row pgx.CollectableRow) (service.QuotationRef, error) {
			var ref service.QuotationRef
			err := row.Scan(&ref.ID, &ref.Status)
			return ref, err
		})
}

func (r *Repository) ListProjects(ctx context.Context, customerID uuid.UUID) ([]service.ProjectRef, error) {
	return collect(ctx, r.pool, `SELECT id, status FROM projects WHERE customer_id = $1 ORDER BY created_at`, customerID,
		func(row pgx.CollectableRow) (service.ProjectRef, error) {
			var ref service.ProjectRef
			err := row.Scan(&ref.ID, &ref.Status)
			return ref, err
		})
}

func (r *Repository) ListInvoices(ctx context.Context, customerID uuid.UUID) ([]service.InvoiceRef, error) {
	return collect(ctx, r.pool, `SELECT id, status, due_date FROM invoices WHERE customer_id = $1 ORDER BY created_at`, customerID,
		func(row pgx.CollectableRow) (service.InvoiceRef, error) {
			var ref service.InvoiceRef
			err := row.Scan(&ref.ID, &ref.Status, &ref.DueDate)
			return ref, err
		})
}

func (r *Repository) ListPayments(ctx context.Context, customerID uuid.UUID) ([]service.PaymentRef, error) {
	return collect(ctx, r.pool, `SELECT id, status FROM payments WHERE customer_id = $1 ORDER BY created_at`, customerID,
		func(row pgx.CollectableRow) (service.PaymentRef, error) {
			var ref service.PaymentRef
			err := row.Scan(&ref.ID, &ref.Status)
			return ref, err
		})
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, customerID uuid.UUID, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

var _ service.Store = (*Repository)(nil)
