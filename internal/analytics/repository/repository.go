// Package repository reads lead records for conversion analytics.
package repository

import (
	"context"
	"time"

	"hvac_crm_backend/internal/analytics/service"
	"hvac_crm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListLeadsForConversion returns leads created in [start, end). Project value
// comes from the converted project's budget.
func (r *Repository) ListLeadsForConversion(ctx context.Context, start, end time.Time) ([]service.LeadRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.status, l.service_type, l.source, l.created_at, l.converted_at, p.budget::float8
		FROM leads l
		LEFT JOIN projects p ON p.id = l.converted_to_project_id
		WHERE l.created_at >= $1 AND l.created_at < $2
		ORDER BY l.created_at`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]service.LeadRecord, 0)
	for rows.Next() {
		var rec service.LeadRecord
		var status string
		if err := rows.Scan(&rec.ID, &status, &rec.ServiceType, &rec.Source, &rec.CreatedAt, &rec.ConvertedAt, &rec.ProjectValue); err != nil {
			return nil, err
		}
		rec.Status = domain.Status(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

var _ service.Store = (*Repository)(nil)
