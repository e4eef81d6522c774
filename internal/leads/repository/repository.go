package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hvac_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("lead not found")
	// ErrConflict means the lead no longer had the expected status when the
	// write was applied.
	ErrConflict = errors.New("lead status changed concurrently")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                   uuid.UUID
	CustomerID           *uuid.UUID
	Name                 string
	Email                *string
	Phone                *string
	ServiceType          string
	Source               string
	Status               domain.Status
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ConvertedAt          *time.Time
	ConvertedToProjectID *uuid.UUID
}

type CreateLeadParams struct {
	CustomerID  *uuid.UUID
	Name        string
	Email       *string
	Phone       *string
	ServiceType string
	Source      string
	Actor       *string
}

// LeadFilter narrows QueryLeads. Zero values are ignored.
type LeadFilter struct {
	CreatedFrom *time.Time // inclusive
	CreatedTo   *time.Time // exclusive
	Statuses    []domain.Status
	ServiceType string
	Source      string
	CustomerID  *uuid.UUID
}

const leadColumns = `id, customer_id, name, email, phone, service_type, source, status,
	created_at, updated_at, converted_at, converted_to_project_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	var status string
	if err := row.Scan(
		&lead.ID, &lead.CustomerID, &lead.Name, &lead.Email, &lead.Phone,
		&lead.ServiceType, &lead.Source, &status,
		&lead.CreatedAt, &lead.UpdatedAt, &lead.ConvertedAt, &lead.ConvertedToProjectID,
	); err != nil {
		return Lead{}, err
	}
	lead.Status = domain.Status(status)
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// CreateLead inserts a lead in the initial status together with its creation
// history entry.
func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (Lead, error) {
	var lead Lead
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		lead, err = scanLead(tx.QueryRow(ctx, `
			INSERT INTO leads (customer_id, name, email, phone, service_type, source, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING `+leadColumns,
			params.CustomerID, params.Name, params.Email, params.Phone,
			params.ServiceType, params.Source, string(domain.InitialStatus),
		))
		if err != nil {
			return err
		}

		_, err = appendStatusHistory(ctx, tx, AppendHistoryParams{
			LeadID:    lead.ID,
			NewStatus: domain.InitialStatus,
			Actor:     params.Actor,
			Reason:    domain.ReasonLeadCreated,
		})
		return err
	})
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// QueryLeads returns leads matching filter ordered by creation time.
func (r *Repository) QueryLeads(ctx context.Context, filter LeadFilter) ([]Lead, error) {
	where, args := buildLeadFilter(filter)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at ASC, id ASC`, leadColumns, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func buildLeadFilter(filter LeadFilter) (string, []any) {
	clauses := []string{"TRUE"}
	args := make([]any, 0, 6)
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CreatedFrom != nil {
		clauses = append(clauses, "created_at >= "+next(*filter.CreatedFrom))
	}
	if filter.CreatedTo != nil {
		clauses = append(clauses, "created_at < "+next(*filter.CreatedTo))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, "status = ANY("+next(statuses)+")")
	}
	if filter.ServiceType != "" {
		clauses = append(clauses, "service_type = "+next(filter.ServiceType))
	}
	if filter.Source != "" {
		clauses = append(clauses, "source = "+next(filter.Source))
	}
	if filter.CustomerID != nil {
		clauses = append(clauses, "customer_id = "+next(*filter.CustomerID))
	}

	return strings.Join(clauses, " AND "), args
}
