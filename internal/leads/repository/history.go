package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"hvac_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StatusHistoryEntry is one immutable row of the lead status audit trail.
type StatusHistoryEntry struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	PreviousStatus *domain.Status
	NewStatus      domain.Status
	Actor          *string
	Reason         string
	Notes          map[string]any
	CreatedAt      time.Time
}

// Step returns the fields the history path invariant is checked on.
func (e StatusHistoryEntry) Step() domain.HistoryStep {
	return domain.HistoryStep{
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Reason:         e.Reason,
		Actor:          e.Actor,
	}
}

type AppendHistoryParams struct {
	LeadID         uuid.UUID
	PreviousStatus *domain.Status
	NewStatus      domain.Status
	Actor          *string
	Reason         string
	Notes          map[string]any
}

// Conversion records the project a won lead turned into.
type Conversion struct {
	At        time.Time
	ProjectID *uuid.UUID
}

// TransitionParams describes a status change applied with compare-and-swap
// semantics: it only succeeds while the lead still has status From.
type TransitionParams struct {
	LeadID     uuid.UUID
	From       domain.Status
	To         domain.Status
	Actor      *string
	Reason     string
	Notes      map[string]any
	Conversion *Conversion
}

// ApplyTransition updates the lead status and appends the matching history
// entry in one transaction. It returns ErrConflict when the lead's status is
// no longer params.From and ErrNotFound when the lead does not exist. Leaving
// won clears the conversion fields.
func (r *Repository) ApplyTransition(ctx context.Context, params TransitionParams) (Lead, StatusHistoryEntry, error) {
	var (
		lead  Lead
		entry StatusHistoryEntry
	)

	setConversion := params.Conversion != nil && params.To == domain.StatusWon
	var convertedAt *time.Time
	var projectID *uuid.UUID
	if setConversion {
		at := params.Conversion.At
		convertedAt = &at
		projectID = params.Conversion.ProjectID
	}

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		lead, err = scanLead(tx.QueryRow(ctx, `
			UPDATE leads
			SET status = $3,
				updated_at = now(),
				converted_at = CASE
					WHEN $4::boolean THEN $5::timestamptz
					WHEN $3 <> 'won' THEN NULL
					ELSE converted_at END,
				converted_to_project_id = CASE
					WHEN $4::boolean THEN $6::uuid
					WHEN $3 <> 'won' THEN NULL
					ELSE converted_to_project_id END
			WHERE id = $1 AND status = $2
			RETURNING `+leadColumns,
			params.LeadID, string(params.From), string(params.To), setConversion, convertedAt, projectID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyMissedUpdate(ctx, tx, params.LeadID)
		}
		if err != nil {
			return err
		}

		from := params.From
		entry, err = appendStatusHistory(ctx, tx, AppendHistoryParams{
			LeadID:         params.LeadID,
			PreviousStatus: &from,
			NewStatus:      params.To,
			Actor:          params.Actor,
			Reason:         params.Reason,
			Notes:          params.Notes,
		})
		return err
	})
	if err != nil {
		return Lead{}, StatusHistoryEntry{}, err
	}
	return lead, entry, nil
}

func classifyMissedUpdate(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// appendStatusHistory inserts an entry inside tx. created_at is forced to be
// strictly after the lead's previous entry.
func appendStatusHistory(ctx context.Context, tx pgx.Tx, params AppendHistoryParams) (StatusHistoryEntry, error) {
	notes := params.Notes
	if notes == nil {
		notes = map[string]any{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return StatusHistoryEntry{}, err
	}

	var previous *string
	if params.PreviousStatus != nil {
		p := string(*params.PreviousStatus)
		previous = &p
	}

	entry := StatusHistoryEntry{
		LeadID:         params.LeadID,
		PreviousStatus: params.PreviousStatus,
		NewStatus:      params.NewStatus,
		Actor:          params.Actor,
		Reason:         params.Reason,
		Notes:          notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO lead_status_history (lead_id, previous_status, new_status, actor, reason, notes, created_at)
		SELECT $1, $2, $3, $4, $5, $6,
			GREATEST(clock_timestamp(), COALESCE(MAX(created_at) + interval '1 microsecond', clock_timestamp()))
		FROM lead_status_history
		WHERE lead_id = $1
		RETURNING id, created_at
	`, params.LeadID, previous, string(params.NewStatus), params.Actor, params.Reason, notesJSON).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return StatusHistoryEntry{}, err
	}
	return entry, nil
}

// ListStatusHistory returns a lead's history in creation order.
func (r *Repository) ListStatusHistory(ctx context.Context, leadID uuid.UUID) ([]StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, previous_status, new_status, actor, reason, notes, created_at
		FROM lead_status_history
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]StatusHistoryEntry, 0)
	for rows.Next() {
		var (
			entry     StatusHistoryEntry
			previous  *string
			newStatus string
			notesJSON []byte
		)
		if err := rows.Scan(&entry.ID, &entry.LeadID, &previous, &newStatus, &entry.Actor, &entry.Reason, &notesJSON, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if previous != nil {
			p := domain.Status(*previous)
			entry.PreviousStatus = &p
		}
		entry.NewStatus = domain.Status(newStatus)
		entry.Notes = map[string]any{}
		if len(notesJSON) > 0 {
			if err := json.Unmarshal(notesJSON, &entry.Notes); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}
