package pgsql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
)

// PgxAuditRepository persists the append-only audit log. Events are never
// updated or deleted.
type PgxAuditRepository struct {
	db *pgxpool.Pool
}

func newPgxAuditRepository(db *pgxpool.Pool) portsrepo.AuditRepository {
	return &PgxAuditRepository{db: db}
}

// Ensure PgxAuditRepository implements portsrepo.AuditRepository
var _ portsrepo.AuditRepository = (*PgxAuditRepository)(nil)

func (r *PgxAuditRepository) SaveAuditEvent(ctx context.Context, event domain.AuditEvent) error {
	var detailsJSON []byte
	if len(event.Details) > 0 {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit event details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_events (audit_event_id, organization_id, claim_id, actor_id, action, details, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);`
	_, err := r.db.Exec(ctx, query,
		event.AuditEventID,
		event.OrganizationID,
		event.ClaimID,
		event.ActorID,
		event.Action,
		detailsJSON,
		event.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

func (r *PgxAuditRepository) ListAuditEventsByClaim(ctx context.Context, claimID string) ([]domain.AuditEvent, error) {
	query := `
		SELECT audit_event_id, organization_id, claim_id, actor_id, action, details, recorded_at
		FROM audit_events
		WHERE claim_id = $1
		ORDER BY recorded_at, audit_event_id;`
	rows, err := r.db.Query(ctx, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var event domain.AuditEvent
		var detailsJSON []byte
		err := rows.Scan(
			&event.AuditEventID,
			&event.OrganizationID,
			&event.ClaimID,
			&event.ActorID,
			&event.Action,
			&detailsJSON,
			&event.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event row: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to decode audit event details: %w", err)
			}
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating audit event rows: %w", rows.Err())
	}
	return events, nil
}
