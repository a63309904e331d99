package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openclaims/expense_claims_app/internal/apperrors"
	"github.com/openclaims/expense_claims_app/internal/core/domain"
	portsrepo "github.com/openclaims/expense_claims_app/internal/core/ports/repositories"
)

// PgxPolicyRepository persists policy documents. Rules are stored as jsonb;
// they are read back whole and never queried field by field.
type PgxPolicyRepository struct {
	db *pgxpool.Pool
}

func newPgxPolicyRepository(db *pgxpool.Pool) portsrepo.PolicyRepository {
	return &PgxPolicyRepository{db: db}
}

// Ensure PgxPolicyRepository implements portsrepo.PolicyRepository
var _ portsrepo.PolicyRepository = (*PgxPolicyRepository)(nil)

const policyColumns = `
	policy_id, organization_id, name, version, effective_from, effective_until,
	general_rules, category_rules, approval_levels,
	created_at, created_by, last_updated_at, last_updated_by`

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	var p domain.Policy
	var generalJSON, categoriesJSON, levelsJSON []byte
	err := row.Scan(
		&p.PolicyID,
		&p.OrganizationID,
		&p.Name,
		&p.Version,
		&p.EffectiveFrom,
		&p.EffectiveUntil,
		&generalJSON,
		&categoriesJSON,
		&levelsJSON,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(generalJSON, &p.GeneralRules); err != nil {
		return nil, fmt.Errorf("failed to decode policy general rules: %w", err)
	}
	if len(categoriesJSON) > 0 {
		if err := json.Unmarshal(categoriesJSON, &p.CategoryRules); err != nil {
			return nil, fmt.Errorf("failed to decode policy category rules: %w", err)
		}
	}
	if len(levelsJSON) > 0 {
		if err := json.Unmarshal(levelsJSON, &p.ApprovalLevels); err != nil {
			return nil, fmt.Errorf("failed to decode policy approval levels: %w", err)
		}
	}
	return &p, nil
}

func (r *PgxPolicyRepository) SavePolicy(ctx context.Context, policy domain.Policy) error {
	generalJSON, err := json.Marshal(policy.GeneralRules)
	if err != nil {
		return fmt.Errorf("failed to encode policy general rules: %w", err)
	}
	categoriesJSON, err := json.Marshal(policy.CategoryRules)
	if err != nil {
		return fmt.Errorf("failed to encode policy category rules: %w", err)
	}
	levelsJSON, err := json.Marshal(policy.ApprovalLevels)
	if err != nil {
		return fmt.Errorf("failed to encode policy approval levels: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO policies (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);`, policyColumns)
	_, err = r.db.Exec(ctx, query,
		policy.PolicyID,
		policy.OrganizationID,
		policy.Name,
		policy.Version,
		policy.EffectiveFrom,
		policy.EffectiveUntil,
		generalJSON,
		categoriesJSON,
		levelsJSON,
		policy.CreatedAt,
		policy.CreatedBy,
		policy.LastUpdatedAt,
		policy.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

func (r *PgxPolicyRepository) FindPolicyByID(ctx context.Context, policyID string) (*domain.Policy, error) {
	query := fmt.Sprintf(`SELECT %s FROM policies WHERE policy_id = $1;`, policyColumns)
	policy, err := scanPolicy(r.db.QueryRow(ctx, query, policyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find policy by ID %s: %w", policyID, err)
	}
	return policy, nil
}

// FindActivePolicy picks the highest version whose effective window covers
// asOf. Overlapping windows resolve in favor of the newest version.
func (r *PgxPolicyRepository) FindActivePolicy(ctx context.Context, organizationID string, asOf time.Time) (*domain.Policy, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM policies
		WHERE organization_id = $1
		  AND effective_from <= $2
		  AND (effective_until IS NULL OR effective_until > $2)
		ORDER BY version DESC
		LIMIT 1;`, policyColumns)
	policy, err := scanPolicy(r.db.QueryRow(ctx, query, organizationID, asOf))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active policy for organization %s", apperrors.ErrNotFound, organizationID)
		}
		return nil, fmt.Errorf("failed to find active policy: %w", err)
	}
	return policy, nil
}

func (r *PgxPolicyRepository) ListPolicies(ctx context.Context, organizationID string) ([]domain.Policy, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM policies
		WHERE organization_id = $1
		ORDER BY version DESC;`, policyColumns)
	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	policies := []domain.Policy{}
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		policies = append(policies, *policy)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating policy rows: %w", rows.Err())
	}
	return policies, nil
}
