// internal/infra/database/postgres_automation_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"congregation_backend/internal/domain/automation"
)

// Custom errors specific to automation repository
var ErrAutomationNotFound = fmt.Errorf("automation not found")
var ErrDuplicateAutomation = fmt.Errorf("duplicate automation (organization_id, kind)")

const automationColumns = `id, organization_id, kind, config, send_time_local, timezone,
        is_active, last_run_at, next_run_at, created_at, updated_at`

type PostgresAutomationRepository struct {
	db *sql.DB
}

func NewPostgresAutomationRepository(db *sql.DB) *PostgresAutomationRepository {
	return &PostgresAutomationRepository{db: db}
}

func (r *PostgresAutomationRepository) Create(ctx context.Context, a *automation.Automation) error {
	raw, err := automation.EncodeConfig(a.Config)
	if err != nil {
		return err
	}
	query := `INSERT INTO automations (organization_id, kind, config, send_time_local, timezone, is_active, next_run_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query,
		a.OrganizationID, a.Kind, raw, a.SendTimeLocal, a.Timezone, a.IsActive, a.NextRunAt,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "automations_org_kind_unique") {
			return ErrDuplicateAutomation
		}
		return fmt.Errorf("error creating automation: %w", err)
	}
	return nil
}

func (r *PostgresAutomationRepository) GetByID(ctx context.Context, id int64) (*automation.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = $1`
	a, err := scanAutomation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAutomationNotFound
		}
		return nil, fmt.Errorf("error getting automation by ID: %w", err)
	}
	return a, nil
}

func (r *PostgresAutomationRepository) Update(ctx context.Context, a *automation.Automation) error {
	raw, err := automation.EncodeConfig(a.Config)
	if err != nil {
		return err
	}
	query := `UPDATE automations
               SET config = $1, send_time_local = $2, timezone = $3, is_active = $4, next_run_at = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`
	err = r.db.QueryRowContext(ctx, query,
		raw, a.SendTimeLocal, a.Timezone, a.IsActive, a.NextRunAt, a.ID,
	).Scan(&a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrAutomationNotFound
		}
		return fmt.Errorf("error updating automation: %w", err)
	}
	return nil
}

func (r *PostgresAutomationRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*automation.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE organization_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing automations by organization: %w", err)
	}
	defer rows.Close()

	automations := make([]*automation.Automation, 0)
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning automation row: %w", err)
		}
		automations = append(automations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating automation rows: %w", err)
	}
	return automations, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAutomation(row rowScanner) (*automation.Automation, error) {
	a := automation.Automation{}
	var raw []byte
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.Kind, &raw, &a.SendTimeLocal, &a.Timezone,
		&a.IsActive, &a.LastRunAt, &a.NextRunAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Config, err = automation.DecodeConfig(a.Kind, raw)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func isUniqueViolation(err error, constraint string) bool {
	return err != nil && strings.Contains(err.Error(), constraint)
}
