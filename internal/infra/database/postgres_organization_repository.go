// internal/infra/database/postgres_organization_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"congregation_backend/internal/domain/organization"
)

var ErrOrganizationNotFound = fmt.Errorf("organization not found")

type PostgresOrganizationRepository struct {
	db *sql.DB
}

func NewPostgresOrganizationRepository(db *sql.DB) *PostgresOrganizationRepository {
	return &PostgresOrganizationRepository{db: db}
}

func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	query := `INSERT INTO organizations (name, timezone)
               VALUES ($1, $2)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, org.Name, org.Timezone).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating organization: %w", err)
	}
	return nil
}

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id int64) (*organization.Organization, error) {
	query := `SELECT id, name, timezone, created_at, updated_at FROM organizations WHERE id = $1`
	org := organization.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&org.ID, &org.Name, &org.Timezone, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("error getting organization by ID: %w", err)
	}
	return &org, nil
}

func (r *PostgresOrganizationRepository) Update(ctx context.Context, org *organization.Organization) error {
	query := `UPDATE organizations
               SET name = $1, timezone = $2, updated_at = NOW()
               WHERE id = $3
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, org.Name, org.Timezone, org.ID).Scan(&org.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrOrganizationNotFound
		}
		return fmt.Errorf("error updating organization: %w", err)
	}
	return nil
}

func (r *PostgresOrganizationRepository) List(ctx context.Context) ([]*organization.Organization, error) {
	query := `SELECT id, name, timezone, created_at, updated_at FROM organizations ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]*organization.Organization, 0)
	for rows.Next() {
		org := organization.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Timezone, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning organization row: %w", err)
		}
		orgs = append(orgs, &org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}
	return orgs, nil
}
