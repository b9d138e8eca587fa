// internal/infra/database/postgres_congregant_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"congregation_backend/internal/domain/congregant"
)

var ErrCongregantNotFound = fmt.Errorf("congregant not found")

type PostgresCongregantRepository struct {
	db *sql.DB
}

func NewPostgresCongregantRepository(db *sql.DB) *PostgresCongregantRepository {
	return &PostgresCongregantRepository{db: db}
}

func (r *PostgresCongregantRepository) Create(ctx context.Context, c *congregant.Congregant) error {
	query := `INSERT INTO congregants (organization_id, first_name, last_name, phone, birth_date, is_active)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		c.OrganizationID, c.FirstName, c.LastName, c.Phone, c.BirthDate, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating congregant: %w", err)
	}
	return nil
}

func (r *PostgresCongregantRepository) GetByID(ctx context.Context, id int64) (*congregant.Congregant, error) {
	query := `SELECT id, organization_id, first_name, last_name, phone, birth_date, is_active, created_at, updated_at
               FROM congregants WHERE id = $1`
	c := congregant.Congregant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Phone,
		&c.BirthDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCongregantNotFound
		}
		return nil, fmt.Errorf("error getting congregant by ID: %w", err)
	}
	return &c, nil
}

func (r *PostgresCongregantRepository) Update(ctx context.Context, c *congregant.Congregant) error {
	query := `UPDATE congregants
               SET first_name = $1, last_name = $2, phone = $3, birth_date = $4, is_active = $5, updated_at = NOW()
               WHERE id = $6
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		c.FirstName, c.LastName, c.Phone, c.BirthDate, c.IsActive, c.ID,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrCongregantNotFound
		}
		return fmt.Errorf("error updating congregant: %w", err)
	}
	return nil
}

func (r *PostgresCongregantRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*congregant.Congregant, error) {
	query := `SELECT id, organization_id, first_name, last_name, phone, birth_date, is_active, created_at, updated_at
               FROM congregants
               WHERE organization_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("error listing congregants by organization: %w", err)
	}
	defer rows.Close()

	members := make([]*congregant.Congregant, 0)
	for rows.Next() {
		c := congregant.Congregant{}
		if err := rows.Scan(
			&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Phone,
			&c.BirthDate, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning congregant row: %w", err)
		}
		members = append(members, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating congregant rows: %w", err)
	}
	return members, nil
}
