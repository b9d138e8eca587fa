// internal/infra/database/postgres_dispatch_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"congregation_backend/internal/domain/automation"
	"congregation_backend/internal/domain/congregant"
)

// PostgresDispatchRepository owns the transaction boundary of a dispatch pass.
// Claim, recipient matching, dispatch log writes and reschedules all run on
// one transaction so that a failure anywhere leaves no durable trace.
type PostgresDispatchRepository struct {
	db *sql.DB
}

func NewPostgresDispatchRepository(db *sql.DB) *PostgresDispatchRepository {
	return &PostgresDispatchRepository{db: db}
}

func (r *PostgresDispatchRepository) InTx(ctx context.Context, fn func(tx automation.DispatchTx) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dispatch transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&dispatchTx{tx: txn}); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit dispatch transaction: %w", err)
	}
	return nil
}

type dispatchTx struct {
	tx *sql.Tx
}

// ClaimDue locks due automations with FOR UPDATE SKIP LOCKED: rows held by a
// concurrent pass are skipped rather than waited on, so two passes never hold
// the same automation and unrelated organizations are never serialized
// against each other.
func (t *dispatchTx) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*automation.Automation, error) {
	query := `SELECT ` + automationColumns + `
               FROM automations
               WHERE is_active = TRUE AND next_run_at <= $1
               ORDER BY next_run_at ASC
               FOR UPDATE SKIP LOCKED
               LIMIT $2`
	rows, err := t.tx.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("error claiming due automations: %w", err)
	}
	defer rows.Close()

	claimed := make([]*automation.Automation, 0)
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning claimed automation: %w", err)
		}
		claimed = append(claimed, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claimed automations: %w", err)
	}
	return claimed, nil
}

// BirthdayTargets matches on month and day only; the year of birth never
// participates, so a date-typed comparison with EXTRACT keeps Feb 29
// birthdays matching exactly Feb 29 and nothing else.
func (t *dispatchTx) BirthdayTargets(ctx context.Context, orgID int64, month time.Month, day int) ([]congregant.Target, error) {
	query := `SELECT id, first_name, last_name, phone
               FROM congregants
               WHERE organization_id = $1
                 AND is_active = TRUE
                 AND EXTRACT(MONTH FROM birth_date) = $2
                 AND EXTRACT(DAY FROM birth_date) = $3
               ORDER BY id`
	rows, err := t.tx.QueryContext(ctx, query, orgID, int(month), day)
	if err != nil {
		return nil, fmt.Errorf("error querying birthday targets: %w", err)
	}
	defer rows.Close()

	targets := make([]congregant.Target, 0)
	for rows.Next() {
		tg := congregant.Target{}
		if err := rows.Scan(&tg.CongregantID, &tg.FirstName, &tg.LastName, &tg.Phone); err != nil {
			return nil, fmt.Errorf("error scanning birthday target: %w", err)
		}
		targets = append(targets, tg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating birthday targets: %w", err)
	}
	return targets, nil
}

func (t *dispatchTx) CreateEntries(ctx context.Context, entries []*automation.DispatchLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	stmt, err := t.tx.PrepareContext(ctx, `INSERT INTO dispatch_log (automation_id, organization_id, recipient_contact, status, message)
                                         VALUES ($1, $2, $3, $4, $5)
                                         RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for dispatch entries: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		err := stmt.QueryRowContext(ctx,
			e.AutomationID, e.OrganizationID, e.RecipientContact, e.Status, e.Message,
		).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error inserting dispatch entry (automation %d, contact %s): %w",
				e.AutomationID, e.RecipientContact, err)
		}
	}
	return nil
}

func (t *dispatchTx) Reschedule(ctx context.Context, automationID int64, lastRun, nextRun time.Time) error {
	query := `UPDATE automations
               SET last_run_at = $1, next_run_at = $2, updated_at = NOW()
               WHERE id = $3`
	res, err := t.tx.ExecContext(ctx, query, lastRun, nextRun, automationID)
	if err != nil {
		return fmt.Errorf("error rescheduling automation %d: %w", automationID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking reschedule of automation %d: %w", automationID, err)
	}
	if affected == 0 {
		return ErrAutomationNotFound
	}
	return nil
}
