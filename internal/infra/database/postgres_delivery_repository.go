// internal/infra/database/postgres_delivery_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	"congregation_backend/internal/domain/automation"
)

var ErrDispatchEntryNotFound = fmt.Errorf("dispatch log entry not found")

// PostgresDeliveryRepository is the delivery worker's view of the dispatch
// log. It uses the same skip-locked claim idiom as the dispatcher so multiple
// workers can drain the pending backlog without stepping on each other.
type PostgresDeliveryRepository struct {
	db *sql.DB
}

func NewPostgresDeliveryRepository(db *sql.DB) *PostgresDeliveryRepository {
	return &PostgresDeliveryRepository{db: db}
}

func (r *PostgresDeliveryRepository) InTx(ctx context.Context, fn func(tx automation.DeliveryTx) error) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delivery transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&deliveryTx{tx: txn}); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit delivery transaction: %w", err)
	}
	return nil
}

type deliveryTx struct {
	tx *sql.Tx
}

func (t *deliveryTx) ClaimPending(ctx context.Context, limit int) ([]*automation.DispatchLogEntry, error) {
	query := `SELECT id, automation_id, organization_id, recipient_contact, status, message, last_error, created_at, updated_at
               FROM dispatch_log
               WHERE status = $1
               ORDER BY created_at ASC
               FOR UPDATE SKIP LOCKED
               LIMIT $2`
	rows, err := t.tx.QueryContext(ctx, query, automation.DispatchStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("error claiming pending dispatch entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*automation.DispatchLogEntry, 0)
	for rows.Next() {
		e := automation.DispatchLogEntry{}
		if err := rows.Scan(
			&e.ID, &e.AutomationID, &e.OrganizationID, &e.RecipientContact,
			&e.Status, &e.Message, &e.LastError, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning pending dispatch entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending dispatch entries: %w", err)
	}
	return entries, nil
}

func (t *deliveryTx) MarkDelivered(ctx context.Context, entryID int64, status automation.DispatchStatus, lastError string) error {
	query := `UPDATE dispatch_log
               SET status = $1, last_error = NULLIF($2, ''), updated_at = NOW()
               WHERE id = $3`
	res, err := t.tx.ExecContext(ctx, query, status, lastError, entryID)
	if err != nil {
		return fmt.Errorf("error marking dispatch entry %d as %s: %w", entryID, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking update of dispatch entry %d: %w", entryID, err)
	}
	if affected == 0 {
		return ErrDispatchEntryNotFound
	}
	return nil
}

var _ automation.DeliveryRepository = (*PostgresDeliveryRepository)(nil)
var _ automation.DispatchRepository = (*PostgresDispatchRepository)(nil)
