package automation

import (
	"context"
	"time"

	"congregation_backend/internal/domain/congregant"
)

// Repository defines the configuration-facing operations on Automation entities.
type Repository interface {
	Create(ctx context.Context, a *Automation) error
	GetByID(ctx context.Context, id int64) (*Automation, error)
	Update(ctx context.Context, a *Automation) error
	ListByOrganization(ctx context.Context, orgID int64) ([]*Automation, error)
}

// DispatchTx is the set of operations available inside one dispatch pass.
// Every method runs on the same open transaction; nothing is durable until
// the surrounding InTx callback returns nil.
type DispatchTx interface {
	// ClaimDue locks and returns up to limit active automations with
	// next_run_at <= now, oldest-due first. Rows already locked by a
	// concurrent pass are skipped, never waited on.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Automation, error)

	// BirthdayTargets returns the active congregants of an organization
	// whose birth date falls on the given month and day, year ignored.
	BirthdayTargets(ctx context.Context, orgID int64, month time.Month, day int) ([]congregant.Target, error)

	// CreateEntries inserts one PENDING dispatch log entry per element.
	CreateEntries(ctx context.Context, entries []*DispatchLogEntry) error

	// Reschedule records a completed run: last_run_at and the freshly
	// computed next_run_at.
	Reschedule(ctx context.Context, automationID int64, lastRun, nextRun time.Time) error
}

// DispatchRepository owns the transaction boundary of a dispatch pass.
type DispatchRepository interface {
	// InTx runs fn inside a single transaction. A nil return commits; any
	// error rolls back everything fn did and is returned to the caller.
	InTx(ctx context.Context, fn func(tx DispatchTx) error) error
}

// DeliveryTx is the set of operations available to one delivery worker pass
// over pending dispatch log entries.
type DeliveryTx interface {
	// ClaimPending locks and returns up to limit PENDING entries, oldest
	// first, skipping rows locked by a concurrent worker.
	ClaimPending(ctx context.Context, limit int) ([]*DispatchLogEntry, error)

	// MarkDelivered transitions a claimed entry to SENT or FAILED.
	MarkDelivered(ctx context.Context, entryID int64, status DispatchStatus, lastError string) error
}

// DeliveryRepository owns the transaction boundary of a delivery pass.
type DeliveryRepository interface {
	InTx(ctx context.Context, fn func(tx DeliveryTx) error) error
}
