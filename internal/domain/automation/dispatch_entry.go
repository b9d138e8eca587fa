package automation

import (
	"database/sql"
	"time"
)

// DispatchStatus represents the delivery state of a dispatch log entry.
type DispatchStatus string

const (
	DispatchStatusPending DispatchStatus = "PENDING"
	DispatchStatusSent    DispatchStatus = "SENT"
	DispatchStatusFailed  DispatchStatus = "FAILED"
)

// DispatchLogEntry is one unit of outbound work: a greeting owed to a single
// recipient, produced by one processed automation. The dispatch pass creates
// entries as PENDING and never touches them again; the delivery worker owns
// the transition to SENT or FAILED.
//
// Message is a snapshot of the rendered content at creation time, so a later
// template edit does not alter already-queued greetings.
type DispatchLogEntry struct {
	ID               int64
	AutomationID     int64
	OrganizationID   int64
	RecipientContact string
	Status           DispatchStatus
	Message          string
	LastError        sql.NullString
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
