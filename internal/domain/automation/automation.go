package automation

import (
	"database/sql"
	"time"
)

// Automation is a standing recurring rule owned by one organization. There is
// at most one automation per (organization, kind).
//
// NextRunAt is always a UTC instant strictly in the future relative to the
// moment it was last computed. LastRunAt and NextRunAt are written only by the
// dispatch pass; the configuration endpoints set the initial NextRunAt on
// create/update.
type Automation struct {
	ID             int64
	OrganizationID int64
	Kind           Kind
	Config         Config
	SendTimeLocal  string // "HH:MM:SS" in the automation's zone
	Timezone       string // IANA zone name
	IsActive       bool
	LastRunAt      sql.NullTime
	NextRunAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
