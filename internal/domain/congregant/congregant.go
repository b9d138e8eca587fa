package congregant

import (
	"database/sql"
	"time"
)

// Congregant is a member of an organization. The automation dispatcher only
// ever reads congregants; all mutation happens through the CRUD endpoints.
type Congregant struct {
	ID             int64
	OrganizationID int64
	FirstName      string
	LastName       sql.NullString // To handle optional last name
	Phone          string
	BirthDate      time.Time // Date only, time part is ignored
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Target is the projection of a congregant the dispatcher needs to produce a
// dispatch log entry: who to greet and where to reach them.
type Target struct {
	CongregantID int64
	FirstName    string
	LastName     sql.NullString
	Phone        string
}
