package organization

import (
	"time"
)

// Organization is a tenant of the system. Every congregant and automation
// belongs to exactly one organization.
type Organization struct {
	ID        int64
	Name      string
	Timezone  string // IANA zone name, default for new automations
	CreatedAt time.Time
	UpdatedAt time.Time
}
