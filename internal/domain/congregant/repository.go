package congregant

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Congregant entities.
// Birthday lookups used by the dispatcher are deliberately NOT part of this
// interface; they belong to the dispatch transaction so that matching happens
// under the same snapshot as the claim.
type Repository interface {
	Create(ctx context.Context, c *Congregant) error
	GetByID(ctx context.Context, id int64) (*Congregant, error)
	Update(ctx context.Context, c *Congregant) error
	ListByOrganization(ctx context.Context, orgID int64) ([]*Congregant, error)
}
