package organization

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Organization entities.
type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id int64) (*Organization, error)
	Update(ctx context.Context, org *Organization) error
	List(ctx context.Context) ([]*Organization, error)
}
