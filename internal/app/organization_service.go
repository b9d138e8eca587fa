// internal/app/organization_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"congregation_backend/internal/domain/organization"
)

// OrganizationService manages tenant organizations.
type OrganizationService interface {
	Create(ctx context.Context, name, timezone string) (*organization.Organization, error)
	Get(ctx context.Context, id int64) (*organization.Organization, error)
	Update(ctx context.Context, id int64, name, timezone string) (*organization.Organization, error)
	List(ctx context.Context) ([]*organization.Organization, error)
}

type OrganizationServiceImpl struct {
	repo organization.Repository
}

func NewOrganizationService(repo organization.Repository) *OrganizationServiceImpl {
	return &OrganizationServiceImpl{repo: repo}
}

func (s *OrganizationServiceImpl) Create(ctx context.Context, name, timezone string) (*organization.Organization, error) {
	if err := validateTimezone(timezone); err != nil {
		return nil, err
	}
	org := &organization.Organization{Name: name, Timezone: timezone}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationServiceImpl) Get(ctx context.Context, id int64) (*organization.Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrganizationServiceImpl) Update(ctx context.Context, id int64, name, timezone string) (*organization.Organization, error) {
	if err := validateTimezone(timezone); err != nil {
		return nil, err
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org.Name = name
	org.Timezone = timezone
	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationServiceImpl) List(ctx context.Context) ([]*organization.Organization, error) {
	return s.repo.List(ctx)
}

func validateTimezone(tz string) error {
	// LoadLocation("") resolves to UTC, so an empty value must be rejected first.
	if tz == "" {
		return fmt.Errorf("timezone is required")
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return nil
}
