// internal/app/congregant_service.go
package app

import (
	"context"
	"database/sql"
	"time"

	"congregation_backend/internal/domain/congregant"
)

// CongregantService manages an organization's members.
type CongregantService interface {
	Create(ctx context.Context, params CongregantParams) (*congregant.Congregant, error)
	Get(ctx context.Context, id int64) (*congregant.Congregant, error)
	Update(ctx context.Context, id int64, params CongregantParams) (*congregant.Congregant, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*congregant.Congregant, error)
}

// CongregantParams carries the mutable fields of a congregant.
type CongregantParams struct {
	OrganizationID int64
	FirstName      string
	LastName       string // empty means absent
	Phone          string
	BirthDate      time.Time
	IsActive       bool
}

type CongregantServiceImpl struct {
	repo congregant.Repository
}

func NewCongregantService(repo congregant.Repository) *CongregantServiceImpl {
	return &CongregantServiceImpl{repo: repo}
}

func (s *CongregantServiceImpl) Create(ctx context.Context, params CongregantParams) (*congregant.Congregant, error) {
	c := &congregant.Congregant{
		OrganizationID: params.OrganizationID,
		FirstName:      params.FirstName,
		LastName:       nullString(params.LastName),
		Phone:          params.Phone,
		BirthDate:      dateOnly(params.BirthDate),
		IsActive:       params.IsActive,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CongregantServiceImpl) Get(ctx context.Context, id int64) (*congregant.Congregant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CongregantServiceImpl) Update(ctx context.Context, id int64, params CongregantParams) (*congregant.Congregant, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.FirstName = params.FirstName
	c.LastName = nullString(params.LastName)
	c.Phone = params.Phone
	c.BirthDate = dateOnly(params.BirthDate)
	c.IsActive = params.IsActive
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CongregantServiceImpl) ListByOrganization(ctx context.Context, orgID int64) ([]*congregant.Congregant, error) {
	return s.repo.ListByOrganization(ctx, orgID)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// dateOnly strips the time part so the DATE column comparison is stable.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
