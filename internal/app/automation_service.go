// internal/app/automation_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"congregation_backend/internal/domain/automation"

	"github.com/sirupsen/logrus"
)

// AutomationService manages the recurring rules themselves. It is the only
// place that sets the initial next_run_at; once an automation exists the
// dispatch pass owns last_run_at/next_run_at.
type AutomationService interface {
	Create(ctx context.Context, params AutomationParams) (*automation.Automation, error)
	Get(ctx context.Context, id int64) (*automation.Automation, error)
	Update(ctx context.Context, id int64, params AutomationParams) (*automation.Automation, error)
	SetActive(ctx context.Context, id int64, active bool) (*automation.Automation, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*automation.Automation, error)
}

// AutomationParams carries the tenant-configurable fields of an automation.
type AutomationParams struct {
	OrganizationID int64
	Config         automation.Config
	SendTimeLocal  string
	Timezone       string
	IsActive       bool
}

type AutomationServiceImpl struct {
	repo   automation.Repository
	logger *logrus.Logger
	now    func() time.Time
}

func NewAutomationService(repo automation.Repository, logger *logrus.Logger) *AutomationServiceImpl {
	return &AutomationServiceImpl{repo: repo, logger: logger, now: time.Now}
}

func (s *AutomationServiceImpl) Create(ctx context.Context, params AutomationParams) (*automation.Automation, error) {
	nextRun, err := s.scheduleFor(params)
	if err != nil {
		return nil, err
	}

	a := &automation.Automation{
		OrganizationID: params.OrganizationID,
		Kind:           params.Config.Kind(),
		Config:         params.Config,
		SendTimeLocal:  params.SendTimeLocal,
		Timezone:       params.Timezone,
		IsActive:       params.IsActive,
		NextRunAt:      nextRun,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infof("Created %s automation %d for organization %d, first run at %s",
		a.Kind, a.ID, a.OrganizationID, a.NextRunAt.Format(time.RFC3339))
	return a, nil
}

func (s *AutomationServiceImpl) Get(ctx context.Context, id int64) (*automation.Automation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AutomationServiceImpl) Update(ctx context.Context, id int64, params AutomationParams) (*automation.Automation, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Config.Kind() != a.Kind {
		return nil, fmt.Errorf("automation %d is %s, cannot change kind to %s", id, a.Kind, params.Config.Kind())
	}

	nextRun, err := s.scheduleFor(params)
	if err != nil {
		return nil, err
	}

	a.Config = params.Config
	a.SendTimeLocal = params.SendTimeLocal
	a.Timezone = params.Timezone
	a.IsActive = params.IsActive
	a.NextRunAt = nextRun
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AutomationServiceImpl) SetActive(ctx context.Context, id int64, active bool) (*automation.Automation, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.IsActive = active
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Infof("Automation %d is_active set to %t", id, active)
	return a, nil
}

func (s *AutomationServiceImpl) ListByOrganization(ctx context.Context, orgID int64) ([]*automation.Automation, error) {
	return s.repo.ListByOrganization(ctx, orgID)
}

// scheduleFor validates the schedule fields and computes the next run from now.
func (s *AutomationServiceImpl) scheduleFor(params AutomationParams) (time.Time, error) {
	sendTime, err := automation.ParseLocalTime(params.SendTimeLocal)
	if err != nil {
		return time.Time{}, err
	}
	nextRun, err := automation.NextRun(sendTime, params.Timezone, s.now().UTC())
	if err != nil {
		return time.Time{}, err
	}
	return nextRun, nil
}
