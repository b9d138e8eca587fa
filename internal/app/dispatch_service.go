// internal/app/dispatch_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"congregation_backend/internal/apperr"
	"congregation_backend/internal/domain/automation"
	"congregation_backend/internal/domain/congregant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DispatchSummary reports the outcome of one successful dispatch pass.
type DispatchSummary struct {
	ProcessedCount   int `json:"processed_count"`
	RecipientsLogged int `json:"recipients_logged"`
}

// DispatchService runs dispatch passes over due automations. It is safe to
// invoke concurrently from multiple callers or processes; the skip-locked
// claim guarantees no automation is ever processed by two passes at once.
type DispatchService interface {
	// RunDuePass claims due automations, writes one pending dispatch log
	// entry per matched recipient, and reschedules each automation, all in
	// one transaction. A pass with nothing due is a no-op returning zero
	// counts. Any failure rolls back the entire batch.
	RunDuePass(ctx context.Context) (DispatchSummary, error)
}

type DispatchServiceImpl struct {
	repo       automation.DispatchRepository
	logger     *logrus.Logger
	batchLimit int
	now        func() time.Time
}

func NewDispatchService(repo automation.DispatchRepository, logger *logrus.Logger, batchLimit int) *DispatchServiceImpl {
	return &DispatchServiceImpl{
		repo:       repo,
		logger:     logger,
		batchLimit: batchLimit,
		now:        time.Now,
	}
}

func (s *DispatchServiceImpl) RunDuePass(ctx context.Context) (DispatchSummary, error) {
	now := s.now().UTC()
	passID := uuid.NewString()
	log := s.logger.WithFields(logrus.Fields{"pass_id": passID, "now": now.Format(time.RFC3339)})

	var summary DispatchSummary
	err := s.repo.InTx(ctx, func(tx automation.DispatchTx) error {
		due, err := tx.ClaimDue(ctx, now, s.batchLimit)
		if err != nil {
			return fmt.Errorf("failed to claim due automations: %w", err)
		}
		if len(due) == 0 {
			return nil
		}
		log.Infof("Claimed %d due automation(s)", len(due))

		for _, a := range due {
			logged, err := s.processOne(ctx, tx, a, now)
			if err != nil {
				return err
			}
			summary.ProcessedCount++
			summary.RecipientsLogged += logged
		}
		return nil
	})
	if err != nil {
		log.Errorf("Dispatch pass rolled back: %v", err)
		return DispatchSummary{}, err
	}

	if summary.ProcessedCount > 0 {
		log.Infof("Dispatch pass committed: %d automation(s) processed, %d recipient(s) logged",
			summary.ProcessedCount, summary.RecipientsLogged)
	}
	return summary, nil
}

// processOne matches recipients, writes dispatch entries and reschedules a
// single claimed automation. It runs on the pass's shared transaction, so a
// returned error aborts the whole batch.
func (s *DispatchServiceImpl) processOne(ctx context.Context, tx automation.DispatchTx, a *automation.Automation, now time.Time) (int, error) {
	targets, err := s.matchRecipients(ctx, tx, a, now)
	if err != nil {
		return 0, err
	}

	entries := buildEntries(a, targets)
	if err := tx.CreateEntries(ctx, entries); err != nil {
		return 0, fmt.Errorf("failed to write dispatch log for automation %d: %w", a.ID, err)
	}

	sendTime, err := automation.ParseLocalTime(a.SendTimeLocal)
	if err != nil {
		return 0, apperr.NewConfigError(a.ID, err)
	}
	nextRun, err := automation.NextRun(sendTime, a.Timezone, now)
	if err != nil {
		return 0, apperr.NewConfigError(a.ID, err)
	}
	if err := tx.Reschedule(ctx, a.ID, now, nextRun); err != nil {
		return 0, fmt.Errorf("failed to reschedule automation %d: %w", a.ID, err)
	}
	return len(entries), nil
}

// matchRecipients dispatches on the automation kind. New kinds get a new
// case here and a config variant; the claim and transaction plumbing stay
// untouched.
func (s *DispatchServiceImpl) matchRecipients(ctx context.Context, tx automation.DispatchTx, a *automation.Automation, now time.Time) ([]congregant.Target, error) {
	switch a.Config.(type) {
	case *automation.BirthdayConfig:
		loc, err := time.LoadLocation(a.Timezone)
		if err != nil {
			return nil, apperr.NewConfigError(a.ID, fmt.Errorf("invalid timezone %q: %w", a.Timezone, err))
		}
		// "Today" in the automation's zone, not the server's.
		localToday := now.In(loc)
		targets, err := tx.BirthdayTargets(ctx, a.OrganizationID, localToday.Month(), localToday.Day())
		if err != nil {
			return nil, fmt.Errorf("failed to match birthday targets for automation %d: %w", a.ID, err)
		}
		return targets, nil
	default:
		return nil, apperr.NewConfigError(a.ID, fmt.Errorf("unsupported automation kind: %s", a.Kind))
	}
}

func buildEntries(a *automation.Automation, targets []congregant.Target) []*automation.DispatchLogEntry {
	entries := make([]*automation.DispatchLogEntry, 0, len(targets))
	for _, t := range targets {
		var message string
		if cfg, ok := a.Config.(*automation.BirthdayConfig); ok {
			message = cfg.Render(t)
		}
		entries = append(entries, &automation.DispatchLogEntry{
			AutomationID:     a.ID,
			OrganizationID:   a.OrganizationID,
			RecipientContact: t.Phone,
			Status:           automation.DispatchStatusPending,
			Message:          message,
		})
	}
	return entries
}
