// internal/app/delivery_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"congregation_backend/internal/domain/automation"

	"github.com/sirupsen/logrus"
)

// GreetingPublisher hands a rendered greeting to the external delivery
// gateway. The AMQP implementation lives in infra/queue.
type GreetingPublisher interface {
	Publish(body []byte) error
}

// greetingPayload is the wire format pushed onto the delivery queue.
type greetingPayload struct {
	EntryID          int64  `json:"entry_id"`
	AutomationID     int64  `json:"automation_id"`
	OrganizationID   int64  `json:"organization_id"`
	RecipientContact string `json:"recipient_contact"`
	Message          string `json:"message"`
}

// DeliveryService is the sender collaborator: it drains PENDING dispatch log
// entries and owns their transition to SENT or FAILED. The dispatcher never
// calls it and never waits on it.
type DeliveryService interface {
	// RunDeliveryPass claims up to the batch limit of pending entries,
	// publishes each to the delivery queue, and records the outcome per
	// entry. Returns how many entries were claimed.
	RunDeliveryPass(ctx context.Context) (int, error)
}

type DeliveryServiceImpl struct {
	repo       automation.DeliveryRepository
	publisher  GreetingPublisher
	logger     *logrus.Logger
	batchLimit int
}

func NewDeliveryService(repo automation.DeliveryRepository, publisher GreetingPublisher, logger *logrus.Logger, batchLimit int) *DeliveryServiceImpl {
	return &DeliveryServiceImpl{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		batchLimit: batchLimit,
	}
}

// RunDeliveryPass publishes inside the claiming transaction. If MarkDelivered
// or the commit fails after some entries were already published, the rollback
// leaves them PENDING and the next pass publishes them again. Delivery is
// therefore at-least-once; consumers must tolerate duplicate greetings keyed
// by entry_id.
func (s *DeliveryServiceImpl) RunDeliveryPass(ctx context.Context) (int, error) {
	claimed := 0
	err := s.repo.InTx(ctx, func(tx automation.DeliveryTx) error {
		entries, err := tx.ClaimPending(ctx, s.batchLimit)
		if err != nil {
			return fmt.Errorf("failed to claim pending entries: %w", err)
		}
		claimed = len(entries)

		for _, e := range entries {
			body, err := json.Marshal(greetingPayload{
				EntryID:          e.ID,
				AutomationID:     e.AutomationID,
				OrganizationID:   e.OrganizationID,
				RecipientContact: e.RecipientContact,
				Message:          e.Message,
			})
			if err != nil {
				return fmt.Errorf("failed to encode entry %d: %w", e.ID, err)
			}

			status := automation.DispatchStatusSent
			lastError := ""
			if pubErr := s.publisher.Publish(body); pubErr != nil {
				s.logger.Errorf("Failed to publish entry %d: %v", e.ID, pubErr)
				status = automation.DispatchStatusFailed
				lastError = pubErr.Error()
			}
			if err := tx.MarkDelivered(ctx, e.ID, status, lastError); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if claimed > 0 {
		s.logger.Infof("Delivery pass handled %d entry(ies)", claimed)
	}
	return claimed, nil
}
