package app

import (
	"context"
	"fmt"
	"testing"

	"congregation_backend/internal/domain/automation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeliveryStore struct {
	pending []*automation.DispatchLogEntry
	marked  map[int64]automation.DispatchStatus
}

func (s *fakeDeliveryStore) InTx(ctx context.Context, fn func(tx automation.DeliveryTx) error) error {
	return fn(s)
}

func (s *fakeDeliveryStore) ClaimPending(ctx context.Context, limit int) ([]*automation.DispatchLogEntry, error) {
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeDeliveryStore) MarkDelivered(ctx context.Context, entryID int64, status automation.DispatchStatus, lastError string) error {
	if s.marked == nil {
		s.marked = make(map[int64]automation.DispatchStatus)
	}
	s.marked[entryID] = status
	return nil
}

type fakePublisher struct {
	published [][]byte
	failOn    int // fail the Nth publish, 0 = never
}

func (p *fakePublisher) Publish(body []byte) error {
	if p.failOn > 0 && len(p.published)+1 == p.failOn {
		return fmt.Errorf("broker unavailable")
	}
	p.published = append(p.published, body)
	return nil
}

func pendingEntry(id int64) *automation.DispatchLogEntry {
	return &automation.DispatchLogEntry{
		ID:               id,
		AutomationID:     1,
		OrganizationID:   10,
		RecipientContact: "+15550001",
		Status:           automation.DispatchStatusPending,
		Message:          "Happy birthday!",
	}
}

func TestRunDeliveryPassMarksSent(t *testing.T) {
	store := &fakeDeliveryStore{pending: []*automation.DispatchLogEntry{pendingEntry(1), pendingEntry(2)}}
	pub := &fakePublisher{}

	claimed, err := NewDeliveryService(store, pub, testLogger(), 100).RunDeliveryPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)
	assert.Len(t, pub.published, 2)
	assert.Equal(t, automation.DispatchStatusSent, store.marked[1])
	assert.Equal(t, automation.DispatchStatusSent, store.marked[2])
	assert.Contains(t, string(pub.published[0]), `"recipient_contact":"+15550001"`)
}

func TestRunDeliveryPassMarksFailedOnPublishError(t *testing.T) {
	store := &fakeDeliveryStore{pending: []*automation.DispatchLogEntry{pendingEntry(1), pendingEntry(2)}}
	pub := &fakePublisher{failOn: 1}

	claimed, err := NewDeliveryService(store, pub, testLogger(), 100).RunDeliveryPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)

	// A publish failure fails that entry only; the rest of the batch goes on.
	assert.Equal(t, automation.DispatchStatusFailed, store.marked[1])
	assert.Equal(t, automation.DispatchStatusSent, store.marked[2])
}

func TestRunDeliveryPassRespectsBatchLimit(t *testing.T) {
	store := &fakeDeliveryStore{pending: []*automation.DispatchLogEntry{pendingEntry(1), pendingEntry(2), pendingEntry(3)}}
	pub := &fakePublisher{}

	claimed, err := NewDeliveryService(store, pub, testLogger(), 2).RunDeliveryPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, claimed)
	assert.Len(t, pub.published, 2)
}
