package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"congregation_backend/internal/apperr"
	"congregation_backend/internal/domain/automation"
	"congregation_backend/internal/domain/congregant"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatchStore implements automation.DispatchRepository with copy-on-
// write transactions: everything a pass does is staged and only folded into
// the committed state when the InTx callback returns nil. Claimed rows go
// into an in-flight set that ClaimDue excludes, so an overlapping pass skips
// them the way a concurrent transaction skips locked rows.
type fakeDispatchStore struct {
	mu          sync.Mutex
	automations map[int64]*automation.Automation
	birthdays   map[string][]congregant.Target // key: orgID/month/day
	entries     []*automation.DispatchLogEntry
	inFlight    map[int64]bool // automation IDs held by an open pass

	failCreateOnCall int // fail CreateEntries on the Nth call (1-based), 0 = never
	createCalls      int

	// holdAfterClaim, when set, blocks the next non-empty claim until the
	// channel is closed, keeping that pass's claims in flight while another
	// pass runs. Consumed once.
	holdAfterClaim chan struct{}
	claimedSignal  chan struct{} // receives once a non-empty claim is held
}

func newFakeDispatchStore() *fakeDispatchStore {
	return &fakeDispatchStore{
		automations: make(map[int64]*automation.Automation),
		birthdays:   make(map[string][]congregant.Target),
		inFlight:    make(map[int64]bool),
	}
}

func birthdayKey(orgID int64, month time.Month, day int) string {
	return fmt.Sprintf("%d/%d/%d", orgID, int(month), day)
}

func (s *fakeDispatchStore) addAutomation(a automation.Automation) {
	copied := a
	s.automations[a.ID] = &copied
}

func (s *fakeDispatchStore) addBirthday(orgID int64, month time.Month, day int, t congregant.Target) {
	key := birthdayKey(orgID, month, day)
	s.birthdays[key] = append(s.birthdays[key], t)
}

func (s *fakeDispatchStore) InTx(ctx context.Context, fn func(tx automation.DispatchTx) error) error {
	staged := &fakeDispatchTx{
		store:      s,
		schedules:  make(map[int64][2]time.Time),
		newEntries: nil,
	}
	err := fn(staged)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range staged.claimedIDs {
		delete(s.inFlight, id)
	}
	if err != nil {
		return err
	}
	// Commit staged effects.
	for id, sched := range staged.schedules {
		a := s.automations[id]
		a.LastRunAt.Time, a.LastRunAt.Valid = sched[0], true
		a.NextRunAt = sched[1]
	}
	s.entries = append(s.entries, staged.newEntries...)
	return nil
}

type fakeDispatchTx struct {
	store      *fakeDispatchStore
	claimedIDs []int64
	schedules  map[int64][2]time.Time // automationID -> {lastRun, nextRun}
	newEntries []*automation.DispatchLogEntry
}

func (t *fakeDispatchTx) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*automation.Automation, error) {
	s := t.store
	s.mu.Lock()
	due := make([]*automation.Automation, 0)
	for _, a := range s.automations {
		if a.IsActive && !a.NextRunAt.After(now) && !s.inFlight[a.ID] {
			copied := *a
			due = append(due, &copied)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRunAt.Before(due[j].NextRunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, a := range due {
		s.inFlight[a.ID] = true
		t.claimedIDs = append(t.claimedIDs, a.ID)
	}
	hold := s.holdAfterClaim
	signal := s.claimedSignal
	if len(due) > 0 {
		s.holdAfterClaim = nil
		s.claimedSignal = nil
	}
	s.mu.Unlock()

	if len(due) > 0 && hold != nil {
		if signal != nil {
			signal <- struct{}{}
		}
		<-hold
	}
	return due, nil
}

func (t *fakeDispatchTx) BirthdayTargets(ctx context.Context, orgID int64, month time.Month, day int) ([]congregant.Target, error) {
	return t.store.birthdays[birthdayKey(orgID, month, day)], nil
}

func (t *fakeDispatchTx) CreateEntries(ctx context.Context, entries []*automation.DispatchLogEntry) error {
	t.store.mu.Lock()
	t.store.createCalls++
	calls := t.store.createCalls
	t.store.mu.Unlock()
	if t.store.failCreateOnCall > 0 && calls == t.store.failCreateOnCall {
		return fmt.Errorf("simulated store failure")
	}
	t.newEntries = append(t.newEntries, entries...)
	return nil
}

func (t *fakeDispatchTx) Reschedule(ctx context.Context, automationID int64, lastRun, nextRun time.Time) error {
	t.schedules[automationID] = [2]time.Time{lastRun, nextRun}
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func birthdayAutomation(id, orgID int64, template, sendTime, timezone string, nextRun time.Time) automation.Automation {
	return automation.Automation{
		ID:             id,
		OrganizationID: orgID,
		Kind:           automation.KindBirthdayGreeting,
		Config:         &automation.BirthdayConfig{MessageTemplate: template},
		SendTimeLocal:  sendTime,
		Timezone:       timezone,
		IsActive:       true,
		NextRunAt:      nextRun,
	}
}

func newTestService(store *fakeDispatchStore, now time.Time, batchLimit int) *DispatchServiceImpl {
	svc := NewDispatchService(store, testLogger(), batchLimit)
	svc.now = func() time.Time { return now }
	return svc
}

func TestRunDuePassNothingDue(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Hi {first_name}", "09:00:00", "America/New_York",
		now.Add(time.Hour))) // not due yet

	summary, err := newTestService(store, now, 200).RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{}, summary)
	assert.Empty(t, store.entries)
}

func TestRunDuePassProcessesDueAutomation(t *testing.T) {
	// A 09:00 New York automation due at 2024-01-10T14:00:00Z,
	// evaluated at 15:00Z (10:00 local).
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Happy birthday, {first_name}!", "09:00:00", "America/New_York",
		time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)))
	// Jan 10 is the local date in New York at 15:00Z.
	store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: 1, FirstName: "Maria", Phone: "+15550001"})
	store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: 2, FirstName: "Jon", Phone: "+15550002"})

	summary, err := newTestService(store, now, 200).RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{ProcessedCount: 1, RecipientsLogged: 2}, summary)

	require.Len(t, store.entries, 2)
	first := store.entries[0]
	assert.Equal(t, int64(1), first.AutomationID)
	assert.Equal(t, int64(10), first.OrganizationID)
	assert.Equal(t, "+15550001", first.RecipientContact)
	assert.Equal(t, automation.DispatchStatusPending, first.Status)
	assert.Equal(t, "Happy birthday, Maria!", first.Message)

	a := store.automations[1]
	require.True(t, a.LastRunAt.Valid)
	assert.Equal(t, now, a.LastRunAt.Time)
	// Next day, 09:00 New York.
	assert.Equal(t, time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC), a.NextRunAt)
}

func TestRunDuePassNoRecipientsStillReschedules(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Hi {first_name}", "09:00:00", "America/New_York",
		time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)))

	summary, err := newTestService(store, now, 200).RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{ProcessedCount: 1, RecipientsLogged: 0}, summary)
	assert.Empty(t, store.entries)
	assert.True(t, store.automations[1].NextRunAt.After(now))
}

func TestRunDuePassRerunSelectsNothing(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Hi {first_name}", "09:00:00", "America/New_York",
		time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)))
	store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: 1, FirstName: "Maria", Phone: "+15550001"})

	svc := newTestService(store, now, 200)

	first, err := svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProcessedCount)

	// Same reference instant: the fresh next_run_at is in the future now.
	second, err := svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{}, second)
	assert.Len(t, store.entries, 1)
}

func TestRunDuePassRollsBackWholeBatch(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	for i := int64(1); i <= 5; i++ {
		store.addAutomation(birthdayAutomation(i, 10, "Hi {first_name}", "09:00:00", "UTC",
			now.Add(-time.Duration(i)*time.Minute)))
		store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: i, FirstName: "N", Phone: fmt.Sprintf("+1555%04d", i)})
	}
	store.failCreateOnCall = 3

	_, err := newTestService(store, now, 200).RunDuePass(context.Background())
	require.Error(t, err)

	// Nothing from the pass is durable: no entries, no schedule updates,
	// including the two automations processed before the failure.
	assert.Empty(t, store.entries)
	for i := int64(1); i <= 5; i++ {
		a := store.automations[i]
		assert.False(t, a.LastRunAt.Valid, "automation %d should not have last_run_at", i)
		assert.True(t, a.NextRunAt.Before(now), "automation %d should still be due", i)
	}
}

func TestRunDuePassConfigErrorAbortsBatch(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Hi {first_name}", "09:00:00", "UTC", now.Add(-2*time.Minute)))
	broken := birthdayAutomation(2, 11, "Hi {first_name}", "09:00:00", "Mars/Olympus_Mons", now.Add(-time.Minute))
	store.addAutomation(broken)

	_, err := newTestService(store, now, 200).RunDuePass(context.Background())
	require.Error(t, err)

	var cfgErr *apperr.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, int64(2), cfgErr.AutomationID)

	// The healthy automation processed earlier in the batch rolled back too.
	assert.False(t, store.automations[1].LastRunAt.Valid)
	assert.Empty(t, store.entries)
}

func TestRunDuePassHonorsBatchLimit(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	for i := int64(1); i <= 5; i++ {
		store.addAutomation(birthdayAutomation(i, 10, "Hi {first_name}", "09:00:00", "UTC",
			now.Add(-time.Duration(i)*time.Minute)))
	}

	svc := newTestService(store, now, 2)

	summary, err := svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProcessedCount)

	// Oldest-due first: automations 5 and 4 carry the oldest next_run_at.
	assert.True(t, store.automations[5].LastRunAt.Valid)
	assert.True(t, store.automations[4].LastRunAt.Valid)
	assert.False(t, store.automations[3].LastRunAt.Valid)

	// The remaining backlog drains on subsequent passes.
	summary, err = svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ProcessedCount)

	summary, err = svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedCount)
}

type passResult struct {
	summary DispatchSummary
	err     error
}

func TestRunDuePassClaimExclusivity(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	store.addAutomation(birthdayAutomation(1, 10, "Hi {first_name}", "09:00:00", "UTC", now.Add(-time.Minute)))
	store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: 1, FirstName: "Maria", Phone: "+15550001"})

	claimed := make(chan struct{})
	release := make(chan struct{})
	store.claimedSignal = claimed
	store.holdAfterClaim = release

	svc := newTestService(store, now, 200)

	// First pass claims the automation and parks before committing.
	firstDone := make(chan passResult, 1)
	go func() {
		summary, err := svc.RunDuePass(context.Background())
		firstDone <- passResult{summary, err}
	}()
	<-claimed

	// A second pass overlapping the first finds nothing claimable.
	second, err := svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DispatchSummary{}, second)

	close(release)
	first := <-firstDone
	require.NoError(t, first.err)
	assert.Equal(t, DispatchSummary{ProcessedCount: 1, RecipientsLogged: 1}, first.summary)

	// Exactly one entry set was committed for the recipient.
	require.Len(t, store.entries, 1)
	assert.Equal(t, int64(1), store.entries[0].AutomationID)
	assert.True(t, store.automations[1].NextRunAt.After(now))
}

func TestRunDuePassOverlappingPassesPartitionDueSet(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	store := newFakeDispatchStore()
	for i := int64(1); i <= 4; i++ {
		store.addAutomation(birthdayAutomation(i, 10, "Hi {first_name}", "09:00:00", "UTC",
			now.Add(-time.Duration(i)*time.Minute)))
		store.addBirthday(10, time.January, 10, congregant.Target{CongregantID: i, FirstName: "N", Phone: fmt.Sprintf("+1555%04d", i)})
	}

	claimed := make(chan struct{})
	release := make(chan struct{})
	store.claimedSignal = claimed
	store.holdAfterClaim = release

	svc := newTestService(store, now, 2)

	// The first pass holds the two oldest automations while the second runs.
	firstDone := make(chan passResult, 1)
	go func() {
		summary, err := svc.RunDuePass(context.Background())
		firstDone <- passResult{summary, err}
	}()
	<-claimed

	second, err := svc.RunDuePass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, second.ProcessedCount)

	close(release)
	first := <-firstDone
	require.NoError(t, first.err)
	assert.Equal(t, 2, first.summary.ProcessedCount)

	// Between them the passes processed every automation exactly once.
	assert.Len(t, store.entries, 4)
	seen := make(map[int64]int)
	for _, e := range store.entries {
		seen[e.AutomationID]++
	}
	for i := int64(1); i <= 4; i++ {
		assert.Equal(t, 1, seen[i], "automation %d", i)
		assert.True(t, store.automations[i].LastRunAt.Valid)
		assert.True(t, store.automations[i].NextRunAt.After(now))
	}
}
