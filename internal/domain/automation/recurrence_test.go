package automation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocalTime(t *testing.T) {
	lt, err := ParseLocalTime("09:30:15")
	require.NoError(t, err)
	assert.Equal(t, LocalTime{Hour: 9, Minute: 30, Second: 15}, lt)
	assert.Equal(t, "09:30:15", lt.String())

	_, err = ParseLocalTime("9:30")
	assert.Error(t, err)

	_, err = ParseLocalTime("25:00:00")
	assert.Error(t, err)
}

func TestNextRunSameDayWhenSendTimeAhead(t *testing.T) {
	// 07:00 in New York; 09:00 local is still ahead on the same date.
	ref := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	next, err := NextRun(LocalTime{Hour: 9}, "America/New_York", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC), next)
}

func TestNextRunRollsToNextDayWhenSendTimePassed(t *testing.T) {
	// 10:00 in New York; 09:00 local already passed today.
	ref := time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)
	next, err := NextRun(LocalTime{Hour: 9}, "America/New_York", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC), next)
}

func TestNextRunExactlyAtSendTimeAdvancesOneDay(t *testing.T) {
	// The result must be strictly in the future, so "now" itself is past.
	ref := time.Date(2024, 1, 10, 14, 0, 0, 0, time.UTC)
	next, err := NextRun(LocalTime{Hour: 9}, "America/New_York", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 11, 14, 0, 0, 0, time.UTC), next)
}

func TestNextRunFixedOffsetZone(t *testing.T) {
	// Jakarta has no DST; 08:00 local is 01:00 UTC.
	ref := time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC) // 09:00 Jakarta
	next, err := NextRun(LocalTime{Hour: 8}, "Asia/Jakarta", ref)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 16, 1, 0, 0, 0, time.UTC), next)
}

func TestNextRunStrictlyFuture(t *testing.T) {
	sendTimes := []LocalTime{
		{Hour: 0},
		{Hour: 2, Minute: 30}, // skipped by the US spring-forward transition
		{Hour: 9},
		{Hour: 23, Minute: 59, Second: 59},
	}
	zones := []string{"UTC", "America/New_York", "Asia/Jakarta", "Europe/Berlin", "Pacific/Auckland"}
	refs := []time.Time{
		time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 6, 30, 0, 0, time.UTC),  // US spring-forward day
		time.Date(2024, 11, 3, 5, 30, 0, 0, time.UTC),  // US fall-back day
		time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC),  // leap day
		time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC),
	}

	for _, st := range sendTimes {
		for _, zone := range zones {
			for _, ref := range refs {
				next, err := NextRun(st, zone, ref)
				require.NoError(t, err, "send=%s zone=%s ref=%s", st, zone, ref)
				assert.True(t, next.After(ref),
					"next run %s not after ref %s (send=%s zone=%s)", next, ref, st, zone)
				assert.True(t, next.Sub(ref) <= 25*time.Hour,
					"next run %s more than a day past ref %s (send=%s zone=%s)", next, ref, st, zone)
			}
		}
	}
}

func TestNextRunInvalidTimezone(t *testing.T) {
	_, err := NextRun(LocalTime{Hour: 9}, "Mars/Olympus_Mons", time.Now())
	assert.Error(t, err)
}
