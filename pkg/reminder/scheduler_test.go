package reminder

import (
	"encoding/json"
	"errors"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/storage"
	"github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type fakeTimer struct {
	delay   time.Duration
	fire    func()
	stopped bool
}

func (timer *fakeTimer) Stop() bool {
	timer.stopped = true
	return true
}

type reminderFixture struct {
	store     common.LocalStoragePort
	scheduler *Scheduler
	timers    []*fakeTimer
	fired     []Notification
	now       time.Time
}

func newReminderFixture(now time.Time) *reminderFixture {
	fixture := &reminderFixture{
		store: storage.NewGoCacheLocalStorage(0, 0),
		now:   now,
	}
	fixture.scheduler = NewScheduler(fixture.store, nil, func(notification Notification) {
		fixture.fired = append(fixture.fired, notification)
	}, nil)
	fixture.scheduler.now = func() time.Time {
		return fixture.now
	}
	fixture.scheduler.afterFunc = func(delay time.Duration, fire func()) timer {
		created := &fakeTimer{delay: delay, fire: fire}
		fixture.timers = append(fixture.timers, created)
		return created
	}
	return fixture
}

func (fixture *reminderFixture) saved(t *testing.T) persistedReminder {
	value, found := fixture.store.Get(common.ReminderKey)
	require.True(t, found)
	var saved persistedReminder
	require.NoError(t, json.Unmarshal([]byte(value), &saved))
	return saved
}

var morning = time.Date(2024, 5, 8, 7, 15, 0, 0, time.UTC)

func TestScheduleLaterToday(t *testing.T) {
	gomega.RegisterFailHandler(func(message string, callerSkip ...int) {
		t.Error(message)
	})

	// Given
	fixture := newReminderFixture(morning)

	// When
	target, err := fixture.scheduler.Schedule("18:30")

	// Then
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(target).To(gomega.Equal(time.Date(2024, 5, 8, 18, 30, 0, 0, time.UTC)))
	gomega.Expect(fixture.timers).To(gomega.HaveLen(1))
	gomega.Expect(fixture.timers[0].delay).To(gomega.Equal(11*time.Hour + 15*time.Minute))
	gomega.Expect(fixture.saved(t)).To(gomega.Equal(persistedReminder{
		Time:        "18:30",
		ScheduledAt: "2024-05-08T07:15:00Z",
		TargetTime:  "2024-05-08T18:30:00Z",
	}))
	gomega.Expect(fixture.scheduler.TimeUntil()).To(gomega.Equal("11h 15m"))
}

func TestSchedulePassedTimeMovesToTomorrow(t *testing.T) {
	fixture := newReminderFixture(morning)

	target, err := fixture.scheduler.Schedule("07:15")

	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 9, 7, 15, 0, 0, time.UTC), target)
	assert.Equal(t, "24h 0m", fixture.scheduler.TimeUntil())
}

func TestScheduleReplacesPending(t *testing.T) {
	fixture := newReminderFixture(morning)

	_, err := fixture.scheduler.Schedule("08:00")
	require.NoError(t, err)
	_, err = fixture.scheduler.Schedule("09:00")
	require.NoError(t, err)

	require.Len(t, fixture.timers, 2)
	assert.True(t, fixture.timers[0].stopped)
	fixture.timers[0].fire()
	assert.Empty(t, fixture.fired)
	assert.Equal(t, "09:00", fixture.saved(t).Time)
}

func TestScheduleRejectsBadTime(t *testing.T) {
	fixture := newReminderFixture(morning)

	for _, clock := range []string{"7:30", "25:00", "noon", ""} {
		_, err := fixture.scheduler.Schedule(clock)
		assert.True(t, errors.Is(err, ErrInvalidTime), clock)
	}
	assert.Empty(t, fixture.timers)
}

func TestFireNotifiesOnce(t *testing.T) {
	fixture := newReminderFixture(morning)
	_, err := fixture.scheduler.Schedule("07:45")
	require.NoError(t, err)

	fixture.timers[0].fire()
	fixture.timers[0].fire()

	require.Len(t, fixture.fired, 1)
	assert.Equal(t, Notification{Time: "07:45", Title: "FitLife - time to train!", Message: "Time to work out!"}, fixture.fired[0])
	assert.False(t, fixture.scheduler.Status().Scheduled)
}

func TestCancel(t *testing.T) {
	fixture := newReminderFixture(morning)
	_, err := fixture.scheduler.Schedule("07:45")
	require.NoError(t, err)

	require.NoError(t, fixture.scheduler.Cancel())

	assert.True(t, fixture.timers[0].stopped)
	_, found := fixture.store.Get(common.ReminderKey)
	assert.False(t, found)
	assert.Equal(t, "", fixture.scheduler.TimeUntil())
	fixture.timers[0].fire()
	assert.Empty(t, fixture.fired)
}

func TestRestoreFutureReminder(t *testing.T) {
	fixture := newReminderFixture(morning)
	require.NoError(t, fixture.store.Set(common.ReminderKey,
		`{"time":"08:00","scheduledAt":"2024-05-08T06:00:00Z","targetTime":"2024-05-08T08:00:00Z"}`))

	restored, err := fixture.scheduler.Restore()

	require.NoError(t, err)
	assert.True(t, restored)
	require.Len(t, fixture.timers, 1)
	assert.Equal(t, 45*time.Minute, fixture.timers[0].delay)
	assert.Equal(t, "45m", fixture.scheduler.TimeUntil())
}

func TestRestoreDropsExpiredAndCorruptReminders(t *testing.T) {
	for _, value := range []string{
		`{"time":"07:00","scheduledAt":"2024-05-07T06:00:00Z","targetTime":"2024-05-08T07:00:00Z"}`,
		`{"time":"07:00","targetTime":"yesterday"}`,
		`not json`,
	} {
		fixture := newReminderFixture(morning)
		require.NoError(t, fixture.store.Set(common.ReminderKey, value))

		restored, err := fixture.scheduler.Restore()

		require.NoError(t, err)
		assert.False(t, restored)
		_, found := fixture.store.Get(common.ReminderKey)
		assert.False(t, found, value)
		assert.Empty(t, fixture.timers)
	}
}

func TestIsDue(t *testing.T) {
	fixture := newReminderFixture(morning)
	assert.False(t, fixture.scheduler.IsDue(time.Date(2024, 5, 8, 18, 30, 0, 0, time.UTC)))

	_, err := fixture.scheduler.Schedule("18:30")
	require.NoError(t, err)

	assert.True(t, fixture.scheduler.IsDue(time.Date(2024, 5, 8, 18, 29, 0, 0, time.UTC)))
	assert.True(t, fixture.scheduler.IsDue(time.Date(2024, 5, 8, 18, 31, 59, 0, time.UTC)))
	assert.False(t, fixture.scheduler.IsDue(time.Date(2024, 5, 8, 18, 32, 0, 0, time.UTC)))
	assert.False(t, fixture.scheduler.IsDue(time.Date(2024, 5, 8, 17, 30, 0, 0, time.UTC)))
}
