package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/messages"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

const clockLayout = "15:04"

var ErrInvalidTime = errors.New("reminder time must be HH:MM")

type Notification struct {
	Time    string
	Title   string
	Message string
}

type Status struct {
	Scheduled bool
	Time      string
	Target    time.Time
}

type persistedReminder struct {
	Time        string `json:"time"`
	ScheduledAt string `json:"scheduledAt"`
	TargetTime  string `json:"targetTime"`
}

type timer interface {
	Stop() bool
}

type Scheduler struct {
	mutex     sync.Mutex
	store     common.LocalStoragePort
	messages  *messages.Catalog
	onFire    func(Notification)
	log       *log.Entry
	now       func() time.Time
	afterFunc func(delay time.Duration, fire func()) timer

	timer      timer
	generation int
	scheduled  bool
	clock      string
	target     time.Time
}

func NewScheduler(
	store common.LocalStoragePort,
	catalog *messages.Catalog,
	onFire func(Notification),
	logger *log.Entry,
) *Scheduler {
	if catalog == nil {
		catalog = messages.NewDefaultCatalog()
	}
	if logger == nil {
		logger = log.WithField("component", "reminder")
	}
	if onFire == nil {
		onFire = func(notification Notification) {
			logger.Info(notification.Message)
		}
	}
	return &Scheduler{
		store:    store,
		messages: catalog,
		onFire:   onFire,
		log:      logger,
		now:      time.Now,
		afterFunc: func(delay time.Duration, fire func()) timer {
			return time.AfterFunc(delay, fire)
		},
	}
}

// Schedule replaces any pending reminder with one at the next occurrence of
// clock: today if it is still ahead, tomorrow otherwise.
func (scheduler *Scheduler) Schedule(clock string) (time.Time, error) {
	const stage = "Scheduling reminder error."
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	now := scheduler.now()
	target, err := NextOccurrence(clock, now)
	if err != nil {
		return time.Time{}, err
	}

	bytesValue, err := json.Marshal(persistedReminder{
		Time:        clock,
		ScheduledAt: now.UTC().Format(time.RFC3339),
		TargetTime:  target.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return time.Time{}, newErr(stage, err)
	}
	if err := scheduler.store.Set(common.ReminderKey, string(bytesValue)); err != nil {
		return time.Time{}, newErr(stage, err)
	}

	scheduler.arm(clock, target, target.Sub(now))
	scheduler.log.WithField("target", target.Format(time.RFC3339)).
		Infof("Reminder scheduled for %v (in %v)", clock, formatDuration(target.Sub(now)))
	return target, nil
}

func (scheduler *Scheduler) Cancel() error {
	const stage = "Cancelling reminder error."
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	scheduler.disarm()
	if err := scheduler.store.Remove(common.ReminderKey); err != nil {
		return newErr(stage, err)
	}
	scheduler.log.Debug("Reminder cancelled")
	return nil
}

// Restore re-arms a persisted reminder whose target is still ahead. Expired
// or unreadable reminders are removed.
func (scheduler *Scheduler) Restore() (bool, error) {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	value, found := scheduler.store.Get(common.ReminderKey)
	if !found {
		return false, nil
	}

	var saved persistedReminder
	if err := json.Unmarshal([]byte(value), &saved); err != nil {
		scheduler.log.WithError(err).Warn("Stored reminder is corrupt. Removing it")
		return false, scheduler.drop()
	}
	target, err := time.Parse(time.RFC3339, saved.TargetTime)
	if err != nil {
		scheduler.log.WithError(err).Warn("Stored reminder target is corrupt. Removing it")
		return false, scheduler.drop()
	}

	now := scheduler.now()
	if !target.After(now) {
		scheduler.log.Debugf("Stored reminder for %v expired", saved.Time)
		return false, scheduler.drop()
	}
	scheduler.arm(saved.Time, target, target.Sub(now))
	return true, nil
}

func (scheduler *Scheduler) Status() Status {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()
	return Status{
		Scheduled: scheduler.scheduled,
		Time:      scheduler.clock,
		Target:    scheduler.target,
	}
}

// TimeUntil renders the time left as "Xh Ym" or "Ym". Empty when nothing
// is scheduled.
func (scheduler *Scheduler) TimeUntil() string {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	if !scheduler.scheduled {
		return ""
	}
	target, err := NextOccurrence(scheduler.clock, scheduler.now())
	if err != nil {
		return ""
	}
	return formatDuration(target.Sub(scheduler.now()))
}

// IsDue is true while scheduled and within a minute of the reminder time.
func (scheduler *Scheduler) IsDue(now time.Time) bool {
	scheduler.mutex.Lock()
	defer scheduler.mutex.Unlock()

	if !scheduler.scheduled {
		return false
	}
	clock, err := time.Parse(clockLayout, scheduler.clock)
	if err != nil {
		return false
	}
	minutes := now.Minute() - clock.Minute()
	if minutes < 0 {
		minutes = -minutes
	}
	return now.Hour() == clock.Hour() && minutes <= 1
}

// Callers hold the mutex.

func (scheduler *Scheduler) arm(clock string, target time.Time, delay time.Duration) {
	scheduler.disarm()
	scheduler.generation++
	generation := scheduler.generation
	scheduler.clock = clock
	scheduler.target = target
	scheduler.scheduled = true
	scheduler.timer = scheduler.afterFunc(delay, func() {
		scheduler.fire(generation)
	})
}

func (scheduler *Scheduler) disarm() {
	if scheduler.timer != nil {
		scheduler.timer.Stop()
		scheduler.timer = nil
	}
	scheduler.generation++
	scheduler.scheduled = false
}

func (scheduler *Scheduler) drop() error {
	if err := scheduler.store.Remove(common.ReminderKey); err != nil {
		return newErr("Removing reminder error.", err)
	}
	return nil
}

func (scheduler *Scheduler) fire(generation int) {
	scheduler.mutex.Lock()
	if generation != scheduler.generation || !scheduler.scheduled {
		scheduler.mutex.Unlock()
		return
	}
	scheduler.scheduled = false
	scheduler.timer = nil
	clock := scheduler.clock
	scheduler.mutex.Unlock()

	scheduler.log.Infof("Reminder for %v fired", clock)
	scheduler.onFire(Notification{
		Time:    clock,
		Title:   scheduler.messages.Get("reminder.title"),
		Message: scheduler.messages.Get("reminder.message"),
	})
}

// NextOccurrence returns the next moment after now that shows clock (HH:MM)
// in now's location.
func NextOccurrence(clock string, now time.Time) (time.Time, error) {
	parsed, err := time.Parse(clockLayout, clock)
	if err != nil || len(clock) != len(clockLayout) {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTime, clock)
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target, nil
}

func formatDuration(left time.Duration) string {
	hours := int(left / time.Hour)
	minutes := int((left % time.Hour) / time.Minute)
	if hours > 0 {
		return fmt.Sprintf("%vh %vm", hours, minutes)
	}
	return fmt.Sprintf("%vm", minutes)
}

func newErr(stage string, reason interface{}) error {
	if err, ok := reason.(error); ok {
		return fmt.Errorf("%v Reason: %w", stage, err)
	}
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
