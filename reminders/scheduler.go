// Per-user reminder jobs, at most one recurring job per owner
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"habitbot/types"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Notifier delivers a reminder to its owner when a job fires
type Notifier interface {
	Notify(ctx context.Context, ownerID string) error
}

// ErrStale is returned by a Notifier when the owner no longer qualifies for
// a reminder. The job is cancelled instead of being retried the next day.
var ErrStale = errors.New("reminder no longer wanted")

type entry struct {
	id  cron.EntryID
	job types.ReminderJob
}

type Scheduler struct {
	Cron     *cron.Cron
	Store    JobStore
	Notifier Notifier
	Logger   *zap.Logger

	// How long a single reminder delivery may take
	NotifyTimeout time.Duration

	Now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func New(store JobStore, notifier Notifier, logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}

	cl := CronLogger(logger.Named("reminders"))

	return &Scheduler{
		Cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		Store:         store,
		Notifier:      notifier,
		Logger:        logger,
		NotifyTimeout: 30 * time.Second,
		Now:           time.Now,
		entries:       make(map[string]entry),
	}
}

func checkTime(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid reminder time %02d:%02d", hour, minute)
	}
	return nil
}

func (s *Scheduler) fire(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.NotifyTimeout)
	defer cancel()

	s.Logger.Info("Sending reminder", zap.String("owner_id", ownerID))

	err := s.Notifier.Notify(ctx, ownerID)

	switch {
	case errors.Is(err, ErrStale):
		s.Logger.Info("Cancelling stale reminder", zap.String("owner_id", ownerID))

		if err := s.Cancel(ctx, ownerID); err != nil {
			s.Logger.Error("Failed to cancel stale reminder", zap.Error(err), zap.String("owner_id", ownerID))
		}
	case err != nil:
		s.Logger.Error("Failed to send reminder", zap.Error(err), zap.String("owner_id", ownerID))
	}
}

// register swaps the cron entry of job.OwnerID, s.mu must be held
func (s *Scheduler) register(job types.ReminderJob) error {
	if old, ok := s.entries[job.OwnerID]; ok {
		s.Cron.Remove(old.id)
		delete(s.entries, job.OwnerID)
	}

	ownerID := job.OwnerID
	id, err := s.Cron.AddFunc(job.Spec(), func() { s.fire(ownerID) })

	if err != nil {
		return fmt.Errorf("failed to schedule reminder %s: %w", job, err)
	}

	s.entries[job.OwnerID] = entry{id: id, job: job}
	return nil
}

// Upsert replaces any job of ownerID with one firing daily at hour:minute.
// The record is written first, when that fails the previous schedule is kept.
func (s *Scheduler) Upsert(ctx context.Context, ownerID string, hour, minute int) error {
	if err := checkTime(hour, minute); err != nil {
		return err
	}

	job := types.ReminderJob{
		OwnerID:   ownerID,
		Hour:      hour,
		Minute:    minute,
		UpdatedAt: s.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Store.Upsert(ctx, job); err != nil {
		return err
	}

	return s.register(job)
}

// Cancel removes the job of ownerID, a missing job is not an error. The cron
// entry goes even when the delete fails, a record left behind is reloaded on
// restart and cancelled again by its first firing through ErrStale.
func (s *Scheduler) Cancel(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[ownerID]; ok {
		s.Cron.Remove(old.id)
		delete(s.entries, ownerID)
	}

	return s.Store.Delete(ctx, ownerID)
}

// Reconcile makes the job of ownerID exist exactly when notifications are
// enabled and the owner has incomplete targets. Every flow that can change
// either fact goes through here.
//
// Errors are logged and returned, callers should not fail the user flow on them.
func (s *Scheduler) Reconcile(ctx context.Context, ownerID string, notificationsEnabled, hasIncompleteTargets bool, hour, minute int) error {
	var err error

	if notificationsEnabled && hasIncompleteTargets {
		err = s.Upsert(ctx, ownerID, hour, minute)
	} else {
		err = s.Cancel(ctx, ownerID)
	}

	if err != nil {
		s.Logger.Error(
			"Failed to reconcile reminder",
			zap.Error(err),
			zap.String("owner_id", ownerID),
			zap.Bool("notifications_enabled", notificationsEnabled),
			zap.Bool("has_incomplete_targets", hasIncompleteTargets),
		)
	}

	return err
}

// Load registers every persisted job, used once on startup
func (s *Scheduler) Load(ctx context.Context) error {
	jobs, err := s.Store.List(ctx)

	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range jobs {
		if err := s.register(job); err != nil {
			s.Logger.Error("Skipping stored reminder", zap.Error(err), zap.String("owner_id", job.OwnerID))
		}
	}

	s.Logger.Info("Loaded reminder jobs", zap.Int("count", len(s.entries)))
	return nil
}

// Job returns the scheduled job of ownerID
func (s *Scheduler) Job(ownerID string) (types.ReminderJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ownerID]
	return e.job, ok
}

// Jobs returns a snapshot of all scheduled jobs ordered by owner
func (s *Scheduler) Jobs() []types.ReminderJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]types.ReminderJob, 0, len(s.entries))
	for _, e := range s.entries {
		jobs = append(jobs, e.job)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].OwnerID < jobs[j].OwnerID })
	return jobs
}

// Next returns when the job of ownerID fires next
func (s *Scheduler) Next(ownerID string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[ownerID]
	s.mu.Unlock()

	if !ok {
		return time.Time{}, false
	}

	return s.Cron.Entry(e.id).Next, true
}

func (s *Scheduler) Start() {
	s.Cron.Start()
}

// Stop stops firing new reminders and waits for running ones
func (s *Scheduler) Stop() context.Context {
	return s.Cron.Stop()
}
