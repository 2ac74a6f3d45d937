// Package progress runs the nightly progress advance over every target
package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"habitbot/habitapi"
	"habitbot/reminders"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var ErrAlreadyRunning = errors.New("progress advance is already running")

type Reconciler interface {
	Reconcile(ctx context.Context, ownerID string, notificationsEnabled, hasIncompleteTargets bool, hour, minute int) error
}

// Result summarizes one run
type Result struct {
	Affected   int `json:"affected"`
	Reconciled int `json:"reconciled"`
	Failed     int `json:"failed"`
}

type Advancer struct {
	Habits    habitapi.Service
	Reminders Reconciler
	Logger    *zap.Logger
	Cron      *cron.Cron

	// Bound on a scheduled run
	RunTimeout time.Duration

	running sync.Mutex

	mu     sync.Mutex
	last   Result
	lastAt time.Time
}

func New(habits habitapi.Service, rem Reconciler, logger *zap.Logger, loc *time.Location) *Advancer {
	if loc == nil {
		loc = time.UTC
	}

	cl := reminders.CronLogger(logger.Named("progress"))

	return &Advancer{
		Habits:     habits,
		Reminders:  rem,
		Logger:     logger,
		RunTimeout: 30 * time.Minute,
		Cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
}

// Schedule registers the daily run at hour:minute
func (a *Advancer) Schedule(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid progress run time %02d:%02d", hour, minute)
	}

	_, err := a.Cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.RunTimeout)
		defer cancel()

		if _, err := a.Run(ctx); err != nil {
			a.Logger.Error("Progress advance failed", zap.Error(err))
		}
	})

	return err
}

func (a *Advancer) Start() {
	a.Cron.Start()
}

func (a *Advancer) Stop() context.Context {
	return a.Cron.Stop()
}

// Last returns the result of the last completed run
func (a *Advancer) Last() (Result, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last, a.lastAt
}

// Run advances every target once and reconciles the reminders of each
// affected user. A run already in progress makes Run return
// ErrAlreadyRunning instead of queueing.
func (a *Advancer) Run(ctx context.Context) (Result, error) {
	if !a.running.TryLock() {
		return Result{}, ErrAlreadyRunning
	}
	defer a.running.Unlock()

	start := time.Now()

	ids, err := a.Habits.AdvanceAllProgress(ctx)

	if err != nil {
		return Result{}, fmt.Errorf("advance progress: %w", err)
	}

	users := mapset.NewThreadUnsafeSet[string]()
	for _, id := range ids {
		if id != "" {
			users.Add(id)
		}
	}

	affected := users.ToSlice()
	sort.Strings(affected)

	res := Result{Affected: len(affected)}

	for _, userID := range affected {
		if err := a.reconcile(ctx, userID); err != nil {
			a.Logger.Error("Failed to reconcile reminders after advance", zap.Error(err), zap.String("user_id", userID))
			res.Failed++
			continue
		}

		res.Reconciled++
	}

	a.mu.Lock()
	a.last = res
	a.lastAt = start
	a.mu.Unlock()

	a.Logger.Info("Progress advanced",
		zap.Int("affected", res.Affected),
		zap.Int("reconciled", res.Reconciled),
		zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)),
	)

	return res, nil
}

func (a *Advancer) reconcile(ctx context.Context, userID string) error {
	user, err := a.Habits.GetUser(ctx, userID)

	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	n, err := a.Habits.CountIncompleteTargets(ctx, userID)

	if err != nil {
		return fmt.Errorf("count incomplete targets: %w", err)
	}

	return a.Reminders.Reconcile(ctx, userID, user.NotificationsEnabled, n > 0, user.NotificationHour, user.NotificationMinute)
}
