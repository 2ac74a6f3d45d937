package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"habitbot/habitapi"
	"habitbot/reminders"
	"habitbot/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var day = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*habitapi.Memory, *reminders.Scheduler) {
	t.Helper()

	habits := habitapi.NewMemory()
	habits.Now = func() time.Time { return day }

	sched := reminders.New(reminders.NewMemoryJobStore(), nil, zap.NewNop(), time.UTC)
	return habits, sched
}

func TestRunAdvancesAndReconciles(t *testing.T) {
	ctx := context.Background()
	habits, sched := setup(t)

	// Done yesterday, reset tonight, so the reminder comes back
	habits.AddUser(types.User{ID: "u1", NotificationsEnabled: true, NotificationHour: 20}, "")
	habits.AddTarget("u1", types.Target{Name: "Run", Progress: 3, BorderProgress: 30, Completed: true})

	// Reaches the border tonight, nothing left to remind about
	habits.AddUser(types.User{ID: "u2", NotificationsEnabled: true, NotificationHour: 9}, "")
	habits.AddTarget("u2", types.Target{Name: "Read", Progress: 9, BorderProgress: 10, Completed: true})
	require.NoError(t, sched.Upsert(ctx, "u2", 9, 0))

	a := New(habits, sched, zap.NewNop(), time.UTC)

	res, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{Affected: 2, Reconciled: 2}, res)

	u1 := habits.Targets("u1")[0]
	assert.Equal(t, 4, u1.Progress)
	assert.False(t, u1.Completed)

	u2 := habits.Targets("u2")[0]
	assert.Equal(t, 10, u2.Progress)
	require.NotNil(t, u2.CompletedDatetime)
	assert.Equal(t, day, *u2.CompletedDatetime)

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "u1", jobs[0].OwnerID)

	last, at := a.Last()
	assert.Equal(t, res, last)
	assert.False(t, at.IsZero())
}

func TestFinishedTargetsAreNotAffected(t *testing.T) {
	habits, sched := setup(t)
	stamp := day.Add(-48 * time.Hour)
	habits.AddTarget("u1", types.Target{Name: "Run", Progress: 30, BorderProgress: 30, CompletedDatetime: &stamp})

	res, err := New(habits, sched, zap.NewNop(), time.UTC).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Affected)
	assert.Equal(t, stamp, *habits.Targets("u1")[0].CompletedDatetime)
}

type flakyHabits struct {
	*habitapi.Memory
	failUser string
	ids      []string
}

func (f *flakyHabits) GetUser(ctx context.Context, userID string) (types.User, error) {
	if userID == f.failUser {
		return types.User{}, errors.New("timeout")
	}
	return f.Memory.GetUser(ctx, userID)
}

func (f *flakyHabits) AdvanceAllProgress(ctx context.Context) ([]string, error) {
	if f.ids != nil {
		return f.ids, nil
	}
	return f.Memory.AdvanceAllProgress(ctx)
}

func TestOneUserFailureIsSkipped(t *testing.T) {
	habits, sched := setup(t)
	habits.AddUser(types.User{ID: "u1", NotificationsEnabled: true, NotificationHour: 20}, "")
	habits.AddUser(types.User{ID: "u2", NotificationsEnabled: true, NotificationHour: 20}, "")
	habits.AddTarget("u1", types.Target{Name: "a", BorderProgress: 5})
	habits.AddTarget("u2", types.Target{Name: "b", BorderProgress: 5})

	a := New(&flakyHabits{Memory: habits, failUser: "u1"}, sched, zap.NewNop(), time.UTC)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Affected: 2, Reconciled: 1, Failed: 1}, res)

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "u2", jobs[0].OwnerID)
}

type countingReconciler struct {
	owners []string
}

func (c *countingReconciler) Reconcile(ctx context.Context, ownerID string, enabled, incomplete bool, hour, minute int) error {
	c.owners = append(c.owners, ownerID)
	return nil
}

func TestAffectedUsersAreDeduplicated(t *testing.T) {
	habits, _ := setup(t)
	habits.AddUser(types.User{ID: "u1"}, "")
	habits.AddUser(types.User{ID: "u2"}, "")

	rec := &countingReconciler{}
	a := New(&flakyHabits{Memory: habits, ids: []string{"u2", "u1", "u2", "", "u1"}}, rec, zap.NewNop(), time.UTC)

	res, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Affected)
	assert.Equal(t, []string{"u1", "u2"}, rec.owners)
}

type blockingHabits struct {
	*habitapi.Memory
	started chan struct{}
	release chan struct{}
}

func (b *blockingHabits) AdvanceAllProgress(ctx context.Context) ([]string, error) {
	close(b.started)
	<-b.release
	return nil, nil
}

func TestOverlappingRunIsSuppressed(t *testing.T) {
	habits, sched := setup(t)
	b := &blockingHabits{Memory: habits, started: make(chan struct{}), release: make(chan struct{})}
	a := New(b, sched, zap.NewNop(), time.UTC)

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background())
		done <- err
	}()

	<-b.started

	_, err := a.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	close(b.release)
	require.NoError(t, <-done)
}

func TestServiceFailure(t *testing.T) {
	habits, sched := setup(t)
	habits.Err = errors.New("unreachable")

	_, err := New(habits, sched, zap.NewNop(), time.UTC).Run(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyRunning)
}

func TestSchedule(t *testing.T) {
	habits, sched := setup(t)
	a := New(habits, sched, zap.NewNop(), time.UTC)

	require.NoError(t, a.Schedule(0, 0))
	assert.Error(t, a.Schedule(24, 0))

	entries := a.Cron.Entries()
	require.Len(t, entries, 1)

	next := entries[0].Schedule.Next(time.Date(2026, 10, 17, 13, 0, 0, 0, time.UTC))
	assert.Equal(t, day, next)
}

// Drops the id from every user it returns
type anonymousHabits struct {
	*habitapi.Memory
}

func (a anonymousHabits) GetUser(ctx context.Context, userID string) (types.User, error) {
	u, err := a.Memory.GetUser(ctx, userID)
	u.ID = ""
	return u, err
}

func TestReconcileUsesAffectedID(t *testing.T) {
	habits, sched := setup(t)
	habits.AddUser(types.User{ID: "u1", NotificationsEnabled: true, NotificationHour: 20}, "")
	habits.AddTarget("u1", types.Target{Name: "a", BorderProgress: 5})

	res, err := New(anonymousHabits{habits}, sched, zap.NewNop(), time.UTC).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Reconciled)

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "u1", jobs[0].OwnerID)
}
