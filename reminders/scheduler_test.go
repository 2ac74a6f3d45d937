package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"habitbot/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	mu     sync.Mutex
	owners []string
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, ownerID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.owners = append(n.owners, ownerID)
	return n.err
}

func newTestScheduler() (*Scheduler, *MemoryJobStore) {
	store := NewMemoryJobStore()
	s := New(store, &recordingNotifier{}, zap.NewNop(), time.UTC)
	s.Now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return s, store
}

func TestUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler()

	require.NoError(t, s.Upsert(ctx, "u1", 8, 30))
	require.NoError(t, s.Upsert(ctx, "u1", 20, 15))

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "u1", jobs[0].OwnerID)
	assert.Equal(t, 20, jobs[0].Hour)
	assert.Equal(t, 15, jobs[0].Minute)
	assert.Len(t, s.Cron.Entries(), 1)

	stored, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 20, stored[0].Hour)
	assert.Equal(t, 15, stored[0].Minute)
}

func TestUpsertRejectsBadTime(t *testing.T) {
	s, _ := newTestScheduler()

	assert.Error(t, s.Upsert(context.Background(), "u1", 24, 0))
	assert.Error(t, s.Upsert(context.Background(), "u1", 10, 60))
	assert.Empty(t, s.Jobs())
}

func TestCancelIdempotent(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler()

	require.NoError(t, s.Cancel(ctx, "nobody"))

	require.NoError(t, s.Upsert(ctx, "u1", 9, 0))
	require.NoError(t, s.Cancel(ctx, "u1"))
	require.NoError(t, s.Cancel(ctx, "u1"))

	assert.Empty(t, s.Jobs())
	assert.Empty(t, s.Cron.Entries())

	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestReconcile(t *testing.T) {
	cases := []struct {
		name       string
		enabled    bool
		incomplete bool
		want       bool
	}{
		{name: "enabled with incomplete", enabled: true, incomplete: true, want: true},
		{name: "disabled", enabled: false, incomplete: true, want: false},
		{name: "nothing left to do", enabled: true, incomplete: false, want: false},
		{name: "neither", enabled: false, incomplete: false, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s, _ := newTestScheduler()

			// start from an existing job to check removal too
			require.NoError(t, s.Upsert(ctx, "u1", 7, 0))

			require.NoError(t, s.Reconcile(ctx, "u1", tc.enabled, tc.incomplete, 20, 0))

			job, ok := s.Job("u1")
			assert.Equal(t, tc.want, ok)
			if tc.want {
				assert.Equal(t, 20, job.Hour)
				assert.Equal(t, 0, job.Minute)
			}
		})
	}
}

func TestUpsertStoreErrorKeepsPreviousSchedule(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler()

	store.Err = errors.New("db down")
	assert.Error(t, s.Reconcile(ctx, "u1", true, true, 20, 0))

	_, ok := s.Job("u1")
	assert.False(t, ok)
	assert.Empty(t, s.Cron.Entries())

	store.Err = nil
	require.NoError(t, s.Upsert(ctx, "u1", 8, 0))

	store.Err = errors.New("db down")
	assert.Error(t, s.Upsert(ctx, "u1", 21, 30))

	job, ok := s.Job("u1")
	require.True(t, ok)
	assert.Equal(t, 8, job.Hour)
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestFailedCancelDoesNotOutliveRestart(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler()

	require.NoError(t, s.Reconcile(ctx, "u1", true, true, 20, 0))

	store.Err = errors.New("db down")
	assert.Error(t, s.Reconcile(ctx, "u1", false, true, 20, 0))

	_, ok := s.Job("u1")
	assert.False(t, ok, "cancelled job still scheduled in process")

	// The record survived the failed delete and comes back on restart
	store.Err = nil
	n := &recordingNotifier{err: fmt.Errorf("notifications disabled: %w", ErrStale)}
	restarted := New(store, n, zap.NewNop(), time.UTC)
	require.NoError(t, restarted.Load(ctx))

	_, ok = restarted.Job("u1")
	require.True(t, ok)

	// Its first firing cancels it for good
	restarted.fire("u1")

	assert.Equal(t, []string{"u1"}, n.owners)
	_, ok = restarted.Job("u1")
	assert.False(t, ok)
	assert.Empty(t, restarted.Cron.Entries())

	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestFireKeepsJobOnDeliveryError(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler()
	s.Notifier = &recordingNotifier{err: errors.New("dm closed")}

	require.NoError(t, s.Upsert(ctx, "u1", 20, 0))
	s.fire("u1")

	_, ok := s.Job("u1")
	assert.True(t, ok)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler()

	require.NoError(t, store.Upsert(ctx, types.ReminderJob{OwnerID: "a", Hour: 8, Minute: 0}))
	require.NoError(t, store.Upsert(ctx, types.ReminderJob{OwnerID: "b", Hour: 21, Minute: 45}))

	require.NoError(t, s.Load(ctx))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].OwnerID)
	assert.Equal(t, "b", jobs[1].OwnerID)
	assert.Len(t, s.Cron.Entries(), 2)
}

func TestConcurrentUpsertKeepsOneJob(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Upsert(ctx, "u1", i%24, i)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Jobs(), 1)
	assert.Len(t, s.Cron.Entries(), 1)
}

func TestFireNotifies(t *testing.T) {
	s, _ := newTestScheduler()
	n := s.Notifier.(*recordingNotifier)

	s.fire("u1")

	assert.Equal(t, []string{"u1"}, n.owners)
}

func TestJobSpec(t *testing.T) {
	job := types.ReminderJob{OwnerID: "u1", Hour: 20, Minute: 5}
	assert.Equal(t, "5 20 * * *", job.Spec())
	assert.Equal(t, "u1@20:05", job.String())
}
