package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"habitbot/types"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobStore persists one ReminderJob per owner with last-writer-wins updates
type JobStore interface {
	Upsert(ctx context.Context, job types.ReminderJob) error
	Delete(ctx context.Context, ownerID string) error
	List(ctx context.Context) ([]types.ReminderJob, error)
}

type PgJobStore struct {
	Pool *pgxpool.Pool
}

func NewPgJobStore(pool *pgxpool.Pool) *PgJobStore {
	return &PgJobStore{Pool: pool}
}

func (s *PgJobStore) Upsert(ctx context.Context, job types.ReminderJob) error {
	_, err := s.Pool.Exec(
		ctx,
		`INSERT INTO reminder_jobs (owner_id, hour, minute, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner_id) DO UPDATE SET hour = EXCLUDED.hour, minute = EXCLUDED.minute, updated_at = EXCLUDED.updated_at`,
		job.OwnerID,
		job.Hour,
		job.Minute,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert reminder job %s: %w", job.OwnerID, err)
	}

	return nil
}

func (s *PgJobStore) Delete(ctx context.Context, ownerID string) error {
	_, err := s.Pool.Exec(ctx, "DELETE FROM reminder_jobs WHERE owner_id = $1", ownerID)

	if err != nil {
		return fmt.Errorf("failed to delete reminder job %s: %w", ownerID, err)
	}

	return nil
}

func (s *PgJobStore) List(ctx context.Context) ([]types.ReminderJob, error) {
	var jobs []types.ReminderJob

	err := pgxscan.Select(ctx, s.Pool, &jobs, "SELECT owner_id, hour, minute, updated_at FROM reminder_jobs ORDER BY owner_id")

	if err != nil {
		return nil, fmt.Errorf("failed to list reminder jobs: %w", err)
	}

	return jobs, nil
}

type MemoryJobStore struct {
	mu   sync.Mutex
	jobs map[string]types.ReminderJob

	// Set by tests to simulate an unreachable store
	Err error
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]types.ReminderJob)}
}

func (s *MemoryJobStore) Upsert(ctx context.Context, job types.ReminderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	s.jobs[job.OwnerID] = job
	return nil
}

func (s *MemoryJobStore) Delete(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}

	delete(s.jobs, ownerID)
	return nil
}

func (s *MemoryJobStore) List(ctx context.Context) ([]types.ReminderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}

	jobs := make([]types.ReminderJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].OwnerID < jobs[j].OwnerID })

	return jobs, nil
}
