package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"habitbot/progress"
	"habitbot/types"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticJobs []types.ReminderJob

func (s staticJobs) Jobs() []types.ReminderJob { return s }

type fakeRunner struct {
	runs   int
	err    error
	last   progress.Result
	lastAt time.Time
}

func (f *fakeRunner) Run(ctx context.Context) (progress.Result, error) {
	f.runs++
	if f.err != nil {
		return progress.Result{}, f.err
	}
	return progress.Result{Affected: 2, Reconciled: 2}, nil
}

func (f *fakeRunner) Last() (progress.Result, time.Time) { return f.last, f.lastAt }

func newServer(jobs JobLister, runner ProgressRunner) *chi.Mux {
	r := chi.NewRouter()
	Router{
		Jobs:         jobs,
		Progress:     runner,
		ServiceToken: "svc",
		Logger:       zap.NewNop(),
		Started:      time.Now(),
	}.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	runner := &fakeRunner{}
	srv := newServer(staticJobs{{OwnerID: "u1", Hour: 20}}, runner)

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var h Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 1, h.Jobs)
	assert.Nil(t, h.LastRun)

	runner.last = progress.Result{Affected: 3, Reconciled: 3}
	runner.lastAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	rec = do(t, srv, http.MethodGet, "/healthz", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	require.NotNil(t, h.LastRun)
	assert.Equal(t, 3, h.LastRun.Affected)
	assert.True(t, runner.lastAt.Equal(h.LastRun.At))
}

func TestReminders(t *testing.T) {
	srv := newServer(staticJobs{{OwnerID: "u1", Hour: 20}, {OwnerID: "u2", Hour: 7, Minute: 30}}, &fakeRunner{})

	rec := do(t, srv, http.MethodGet, "/reminders", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var jobs []types.ReminderJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &jobs))
	require.Len(t, jobs, 2)
	assert.Equal(t, "u2", jobs[1].OwnerID)
	assert.Equal(t, 30, jobs[1].Minute)
}

func TestProgressRun(t *testing.T) {
	tests := []struct {
		name   string
		auth   string
		err    error
		status int
		runs   int
	}{
		{name: "no token", status: http.StatusUnauthorized},
		{name: "wrong token", auth: "Service nope", status: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Bearer svc", status: http.StatusUnauthorized},
		{name: "ok", auth: "Service svc", status: http.StatusOK, runs: 1},
		{name: "overlap", auth: "Service svc", err: progress.ErrAlreadyRunning, status: http.StatusConflict, runs: 1},
		{name: "service down", auth: "Service svc", err: errors.New("boom"), status: http.StatusBadGateway, runs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{err: tt.err}
			rec := do(t, newServer(staticJobs{}, runner), http.MethodPost, "/progress/run", tt.auth)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.runs, runner.runs)

			if tt.status == http.StatusOK {
				var res progress.Result
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.Equal(t, 2, res.Reconciled)
			} else {
				var apiErr types.ApiError
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
				assert.NotEmpty(t, apiErr.Message)
			}
		})
	}
}

func TestEmptyServiceTokenRejects(t *testing.T) {
	r := chi.NewRouter()
	runner := &fakeRunner{}
	Router{Jobs: staticJobs{}, Progress: runner, Logger: zap.NewNop()}.Routes(r)

	rec := do(t, r, http.MethodPost, "/progress/run", "Service ")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.runs)
}
