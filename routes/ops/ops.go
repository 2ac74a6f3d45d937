// Operational endpoints: health, reminder job snapshot and manual progress runs
package ops

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"habitbot/progress"
	"habitbot/types"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const tagName = "Ops"

type JobLister interface {
	Jobs() []types.ReminderJob
}

type ProgressRunner interface {
	Run(ctx context.Context) (progress.Result, error)
	Last() (progress.Result, time.Time)
}

type Health struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Jobs    int    `json:"jobs"`
	LastRun *Run   `json:"last_run,omitempty"`
}

type Run struct {
	progress.Result
	At time.Time `json:"at"`
}

type Router struct {
	Jobs         JobLister
	Progress     ProgressRunner
	ServiceToken string
	Logger       *zap.Logger
	Started      time.Time
}

func (b Router) Tag() (string, string) {
	return tagName, "Health checks and manual scheduler control."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(bytes)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ApiError{Message: msg})
}

// authorized compares the Authorization header against "Service <token>"
func (b Router) authorized(r *http.Request) bool {
	if b.ServiceToken == "" {
		return false
	}

	given, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Service ")

	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(given), []byte(b.ServiceToken)) == 1
}

func (b Router) Routes(r *chi.Mux) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h := Health{
			Status: "ok",
			Uptime: time.Since(b.Started).Round(time.Second).String(),
			Jobs:   len(b.Jobs.Jobs()),
		}

		if res, at := b.Progress.Last(); !at.IsZero() {
			h.LastRun = &Run{Result: res, At: at}
		}

		writeJSON(w, http.StatusOK, h)
	})

	r.Get("/reminders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.Jobs.Jobs())
	})

	r.Post("/progress/run", func(w http.ResponseWriter, r *http.Request) {
		if !b.authorized(r) {
			writeError(w, http.StatusUnauthorized, "A valid service token is required")
			return
		}

		res, err := b.Progress.Run(r.Context())

		switch {
		case errors.Is(err, progress.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			b.Logger.Error("Manual progress run failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusOK, res)
		}
	})
}
