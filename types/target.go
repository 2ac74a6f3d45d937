package types

import "time"

// A target is a user defined habit tracked by daily progress against a border
type Target struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Progress          int        `json:"progress"`
	BorderProgress    int        `json:"border_progress"`
	Completed         bool       `json:"completed"`
	CompletedDatetime *time.Time `json:"completed_datetime,omitempty"`
}

// Finished reports whether the target has reached its border
func (t Target) Finished() bool {
	return t.Progress >= t.BorderProgress
}

// Incomplete reports whether the target still wants a "done today" mark
func (t Target) Incomplete() bool {
	return !t.Completed && !t.Finished()
}

// AdvanceTarget applies the nightly progress rule to t and reports whether
// anything changed.
//
// Progress is incremented while below the border. Targets still below the
// border after the increment get their completed flag reset so the daily mark
// reappears. CompletedDatetime is stamped the first time the border is reached
// and never overwritten afterwards.
func AdvanceTarget(t *Target, now time.Time) bool {
	changed := false

	if t.Progress < t.BorderProgress {
		t.Progress++
		changed = true
	}

	if t.Progress < t.BorderProgress {
		if t.Completed {
			t.Completed = false
			changed = true
		}
	} else if t.CompletedDatetime == nil {
		stamp := now
		t.CompletedDatetime = &stamp
		changed = true
	}

	return changed
}

// HasIncomplete reports whether any of targets is incomplete
func HasIncomplete(targets []Target) bool {
	for _, t := range targets {
		if t.Incomplete() {
			return true
		}
	}

	return false
}

// TargetDraft is accumulated across the create target wizard
type TargetDraft struct {
	Name        string `scratch:"draft_name" validate:"required"`
	Description string `scratch:"draft_description"`
	Border      int    `scratch:"draft_border" validate:"required,min=1,max=3650"`
}

type CreateTarget struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	BorderProgress int    `json:"border_progress"`
}

type UpdateTarget struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// User is the account view returned by the Account & Habit service
type User struct {
	ID                   string `json:"id"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	NotificationHour     int    `json:"notification_hour"`
	NotificationMinute   int    `json:"notification_minute"`
	HasPassword          bool   `json:"has_password"`
	HasEmail             bool   `json:"has_email"`
}
