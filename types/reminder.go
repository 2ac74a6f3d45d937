package types

import (
	"fmt"
	"time"
)

// A reminder job nudges its owner once a day, the owner id is the job id
type ReminderJob struct {
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Hour      int       `db:"hour" json:"hour"`
	Minute    int       `db:"minute" json:"minute"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Spec returns the cron expression firing at the job's time every day
func (j ReminderJob) Spec() string {
	return fmt.Sprintf("%d %d * * *", j.Minute, j.Hour)
}

func (j ReminderJob) String() string {
	return fmt.Sprintf("%s@%02d:%02d", j.OwnerID, j.Hour, j.Minute)
}
