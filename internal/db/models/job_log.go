package models

import (
	"time"

	"github.com/google/uuid"
)

// JobLog is one entry of the append-only status transition ledger. Entries
// are only ever inserted, never updated or deleted.
type JobLog struct {
	ID    uint      `json:"-" gorm:"primaryKey"`
	JobID uuid.UUID `json:"job_id" gorm:"type:uuid;not null;index"`

	// FromStatus is nil for the entry recording the job's creation
	FromStatus *JobStatus `json:"from_status"`
	ToStatus   JobStatus  `json:"to_status" gorm:"not null"`

	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime;index"`
}
