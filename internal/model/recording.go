package model

import "time"

// Recording statuses as reported by the egress collaborator.
const (
	RecordingActive   = "active"
	RecordingComplete = "complete"
	RecordingFailed   = "failed"
)

// Recording tracks one egress artifact for an occurrence. ArchiveURL is set
// once the artifact has been copied to the configured object store.
type Recording struct {
	RecordingID  string     `db:"recording_id" json:"recordingId"`
	EgressID     string     `db:"egress_id" json:"egressId"`
	PlatformID   string     `db:"platform_id" json:"platformId"`
	ScheduleID   string     `db:"schedule_id" json:"scheduleId"`
	OccurrenceID string     `db:"occurrence_id" json:"occurrenceId"`
	Status       string     `db:"status" json:"status"`
	FilePath     string     `db:"file_path" json:"filePath"`
	ArchiveURL   string     `db:"archive_url" json:"archiveUrl"`
	StartedAt    time.Time  `db:"started_at" json:"startedAt"`
	CompletedAt  *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// Platform is a tenant of the service; Secret is bcrypt-hashed.
type Platform struct {
	ID         int       `db:"id" json:"-"`
	PlatformID string    `db:"platform_id" json:"platformId"`
	Name       string    `db:"name" json:"name"`
	SecretHash string    `db:"secret_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
