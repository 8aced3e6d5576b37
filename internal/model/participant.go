package model

import "time"

// Registration statuses. A ban is permanent for the schedule.
const (
	RegistrationActive   = "active"
	RegistrationInactive = "inactive"
	RegistrationBanned   = "ban"
)

// Registration is a participant's durable membership in one schedule,
// unique per (platform_id, schedule_id, participant_id).
type Registration struct {
	ID              int       `db:"id" json:"-"`
	PlatformID      string    `db:"platform_id" json:"platformId"`
	ScheduleID      string    `db:"schedule_id" json:"scheduleId"`
	ParticipantID   string    `db:"participant_id" json:"participantId"`
	ParticipantName string    `db:"participant_name" json:"participantName"`
	Role            string    `db:"role" json:"role"`
	Status          string    `db:"status" json:"status"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}
