package model

import "time"

// MeetingLog is the durable per-occurrence meeting record, opened when the
// host goes live and closed by the termination orchestrator.
type MeetingLog struct {
	ID              int        `db:"id" json:"-"`
	PlatformID      string     `db:"platform_id" json:"platformId"`
	ScheduleID      string     `db:"schedule_id" json:"scheduleId"`
	OccurrenceID    string     `db:"occurrence_id" json:"occurrenceId"`
	HostID          string     `db:"host_id" json:"hostId"`
	HostName        string     `db:"host_name" json:"hostName"`
	Title           string     `db:"title" json:"title"`
	StartedAt       time.Time  `db:"started_at" json:"startedAt"`
	EndedAt         *time.Time `db:"ended_at" json:"endedAt,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"durationMinutes,omitempty"`
}

// AttendanceEntry is an append-only join (optionally paired with a leave)
// record, independent of session lifetime.
type AttendanceEntry struct {
	ID              int        `db:"id" json:"-"`
	PlatformID      string     `db:"platform_id" json:"platformId"`
	ScheduleID      string     `db:"schedule_id" json:"scheduleId"`
	OccurrenceID    string     `db:"occurrence_id" json:"occurrenceId"`
	ParticipantID   string     `db:"participant_id" json:"participantId"`
	ParticipantName string     `db:"participant_name" json:"participantName"`
	Role            string     `db:"role" json:"role"`
	Event           string     `db:"event" json:"event"` // joined | left
	JoinedAt        time.Time  `db:"joined_at" json:"joinedAt"`
	LeftAt          *time.Time `db:"left_at" json:"leftAt,omitempty"`
	DurationSeconds *int       `db:"duration_seconds" json:"durationSeconds,omitempty"`
}
