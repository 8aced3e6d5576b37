package model

import "time"

// Occurrence statuses.
const (
	OccurrenceScheduled = "scheduled"
	OccurrenceLive      = "live"
	OccurrenceEnded     = "ended"
	OccurrenceCancelled = "cancelled"
)

// Occurrence is one concrete time-bounded instance of a Schedule.
// StartAt/EndAt are absolute UTC instants. Exactly one occurrence exists per
// (schedule_id, start_at); the table enforces it.
type Occurrence struct {
	OccurrenceID string    `db:"occurrence_id" json:"occurrenceId"`
	ScheduleID   string    `db:"schedule_id" json:"scheduleId"`
	PlatformID   string    `db:"platform_id" json:"platformId"`
	HostID       string    `db:"host_id" json:"hostId"`
	HostName     string    `db:"host_name" json:"hostName"`
	Hosts        HostList  `db:"hosts" json:"hosts"`
	Group        string    `db:"group_name" json:"group"`
	GroupID      string    `db:"group_id" json:"groupId"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	IsPrivate    bool      `db:"is_private" json:"isPrivate"`
	Status       string    `db:"status" json:"status"`
	StartAt      time.Time `db:"start_at" json:"startDateTime"`
	EndAt        time.Time `db:"end_at" json:"endDateTime"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// HostRole resolves userID against the occurrence's host list. The primary
// host gets RoleHost, everyone else on the list RoleCoHost. ok is false when
// userID is not a host at all.
func (o *Occurrence) HostRole(userID string) (role string, ok bool) {
	if !o.Hosts.Contains(userID) {
		return "", false
	}
	if o.HostID == userID {
		return RoleHost, true
	}
	return RoleCoHost, true
}

// Closed reports whether the occurrence can never be joined again.
func (o *Occurrence) Closed() bool {
	return o.Status == OccurrenceEnded || o.Status == OccurrenceCancelled
}
