package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Recurrence modes.
const (
	RecurrenceNone   = "none"
	RecurrenceDaily  = "daily"
	RecurrenceCustom = "custom"
)

// Schedule statuses.
const (
	ScheduleActive    = "active"
	ScheduleInactive  = "inactive"
	ScheduleCompleted = "completed"
	ScheduleCancelled = "cancelled"
)

// Roles, in descending order of privilege.
const (
	RoleHost        = "host"
	RoleCoHost      = "coHost"
	RoleSpeaker     = "speaker"
	RoleViewer      = "viewer"
	RoleParticipant = "participant"
)

type Host struct {
	HostID   string `json:"hostId"`
	HostName string `json:"hostName"`
	Role     string `json:"role"`
}

// HostList is stored as a JSONB column.
type HostList []Host

func (h HostList) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *HostList) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into HostList", src)
}

// Contains reports whether hostID appears in the list.
func (h HostList) Contains(hostID string) bool {
	for _, x := range h {
		if x.HostID == hostID {
			return true
		}
	}
	return false
}

// Dedupe keeps the first entry per hostId, preserving order.
func (h HostList) Dedupe() HostList {
	seen := make(map[string]bool, len(h))
	out := make(HostList, 0, len(h))
	for _, x := range h {
		if seen[x.HostID] {
			continue
		}
		seen[x.HostID] = true
		out = append(out, x)
	}
	return out
}

// Weekdays is a set of weekday numbers (0=Sunday..6=Saturday), stored as JSONB.
type Weekdays []int

func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return json.Marshal([]int{})
	}
	return json.Marshal(w)
}

func (w *Weekdays) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	case nil:
		*w = nil
		return nil
	}
	return fmt.Errorf("cannot scan %T into Weekdays", src)
}

func (w Weekdays) Contains(day int) bool {
	for _, d := range w {
		if d == day {
			return true
		}
	}
	return false
}

// Schedule is a recurring-meeting template. StartTime/EndTime are local
// wall-clock values ("HH:MM") interpreted in TimeZone; the occurrence
// generator converts them to UTC instants.
type Schedule struct {
	ScheduleID  string     `db:"schedule_id" json:"scheduleId"`
	PlatformID  string     `db:"platform_id" json:"platformId"`
	HostID      string     `db:"host_id" json:"hostId"`
	HostName    string     `db:"host_name" json:"hostName"`
	Hosts       HostList   `db:"hosts" json:"hosts"`
	Group       string     `db:"group_name" json:"group"`
	GroupID     string     `db:"group_id" json:"groupId"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	IsPrivate   bool       `db:"is_private" json:"isPrivate"`
	StartDate   time.Time  `db:"start_date" json:"startDate"`
	EndDate     *time.Time `db:"end_date" json:"endDate,omitempty"`
	StartTime   string     `db:"start_time" json:"startTime"`
	EndTime     string     `db:"end_time" json:"endTime"`
	TimeZone    string     `db:"time_zone" json:"timeZone"`
	Recurrence  string     `db:"recurrence" json:"recurrence"`
	DaysOfWeek  Weekdays   `db:"days_of_week" json:"daysOfWeek"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}
