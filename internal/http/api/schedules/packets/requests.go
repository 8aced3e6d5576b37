package packets

import (
	"time"

	"github.com/parleylabs/parley/internal/model"
)

type CreateScheduleRequest struct {
	HostName    string         `json:"hostName"`
	Hosts       model.HostList `json:"hosts"`
	Group       string         `json:"group"`
	GroupID     string         `json:"groupId"`
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	IsPrivate   bool           `json:"isPrivate"`
	StartDate   time.Time      `json:"startDate" binding:"required"`
	EndDate     *time.Time     `json:"endDate"`
	StartTime   string         `json:"startTime" binding:"required"`
	EndTime     string         `json:"endTime" binding:"required"`
	TimeZone    string         `json:"timeZone" binding:"required"`
	Recurrence  string         `json:"recurrence"`
	DaysOfWeek  model.Weekdays `json:"daysOfWeek"`
}

type RegisterRequest struct {
	ParticipantID   string `json:"participantId" binding:"required"`
	ParticipantName string `json:"participantName"`
	Role            string `json:"role"`
}
