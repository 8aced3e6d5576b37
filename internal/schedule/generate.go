// Package schedule validates recurring-meeting templates and expands them
// into concrete occurrences. Dates are calendar days; clocks are local
// wall-clock values in the schedule's timezone; occurrences carry absolute
// UTC instants.
package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/parleylabs/parley/internal/model"
)

func clockParts(d time.Duration) (hour, min int) {
	return int(d / time.Hour), int((d % time.Hour) / time.Minute)
}

// Expand produces the maximal set of occurrences for the schedule between
// startDate and endDate inclusive. Days whose local start has already
// passed at now are skipped; custom recurrence additionally filters by
// weekday. The schedule must already be validated.
func Expand(s *model.Schedule, now time.Time) ([]model.Occurrence, error) {
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, err
	}
	startClock, err := parseClock(s.StartTime)
	if err != nil {
		return nil, err
	}
	endClock, err := parseClock(s.EndTime)
	if err != nil {
		return nil, err
	}

	lastDay := s.StartDate
	if s.EndDate != nil {
		lastDay = *s.EndDate
	}
	if s.Recurrence == model.RecurrenceNone {
		lastDay = s.StartDate
	}

	startHour, startMin := clockParts(startClock)
	endHour, endMin := clockParts(endClock)

	var out []model.Occurrence
	for day := s.StartDate; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		y, m, d := day.Date()
		startAt := time.Date(y, m, d, startHour, startMin, 0, 0, loc)
		if startAt.Before(now) {
			continue
		}
		if s.Recurrence == model.RecurrenceCustom && !s.DaysOfWeek.Contains(int(startAt.Weekday())) {
			continue
		}
		endAt := time.Date(y, m, d, endHour, endMin, 0, 0, loc)
		// Midnight rollover: the window ends on the next calendar day.
		if !endAt.After(startAt) {
			endAt = endAt.AddDate(0, 0, 1)
		}
		out = append(out, model.Occurrence{
			OccurrenceID: uuid.NewString(),
			ScheduleID:   s.ScheduleID,
			PlatformID:   s.PlatformID,
			HostID:       s.HostID,
			HostName:     s.HostName,
			Hosts:        s.Hosts,
			Group:        s.Group,
			GroupID:      s.GroupID,
			Title:        s.Title,
			Description:  s.Description,
			IsPrivate:    s.IsPrivate,
			Status:       model.OccurrenceScheduled,
			StartAt:      startAt.UTC(),
			EndAt:        endAt.UTC(),
		})
	}
	return out, nil
}
