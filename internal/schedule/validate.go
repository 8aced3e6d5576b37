package schedule

import (
	"fmt"
	"time"

	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

// maxDuration bounds the daily meeting window.
const maxDuration = 120 * time.Minute

// minCustomSpan: custom recurrence needs at least a full week of calendar
// range, otherwise the weekday set cannot express anything daily can't.
const minCustomSpan = 7 * 24 * time.Hour

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errs.ErrValidation, fmt.Sprintf(format, args...))
}

// parseClock parses an "HH:MM" wall-clock value.
func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Duration returns the length of the daily meeting window, rolling over
// midnight when the end clock is not after the start clock.
func Duration(startTime, endTime string) (time.Duration, error) {
	start, err := parseClock(startTime)
	if err != nil {
		return 0, err
	}
	end, err := parseClock(endTime)
	if err != nil {
		return 0, err
	}
	d := end - start
	if d <= 0 {
		d += 24 * time.Hour
	}
	return d, nil
}

// Validate checks every schedule invariant. It returns an error wrapping
// ErrValidation describing the first violation found.
func Validate(s *model.Schedule) error {
	if s.PlatformID == "" || s.HostID == "" || s.Title == "" {
		return invalid("platformId, hostId and title are required")
	}
	if s.StartDate.IsZero() {
		return invalid("startDate is required")
	}

	if _, err := time.LoadLocation(s.TimeZone); err != nil {
		return invalid("unknown time zone %q", s.TimeZone)
	}
	d, err := Duration(s.StartTime, s.EndTime)
	if err != nil {
		return invalid("%s", err)
	}
	if d > maxDuration {
		return invalid("meeting window %s exceeds the %s maximum", d, maxDuration)
	}

	switch s.Recurrence {
	case model.RecurrenceNone:
		if len(s.DaysOfWeek) > 0 {
			return invalid("daysOfWeek is only valid with custom recurrence")
		}
	case model.RecurrenceDaily:
		if s.EndDate == nil {
			return invalid("daily recurrence requires endDate")
		}
		if len(s.DaysOfWeek) > 0 {
			return invalid("daysOfWeek is only valid with custom recurrence")
		}
	case model.RecurrenceCustom:
		if s.EndDate == nil {
			return invalid("custom recurrence requires endDate")
		}
		if s.EndDate.Sub(s.StartDate) < minCustomSpan {
			return invalid("custom recurrence requires endDate at least 7 days after startDate")
		}
		if len(s.DaysOfWeek) == 0 {
			return invalid("custom recurrence requires a non-empty daysOfWeek")
		}
		for _, day := range s.DaysOfWeek {
			if day < 0 || day > 6 {
				return invalid("weekday %d out of range 0..6", day)
			}
		}
	default:
		return invalid("unknown recurrence %q", s.Recurrence)
	}

	if s.EndDate != nil {
		if s.EndDate.Before(s.StartDate) {
			return invalid("endDate must not be before startDate")
		}
		if s.EndDate.Equal(s.StartDate) && s.Recurrence != model.RecurrenceNone {
			return invalid("a single-day range requires recurrence none")
		}
	}
	return nil
}
