package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

func TestValidateAcceptsWellFormedSchedules(t *testing.T) {
	cases := map[string]func(*model.Schedule){
		"none":  func(s *model.Schedule) {},
		"daily": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceDaily
			s.EndDate = datePtr(2024, time.June, 10)
		},
		"custom": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceCustom
			s.EndDate = datePtr(2024, time.June, 30)
			s.DaysOfWeek = model.Weekdays{0, 6}
		},
		"midnight rollover": func(s *model.Schedule) {
			s.StartTime = "23:30"
			s.EndTime = "00:45"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := baseSchedule()
			mutate(s)
			assert.NoError(t, Validate(s))
		})
	}
}

func TestValidateRejectsBrokenSchedules(t *testing.T) {
	cases := map[string]func(*model.Schedule){
		"missing title": func(s *model.Schedule) { s.Title = "" },
		"bad timezone":  func(s *model.Schedule) { s.TimeZone = "Mars/Olympus" },
		"bad clock":     func(s *model.Schedule) { s.StartTime = "25:99" },
		"window too long": func(s *model.Schedule) {
			s.StartTime = "10:00"
			s.EndTime = "13:00"
		},
		"daily without endDate": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceDaily
		},
		"custom without weekdays": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceCustom
			s.EndDate = datePtr(2024, time.June, 30)
		},
		"custom span under a week": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceCustom
			s.EndDate = datePtr(2024, time.June, 5)
			s.DaysOfWeek = model.Weekdays{1}
		},
		"custom weekday out of range": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceCustom
			s.EndDate = datePtr(2024, time.June, 30)
			s.DaysOfWeek = model.Weekdays{7}
		},
		"weekdays with none": func(s *model.Schedule) {
			s.DaysOfWeek = model.Weekdays{1}
		},
		"endDate before startDate": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceDaily
			s.EndDate = datePtr(2024, time.May, 1)
		},
		"single day but recurring": func(s *model.Schedule) {
			s.Recurrence = model.RecurrenceDaily
			s.EndDate = datePtr(2024, time.June, 1)
		},
		"unknown recurrence": func(s *model.Schedule) { s.Recurrence = "weekly" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := baseSchedule()
			mutate(s)
			err := Validate(s)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func TestDurationRollsOverMidnight(t *testing.T) {
	d, err := Duration("23:30", "00:30")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	d, err = Duration("10:00", "10:45")
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)
}
