package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

// Service owns the schedule lifecycle: creation, edits with occurrence
// regeneration, terminal status cascades and deletion.
type Service struct {
	store db.Store
}

func NewService(store db.Store) *Service {
	return &Service{store: store}
}

// Create validates and persists a new schedule, then generates its
// occurrences. The primary host is always first in the host list.
func (s *Service) Create(sched *model.Schedule) (*model.Schedule, []model.Occurrence, error) {
	sched.Recurrence = normalizeRecurrence(sched.Recurrence)
	if err := Validate(sched); err != nil {
		return nil, nil, err
	}

	if !sched.Hosts.Contains(sched.HostID) {
		sched.Hosts = append(model.HostList{{
			HostID:   sched.HostID,
			HostName: sched.HostName,
			Role:     model.RoleHost,
		}}, sched.Hosts...)
	}
	sched.Hosts = sched.Hosts.Dedupe()

	exists, err := s.store.ScheduleExists(sched.PlatformID, sched.HostID, sched.StartDate, sched.StartTime)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: a schedule by this host already starts then", errs.ErrAlreadyExists)
	}

	sched.ScheduleID = uuid.NewString()
	sched.Status = model.ScheduleActive
	if err := s.store.CreateSchedule(sched); err != nil {
		return nil, nil, err
	}

	// The primary host is registered up front so listings include them.
	err = s.store.UpsertRegistration(&model.Registration{
		PlatformID:      sched.PlatformID,
		ScheduleID:      sched.ScheduleID,
		ParticipantID:   sched.HostID,
		ParticipantName: sched.HostName,
		Role:            model.RoleHost,
		Status:          model.RegistrationActive,
	})
	if err != nil {
		return nil, nil, err
	}

	occs, err := Expand(sched, time.Now())
	if err != nil {
		return nil, nil, err
	}
	n, err := s.store.InsertOccurrences(occs)
	if err != nil {
		return nil, nil, err
	}
	log.Info().
		Str("schedule_id", sched.ScheduleID).
		Int("occurrences", n).
		Str("recurrence", sched.Recurrence).
		Msg("schedule created")
	return sched, occs, nil
}

func normalizeRecurrence(r string) string {
	if r == "" {
		return model.RecurrenceNone
	}
	return r
}

// Get returns the schedule or ErrNotFound.
func (s *Service) Get(platformID, scheduleID string) (*model.Schedule, error) {
	sched, err := s.store.GetSchedule(platformID, scheduleID)
	if err != nil {
		return nil, err
	}
	if sched == nil {
		return nil, fmt.Errorf("%w: schedule %s", errs.ErrNotFound, scheduleID)
	}
	return sched, nil
}

// Occurrences lists every occurrence of the schedule, earliest first.
func (s *Service) Occurrences(platformID, scheduleID string) ([]model.Occurrence, error) {
	if _, err := s.Get(platformID, scheduleID); err != nil {
		return nil, err
	}
	return s.store.ListOccurrences(platformID, scheduleID)
}

// UpdateRequest carries a partial schedule edit. Nil fields are unchanged.
type UpdateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Group       *string         `json:"group"`
	GroupID     *string         `json:"groupId"`
	IsPrivate   *bool           `json:"isPrivate"`
	Hosts       model.HostList  `json:"hosts"`
	StartDate   *time.Time      `json:"startDate"`
	EndDate     *time.Time      `json:"endDate"`
	StartTime   *string         `json:"startTime"`
	EndTime     *string         `json:"endTime"`
	TimeZone    *string         `json:"timeZone"`
	Recurrence  *string         `json:"recurrence"`
	DaysOfWeek  model.Weekdays  `json:"daysOfWeek"`
	Status      *string         `json:"status"`
}

func terminalStatus(status string) (occurrenceStatus string, ok bool) {
	switch status {
	case model.ScheduleCompleted:
		return model.OccurrenceEnded, true
	case model.ScheduleInactive, model.ScheduleCancelled:
		return model.OccurrenceCancelled, true
	}
	return "", false
}

// Update edits a schedule on behalf of actorID, who must be on the host
// list. Timing edits (clock, recurrence, weekday set) throw away and
// regenerate every not-yet-started occurrence; calendar-window edits trim
// or backfill; plain metadata edits are patched onto future occurrences in
// place. A terminal status cascades to every open occurrence instead.
func (s *Service) Update(platformID, scheduleID, actorID string, req UpdateRequest) (*model.Schedule, error) {
	sched, err := s.Get(platformID, scheduleID)
	if err != nil {
		return nil, err
	}
	if !sched.Hosts.Contains(actorID) && sched.HostID != actorID {
		return nil, fmt.Errorf("%w: only a host can edit the schedule", errs.ErrNotAllowed)
	}

	if req.Status != nil && *req.Status != sched.Status {
		occStatus, ok := terminalStatus(*req.Status)
		if !ok {
			return nil, fmt.Errorf("%w: cannot change status to %q", errs.ErrValidation, *req.Status)
		}
		sched.Status = *req.Status
		if err := s.store.UpdateSchedule(sched); err != nil {
			return nil, err
		}
		if err := s.store.CascadeScheduleStatus(scheduleID, occStatus); err != nil {
			return nil, err
		}
		log.Info().Str("schedule_id", scheduleID).Str("status", sched.Status).Msg("schedule closed")
		return sched, nil
	}

	prev := *sched
	applyEdit(sched, req)
	if err := Validate(sched); err != nil {
		return nil, err
	}
	if err := s.store.UpdateSchedule(sched); err != nil {
		return nil, err
	}

	now := time.Now()
	timingChanged := sched.StartTime != prev.StartTime ||
		sched.EndTime != prev.EndTime ||
		sched.TimeZone != prev.TimeZone ||
		sched.Recurrence != prev.Recurrence ||
		!sameWeekdays(sched.DaysOfWeek, prev.DaysOfWeek)
	windowChanged := !sched.StartDate.Equal(prev.StartDate) || !sameDate(sched.EndDate, prev.EndDate)

	switch {
	case timingChanged:
		if err := s.store.DeleteFutureScheduled(scheduleID, now); err != nil {
			return nil, err
		}
		if err := s.regenerate(sched, now); err != nil {
			return nil, err
		}
	case windowChanged:
		// Conflict-skipping insert backfills days the old window missed.
		if err := s.regenerate(sched, now); err != nil {
			return nil, err
		}
		if sched.StartDate.After(prev.StartDate) {
			if err := s.store.EndOccurrencesBefore(scheduleID, dayStart(sched, sched.StartDate)); err != nil {
				return nil, err
			}
		}
		if sched.EndDate != nil && prev.EndDate != nil && sched.EndDate.Before(*prev.EndDate) {
			cutoff := dayStart(sched, sched.EndDate.AddDate(0, 0, 1))
			if err := s.store.DeleteFutureScheduled(scheduleID, cutoff); err != nil {
				return nil, err
			}
		}
	default:
		patch := db.OccurrencePatch{
			Group:       req.Group,
			GroupID:     req.GroupID,
			Title:       req.Title,
			Description: req.Description,
			IsPrivate:   req.IsPrivate,
			Hosts:       req.Hosts,
		}
		if err := s.store.PatchFutureOccurrences(scheduleID, now, patch); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func (s *Service) regenerate(sched *model.Schedule, now time.Time) error {
	occs, err := Expand(sched, now)
	if err != nil {
		return err
	}
	n, err := s.store.InsertOccurrences(occs)
	if err != nil {
		return err
	}
	log.Info().Str("schedule_id", sched.ScheduleID).Int("occurrences", n).Msg("occurrences regenerated")
	return nil
}

func applyEdit(sched *model.Schedule, req UpdateRequest) {
	if req.Title != nil {
		sched.Title = *req.Title
	}
	if req.Description != nil {
		sched.Description = *req.Description
	}
	if req.Group != nil {
		sched.Group = *req.Group
	}
	if req.GroupID != nil {
		sched.GroupID = *req.GroupID
	}
	if req.IsPrivate != nil {
		sched.IsPrivate = *req.IsPrivate
	}
	if req.Hosts != nil {
		sched.Hosts = req.Hosts.Dedupe()
	}
	if req.StartDate != nil {
		sched.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		sched.EndDate = req.EndDate
	}
	if req.StartTime != nil {
		sched.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		sched.EndTime = *req.EndTime
	}
	if req.TimeZone != nil {
		sched.TimeZone = *req.TimeZone
	}
	if req.Recurrence != nil {
		sched.Recurrence = *req.Recurrence
	}
	if req.DaysOfWeek != nil {
		sched.DaysOfWeek = req.DaysOfWeek
	}
}

func sameWeekdays(a, b model.Weekdays) bool {
	if len(a) != len(b) {
		return false
	}
	for _, d := range a {
		if !b.Contains(d) {
			return false
		}
	}
	return true
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// dayStart returns the UTC instant of the schedule's local start clock on
// the given calendar day.
func dayStart(sched *model.Schedule, day time.Time) time.Time {
	loc, err := time.LoadLocation(sched.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	clock, err := parseClock(sched.StartTime)
	if err != nil {
		clock = 0
	}
	h, min := clockParts(clock)
	y, m, d := day.Date()
	return time.Date(y, m, d, h, min, 0, 0, loc).UTC()
}

// Delete removes the schedule and all derived records. Only the primary
// host may delete.
func (s *Service) Delete(platformID, actorID, scheduleID string) error {
	sched, err := s.Get(platformID, scheduleID)
	if err != nil {
		return err
	}
	if sched.HostID != actorID {
		return fmt.Errorf("%w: only the primary host can delete the schedule", errs.ErrNotAllowed)
	}
	if err := s.store.DeleteScheduleCascade(platformID, actorID, scheduleID); err != nil {
		return err
	}
	log.Info().Str("schedule_id", scheduleID).Msg("schedule deleted")
	return nil
}

// Register adds or reactivates a participant registration. A banned
// registration is never resurrected; the upsert leaves it untouched and the
// participant stays locked out.
func (s *Service) Register(reg *model.Registration) error {
	if reg.PlatformID == "" || reg.ScheduleID == "" || reg.ParticipantID == "" {
		return fmt.Errorf("%w: platformId, scheduleId and participantId are required", errs.ErrValidation)
	}
	if reg.Role == "" {
		reg.Role = model.RoleParticipant
	}
	if reg.Status == "" {
		reg.Status = model.RegistrationActive
	}
	if _, err := s.Get(reg.PlatformID, reg.ScheduleID); err != nil {
		return err
	}
	return s.store.UpsertRegistration(reg)
}
