package db

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/parleylabs/parley/internal/model"
)

// OccurrencePatch carries the mutable metadata that can be applied to future
// occurrences without regenerating them.
type OccurrencePatch struct {
	Group       *string
	GroupID     *string
	Title       *string
	Description *string
	IsPrivate   *bool
	Hosts       model.HostList
}

// Store is the durable persistence surface handed to services and
// controllers. Lookup methods return (nil, nil) when the row does not exist;
// only I/O failures produce errors.
type Store interface {
	// schedules
	CreateSchedule(s *model.Schedule) error
	GetSchedule(platformID, scheduleID string) (*model.Schedule, error)
	ScheduleExists(platformID, hostID string, startDate time.Time, startTime string) (bool, error)
	UpdateSchedule(s *model.Schedule) error
	DeleteScheduleCascade(platformID, hostID, scheduleID string) error

	// occurrences
	InsertOccurrences(occs []model.Occurrence) (int, error)
	GetOccurrence(platformID, scheduleID, occurrenceID string) (*model.Occurrence, error)
	ListOccurrences(platformID, scheduleID string) ([]model.Occurrence, error)
	MarkOccurrenceLive(occurrenceID string) (bool, error)
	MarkOccurrenceEnded(occurrenceID string) (bool, error)
	DeleteFutureScheduled(scheduleID string, from time.Time) error
	PatchFutureOccurrences(scheduleID string, from time.Time, patch OccurrencePatch) error
	EndOccurrencesBefore(scheduleID string, cutoff time.Time) error
	CascadeScheduleStatus(scheduleID, occurrenceStatus string) error

	// participant registrations
	UpsertRegistration(r *model.Registration) error
	GetRegistration(platformID, scheduleID, participantID string) (*model.Registration, error)
	SetRegistrationStatus(platformID, scheduleID, participantID, status string) error

	// meeting + attendance logs
	OpenMeetingLog(l *model.MeetingLog) error
	CloseMeetingLog(platformID, scheduleID, occurrenceID string, endedAt time.Time) error
	OpenAttendance(e *model.AttendanceEntry) error
	CloseAttendance(platformID, scheduleID, occurrenceID, participantID string, leftAt time.Time) error
	CloseAllAttendance(platformID, scheduleID, occurrenceID string, leftAt time.Time) (int, error)

	// durable chat + poll copies
	InsertMessage(m *model.Message) error
	DeleteMessages(scheduleID, occurrenceID string) error
	DeleteMemberMessages(scheduleID, occurrenceID, senderID string) error
	InsertPoll(p *model.Poll) error
	GetPoll(pollID string) (*model.Poll, error)
	RecordVote(pollID string, optionIndex int) error
	SetPollActive(pollID string, active bool) error
	DeletePolls(scheduleID, occurrenceID string) error

	// recordings
	InsertRecording(r *model.Recording) error
	CompleteRecording(egressID, status, filePath, archiveURL string, completedAt time.Time) error
	GetRecordingByEgress(egressID string) (*model.Recording, error)

	// platforms
	GetPlatform(platformID string) (*model.Platform, error)
}

type pgStore struct {
	db *sqlx.DB
}

// compile-time check that pgStore implements Store
var _ Store = (*pgStore)(nil)

func NewStore() Store {
	return &pgStore{db: DB}
}
