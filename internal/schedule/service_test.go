package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

type fakeStore struct {
	db.Store

	schedules map[string]*model.Schedule
	exists    bool

	inserted      int
	deletedFuture int
	patched       int
	endedBefore   int
	cascaded      []string
	cascadeDelete bool
	registrations []model.Registration
}

func newFakeStore() *fakeStore {
	return &fakeStore{schedules: make(map[string]*model.Schedule)}
}

func (f *fakeStore) CreateSchedule(s *model.Schedule) error {
	cp := *s
	f.schedules[s.ScheduleID] = &cp
	return nil
}

func (f *fakeStore) GetSchedule(platformID, scheduleID string) (*model.Schedule, error) {
	s, ok := f.schedules[scheduleID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) ScheduleExists(platformID, hostID string, startDate time.Time, startTime string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) UpdateSchedule(s *model.Schedule) error {
	cp := *s
	f.schedules[s.ScheduleID] = &cp
	return nil
}

func (f *fakeStore) DeleteScheduleCascade(platformID, hostID, scheduleID string) error {
	f.cascadeDelete = true
	delete(f.schedules, scheduleID)
	return nil
}

func (f *fakeStore) InsertOccurrences(occs []model.Occurrence) (int, error) {
	f.inserted += len(occs)
	return len(occs), nil
}

func (f *fakeStore) DeleteFutureScheduled(scheduleID string, from time.Time) error {
	f.deletedFuture++
	return nil
}

func (f *fakeStore) PatchFutureOccurrences(scheduleID string, from time.Time, patch db.OccurrencePatch) error {
	f.patched++
	return nil
}

func (f *fakeStore) EndOccurrencesBefore(scheduleID string, cutoff time.Time) error {
	f.endedBefore++
	return nil
}

func (f *fakeStore) CascadeScheduleStatus(scheduleID, occurrenceStatus string) error {
	f.cascaded = append(f.cascaded, occurrenceStatus)
	return nil
}

func (f *fakeStore) UpsertRegistration(r *model.Registration) error {
	f.registrations = append(f.registrations, *r)
	return nil
}

func futureSchedule() *model.Schedule {
	start := time.Now().UTC().AddDate(0, 0, 7)
	end := start.AddDate(0, 0, 9)
	return &model.Schedule{
		PlatformID: "plat-1",
		HostID:     "host-1",
		HostName:   "Asha",
		Title:      "Standup",
		StartDate:  start,
		EndDate:    &end,
		StartTime:  "10:00",
		EndTime:    "10:30",
		TimeZone:   "UTC",
		Recurrence: model.RecurrenceDaily,
	}
}

func TestCreateGeneratesOccurrences(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	created, occs, err := svc.Create(futureSchedule())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ScheduleID)
	assert.Equal(t, model.ScheduleActive, created.Status)
	assert.Len(t, occs, 10)
	assert.Equal(t, 10, store.inserted)

	// the primary host is always on the host list
	require.NotEmpty(t, created.Hosts)
	assert.Equal(t, "host-1", created.Hosts[0].HostID)
	assert.Equal(t, model.RoleHost, created.Hosts[0].Role)

	// and gets an up-front registration
	require.Len(t, store.registrations, 1)
	assert.Equal(t, "host-1", store.registrations[0].ParticipantID)
	assert.Equal(t, model.RoleHost, store.registrations[0].Role)
	assert.Equal(t, model.RegistrationActive, store.registrations[0].Status)
}

func TestCreateRejectsDuplicateSlot(t *testing.T) {
	store := newFakeStore()
	store.exists = true
	svc := NewService(store)

	_, _, err := svc.Create(futureSchedule())
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)
}

func TestCreateValidates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	s := futureSchedule()
	s.TimeZone = "Nowhere/Void"
	_, _, err := svc.Create(s)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func createOne(t *testing.T, svc *Service) *model.Schedule {
	t.Helper()
	created, _, err := svc.Create(futureSchedule())
	require.NoError(t, err)
	return created
}

func strPtr(s string) *string { return &s }

func TestUpdateRequiresHost(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	_, err := svc.Update("plat-1", created.ScheduleID, "stranger", UpdateRequest{Title: strPtr("x")})
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
}

func TestUpdateMetadataPatchesInPlace(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)
	store.inserted = 0

	updated, err := svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		Title:       strPtr("Renamed"),
		Description: strPtr("new"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, 1, store.patched)
	assert.Zero(t, store.deletedFuture)
	assert.Zero(t, store.inserted)
}

func TestUpdateTimingRegenerates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)
	store.inserted = 0

	_, err := svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		StartTime: strPtr("11:00"),
		EndTime:   strPtr("11:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.deletedFuture)
	assert.Positive(t, store.inserted)
	assert.Zero(t, store.patched)
}

func TestUpdateLaterStartDateEndsEarlierOccurrences(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	newStart := created.StartDate.AddDate(0, 0, 3)
	_, err := svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		StartDate: &newStart,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.endedBefore)
	assert.Zero(t, store.deletedFuture)
}

func TestUpdateTerminalStatusCascades(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	_, err := svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		Status: strPtr(model.ScheduleCompleted),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{model.OccurrenceEnded}, store.cascaded)

	_, err = svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		Status: strPtr(model.ScheduleCancelled),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{model.OccurrenceEnded, model.OccurrenceCancelled}, store.cascaded)
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	_, err := svc.Update("plat-1", created.ScheduleID, "host-1", UpdateRequest{
		Status: strPtr("paused"),
	})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestDeletePrimaryHostOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	err := svc.Delete("plat-1", "cohost-1", created.ScheduleID)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)

	require.NoError(t, svc.Delete("plat-1", "host-1", created.ScheduleID))
	assert.True(t, store.cascadeDelete)

	err = svc.Delete("plat-1", "host-1", created.ScheduleID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRegisterDefaultsAndValidates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created := createOne(t, svc)

	err := svc.Register(&model.Registration{PlatformID: "plat-1"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	err = svc.Register(&model.Registration{
		PlatformID:    "plat-1",
		ScheduleID:    "missing",
		ParticipantID: "u1",
	})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	reg := &model.Registration{
		PlatformID:    "plat-1",
		ScheduleID:    created.ScheduleID,
		ParticipantID: "u1",
	}
	require.NoError(t, svc.Register(reg))
	assert.Equal(t, model.RoleParticipant, reg.Role)
	assert.Equal(t, model.RegistrationActive, reg.Status)

	// one registration from create (the host), one from the upsert
	assert.Len(t, store.registrations, 2)
}
