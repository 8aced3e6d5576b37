package meeting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/media"
	"github.com/parleylabs/parley/internal/model"
	"github.com/parleylabs/parley/internal/session"
)

type fakeStore struct {
	db.Store

	mu               sync.Mutex
	occurrence       *model.Occurrence
	logsClosed       int
	attendanceClosed int
}

func (f *fakeStore) GetOccurrence(platformID, scheduleID, occurrenceID string) (*model.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.occurrence == nil || f.occurrence.OccurrenceID != occurrenceID {
		return nil, nil
	}
	occ := *f.occurrence
	return &occ, nil
}

func (f *fakeStore) MarkOccurrenceEnded(occurrenceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.occurrence.Status == model.OccurrenceEnded || f.occurrence.Status == model.OccurrenceCancelled {
		return false, nil
	}
	f.occurrence.Status = model.OccurrenceEnded
	return true, nil
}

func (f *fakeStore) CloseMeetingLog(platformID, scheduleID, occurrenceID string, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logsClosed++
	return nil
}

func (f *fakeStore) CloseAllAttendance(platformID, scheduleID, occurrenceID string, leftAt time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendanceClosed++
	return 2, nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	members []session.Session
	evicted int
}

func (f *fakeRegistry) RemoveAll(ctx context.Context, occurrenceID string) ([]session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evicted++
	out := f.members
	f.members = nil
	return out, nil
}

type fakeRooms struct {
	mu      sync.Mutex
	deleted int
	removed []string
}

func (f *fakeRooms) JoinToken(p media.TokenParams) (string, error) { return "", nil }
func (f *fakeRooms) ClientURL() string                             { return "" }
func (f *fakeRooms) DeleteRoom(ctx context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}
func (f *fakeRooms) RemoveParticipant(ctx context.Context, room, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, identity)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	room []string
}

func (f *fakeNotifier) Room(occurrenceID, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.room = append(f.room, event)
	return nil
}

func (f *fakeNotifier) Member(memberKey, event string, payload any) error { return nil }

type fakePurger struct {
	mu       sync.Mutex
	messages int
	polls    int
	hands    int
}

func (f *fakePurger) PurgeMessages(ctx context.Context, scheduleID, occurrenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages++
	return nil
}

func (f *fakePurger) PurgePolls(ctx context.Context, scheduleID, occurrenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	return nil
}

func (f *fakePurger) PurgeRaisedHands(ctx context.Context, scheduleID, occurrenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hands++
	return nil
}

type fixture struct {
	store    *fakeStore
	registry *fakeRegistry
	rooms    *fakeRooms
	notifier *fakeNotifier
	purger   *fakePurger
	orch     *Orchestrator
}

func newFixture(status string) *fixture {
	f := &fixture{
		store: &fakeStore{
			occurrence: &model.Occurrence{
				OccurrenceID: "occ-1",
				ScheduleID:   "sched-1",
				PlatformID:   "plat-1",
				HostID:       "host-1",
				Hosts:        model.HostList{{HostID: "host-1", Role: model.RoleHost}},
				Status:       status,
				StartAt:      time.Now().UTC().Add(-30 * time.Minute),
				EndAt:        time.Now().UTC().Add(30 * time.Minute),
			},
		},
		registry: &fakeRegistry{members: []session.Session{
			{MemberKey: "u1_occ-1_plat-1", ParticipantID: "u1", OccurrenceID: "occ-1"},
			{MemberKey: "u2_occ-1_plat-1", ParticipantID: "u2", OccurrenceID: "occ-1"},
		}},
		rooms:    &fakeRooms{},
		notifier: &fakeNotifier{},
		purger:   &fakePurger{},
	}
	f.orch = NewOrchestrator(f.store, f.registry, f.rooms, f.notifier, f.purger)
	return f
}

func endReq(requester string) EndRequest {
	return EndRequest{
		PlatformID:   "plat-1",
		ScheduleID:   "sched-1",
		OccurrenceID: "occ-1",
		RequesterID:  requester,
	}
}

func TestEndMeetingRunsFullCascade(t *testing.T) {
	f := newFixture(model.OccurrenceLive)

	require.NoError(t, f.orch.EndMeeting(context.Background(), endReq("host-1")))

	assert.Equal(t, model.OccurrenceEnded, f.store.occurrence.Status)
	assert.Equal(t, 1, f.rooms.deleted)
	assert.Equal(t, 1, f.store.logsClosed)
	assert.Equal(t, 1, f.store.attendanceClosed)
	assert.ElementsMatch(t, []string{"u1", "u2"}, f.rooms.removed)
	assert.Contains(t, f.notifier.room, "roomClosed")
	assert.Equal(t, 1, f.purger.messages)
	assert.Equal(t, 1, f.purger.polls)
	assert.Equal(t, 1, f.purger.hands)
}

func TestEndMeetingTwiceIsIdempotent(t *testing.T) {
	f := newFixture(model.OccurrenceLive)

	require.NoError(t, f.orch.EndMeeting(context.Background(), endReq("host-1")))
	// the timer fires after the host already ended the meeting
	require.NoError(t, f.orch.EndMeeting(context.Background(), endReq("")))

	assert.Equal(t, 1, f.rooms.deleted)
	assert.Equal(t, 1, f.store.logsClosed)
	assert.Equal(t, 1, f.registry.evicted)
	assert.Equal(t, 1, f.purger.messages)
}

func TestEndMeetingRequesterMustBeHost(t *testing.T) {
	f := newFixture(model.OccurrenceLive)

	err := f.orch.EndMeeting(context.Background(), endReq("user-1"))
	assert.ErrorIs(t, err, errs.ErrNotAllowed)
	assert.Equal(t, model.OccurrenceLive, f.store.occurrence.Status)
	assert.Zero(t, f.rooms.deleted)
}

func TestEndMeetingTimerPathNeedsNoRequester(t *testing.T) {
	f := newFixture(model.OccurrenceScheduled)

	require.NoError(t, f.orch.EndMeeting(context.Background(), endReq("")))
	assert.Equal(t, model.OccurrenceEnded, f.store.occurrence.Status)
}

func TestEndMeetingValidation(t *testing.T) {
	f := newFixture(model.OccurrenceLive)

	err := f.orch.EndMeeting(context.Background(), EndRequest{OccurrenceID: "occ-1"})
	assert.ErrorIs(t, err, errs.ErrValidation)

	req := endReq("host-1")
	req.OccurrenceID = "occ-unknown"
	err = f.orch.EndMeeting(context.Background(), req)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestNotifyEndingSoon(t *testing.T) {
	f := newFixture(model.OccurrenceLive)
	p := Payload{PlatformID: "plat-1", ScheduleID: "sched-1", OccurrenceID: "occ-1"}

	require.NoError(t, f.orch.NotifyEndingSoon(context.Background(), p))
	assert.Contains(t, f.notifier.room, "meetingEndSoon")
}

func TestNotifyEndingSoonSkipsClosedMeetings(t *testing.T) {
	f := newFixture(model.OccurrenceEnded)
	p := Payload{PlatformID: "plat-1", ScheduleID: "sched-1", OccurrenceID: "occ-1"}

	require.NoError(t, f.orch.NotifyEndingSoon(context.Background(), p))
	assert.Empty(t, f.notifier.room)
}
