package chat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

type fakeStore struct {
	db.Store

	mu       sync.Mutex
	messages []model.Message
	polls    []model.Poll
	votes    map[string][]int
	deleted  []string
}

func (f *fakeStore) InsertMessage(m *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, *m)
	return nil
}

func (f *fakeStore) DeleteMessages(scheduleID, occurrenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
	return nil
}

func (f *fakeStore) DeleteMemberMessages(scheduleID, occurrenceID, senderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, senderID)
	return nil
}

func (f *fakeStore) InsertPoll(p *model.Poll) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = append(f.polls, *p)
	return nil
}

func (f *fakeStore) GetPoll(pollID string) (*model.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.polls {
		if f.polls[i].PollID == pollID {
			p := f.polls[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) RecordVote(pollID string, optionIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.votes == nil {
		f.votes = make(map[string][]int)
	}
	f.votes[pollID] = append(f.votes[pollID], optionIndex)
	return nil
}

func (f *fakeStore) SetPollActive(pollID string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.polls {
		if f.polls[i].PollID == pollID {
			f.polls[i].IsActive = active
		}
	}
	return nil
}

func (f *fakeStore) DeletePolls(scheduleID, occurrenceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls = nil
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) Room(occurrenceID, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) Member(memberKey, event string, payload any) error { return nil }

func newTestService(t *testing.T) (*Service, *fakeStore, *fakeNotifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cipher, err := NewCipher("test-key")
	require.NoError(t, err)
	store := &fakeStore{}
	notifier := &fakeNotifier{}
	return NewService(store, rdb, cipher, notifier), store, notifier, rdb
}

func message(sender, text string) model.Message {
	return model.Message{
		ScheduleID:   "sched-1",
		OccurrenceID: "occ-1",
		SenderID:     sender,
		SenderName:   "name-" + sender,
		SenderRole:   model.RoleParticipant,
		PlatformID:   "plat-1",
		Text:         text,
	}
}

func TestSendMessageCachesEncrypted(t *testing.T) {
	svc, store, notifier, rdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, message("u1", "hello")))

	raws, err := rdb.LRange(ctx, chatKey("sched-1", "occ-1"), 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.NotContains(t, raws[0], "hello")

	require.Len(t, store.messages, 1)
	assert.NotEqual(t, "hello", store.messages[0].Text)
	assert.Contains(t, notifier.events, "newChat")
}

func TestSendMessageRejectsEmptyAndFloods(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.SendMessage(ctx, message("u1", ""))
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, svc.SendMessage(ctx, message("u1", "first")))
	err = svc.SendMessage(ctx, message("u1", "too fast"))
	assert.ErrorIs(t, err, errs.ErrRateLimited)
}

func TestHistoryDecryptsChronologically(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, message("u1", "one")))
	require.NoError(t, svc.SendMessage(ctx, message("u2", "two")))
	require.NoError(t, svc.SendMessage(ctx, message("u3", "three")))

	history, err := svc.History(ctx, "sched-1", "occ-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "one", history[0].Text)
	assert.Equal(t, "three", history[2].Text)
}

func TestHistoryIsCapped(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < historyLimit+5; i++ {
		require.NoError(t, svc.SendMessage(ctx, message(fmt.Sprintf("u%d", i), fmt.Sprintf("m%d", i))))
	}

	history, err := svc.History(ctx, "sched-1", "occ-1")
	require.NoError(t, err)
	assert.Len(t, history, historyLimit)
	// oldest messages fall off the front
	assert.Equal(t, "m5", history[0].Text)
}

func poll(creator string) model.Poll {
	return model.Poll{
		ScheduleID:   "sched-1",
		OccurrenceID: "occ-1",
		Question:     "lunch?",
		Options:      model.PollOptions{{Text: "yes"}, {Text: "no"}},
		CreatedBy:    creator,
	}
}

func TestCreatePollHostOnly(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreatePoll(ctx, poll("u1"), model.RoleParticipant)
	assert.ErrorIs(t, err, errs.ErrNotAllowed)

	created, err := svc.CreatePoll(ctx, poll("host-1"), model.RoleHost)
	require.NoError(t, err)
	assert.NotEmpty(t, created.PollID)
	assert.True(t, created.IsActive)
}

func TestCreatePollValidatesOptions(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	p := poll("host-1")
	p.Options = model.PollOptions{{Text: "only"}}
	_, err := svc.CreatePoll(ctx, p, model.RoleHost)
	assert.ErrorIs(t, err, errs.ErrValidation)

	p = poll("host-1")
	p.Question = ""
	_, err = svc.CreatePoll(ctx, p, model.RoleHost)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestVoteOncePerParticipant(t *testing.T) {
	svc, store, notifier, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePoll(ctx, poll("host-1"), model.RoleHost)
	require.NoError(t, err)

	require.NoError(t, svc.Vote(ctx, "occ-1", created.PollID, "u1", 0))
	err = svc.Vote(ctx, "occ-1", created.PollID, "u1", 1)
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	require.NoError(t, svc.Vote(ctx, "occ-1", created.PollID, "u2", 1))
	assert.Equal(t, []int{0, 1}, store.votes[created.PollID])
	assert.Contains(t, notifier.events, "voteEvent")
}

func TestVoteChecksPollAndOption(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	err := svc.Vote(ctx, "occ-1", "poll-missing", "u1", 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	created, err := svc.CreatePoll(ctx, poll("host-1"), model.RoleHost)
	require.NoError(t, err)

	// a poll belongs to its occurrence
	err = svc.Vote(ctx, "occ-other", created.PollID, "u1", 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// index 7 on a two-option poll is refused and the vote is not burned
	err = svc.Vote(ctx, "occ-1", created.PollID, "u1", 7)
	assert.ErrorIs(t, err, errs.ErrValidation)
	require.NoError(t, svc.Vote(ctx, "occ-1", created.PollID, "u1", 1))
	assert.Equal(t, []int{1}, store.votes[created.PollID])
}

func TestVoteOnClosedPollRefused(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreatePoll(ctx, poll("host-1"), model.RoleHost)
	require.NoError(t, err)
	require.NoError(t, svc.SetPollStatus(ctx, "occ-1", created.PollID, model.RoleHost, false))

	err = svc.Vote(ctx, "occ-1", created.PollID, "u1", 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, store.votes[created.PollID])
}

func TestRaisedHandsKeepOrder(t *testing.T) {
	svc, _, notifier, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RaiseHand(ctx, "sched-1", "occ-1", "u1", "Asha"))
	require.NoError(t, svc.RaiseHand(ctx, "sched-1", "occ-1", "u2", "Ben"))

	hands, err := svc.RaisedHands(ctx, "sched-1", "occ-1")
	require.NoError(t, err)
	require.Len(t, hands, 2)
	assert.Equal(t, "u1", hands[0].ParticipantID)

	require.NoError(t, svc.LowerHand(ctx, "sched-1", "occ-1", "u1", "Asha"))
	hands, err = svc.RaisedHands(ctx, "sched-1", "occ-1")
	require.NoError(t, err)
	require.Len(t, hands, 1)
	assert.Equal(t, "u2", hands[0].ParticipantID)
	assert.Contains(t, notifier.events, "handEvent")
}

func TestPurgeMemberMessagesFiltersSender(t *testing.T) {
	svc, store, notifier, rdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, message("u1", "mine")))
	require.NoError(t, svc.SendMessage(ctx, message("u2", "keep me")))
	require.NoError(t, svc.SendMessage(ctx, message("u3", "keep me too")))

	require.NoError(t, svc.PurgeMemberMessages(ctx, "sched-1", "occ-1", "u1"))

	history, err := svc.History(ctx, "sched-1", "occ-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "keep me", history[0].Text)
	assert.Equal(t, []string{"u1"}, store.deleted)
	assert.Contains(t, notifier.events, "deleteMessage")

	// cache key still has a TTL after the rewrite
	ttl, err := rdb.TTL(ctx, chatKey("sched-1", "occ-1")).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)
}

func TestPurgeRoomState(t *testing.T) {
	svc, store, _, rdb := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SendMessage(ctx, message("u1", "bye")))
	_, err := svc.CreatePoll(ctx, poll("host-1"), model.RoleHost)
	require.NoError(t, err)
	require.NoError(t, svc.RaiseHand(ctx, "sched-1", "occ-1", "u1", "Asha"))

	require.NoError(t, svc.PurgeMessages(ctx, "sched-1", "occ-1"))
	require.NoError(t, svc.PurgePolls(ctx, "sched-1", "occ-1"))
	require.NoError(t, svc.PurgeRaisedHands(ctx, "sched-1", "occ-1"))

	assert.Empty(t, store.messages)
	assert.Empty(t, store.polls)

	n, err := rdb.Exists(ctx, chatKey("sched-1", "occ-1"), handsKey("sched-1", "occ-1")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
