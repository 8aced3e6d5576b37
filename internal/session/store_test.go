package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb), mr
}

func testSession(participantID string) Session {
	return Session{
		ParticipantID: participantID,
		Username:      "user-" + participantID,
		PlatformID:    "plat-1",
		ScheduleID:    "sched-1",
		OccurrenceID:  "occ-1",
		ConnectionID:  "conn-" + participantID,
		Role:          "participant",
		JoinedAt:      time.Now().UTC(),
	}
}

func TestMemberKeyFormat(t *testing.T) {
	assert.Equal(t, "user-1_occ-1_plat-1", MemberKey("occ-1", "user-1", "plat-1"))
}

func TestAddGetRemove(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sess := testSession("u1")
	require.NoError(t, store.Add(ctx, sess))

	key := MemberKey("occ-1", "u1", "plat-1")
	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ParticipantID)
	assert.Equal(t, key, got.MemberKey)

	removed, err := store.Remove(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, removed)

	got, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)

	// removing again is a no-op
	removed, err = store.Remove(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestGetByConnection(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, testSession("u1")))

	got, err := store.GetByConnection(ctx, "conn-u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ParticipantID)

	got, err = store.GetByConnection(ctx, "conn-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err := store.RemoveByConnection(ctx, "conn-u1")
	require.NoError(t, err)
	require.NotNil(t, removed)
	assert.Equal(t, "u1", removed.ParticipantID)
}

func TestMembersPrunesExpiredSessions(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, testSession("u1")))
	require.NoError(t, store.Add(ctx, testSession("u2")))

	// expire u2's session hash but leave it in the member set
	mr.Del("session:" + MemberKey("occ-1", "u2", "plat-1"))

	members, err := store.Members(ctx, "occ-1")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "u1", members[0].ParticipantID)
}

func TestRemoveAllEvictsEverySession(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, testSession("u1")))
	require.NoError(t, store.Add(ctx, testSession("u2")))
	require.NoError(t, store.Add(ctx, testSession("u3")))

	removed, err := store.RemoveAll(ctx, "occ-1")
	require.NoError(t, err)
	assert.Len(t, removed, 3)

	members, err := store.Members(ctx, "occ-1")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestSessionsExpire(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, testSession("u1")))
	mr.FastForward(TTL + time.Minute)

	got, err := store.Get(ctx, MemberKey("occ-1", "u1", "plat-1"))
	require.NoError(t, err)
	assert.Nil(t, got)
}
