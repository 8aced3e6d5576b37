package meeting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/queue"
)

func newTestScheduler(t *testing.T) (*Scheduler, *queue.Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	q := queue.NewQueue(rdb)
	return NewScheduler(q), q
}

func TestArmSchedulesEndAndReminder(t *testing.T) {
	s, q := newTestScheduler(t)
	ctx := context.Background()

	endAt := time.Now().Add(time.Hour)
	require.NoError(t, s.Arm(ctx, endAt, Payload{OccurrenceID: "occ-1"}))

	ended, err := q.PendingCount(ctx, queue.TopicMeetingEnded)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ended)

	soon, err := q.PendingCount(ctx, queue.TopicMeetingEndingSoon)
	require.NoError(t, err)
	assert.EqualValues(t, 1, soon)

	// the reminder fires 15 minutes before the end job
	jobs, err := q.Claim(ctx, queue.TopicMeetingEndingSoon, endAt.Add(-EndSoonLead+time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	jobs, err = q.Claim(ctx, queue.TopicMeetingEnded, endAt.Add(-EndSoonLead+time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestArmSkipsReminderWhenEndIsNear(t *testing.T) {
	s, q := newTestScheduler(t)
	ctx := context.Background()

	// ten minutes out: less than the reminder lead
	require.NoError(t, s.Arm(ctx, time.Now().Add(10*time.Minute), Payload{OccurrenceID: "occ-1"}))

	ended, err := q.PendingCount(ctx, queue.TopicMeetingEnded)
	require.NoError(t, err)
	assert.EqualValues(t, 1, ended)

	soon, err := q.PendingCount(ctx, queue.TopicMeetingEndingSoon)
	require.NoError(t, err)
	assert.Zero(t, soon)
}

func TestArmRejectsPastEnd(t *testing.T) {
	s, _ := newTestScheduler(t)
	err := s.Arm(context.Background(), time.Now().Add(-time.Minute), Payload{OccurrenceID: "occ-1"})
	assert.Error(t, err)
}
