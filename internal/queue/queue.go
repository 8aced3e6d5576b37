// Package queue implements durable delayed one-shot jobs on Redis sorted
// sets. A job sits in the pending set scored by its fire time; a claim
// atomically moves due jobs to a processing set with a visibility timeout,
// and unacknowledged claims are re-queued by the reaper. Delivery is
// therefore at-least-once and survives process restarts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Topics for the meeting-end scheduler.
const (
	TopicMeetingEnded      = "meetingEnded"
	TopicMeetingEndingSoon = "meetingEndingSoon"
)

// DefaultVisibility is how long a claimed job stays invisible before the
// reaper hands it out again.
const DefaultVisibility = 30 * time.Second

type Job struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	FireAt  time.Time       `json:"fireAt"`

	// raw is the member string as stored in Redis; needed to ack.
	raw string
}

type Queue struct {
	rdb        *redis.Client
	visibility time.Duration
}

func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb, visibility: DefaultVisibility}
}

func pendingKey(topic string) string    { return "queue:" + topic + ":pending" }
func processingKey(topic string) string { return "queue:" + topic + ":processing" }

// claimScript moves up to ARGV[3] due members from pending (KEYS[1]) to
// processing (KEYS[2]) scored at ARGV[2], returning the claimed members.
var claimScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[3])
for _, m in ipairs(due) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('ZADD', KEYS[2], ARGV[2], m)
end
return due
`)

// reapScript re-queues processing members whose visibility expired.
var reapScript = redis.NewScript(`
local expired = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, m in ipairs(expired) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('ZADD', KEYS[2], ARGV[1], m)
end
return #expired
`)

// Enqueue schedules payload for delivery on topic after delay. The queue
// does not deduplicate: arming twice delivers twice.
func (q *Queue) Enqueue(ctx context.Context, topic string, payload any, delay time.Duration) (*Job, error) {
	if delay < 0 {
		return nil, fmt.Errorf("scheduled time is in the past")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	job := &Job{
		ID:      uuid.NewString(),
		Topic:   topic,
		Payload: raw,
		FireAt:  time.Now().Add(delay).UTC(),
	}
	member, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	err = q.rdb.ZAdd(ctx, pendingKey(topic), redis.Z{
		Score:  float64(job.FireAt.UnixMilli()),
		Member: string(member),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", topic, err)
	}
	job.raw = string(member)
	return job, nil
}

// Claim returns up to limit jobs due at now, making them invisible for the
// visibility window. Callers must Ack each job after handling it.
func (q *Queue) Claim(ctx context.Context, topic string, now time.Time, limit int) ([]Job, error) {
	res, err := claimScript.Run(ctx, q.rdb,
		[]string{pendingKey(topic), processingKey(topic)},
		now.UnixMilli(), now.Add(q.visibility).UnixMilli(), limit,
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", topic, err)
	}
	jobs := make([]Job, 0, len(res))
	for _, m := range res {
		var j Job
		if err := json.Unmarshal([]byte(m), &j); err != nil {
			// Poison member: drop it rather than redelivering forever.
			q.rdb.ZRem(ctx, processingKey(topic), m)
			continue
		}
		j.raw = m
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// Ack removes a claimed job permanently.
func (q *Queue) Ack(ctx context.Context, job Job) error {
	return q.rdb.ZRem(ctx, processingKey(job.Topic), job.raw).Err()
}

// Reap re-queues claims whose visibility expired at now; returns how many.
func (q *Queue) Reap(ctx context.Context, topic string, now time.Time) (int, error) {
	n, err := reapScript.Run(ctx, q.rdb,
		[]string{processingKey(topic), pendingKey(topic)},
		now.UnixMilli(),
	).Int()
	if err != nil {
		return 0, fmt.Errorf("reap %s: %w", topic, err)
	}
	return n, nil
}

// PendingCount reports how many jobs wait on topic.
func (q *Queue) PendingCount(ctx context.Context, topic string) (int64, error) {
	return q.rdb.ZCard(ctx, pendingKey(topic)).Result()
}
