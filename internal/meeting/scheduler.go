package meeting

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/queue"
)

// EndSoonLead is how long before the scheduled end the warning fires.
const EndSoonLead = 15 * time.Minute

// endSoonMargin: reminders closer to the end than this are not worth
// scheduling.
const endSoonMargin = time.Second

// Payload travels through the delayed queue and the pub/sub channel; it
// carries everything the termination orchestrator needs.
type Payload struct {
	PlatformID   string `json:"platformId"`
	ScheduleID   string `json:"scheduleId"`
	OccurrenceID string `json:"occurrenceId"`
	HostID       string `json:"hostId"`
}

// Scheduler arms the durable one-shot end timer for an occurrence. It does
// not deduplicate by occurrence: avoiding double-arming is the caller's job
// (the coordinator only arms from the CAS winner of scheduled→live).
type Scheduler struct {
	q *queue.Queue
}

func NewScheduler(q *queue.Queue) *Scheduler {
	return &Scheduler{q: q}
}

// Arm schedules the "meeting ended" job at endAt and, when there is still
// meaningful time left, the "ending soon" warning at endAt − EndSoonLead.
func (s *Scheduler) Arm(ctx context.Context, endAt time.Time, p Payload) error {
	delay := time.Until(endAt)
	if _, err := s.q.Enqueue(ctx, queue.TopicMeetingEnded, p, delay); err != nil {
		return err
	}
	log.Info().Str("occurrence_id", p.OccurrenceID).Time("end_at", endAt).Msg("end timer armed")

	reminderDelay := delay - EndSoonLead
	if reminderDelay > endSoonMargin {
		if _, err := s.q.Enqueue(ctx, queue.TopicMeetingEndingSoon, p, reminderDelay); err != nil {
			// The end job is already armed; a missing reminder degrades UX only.
			log.Error().Err(err).Str("occurrence_id", p.OccurrenceID).Msg("failed to arm ending-soon reminder")
		}
	} else {
		log.Debug().Str("occurrence_id", p.OccurrenceID).Msg("too close to meeting end, reminder not scheduled")
	}
	return nil
}
