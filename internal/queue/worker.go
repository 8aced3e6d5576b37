package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Handler processes one fired job. Returning an error leaves the job in the
// processing set; the reaper redelivers it after the visibility window.
type Handler func(ctx context.Context, job Job) error

// Worker drains one topic. Run blocks until ctx is cancelled.
type Worker struct {
	q        *Queue
	topic    string
	handler  Handler
	interval time.Duration
	batch    int
}

func NewWorker(q *Queue, topic string, handler Handler) *Worker {
	return &Worker{
		q:        q,
		topic:    topic,
		handler:  handler,
		interval: time.Second,
		batch:    16,
	}
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().Str("topic", w.topic).Msg("queue worker started")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("topic", w.topic).Msg("queue worker stopped")
			return
		case now := <-ticker.C:
			w.tick(ctx, now)
		}
	}
}

func (w *Worker) tick(ctx context.Context, now time.Time) {
	if n, err := w.q.Reap(ctx, w.topic, now); err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("reap failed")
	} else if n > 0 {
		log.Warn().Int("requeued", n).Str("topic", w.topic).Msg("redelivering unacked jobs")
	}

	jobs, err := w.q.Claim(ctx, w.topic, now, w.batch)
	if err != nil {
		log.Error().Err(err).Str("topic", w.topic).Msg("claim failed")
		return
	}
	for _, job := range jobs {
		if err := w.handler(ctx, job); err != nil {
			log.Error().Err(err).Str("topic", w.topic).Str("job_id", job.ID).Msg("job failed")
			continue
		}
		if err := w.q.Ack(ctx, job); err != nil {
			log.Error().Err(err).Str("topic", w.topic).Str("job_id", job.ID).Msg("ack failed")
		}
	}
}
