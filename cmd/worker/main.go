// The worker drains the delayed meeting-end queue and publishes each fired
// job as a lifecycle event. API instances subscribe and run the termination
// cascade; the occurrence status transition keeps duplicate deliveries
// harmless, so the worker needs no state of its own.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/meeting"
	"github.com/parleylabs/parley/internal/queue"
	redisclient "github.com/parleylabs/parley/internal/redis"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	rdb, err := redisclient.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis init failed")
	}

	q := queue.NewQueue(rdb)
	bus := meeting.NewBus(rdb)

	relay := func(eventType string) queue.Handler {
		return func(ctx context.Context, job queue.Job) error {
			var p meeting.Payload
			if err := json.Unmarshal(job.Payload, &p); err != nil {
				log.Error().Err(err).Str("job_id", job.ID).Msg("dropping malformed job payload")
				return nil
			}
			return bus.Publish(ctx, meeting.Event{Type: eventType, Payload: p})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for topic, eventType := range map[string]string{
		queue.TopicMeetingEnded:      meeting.EventEnded,
		queue.TopicMeetingEndingSoon: meeting.EventEndingSoon,
	} {
		wg.Add(1)
		go func(topic, eventType string) {
			defer wg.Done()
			queue.NewWorker(q, topic, relay(eventType)).Run(ctx)
		}(topic, eventType)
	}

	log.Info().Msg("worker running")
	wg.Wait()
}
