package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/chat"
	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/media"
	"github.com/parleylabs/parley/internal/meeting"
	"github.com/parleylabs/parley/internal/notify"
	"github.com/parleylabs/parley/internal/queue"
	redisclient "github.com/parleylabs/parley/internal/redis"
	"github.com/parleylabs/parley/internal/recording"
	"github.com/parleylabs/parley/internal/room"
	"github.com/parleylabs/parley/internal/schedule"
	"github.com/parleylabs/parley/internal/session"
	"github.com/parleylabs/parley/internal/storage"
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

	if err := db.Init(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("db init failed")
	}
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("db migrate failed")
	}
	store := db.NewStore()

	rdb, err := redisclient.InitRedis(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis init failed")
	}

	notifier, err := notify.NewMQTT(cfg.MQTTBrokerURL, "parley-api-"+uuid.NewString()[:8])
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt init failed")
	}
	defer notifier.Disconnect()

	cipher, err := chat.NewCipher(cfg.ChatCipherKey)
	if err != nil {
		log.Fatal().Err(err).Msg("chat cipher init failed")
	}

	var archive storage.Storage
	if cfg.UseSpaces {
		archive, err = storage.NewSpacesStorage(
			cfg.SpacesEndpoint, cfg.SpacesRegion, cfg.SpacesBucket,
			cfg.SpacesCDNURL, cfg.SpacesAccessKey, cfg.SpacesSecretKey)
		if err != nil {
			log.Fatal().Err(err).Msg("spaces init failed")
		}
	} else {
		archive = storage.NewLocalStorage(cfg.ArchiveDir)
	}

	sessions := session.NewStore(rdb)
	mediaClient := media.NewClient(cfg.MediaAdminURL, cfg.MediaClientURL, cfg.MediaAPIKey, cfg.MediaAPISecret)
	endTimer := meeting.NewScheduler(queue.NewQueue(rdb))

	chatSvc := chat.NewService(store, rdb, cipher, notifier)
	scheduleSvc := schedule.NewService(store)
	recordingSvc := recording.NewService(store, archive)
	orchestrator := meeting.NewOrchestrator(store, sessions, mediaClient, notifier, chatSvc)
	coordinator := room.NewCoordinator(store, sessions, mediaClient, notifier, endTimer, chatSvc)

	// React to lifecycle events published by the queue worker. Every
	// instance runs the cascade; the status transition makes that safe.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := meeting.NewBus(rdb)
	go func() {
		err := bus.Subscribe(ctx, func(ctx context.Context, ev meeting.Event) {
			switch ev.Type {
			case meeting.EventEnded:
				err := orchestrator.EndMeeting(ctx, meeting.EndRequest{
					PlatformID:   ev.Payload.PlatformID,
					ScheduleID:   ev.Payload.ScheduleID,
					OccurrenceID: ev.Payload.OccurrenceID,
				})
				if err != nil {
					log.Error().Err(err).Str("occurrence_id", ev.Payload.OccurrenceID).Msg("scheduled end failed")
				}
			case meeting.EventEndingSoon:
				if err := orchestrator.NotifyEndingSoon(ctx, ev.Payload); err != nil {
					log.Error().Err(err).Str("occurrence_id", ev.Payload.OccurrenceID).Msg("ending-soon notice failed")
				}
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("meeting event subscription ended")
		}
	}()

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterRoutes(r, cfg, store, coordinator, orchestrator, chatSvc, scheduleSvc, recordingSvc, sessions)

	log.Info().Str("address", cfg.ServerAddress).Msg("server listening")
	if err := r.Run(cfg.ServerAddress); err != nil {
		log.Fatal().Err(err).Msg(fmt.Sprintf("server error on %s", cfg.ServerAddress))
	}
}
