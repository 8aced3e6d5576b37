package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/parleylabs/parley/internal/chat"
	"github.com/parleylabs/parley/internal/config"
	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/http/api"
	authapi "github.com/parleylabs/parley/internal/http/api/auth/endpoints"
	roomapi "github.com/parleylabs/parley/internal/http/api/rooms/endpoints"
	scheduleapi "github.com/parleylabs/parley/internal/http/api/schedules/endpoints"
	webhookapi "github.com/parleylabs/parley/internal/http/api/webhooks/endpoints"
	"github.com/parleylabs/parley/internal/http/middleware"
	"github.com/parleylabs/parley/internal/meeting"
	"github.com/parleylabs/parley/internal/recording"
	"github.com/parleylabs/parley/internal/room"
	"github.com/parleylabs/parley/internal/schedule"
)

// RegisterRoutes sets up all application routes.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	store db.Store,
	coordinator *room.Coordinator,
	orchestrator *meeting.Orchestrator,
	chatSvc *chat.Service,
	scheduleSvc *schedule.Service,
	recordingSvc *recording.Service,
	sessions room.Sessions,
) {
	// CORS
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	// public: platform secret -> participant JWT
	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
		Auth:   false,
	},
		authapi.TokenModule(store, cfg.JWTSecret),
	)

	// participant endpoints behind JWT
	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
	},
		scheduleapi.ScheduleModule(scheduleSvc),
		roomapi.RoomModule(coordinator, orchestrator, chatSvc, recordingSvc, sessions),
	)

	// machine-to-machine callbacks from the media server
	api.MountGroup(r, api.GroupConfig{
		Prefix:     "/api",
		Middleware: []gin.HandlerFunc{middleware.SharedSecret(cfg.MediaAPISecret)},
	},
		webhookapi.EgressModule(recordingSvc),
	)
}
