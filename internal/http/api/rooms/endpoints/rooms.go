package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleylabs/parley/internal/chat"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/http/api"
	"github.com/parleylabs/parley/internal/http/api/rooms/packets"
	"github.com/parleylabs/parley/internal/http/middleware"
	"github.com/parleylabs/parley/internal/meeting"
	"github.com/parleylabs/parley/internal/recording"
	"github.com/parleylabs/parley/internal/room"
	"github.com/parleylabs/parley/internal/session"
)

type RoomController struct {
	coordinator  *room.Coordinator
	orchestrator *meeting.Orchestrator
	chat         *chat.Service
	recordings   *recording.Service
	sessions     room.Sessions
}

func newRoomController(coordinator *room.Coordinator, orchestrator *meeting.Orchestrator, chatSvc *chat.Service, recordings *recording.Service, sessions room.Sessions) *RoomController {
	return &RoomController{
		coordinator:  coordinator,
		orchestrator: orchestrator,
		chat:         chatSvc,
		recordings:   recordings,
		sessions:     sessions,
	}
}

// RoomModule mounts all authenticated /rooms endpoints: admission, leave,
// termination and moderation, plus the in-room chat, poll, hand-raise and
// recording surfaces.
func RoomModule(coordinator *room.Coordinator, orchestrator *meeting.Orchestrator, chatSvc *chat.Service, recordings *recording.Service, sessions room.Sessions) api.Module {
	ctl := newRoomController(coordinator, orchestrator, chatSvc, recordings, sessions)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/rooms/:occurrence_id/join", api.ResolveEndpoint(ctl.join))
		c.POST("/rooms/:occurrence_id/leave", api.ResolveEndpoint(ctl.leave))
		c.POST("/rooms/:occurrence_id/end", api.ResolveEndpoint(ctl.end))
		c.POST("/rooms/:occurrence_id/kick", api.ResolveEndpoint(ctl.kick))
		c.POST("/rooms/:occurrence_id/ban", api.ResolveEndpoint(ctl.ban))

		c.GET("/rooms/:occurrence_id/chat", api.ResolveEndpoint(ctl.chatHistory))
		c.POST("/rooms/:occurrence_id/chat", api.ResolveEndpoint(ctl.sendChat))

		c.POST("/rooms/:occurrence_id/polls", api.ResolveEndpoint(ctl.createPoll))
		c.POST("/rooms/:occurrence_id/polls/:poll_id/votes", api.ResolveEndpoint(ctl.vote))
		c.PATCH("/rooms/:occurrence_id/polls/:poll_id", api.ResolveEndpoint(ctl.setPollStatus))

		c.GET("/rooms/:occurrence_id/hands", api.ResolveEndpoint(ctl.raisedHands))
		c.POST("/rooms/:occurrence_id/hands", api.ResolveEndpoint(ctl.raiseHand))
		c.DELETE("/rooms/:occurrence_id/hands", api.ResolveEndpoint(ctl.lowerHand))

		c.POST("/rooms/:occurrence_id/recordings", api.ResolveEndpoint(ctl.trackRecording))
	})
}

func errNotHost() error {
	return fmt.Errorf("%w: only hosts can start recordings", errs.ErrNotAllowed)
}

func identity(c *gin.Context) (*middleware.Identity, *api.Error) {
	ident, ok := middleware.GetIdentity(c)
	if !ok {
		return nil, &api.Error{Status: http.StatusUnauthorized, Code: "NOT_ALLOWED", Message: "unauthorized"}
	}
	return ident, nil
}

// currentSession resolves the caller's live session in the occurrence;
// everything past the join endpoint requires one.
func (r *RoomController) currentSession(c *gin.Context, ident *middleware.Identity) (*session.Session, *api.Error) {
	memberKey := session.MemberKey(c.Param("occurrence_id"), ident.ParticipantID, ident.PlatformID)
	sess, err := r.sessions.Get(c.Request.Context(), memberKey)
	if err != nil {
		return nil, api.FromError(err)
	}
	if sess == nil {
		return nil, api.FromError(fmt.Errorf("%w: not in the room", errs.ErrNotAllowed))
	}
	return sess, nil
}

// POST /api/rooms/:occurrence_id/join
func (r *RoomController) join(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	result, err := r.coordinator.Join(c.Request.Context(), room.JoinRequest{
		PlatformID:    ident.PlatformID,
		ScheduleID:    req.ScheduleID,
		OccurrenceID:  c.Param("occurrence_id"),
		ParticipantID: ident.ParticipantID,
		Username:      ident.Username,
		ConnectionID:  req.ConnectionID,
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	return result, nil
}

// POST /api/rooms/:occurrence_id/leave
func (r *RoomController) leave(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	memberKey := session.MemberKey(c.Param("occurrence_id"), ident.ParticipantID, ident.PlatformID)
	if err := r.coordinator.Leave(c.Request.Context(), memberKey); err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"left": true}, nil
}

// POST /api/rooms/:occurrence_id/end
func (r *RoomController) end(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.EndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	err := r.orchestrator.EndMeeting(c.Request.Context(), meeting.EndRequest{
		PlatformID:   ident.PlatformID,
		ScheduleID:   req.ScheduleID,
		OccurrenceID: c.Param("occurrence_id"),
		RequesterID:  ident.ParticipantID,
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"ended": true}, nil
}

// POST /api/rooms/:occurrence_id/kick
func (r *RoomController) kick(c *gin.Context) (any, *api.Error) {
	return r.moderate(c, r.coordinator.Kick)
}

// POST /api/rooms/:occurrence_id/ban
func (r *RoomController) ban(c *gin.Context) (any, *api.Error) {
	return r.moderate(c, r.coordinator.Ban)
}

func (r *RoomController) moderate(c *gin.Context, action func(context.Context, room.ModerationRequest) error) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	err := action(c.Request.Context(), room.ModerationRequest{
		PlatformID:   ident.PlatformID,
		ScheduleID:   req.ScheduleID,
		OccurrenceID: c.Param("occurrence_id"),
		RequesterID:  ident.ParticipantID,
		TargetID:     req.TargetID,
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"done": true}, nil
}
