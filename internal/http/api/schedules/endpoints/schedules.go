package endpoints

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/parleylabs/parley/internal/http/api"
	"github.com/parleylabs/parley/internal/http/api/schedules/packets"
	"github.com/parleylabs/parley/internal/http/middleware"
	"github.com/parleylabs/parley/internal/model"
	"github.com/parleylabs/parley/internal/schedule"
)

type ScheduleController struct {
	schedules *schedule.Service
}

func newScheduleController(schedules *schedule.Service) *ScheduleController {
	return &ScheduleController{schedules: schedules}
}

// ScheduleModule mounts all authenticated /schedules endpoints.
func ScheduleModule(schedules *schedule.Service) api.Module {
	ctl := newScheduleController(schedules)
	return api.ModuleFunc(func(c *api.Controller) {
		c.POST("/schedules", api.ResolveEndpoint(ctl.createSchedule))
		c.GET("/schedules/:id", api.ResolveEndpoint(ctl.getSchedule))
		c.PATCH("/schedules/:id", api.ResolveEndpoint(ctl.updateSchedule))
		c.DELETE("/schedules/:id", api.ResolveEndpoint(ctl.deleteSchedule))

		c.GET("/schedules/:id/occurrences", api.ResolveEndpoint(ctl.listOccurrences))
		c.POST("/schedules/:id/registrations", api.ResolveEndpoint(ctl.register))
	})
}

func identity(c *gin.Context) (*middleware.Identity, *api.Error) {
	ident, ok := middleware.GetIdentity(c)
	if !ok {
		return nil, &api.Error{Status: http.StatusUnauthorized, Code: "NOT_ALLOWED", Message: "unauthorized"}
	}
	return ident, nil
}

// POST /api/schedules
func (s *ScheduleController) createSchedule(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	hostName := req.HostName
	if hostName == "" {
		hostName = ident.Username
	}
	sched := &model.Schedule{
		PlatformID:  ident.PlatformID,
		HostID:      ident.ParticipantID,
		HostName:    hostName,
		Hosts:       req.Hosts,
		Group:       req.Group,
		GroupID:     req.GroupID,
		Title:       req.Title,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		TimeZone:    req.TimeZone,
		Recurrence:  req.Recurrence,
		DaysOfWeek:  req.DaysOfWeek,
	}
	created, occurrences, err := s.schedules.Create(sched)
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"schedule": created, "occurrences": occurrences}, nil
}

// GET /api/schedules/:id
func (s *ScheduleController) getSchedule(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	sched, err := s.schedules.Get(ident.PlatformID, c.Param("id"))
	if err != nil {
		return nil, api.FromError(err)
	}
	return sched, nil
}

// PATCH /api/schedules/:id
func (s *ScheduleController) updateSchedule(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req schedule.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sched, err := s.schedules.Update(ident.PlatformID, c.Param("id"), ident.ParticipantID, req)
	if err != nil {
		return nil, api.FromError(err)
	}
	return sched, nil
}

// DELETE /api/schedules/:id
func (s *ScheduleController) deleteSchedule(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := s.schedules.Delete(ident.PlatformID, ident.ParticipantID, c.Param("id")); err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"deleted": true}, nil
}

// GET /api/schedules/:id/occurrences
func (s *ScheduleController) listOccurrences(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	occs, err := s.schedules.Occurrences(ident.PlatformID, c.Param("id"))
	if err != nil {
		return nil, api.FromError(err)
	}
	return occs, nil
}

// POST /api/schedules/:id/registrations
func (s *ScheduleController) register(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	reg := &model.Registration{
		PlatformID:      ident.PlatformID,
		ScheduleID:      c.Param("id"),
		ParticipantID:   req.ParticipantID,
		ParticipantName: req.ParticipantName,
		Role:            req.Role,
		Status:          model.RegistrationActive,
	}
	if err := s.schedules.Register(reg); err != nil {
		return nil, api.FromError(err)
	}
	return reg, nil
}
