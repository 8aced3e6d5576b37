package endpoints

import (
	"github.com/gin-gonic/gin"

	"github.com/parleylabs/parley/internal/http/api"
	"github.com/parleylabs/parley/internal/http/api/rooms/packets"
	"github.com/parleylabs/parley/internal/model"
)

// GET /api/rooms/:occurrence_id/chat?scheduleId=...
func (r *RoomController) chatHistory(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	scheduleID := c.Query("scheduleId")
	if scheduleID == "" {
		return nil, api.BadRequest("scheduleId query parameter is required")
	}
	if _, apiErr := r.currentSession(c, ident); apiErr != nil {
		return nil, apiErr
	}
	history, err := r.chat.History(c.Request.Context(), scheduleID, c.Param("occurrence_id"))
	if err != nil {
		return nil, api.FromError(err)
	}
	return history, nil
}

// POST /api/rooms/:occurrence_id/chat
func (r *RoomController) sendChat(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sess, apiErr := r.currentSession(c, ident)
	if apiErr != nil {
		return nil, apiErr
	}
	err := r.chat.SendMessage(c.Request.Context(), model.Message{
		ScheduleID:   req.ScheduleID,
		OccurrenceID: c.Param("occurrence_id"),
		SenderID:     ident.ParticipantID,
		SenderName:   sess.Username,
		SenderRole:   sess.Role,
		PlatformID:   ident.PlatformID,
		Text:         req.Text,
	})
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"sent": true}, nil
}

// POST /api/rooms/:occurrence_id/polls
func (r *RoomController) createPoll(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.PollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sess, apiErr := r.currentSession(c, ident)
	if apiErr != nil {
		return nil, apiErr
	}
	options := make(model.PollOptions, 0, len(req.Options))
	for _, text := range req.Options {
		options = append(options, model.PollOption{Text: text})
	}
	poll, err := r.chat.CreatePoll(c.Request.Context(), model.Poll{
		ScheduleID:   req.ScheduleID,
		OccurrenceID: c.Param("occurrence_id"),
		Question:     req.Question,
		Options:      options,
		CreatedBy:    ident.ParticipantID,
	}, sess.Role)
	if err != nil {
		return nil, api.FromError(err)
	}
	return poll, nil
}

// POST /api/rooms/:occurrence_id/polls/:poll_id/votes
func (r *RoomController) vote(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if _, apiErr := r.currentSession(c, ident); apiErr != nil {
		return nil, apiErr
	}
	err := r.chat.Vote(c.Request.Context(), c.Param("occurrence_id"), c.Param("poll_id"), ident.ParticipantID, *req.OptionIndex)
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"voted": true}, nil
}

// PATCH /api/rooms/:occurrence_id/polls/:poll_id
func (r *RoomController) setPollStatus(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.PollStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sess, apiErr := r.currentSession(c, ident)
	if apiErr != nil {
		return nil, apiErr
	}
	err := r.chat.SetPollStatus(c.Request.Context(), c.Param("occurrence_id"), c.Param("poll_id"), sess.Role, *req.IsActive)
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"updated": true}, nil
}

// GET /api/rooms/:occurrence_id/hands?scheduleId=...
func (r *RoomController) raisedHands(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	scheduleID := c.Query("scheduleId")
	if scheduleID == "" {
		return nil, api.BadRequest("scheduleId query parameter is required")
	}
	if _, apiErr := r.currentSession(c, ident); apiErr != nil {
		return nil, apiErr
	}
	hands, err := r.chat.RaisedHands(c.Request.Context(), scheduleID, c.Param("occurrence_id"))
	if err != nil {
		return nil, api.FromError(err)
	}
	return hands, nil
}

// POST /api/rooms/:occurrence_id/hands
func (r *RoomController) raiseHand(c *gin.Context) (any, *api.Error) {
	return r.hand(c, true)
}

// DELETE /api/rooms/:occurrence_id/hands
func (r *RoomController) lowerHand(c *gin.Context) (any, *api.Error) {
	return r.hand(c, false)
}

func (r *RoomController) hand(c *gin.Context, raise bool) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.HandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sess, apiErr := r.currentSession(c, ident)
	if apiErr != nil {
		return nil, apiErr
	}
	occurrenceID := c.Param("occurrence_id")
	var err error
	if raise {
		err = r.chat.RaiseHand(c.Request.Context(), req.ScheduleID, occurrenceID, ident.ParticipantID, sess.Username)
	} else {
		err = r.chat.LowerHand(c.Request.Context(), req.ScheduleID, occurrenceID, ident.ParticipantID, sess.Username)
	}
	if err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"raised": raise}, nil
}

// POST /api/rooms/:occurrence_id/recordings
func (r *RoomController) trackRecording(c *gin.Context) (any, *api.Error) {
	ident, apiErr := identity(c)
	if apiErr != nil {
		return nil, apiErr
	}
	var req packets.RecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	sess, apiErr := r.currentSession(c, ident)
	if apiErr != nil {
		return nil, apiErr
	}
	if sess.Role != model.RoleHost && sess.Role != model.RoleCoHost {
		return nil, api.FromError(errNotHost())
	}
	rec, err := r.recordings.Track(ident.PlatformID, req.ScheduleID, c.Param("occurrence_id"), req.EgressID)
	if err != nil {
		return nil, api.FromError(err)
	}
	return rec, nil
}
