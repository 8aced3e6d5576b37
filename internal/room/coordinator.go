// Package room coordinates live meeting membership: admission, roles, the
// lobby gate, moderation and departure. All shared state lives in the
// session store and the database, so any instance can serve any participant.
package room

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/media"
	"github.com/parleylabs/parley/internal/meeting"
	"github.com/parleylabs/parley/internal/model"
	"github.com/parleylabs/parley/internal/notify"
	"github.com/parleylabs/parley/internal/session"
)

// Sessions is the slice of the session store the coordinator needs.
type Sessions interface {
	Add(ctx context.Context, sess session.Session) error
	Get(ctx context.Context, memberKey string) (*session.Session, error)
	Remove(ctx context.Context, memberKey string) (*session.Session, error)
	RemoveByConnection(ctx context.Context, connectionID string) (*session.Session, error)
	Members(ctx context.Context, occurrenceID string) ([]session.Session, error)
}

// EndTimer arms the durable end-of-meeting timer.
type EndTimer interface {
	Arm(ctx context.Context, endAt time.Time, p meeting.Payload) error
}

// MessagePurger removes a banned participant's chat messages.
type MessagePurger interface {
	PurgeMemberMessages(ctx context.Context, scheduleID, occurrenceID, senderID string) error
}

type Coordinator struct {
	store    db.Store
	sessions Sessions
	rooms    media.RoomService
	notifier notify.Notifier
	timer    EndTimer
	messages MessagePurger
}

func NewCoordinator(store db.Store, sessions Sessions, rooms media.RoomService, notifier notify.Notifier, timer EndTimer, messages MessagePurger) *Coordinator {
	return &Coordinator{
		store:    store,
		sessions: sessions,
		rooms:    rooms,
		notifier: notifier,
		timer:    timer,
		messages: messages,
	}
}

type JoinRequest struct {
	PlatformID    string `json:"platformId"`
	ScheduleID    string `json:"scheduleId"`
	OccurrenceID  string `json:"occurrenceId"`
	ParticipantID string `json:"participantId"`
	Username      string `json:"username"`
	ConnectionID  string `json:"connectionId"`
}

type JoinResult struct {
	Token        string            `json:"token"`
	ServerURL    string            `json:"serverUrl"`
	Role         string            `json:"role"`
	MemberKey    string            `json:"memberKey"`
	Occurrence   *model.Occurrence `json:"occurrence"`
	Participants []session.Session `json:"participants"`
}

// Join admits one participant to one occurrence, walking every gate in
// order: existence, temporal window, role resolution, then the lobby. The
// first host through the lobby flips the occurrence live, arms the end
// timer and opens the meeting log; the conditional update guarantees only
// one joiner wins that race no matter how many instances run.
func (c *Coordinator) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if req.PlatformID == "" || req.ScheduleID == "" || req.OccurrenceID == "" || req.ParticipantID == "" {
		return nil, fmt.Errorf("%w: platformId, scheduleId, occurrenceId and participantId are required", errs.ErrValidation)
	}

	occ, err := c.store.GetOccurrence(req.PlatformID, req.ScheduleID, req.OccurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, fmt.Errorf("%w: occurrence %s", errs.ErrNotFound, req.OccurrenceID)
	}

	now := time.Now().UTC()
	if occ.Closed() || now.After(occ.EndAt) {
		return nil, fmt.Errorf("%w: occurrence %s", errs.ErrMeetingEnded, occ.OccurrenceID)
	}
	if now.Before(occ.StartAt) {
		return nil, fmt.Errorf("%w: starts at %s", errs.ErrNotStarted, occ.StartAt.Format(time.RFC3339))
	}

	role, err := c.resolveRole(occ, req)
	if err != nil {
		return nil, err
	}

	if occ.Status == model.OccurrenceScheduled {
		if role != model.RoleHost && role != model.RoleCoHost {
			return nil, fmt.Errorf("%w: the host has not started the meeting", errs.ErrWaiting)
		}
		transitioned, err := c.store.MarkOccurrenceLive(occ.OccurrenceID)
		if err != nil {
			return nil, err
		}
		if transitioned {
			c.openMeeting(ctx, occ, now)
			occ.Status = model.OccurrenceLive
		} else {
			// Lost the transition: either another host opened the room or a
			// cancellation closed it. Re-read to find out which.
			occ, err = c.store.GetOccurrence(req.PlatformID, req.ScheduleID, req.OccurrenceID)
			if err != nil {
				return nil, err
			}
			if occ == nil || occ.Closed() {
				return nil, fmt.Errorf("%w: occurrence %s", errs.ErrMeetingEnded, req.OccurrenceID)
			}
		}
	}

	memberKey := session.MemberKey(occ.OccurrenceID, req.ParticipantID, req.PlatformID)
	sess := session.Session{
		MemberKey:     memberKey,
		ParticipantID: req.ParticipantID,
		Username:      req.Username,
		PlatformID:    req.PlatformID,
		ScheduleID:    req.ScheduleID,
		OccurrenceID:  occ.OccurrenceID,
		ConnectionID:  req.ConnectionID,
		Role:          role,
		JoinedAt:      now,
	}
	if err := c.sessions.Add(ctx, sess); err != nil {
		return nil, err
	}

	entry := &model.AttendanceEntry{
		PlatformID:      req.PlatformID,
		ScheduleID:      req.ScheduleID,
		OccurrenceID:    occ.OccurrenceID,
		ParticipantID:   req.ParticipantID,
		ParticipantName: req.Username,
		Role:            role,
		Event:           "joined",
		JoinedAt:        now,
	}
	if err := c.store.OpenAttendance(entry); err != nil {
		log.Error().Err(err).Str("member_key", memberKey).Msg("failed to open attendance entry")
	}

	if err := c.notifier.Room(occ.OccurrenceID, notify.EventNewParticipant, sess); err != nil {
		log.Error().Err(err).Str("member_key", memberKey).Msg("failed to announce participant")
	}
	members := c.broadcastRoster(ctx, occ.OccurrenceID)

	token, err := c.rooms.JoinToken(media.TokenParams{
		Room:       occ.OccurrenceID,
		Identity:   req.ParticipantID,
		Username:   req.Username,
		Role:       role,
		PlatformID: req.PlatformID,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("member_key", memberKey).
		Str("role", role).
		Str("occurrence_id", occ.OccurrenceID).
		Msg("participant joined")

	return &JoinResult{
		Token:        token,
		ServerURL:    c.rooms.ClientURL(),
		Role:         role,
		MemberKey:    memberKey,
		Occurrence:   occ,
		Participants: members,
	}, nil
}

// resolveRole decides what the joiner is allowed to be: hosts come from the
// occurrence's host list, everyone else needs an admitting registration.
// A durable ban overrides host-list membership, so a banned participant who
// was later added as a co-host stays locked out.
func (c *Coordinator) resolveRole(occ *model.Occurrence, req JoinRequest) (string, error) {
	reg, err := c.store.GetRegistration(req.PlatformID, req.ScheduleID, req.ParticipantID)
	if err != nil {
		return "", err
	}
	if reg != nil && reg.Status == model.RegistrationBanned {
		return "", fmt.Errorf("%w: participant is banned", errs.ErrNotAllowed)
	}
	if role, ok := occ.HostRole(req.ParticipantID); ok {
		return role, nil
	}
	if reg == nil {
		return "", fmt.Errorf("%w: no registration for participant %s", errs.ErrNotInSchedule, req.ParticipantID)
	}
	if reg.Status != model.RegistrationActive {
		return "", fmt.Errorf("%w: registration is %s", errs.ErrNotAllowed, reg.Status)
	}
	if reg.Role != "" {
		return reg.Role, nil
	}
	return model.RoleParticipant, nil
}

// openMeeting runs the winner-only side effects of going live.
func (c *Coordinator) openMeeting(ctx context.Context, occ *model.Occurrence, now time.Time) {
	err := c.timer.Arm(ctx, occ.EndAt, meeting.Payload{
		PlatformID:   occ.PlatformID,
		ScheduleID:   occ.ScheduleID,
		OccurrenceID: occ.OccurrenceID,
		HostID:       occ.HostID,
	})
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to arm end timer")
	}
	err = c.store.OpenMeetingLog(&model.MeetingLog{
		PlatformID:   occ.PlatformID,
		ScheduleID:   occ.ScheduleID,
		OccurrenceID: occ.OccurrenceID,
		HostID:       occ.HostID,
		HostName:     occ.HostName,
		Title:        occ.Title,
		StartedAt:    now,
	})
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to open meeting log")
	}
	log.Info().Str("occurrence_id", occ.OccurrenceID).Msg("meeting is live")
}

// Leave removes one participant by member key. Leaving twice, or leaving a
// room that already closed, is a no-op.
func (c *Coordinator) Leave(ctx context.Context, memberKey string) error {
	sess, err := c.sessions.Remove(ctx, memberKey)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	c.afterDeparture(ctx, sess, notify.EventUserLeft)
	return nil
}

// Disconnect is Leave keyed by transport connection; used when the socket
// drops without a leave call.
func (c *Coordinator) Disconnect(ctx context.Context, connectionID string) error {
	sess, err := c.sessions.RemoveByConnection(ctx, connectionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	c.afterDeparture(ctx, sess, notify.EventUserLeft)
	return nil
}

func (c *Coordinator) afterDeparture(ctx context.Context, sess *session.Session, event string) {
	now := time.Now().UTC()
	err := c.store.CloseAttendance(sess.PlatformID, sess.ScheduleID, sess.OccurrenceID, sess.ParticipantID, now)
	if err != nil {
		log.Error().Err(err).Str("member_key", sess.MemberKey).Msg("failed to close attendance entry")
	}
	if err := c.notifier.Room(sess.OccurrenceID, event, map[string]string{
		"participantId": sess.ParticipantID,
		"username":      sess.Username,
	}); err != nil {
		log.Error().Err(err).Str("member_key", sess.MemberKey).Msg("failed to announce departure")
	}
	c.broadcastRoster(ctx, sess.OccurrenceID)
}

type ModerationRequest struct {
	PlatformID   string `json:"platformId"`
	ScheduleID   string `json:"scheduleId"`
	OccurrenceID string `json:"occurrenceId"`
	RequesterID  string `json:"requesterId"`
	TargetID     string `json:"targetId"`
}

// Kick force-removes the target from the room. Hosts only. The target may
// rejoin; only Ban is permanent.
func (c *Coordinator) Kick(ctx context.Context, req ModerationRequest) error {
	sess, err := c.authorizeModeration(ctx, req)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	c.evict(ctx, sess, notify.EventKicked, notify.EventUserKicked)
	return nil
}

// Ban kicks the target and marks the registration banned, so every future
// join is refused. The target's chat messages are purged for everyone.
func (c *Coordinator) Ban(ctx context.Context, req ModerationRequest) error {
	sess, err := c.authorizeModeration(ctx, req)
	if err != nil {
		return err
	}
	if err := c.store.SetRegistrationStatus(req.PlatformID, req.ScheduleID, req.TargetID, model.RegistrationBanned); err != nil {
		return err
	}
	if err := c.messages.PurgeMemberMessages(ctx, req.ScheduleID, req.OccurrenceID, req.TargetID); err != nil {
		log.Error().Err(err).Str("participant_id", req.TargetID).Msg("failed to purge banned participant's messages")
	}
	if sess != nil {
		c.evict(ctx, sess, notify.EventBanned, notify.EventUserBanned)
	}
	log.Info().
		Str("participant_id", req.TargetID).
		Str("schedule_id", req.ScheduleID).
		Msg("participant banned")
	return nil
}

// authorizeModeration checks the requester is a host and that the target is
// not. Returns the target's session, or nil when the target is not in the
// room (still meaningful for Ban).
func (c *Coordinator) authorizeModeration(ctx context.Context, req ModerationRequest) (*session.Session, error) {
	if req.TargetID == "" || req.RequesterID == "" {
		return nil, fmt.Errorf("%w: requesterId and targetId are required", errs.ErrValidation)
	}
	occ, err := c.store.GetOccurrence(req.PlatformID, req.ScheduleID, req.OccurrenceID)
	if err != nil {
		return nil, err
	}
	if occ == nil {
		return nil, fmt.Errorf("%w: occurrence %s", errs.ErrNotFound, req.OccurrenceID)
	}
	if _, ok := occ.HostRole(req.RequesterID); !ok {
		return nil, fmt.Errorf("%w: only a host can moderate", errs.ErrNotAllowed)
	}
	if _, ok := occ.HostRole(req.TargetID); ok {
		return nil, fmt.Errorf("%w: hosts cannot be removed", errs.ErrNotAllowed)
	}
	memberKey := session.MemberKey(req.OccurrenceID, req.TargetID, req.PlatformID)
	return c.sessions.Get(ctx, memberKey)
}

// evict tears down one session: personal notice first, then media removal,
// then the room-wide announcement.
func (c *Coordinator) evict(ctx context.Context, sess *session.Session, personalEvent, roomEvent string) {
	if err := c.notifier.Member(sess.MemberKey, personalEvent, map[string]string{
		"occurrenceId": sess.OccurrenceID,
	}); err != nil {
		log.Error().Err(err).Str("member_key", sess.MemberKey).Msg("failed to notify evicted participant")
	}
	if _, err := c.sessions.Remove(ctx, sess.MemberKey); err != nil {
		log.Error().Err(err).Str("member_key", sess.MemberKey).Msg("failed to remove evicted session")
	}
	if err := c.rooms.RemoveParticipant(ctx, sess.OccurrenceID, sess.ParticipantID); err != nil {
		log.Error().Err(err).Str("member_key", sess.MemberKey).Msg("failed to remove participant from media room")
	}
	c.afterDeparture(ctx, sess, roomEvent)
}

// broadcastRoster pushes the current member list to the room and returns it.
func (c *Coordinator) broadcastRoster(ctx context.Context, occurrenceID string) []session.Session {
	members, err := c.sessions.Members(ctx, occurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("failed to list room members")
		return nil
	}
	if err := c.notifier.Room(occurrenceID, notify.EventActiveParticipants, members); err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("failed to broadcast roster")
	}
	return members
}
