package meeting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/media"
	"github.com/parleylabs/parley/internal/notify"
	"github.com/parleylabs/parley/internal/session"
)

// SessionRegistry is the slice of the session store the cascade needs.
type SessionRegistry interface {
	RemoveAll(ctx context.Context, occurrenceID string) ([]session.Session, error)
}

// EphemeralPurger clears in-room ephemeral state (chat cache, polls, raised
// hands) when a meeting ends.
type EphemeralPurger interface {
	PurgeMessages(ctx context.Context, scheduleID, occurrenceID string) error
	PurgePolls(ctx context.Context, scheduleID, occurrenceID string) error
	PurgeRaisedHands(ctx context.Context, scheduleID, occurrenceID string) error
}

// EndRequest asks the orchestrator to terminate one occurrence. RequesterID
// is set on the host-initiated path and empty when the timer fires.
type EndRequest struct {
	PlatformID   string
	ScheduleID   string
	OccurrenceID string
	RequesterID  string
}

// Orchestrator runs the meeting termination cascade. Every entry point
// funnels through the same conditional status transition, so the timer
// firing after a host already ended the meeting (or vice versa) is a no-op
// rather than a double teardown.
type Orchestrator struct {
	store     db.Store
	sessions  SessionRegistry
	rooms     media.RoomService
	notifier  notify.Notifier
	ephemeral EphemeralPurger
}

func NewOrchestrator(store db.Store, sessions SessionRegistry, rooms media.RoomService, notifier notify.Notifier, ephemeral EphemeralPurger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		sessions:  sessions,
		rooms:     rooms,
		notifier:  notifier,
		ephemeral: ephemeral,
	}
}

// EndMeeting terminates the occurrence. The status transition is the only
// fatal step; everything after it is best-effort teardown of derived state,
// logged on failure so a partial cascade is visible but never retried as a
// whole.
func (o *Orchestrator) EndMeeting(ctx context.Context, req EndRequest) error {
	if req.PlatformID == "" || req.ScheduleID == "" || req.OccurrenceID == "" {
		return fmt.Errorf("%w: platformId, scheduleId and occurrenceId are required", errs.ErrValidation)
	}

	occ, err := o.store.GetOccurrence(req.PlatformID, req.ScheduleID, req.OccurrenceID)
	if err != nil {
		return err
	}
	if occ == nil {
		return fmt.Errorf("%w: occurrence %s", errs.ErrNotFound, req.OccurrenceID)
	}
	if req.RequesterID != "" {
		if _, ok := occ.HostRole(req.RequesterID); !ok {
			return fmt.Errorf("%w: only a host can end the meeting", errs.ErrNotAllowed)
		}
	}

	ended, err := o.store.MarkOccurrenceEnded(occ.OccurrenceID)
	if err != nil {
		return err
	}
	if !ended {
		log.Debug().Str("occurrence_id", occ.OccurrenceID).Msg("meeting already ended, nothing to do")
		return nil
	}

	now := time.Now().UTC()
	log.Info().
		Str("occurrence_id", occ.OccurrenceID).
		Str("schedule_id", occ.ScheduleID).
		Bool("host_initiated", req.RequesterID != "").
		Msg("ending meeting")

	if err := o.rooms.DeleteRoom(ctx, occ.OccurrenceID); err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to delete media room")
	}
	if err := o.store.CloseMeetingLog(occ.PlatformID, occ.ScheduleID, occ.OccurrenceID, now); err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to close meeting log")
	}
	if n, err := o.store.CloseAllAttendance(occ.PlatformID, occ.ScheduleID, occ.OccurrenceID, now); err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to close attendance entries")
	} else if n > 0 {
		log.Info().Int("count", n).Str("occurrence_id", occ.OccurrenceID).Msg("closed open attendance entries")
	}

	if err := o.notifier.Room(occ.OccurrenceID, notify.EventRoomClosed, map[string]string{
		"occurrenceId": occ.OccurrenceID,
		"message":      "The meeting has ended.",
	}); err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to broadcast room closed")
	}

	members, err := o.sessions.RemoveAll(ctx, occ.OccurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msg("failed to evict sessions")
	}
	for _, m := range members {
		if err := o.rooms.RemoveParticipant(ctx, occ.OccurrenceID, m.ParticipantID); err != nil {
			log.Error().Err(err).
				Str("occurrence_id", occ.OccurrenceID).
				Str("participant_id", m.ParticipantID).
				Msg("failed to remove participant from media room")
		}
	}

	var wg sync.WaitGroup
	purge := func(name string, fn func(context.Context, string, string) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx, occ.ScheduleID, occ.OccurrenceID); err != nil {
				log.Error().Err(err).Str("occurrence_id", occ.OccurrenceID).Msgf("failed to purge %s", name)
			}
		}()
	}
	purge("messages", o.ephemeral.PurgeMessages)
	purge("polls", o.ephemeral.PurgePolls)
	purge("raised hands", o.ephemeral.PurgeRaisedHands)
	wg.Wait()

	log.Info().Str("occurrence_id", occ.OccurrenceID).Msg("meeting ended")
	return nil
}

// NotifyEndingSoon broadcasts the pre-end warning to the room. Skipped
// silently when the meeting is already closed.
func (o *Orchestrator) NotifyEndingSoon(ctx context.Context, p Payload) error {
	occ, err := o.store.GetOccurrence(p.PlatformID, p.ScheduleID, p.OccurrenceID)
	if err != nil {
		return err
	}
	if occ == nil || occ.Closed() {
		return nil
	}
	return o.notifier.Room(p.OccurrenceID, notify.EventMeetingEndSoon, map[string]string{
		"occurrenceId": p.OccurrenceID,
		"message":      "This meeting will end in 15 minutes.",
	})
}
