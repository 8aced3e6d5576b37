package db

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/model"
)

// OpenMeetingLog records the meeting start when a host goes live. Re-joining
// hosts hit the conflict branch and leave the original start intact.
func (s *pgStore) OpenMeetingLog(l *model.MeetingLog) error {
	const q = `
	INSERT INTO meeting_logs
	  (platform_id, schedule_id, occurrence_id, host_id, host_name, title, started_at)
	VALUES
	  (:platform_id, :schedule_id, :occurrence_id, :host_id, :host_name, :title, :started_at)
	ON CONFLICT (schedule_id, occurrence_id) DO NOTHING;`
	if _, err := s.db.NamedExec(q, l); err != nil {
		log.Error().Err(err).Str("occurrence_id", l.OccurrenceID).Msg("OpenMeetingLog failed")
		return err
	}
	return nil
}

// CloseMeetingLog stamps the end time and duration. Closing an
// already-closed log is a no-op, which keeps the termination cascade
// idempotent.
func (s *pgStore) CloseMeetingLog(platformID, scheduleID, occurrenceID string, endedAt time.Time) error {
	_, err := s.db.Exec(`
	UPDATE meeting_logs SET
	  ended_at = $4,
	  duration_minutes = GREATEST(0, ROUND(EXTRACT(EPOCH FROM ($4 - started_at)) / 60))::int
	WHERE platform_id = $1 AND schedule_id = $2 AND occurrence_id = $3
	  AND ended_at IS NULL;`, platformID, scheduleID, occurrenceID, endedAt)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("CloseMeetingLog failed")
	}
	return err
}

func (s *pgStore) OpenAttendance(e *model.AttendanceEntry) error {
	const q = `
	INSERT INTO attendance_logs
	  (platform_id, schedule_id, occurrence_id, participant_id, participant_name, role, event, joined_at)
	VALUES
	  (:platform_id, :schedule_id, :occurrence_id, :participant_id, :participant_name, :role, 'joined', :joined_at);`
	if _, err := s.db.NamedExec(q, e); err != nil {
		log.Error().Err(err).Str("participant_id", e.ParticipantID).Msg("OpenAttendance failed")
		return err
	}
	return nil
}

// CloseAttendance completes the most recent open entry for one participant.
// No open entry is not an error: leave is idempotent.
func (s *pgStore) CloseAttendance(platformID, scheduleID, occurrenceID, participantID string, leftAt time.Time) error {
	_, err := s.db.Exec(`
	UPDATE attendance_logs SET
	  event = 'left',
	  left_at = $5,
	  duration_seconds = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($5 - joined_at))))::int
	WHERE id = (
	  SELECT id FROM attendance_logs
	   WHERE platform_id = $1 AND schedule_id = $2 AND occurrence_id = $3
	     AND participant_id = $4 AND left_at IS NULL
	   ORDER BY joined_at DESC LIMIT 1
	);`, platformID, scheduleID, occurrenceID, participantID, leftAt)
	if err != nil {
		log.Error().Err(err).Str("participant_id", participantID).Msg("CloseAttendance failed")
	}
	return err
}

// CloseAllAttendance batch-completes every open entry for an occurrence;
// used by the termination cascade. Returns the number closed.
func (s *pgStore) CloseAllAttendance(platformID, scheduleID, occurrenceID string, leftAt time.Time) (int, error) {
	res, err := s.db.Exec(`
	UPDATE attendance_logs SET
	  event = 'left',
	  left_at = $4,
	  duration_seconds = GREATEST(0, FLOOR(EXTRACT(EPOCH FROM ($4 - joined_at))))::int
	WHERE platform_id = $1 AND schedule_id = $2 AND occurrence_id = $3 AND left_at IS NULL;`,
		platformID, scheduleID, occurrenceID, leftAt)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("CloseAllAttendance failed")
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
