package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/model"
)

// InsertOccurrences bulk-inserts generated occurrences. Conflicts on
// (schedule_id, start_at) are skipped so regeneration from an unchanged
// schedule never duplicates an occurrence. Returns the number inserted.
func (s *pgStore) InsertOccurrences(occs []model.Occurrence) (int, error) {
	if len(occs) == 0 {
		return 0, nil
	}
	const q = `
	INSERT INTO occurrences
	  (occurrence_id, schedule_id, platform_id, host_id, host_name, hosts,
	   group_name, group_id, title, description, is_private, status,
	   start_at, end_at, created_at, updated_at)
	VALUES
	  (:occurrence_id, :schedule_id, :platform_id, :host_id, :host_name, :hosts,
	   :group_name, :group_id, :title, :description, :is_private, :status,
	   :start_at, :end_at, now(), now())
	ON CONFLICT (schedule_id, start_at) DO NOTHING;`

	inserted := 0
	for i := range occs {
		res, err := s.db.NamedExec(q, &occs[i])
		if err != nil {
			log.Error().Err(err).Str("schedule_id", occs[i].ScheduleID).Msg("InsertOccurrences failed")
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

func (s *pgStore) GetOccurrence(platformID, scheduleID, occurrenceID string) (*model.Occurrence, error) {
	var o model.Occurrence
	const q = `
	SELECT * FROM occurrences
	 WHERE occurrence_id = $1 AND platform_id = $2 AND schedule_id = $3;`
	if err := s.db.Get(&o, q, occurrenceID, platformID, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("GetOccurrence failed")
		return nil, err
	}
	return &o, nil
}

func (s *pgStore) ListOccurrences(platformID, scheduleID string) ([]model.Occurrence, error) {
	var out []model.Occurrence
	const q = `
	SELECT * FROM occurrences
	 WHERE platform_id = $1 AND schedule_id = $2
	 ORDER BY start_at;`
	if err := s.db.Select(&out, q, platformID, scheduleID); err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("ListOccurrences failed")
		return nil, err
	}
	return out, nil
}

// MarkOccurrenceLive is the scheduled→live compare-and-set. It reports true
// only for the single caller that wins the transition; a lost race is not an
// error. The end-timer must be armed by the winner only.
func (s *pgStore) MarkOccurrenceLive(occurrenceID string) (bool, error) {
	res, err := s.db.Exec(`
	UPDATE occurrences SET status = 'live', updated_at = now()
	 WHERE occurrence_id = $1 AND status = 'scheduled';`, occurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("MarkOccurrenceLive failed")
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkOccurrenceEnded is the *→ended compare-and-set guarding the termination
// cascade. Already-ended (or cancelled) occurrences report false so a second
// cascade run short-circuits.
func (s *pgStore) MarkOccurrenceEnded(occurrenceID string) (bool, error) {
	res, err := s.db.Exec(`
	UPDATE occurrences SET status = 'ended', updated_at = now()
	 WHERE occurrence_id = $1 AND status IN ('scheduled', 'live');`, occurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("MarkOccurrenceEnded failed")
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (s *pgStore) DeleteFutureScheduled(scheduleID string, from time.Time) error {
	_, err := s.db.Exec(`
	DELETE FROM occurrences
	 WHERE schedule_id = $1 AND start_at >= $2 AND status = 'scheduled';`, scheduleID, from)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("DeleteFutureScheduled failed")
	}
	return err
}

// PatchFutureOccurrences applies mutable metadata to not-yet-started
// occurrences without touching their time bounds.
func (s *pgStore) PatchFutureOccurrences(scheduleID string, from time.Time, patch OccurrencePatch) error {
	const q = `
	UPDATE occurrences SET
	  group_name  = COALESCE($3, group_name),
	  group_id    = COALESCE($4, group_id),
	  title       = COALESCE($5, title),
	  description = COALESCE($6, description),
	  is_private  = COALESCE($7, is_private),
	  hosts       = COALESCE($8, hosts),
	  updated_at  = now()
	WHERE schedule_id = $1 AND start_at >= $2;`
	var hosts any
	if patch.Hosts != nil {
		hosts = patch.Hosts
	}
	_, err := s.db.Exec(q, scheduleID, from,
		patch.Group, patch.GroupID, patch.Title, patch.Description, patch.IsPrivate, hosts)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("PatchFutureOccurrences failed")
	}
	return err
}

// EndOccurrencesBefore marks occurrences starting before cutoff as ended;
// used when a schedule's start date moves later.
func (s *pgStore) EndOccurrencesBefore(scheduleID string, cutoff time.Time) error {
	_, err := s.db.Exec(`
	UPDATE occurrences SET status = 'ended', updated_at = now()
	 WHERE schedule_id = $1 AND start_at < $2 AND status = 'scheduled';`, scheduleID, cutoff)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("EndOccurrencesBefore failed")
	}
	return err
}

// CascadeScheduleStatus pushes a terminal schedule status down to every
// still-open occurrence.
func (s *pgStore) CascadeScheduleStatus(scheduleID, occurrenceStatus string) error {
	_, err := s.db.Exec(`
	UPDATE occurrences SET status = $2, updated_at = now()
	 WHERE schedule_id = $1 AND status IN ('scheduled', 'live');`, scheduleID, occurrenceStatus)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("CascadeScheduleStatus failed")
	}
	return err
}
