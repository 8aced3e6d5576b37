package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

// UpsertRegistration inserts a registration or refreshes name/role on
// conflict. A banned registration is never resurrected by an upsert.
func (s *pgStore) UpsertRegistration(r *model.Registration) error {
	const q = `
	INSERT INTO registrations
	  (platform_id, schedule_id, participant_id, participant_name, role, status, created_at, updated_at)
	VALUES
	  (:platform_id, :schedule_id, :participant_id, :participant_name, :role, :status, now(), now())
	ON CONFLICT (platform_id, schedule_id, participant_id) DO UPDATE SET
	  participant_name = EXCLUDED.participant_name,
	  role             = EXCLUDED.role,
	  updated_at       = now()
	WHERE registrations.status <> 'ban';`
	if _, err := s.db.NamedExec(q, r); err != nil {
		log.Error().Err(err).Str("participant_id", r.ParticipantID).Msg("UpsertRegistration failed")
		return err
	}
	return nil
}

func (s *pgStore) GetRegistration(platformID, scheduleID, participantID string) (*model.Registration, error) {
	var r model.Registration
	const q = `
	SELECT * FROM registrations
	 WHERE platform_id = $1 AND schedule_id = $2 AND participant_id = $3;`
	if err := s.db.Get(&r, q, platformID, scheduleID, participantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("participant_id", participantID).Msg("GetRegistration failed")
		return nil, err
	}
	return &r, nil
}

func (s *pgStore) SetRegistrationStatus(platformID, scheduleID, participantID, status string) error {
	res, err := s.db.Exec(`
	UPDATE registrations SET status = $4, updated_at = now()
	 WHERE platform_id = $1 AND schedule_id = $2 AND participant_id = $3;`,
		platformID, scheduleID, participantID, status)
	if err != nil {
		log.Error().Err(err).Str("participant_id", participantID).Msg("SetRegistrationStatus failed")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (s *pgStore) GetPlatform(platformID string) (*model.Platform, error) {
	var p model.Platform
	if err := s.db.Get(&p, `SELECT * FROM platforms WHERE platform_id = $1;`, platformID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("platform_id", platformID).Msg("GetPlatform failed")
		return nil, err
	}
	return &p, nil
}
