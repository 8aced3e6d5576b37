package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/model"
)

func (s *pgStore) InsertRecording(r *model.Recording) error {
	const q = `
	INSERT INTO recordings
	  (recording_id, egress_id, platform_id, schedule_id, occurrence_id, status, file_path, archive_url, started_at)
	VALUES
	  (:recording_id, :egress_id, :platform_id, :schedule_id, :occurrence_id, :status, :file_path, :archive_url, :started_at);`
	if _, err := s.db.NamedExec(q, r); err != nil {
		log.Error().Err(err).Str("egress_id", r.EgressID).Msg("InsertRecording failed")
		return err
	}
	return nil
}

func (s *pgStore) CompleteRecording(egressID, status, filePath, archiveURL string, completedAt time.Time) error {
	_, err := s.db.Exec(`
	UPDATE recordings SET status = $2, file_path = $3, archive_url = $4, completed_at = $5
	 WHERE egress_id = $1;`, egressID, status, filePath, archiveURL, completedAt)
	if err != nil {
		log.Error().Err(err).Str("egress_id", egressID).Msg("CompleteRecording failed")
	}
	return err
}

func (s *pgStore) GetRecordingByEgress(egressID string) (*model.Recording, error) {
	var r model.Recording
	if err := s.db.Get(&r, `SELECT * FROM recordings WHERE egress_id = $1;`, egressID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("egress_id", egressID).Msg("GetRecordingByEgress failed")
		return nil, err
	}
	return &r, nil
}
