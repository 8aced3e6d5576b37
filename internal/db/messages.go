package db

import (
	"database/sql"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/model"
)

func (s *pgStore) InsertMessage(m *model.Message) error {
	const q = `
	INSERT INTO messages
	  (schedule_id, occurrence_id, sender_id, sender_name, sender_role, platform_id, text, sent_at)
	VALUES
	  (:schedule_id, :occurrence_id, :sender_id, :sender_name, :sender_role, :platform_id, :text, :sent_at);`
	if _, err := s.db.NamedExec(q, m); err != nil {
		log.Error().Err(err).Str("occurrence_id", m.OccurrenceID).Msg("InsertMessage failed")
		return err
	}
	return nil
}

func (s *pgStore) DeleteMessages(scheduleID, occurrenceID string) error {
	_, err := s.db.Exec(`DELETE FROM messages WHERE schedule_id = $1 AND occurrence_id = $2;`,
		scheduleID, occurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("DeleteMessages failed")
	}
	return err
}

func (s *pgStore) DeleteMemberMessages(scheduleID, occurrenceID, senderID string) error {
	_, err := s.db.Exec(`
	DELETE FROM messages
	 WHERE schedule_id = $1 AND occurrence_id = $2 AND sender_id = $3;`,
		scheduleID, occurrenceID, senderID)
	if err != nil {
		log.Error().Err(err).Str("sender_id", senderID).Msg("DeleteMemberMessages failed")
	}
	return err
}

func (s *pgStore) InsertPoll(p *model.Poll) error {
	const q = `
	INSERT INTO polls
	  (poll_id, schedule_id, occurrence_id, question, options, created_by, is_active, created_at)
	VALUES
	  (:poll_id, :schedule_id, :occurrence_id, :question, :options, :created_by, :is_active, :created_at);`
	if _, err := s.db.NamedExec(q, p); err != nil {
		log.Error().Err(err).Str("poll_id", p.PollID).Msg("InsertPoll failed")
		return err
	}
	return nil
}

func (s *pgStore) GetPoll(pollID string) (*model.Poll, error) {
	var p model.Poll
	if err := s.db.Get(&p, `SELECT * FROM polls WHERE poll_id = $1;`, pollID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("poll_id", pollID).Msg("GetPoll failed")
		return nil, err
	}
	return &p, nil
}

// RecordVote bumps the chosen option's count inside the JSONB options array.
func (s *pgStore) RecordVote(pollID string, optionIndex int) error {
	_, err := s.db.Exec(`
	UPDATE polls SET options = jsonb_set(
	  options,
	  ARRAY[$2::text, 'votes'],
	  (COALESCE((options -> $2 ->> 'votes')::int, 0) + 1)::text::jsonb
	)
	WHERE poll_id = $1 AND is_active = true;`, pollID, optionIndex)
	if err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("RecordVote failed")
	}
	return err
}

func (s *pgStore) SetPollActive(pollID string, active bool) error {
	_, err := s.db.Exec(`UPDATE polls SET is_active = $2 WHERE poll_id = $1;`, pollID, active)
	if err != nil {
		log.Error().Err(err).Str("poll_id", pollID).Msg("SetPollActive failed")
	}
	return err
}

func (s *pgStore) DeletePolls(scheduleID, occurrenceID string) error {
	_, err := s.db.Exec(`DELETE FROM polls WHERE schedule_id = $1 AND occurrence_id = $2;`,
		scheduleID, occurrenceID)
	if err != nil {
		log.Error().Err(err).Str("occurrence_id", occurrenceID).Msg("DeletePolls failed")
	}
	return err
}
