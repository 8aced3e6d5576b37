package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

func (s *pgStore) CreateSchedule(sc *model.Schedule) error {
	const q = `
	INSERT INTO schedules
	  (schedule_id, platform_id, host_id, host_name, hosts, group_name, group_id,
	   title, description, is_private, start_date, end_date, start_time, end_time,
	   time_zone, recurrence, days_of_week, status, created_at, updated_at)
	VALUES
	  (:schedule_id, :platform_id, :host_id, :host_name, :hosts, :group_name, :group_id,
	   :title, :description, :is_private, :start_date, :end_date, :start_time, :end_time,
	   :time_zone, :recurrence, :days_of_week, :status, now(), now());`
	if _, err := s.db.NamedExec(q, sc); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return errs.ErrAlreadyExists
		}
		log.Error().Err(err).Str("schedule_id", sc.ScheduleID).Msg("CreateSchedule failed")
		return err
	}
	return nil
}

func (s *pgStore) GetSchedule(platformID, scheduleID string) (*model.Schedule, error) {
	var sc model.Schedule
	const q = `SELECT * FROM schedules WHERE platform_id = $1 AND schedule_id = $2;`
	if err := s.db.Get(&sc, q, platformID, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("schedule_id", scheduleID).Msg("GetSchedule failed")
		return nil, err
	}
	return &sc, nil
}

func (s *pgStore) ScheduleExists(platformID, hostID string, startDate time.Time, startTime string) (bool, error) {
	var n int
	const q = `
	SELECT count(*) FROM schedules
	 WHERE platform_id = $1 AND host_id = $2 AND start_date = $3 AND start_time = $4;`
	if err := s.db.Get(&n, q, platformID, hostID, startDate, startTime); err != nil {
		log.Error().Err(err).Str("host_id", hostID).Msg("ScheduleExists failed")
		return false, err
	}
	return n > 0, nil
}

func (s *pgStore) UpdateSchedule(sc *model.Schedule) error {
	const q = `
	UPDATE schedules SET
	  hosts = :hosts, group_name = :group_name, group_id = :group_id,
	  title = :title, description = :description, is_private = :is_private,
	  start_date = :start_date, end_date = :end_date,
	  start_time = :start_time, end_time = :end_time,
	  time_zone = :time_zone, recurrence = :recurrence, days_of_week = :days_of_week,
	  status = :status, updated_at = now()
	WHERE platform_id = :platform_id AND schedule_id = :schedule_id;`
	res, err := s.db.NamedExec(q, sc)
	if err != nil {
		log.Error().Err(err).Str("schedule_id", sc.ScheduleID).Msg("UpdateSchedule failed")
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// DeleteScheduleCascade removes a schedule together with its occurrences and
// log entries. The whole cascade is one transaction: all-or-nothing.
func (s *pgStore) DeleteScheduleCascade(platformID, hostID, scheduleID string) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	err = tx.Get(&n, `SELECT count(*) FROM schedules WHERE platform_id = $1 AND host_id = $2 AND schedule_id = $3;`,
		platformID, hostID, scheduleID)
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}

	for _, stmt := range []string{
		`DELETE FROM occurrences WHERE platform_id = $1 AND schedule_id = $2;`,
		`DELETE FROM meeting_logs WHERE platform_id = $1 AND schedule_id = $2;`,
		`DELETE FROM attendance_logs WHERE platform_id = $1 AND schedule_id = $2;`,
	} {
		if _, err := tx.Exec(stmt, platformID, scheduleID); err != nil {
			log.Error().Err(err).Str("schedule_id", scheduleID).Msg("DeleteScheduleCascade failed")
			return err
		}
	}
	if _, err := tx.Exec(`DELETE FROM schedules WHERE platform_id = $1 AND host_id = $2 AND schedule_id = $3;`,
		platformID, hostID, scheduleID); err != nil {
		return err
	}
	return tx.Commit()
}
