// Package recording tracks egress artifacts for live occurrences. The media
// server reports lifecycle transitions through a webhook; finished files are
// copied to the configured archive and the durable record updated.
package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
	"github.com/parleylabs/parley/internal/storage"
)

type Service struct {
	store   db.Store
	archive storage.Storage
}

func NewService(store db.Store, archive storage.Storage) *Service {
	return &Service{store: store, archive: archive}
}

// Track registers a newly started egress for an occurrence.
func (s *Service) Track(platformID, scheduleID, occurrenceID, egressID string) (*model.Recording, error) {
	if egressID == "" || occurrenceID == "" {
		return nil, fmt.Errorf("%w: egressId and occurrenceId are required", errs.ErrValidation)
	}
	rec := &model.Recording{
		RecordingID:  uuid.NewString(),
		EgressID:     egressID,
		PlatformID:   platformID,
		ScheduleID:   scheduleID,
		OccurrenceID: occurrenceID,
		Status:       model.RecordingActive,
		StartedAt:    time.Now().UTC(),
	}
	if err := s.store.InsertRecording(rec); err != nil {
		return nil, err
	}
	log.Info().Str("egress_id", egressID).Str("occurrence_id", occurrenceID).Msg("recording started")
	return rec, nil
}

// Complete archives the finished file and closes the record. A failed or
// aborted egress closes the record without an archive copy.
func (s *Service) Complete(egressID, status, filePath string) error {
	rec, err := s.store.GetRecordingByEgress(egressID)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("%w: egress %s", errs.ErrNotFound, egressID)
	}

	now := time.Now().UTC()
	if status != model.RecordingComplete || filePath == "" {
		return s.store.CompleteRecording(egressID, model.RecordingFailed, filePath, "", now)
	}

	archiveURL, err := s.archiveFile(rec, filePath)
	if err != nil {
		log.Error().Err(err).Str("egress_id", egressID).Msg("failed to archive recording")
		// The file is still on local disk; keep the record complete with the
		// raw path so the archive copy can be retried out of band.
		return s.store.CompleteRecording(egressID, model.RecordingComplete, filePath, "", now)
	}
	if err := s.store.CompleteRecording(egressID, model.RecordingComplete, filePath, archiveURL, now); err != nil {
		return err
	}
	log.Info().Str("egress_id", egressID).Str("archive_url", archiveURL).Msg("recording archived")
	return nil
}

func (s *Service) archiveFile(rec *model.Recording, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	name := fmt.Sprintf("%s_%s", rec.OccurrenceID, filepath.Base(filePath))
	return s.archive.SaveRecording(f, name)
}
