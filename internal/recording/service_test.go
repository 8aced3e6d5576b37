package recording

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleylabs/parley/internal/db"
	"github.com/parleylabs/parley/internal/errs"
	"github.com/parleylabs/parley/internal/model"
)

type fakeStore struct {
	db.Store

	recordings map[string]*model.Recording
	completed  []model.Recording
}

func newFakeStore() *fakeStore {
	return &fakeStore{recordings: make(map[string]*model.Recording)}
}

func (f *fakeStore) InsertRecording(r *model.Recording) error {
	cp := *r
	f.recordings[r.EgressID] = &cp
	return nil
}

func (f *fakeStore) GetRecordingByEgress(egressID string) (*model.Recording, error) {
	r, ok := f.recordings[egressID]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) CompleteRecording(egressID, status, filePath, archiveURL string, completedAt time.Time) error {
	f.completed = append(f.completed, model.Recording{
		EgressID:    egressID,
		Status:      status,
		FilePath:    filePath,
		ArchiveURL:  archiveURL,
		CompletedAt: &completedAt,
	})
	return nil
}

type fakeArchive struct {
	saved []string
	err   error
}

func (f *fakeArchive) SaveRecording(src io.ReadSeeker, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, filename)
	return "https://cdn.test/recordings/" + filename, nil
}

func egressFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "room.mp4")
	require.NoError(t, os.WriteFile(path, []byte("clip"), 0644))
	return path
}

func TestTrackValidatesAndInserts(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeArchive{})

	_, err := svc.Track("plat-1", "sched-1", "occ-1", "")
	assert.ErrorIs(t, err, errs.ErrValidation)

	rec, err := svc.Track("plat-1", "sched-1", "occ-1", "eg-1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.RecordingID)
	assert.Equal(t, model.RecordingActive, rec.Status)
	assert.Contains(t, store.recordings, "eg-1")
}

func TestCompleteUnknownEgress(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeArchive{})
	err := svc.Complete("eg-missing", model.RecordingComplete, "/tmp/x.mp4")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCompleteArchivesFinishedFile(t *testing.T) {
	store := newFakeStore()
	archive := &fakeArchive{}
	svc := NewService(store, archive)

	_, err := svc.Track("plat-1", "sched-1", "occ-1", "eg-1")
	require.NoError(t, err)

	path := egressFile(t)
	require.NoError(t, svc.Complete("eg-1", model.RecordingComplete, path))

	require.Len(t, archive.saved, 1)
	assert.Equal(t, "occ-1_room.mp4", archive.saved[0])

	require.Len(t, store.completed, 1)
	done := store.completed[0]
	assert.Equal(t, model.RecordingComplete, done.Status)
	assert.Equal(t, path, done.FilePath)
	assert.Contains(t, done.ArchiveURL, "occ-1_room.mp4")
}

func TestCompleteFailedEgressSkipsArchive(t *testing.T) {
	store := newFakeStore()
	archive := &fakeArchive{}
	svc := NewService(store, archive)

	_, err := svc.Track("plat-1", "sched-1", "occ-1", "eg-1")
	require.NoError(t, err)

	require.NoError(t, svc.Complete("eg-1", model.RecordingFailed, ""))
	assert.Empty(t, archive.saved)
	require.Len(t, store.completed, 1)
	assert.Equal(t, model.RecordingFailed, store.completed[0].Status)
}

func TestCompleteKeepsRecordWhenArchiveFails(t *testing.T) {
	store := newFakeStore()
	archive := &fakeArchive{err: errors.New("spaces down")}
	svc := NewService(store, archive)

	_, err := svc.Track("plat-1", "sched-1", "occ-1", "eg-1")
	require.NoError(t, err)

	path := egressFile(t)
	require.NoError(t, svc.Complete("eg-1", model.RecordingComplete, path))

	require.Len(t, store.completed, 1)
	done := store.completed[0]
	assert.Equal(t, model.RecordingComplete, done.Status)
	assert.Equal(t, path, done.FilePath)
	assert.Empty(t, done.ArchiveURL)
}
