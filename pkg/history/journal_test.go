package history

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestJournalReplay(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := NewJournalStorage(fs)
	assert.NoError(t, err)

	id := NewTestEntryHistoryId("b1", t1)
	_, err = s.RegisterAttempt(id, failed(t1), "w1")
	assert.NoError(t, err)

	err = s.Commit(Update{
		Attempts: []AttemptRecord{{Id: id, Attempt: Attempt{WorkerId: "w2", Result: passed(t1)}}},
		Lineage:  map[bucket.BucketId]bucket.BucketId{"b2": "b1"},
	})
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	s, err = NewJournalStorage(fs)
	assert.NoError(t, err)
	defer s.Close()

	h := s.History(id)
	assert.Equal(t, 2, h.NumberOfAttempts())
	assert.False(t, h.Attempts[0].Succeeded())
	assert.Equal(t, bucket.WorkerId("w1"), h.Attempts[0].WorkerId)
	assert.True(t, h.Attempts[1].Succeeded())
	assert.Equal(t, bucket.BucketId("b1"), s.Origin("b2"))
	assert.Equal(t, Statistics{Histories: 1, Attempts: 2}, s.Statistics())
}

func TestJournalTruncatedRecord(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := NewJournalStorage(fs)
	assert.NoError(t, err)
	_, err = s.RegisterAttempt(NewTestEntryHistoryId("b1", t1), failed(t1), "w1")
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	file, err := fs.OpenFile(journalFileName, os.O_WRONLY|os.O_APPEND, 0644)
	assert.NoError(t, err)
	_, err = file.Write([]byte(`{"type":"attempt","bucketId":"b1"`))
	assert.NoError(t, err)
	assert.NoError(t, file.Close())

	s, err = NewJournalStorage(fs)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), s.Statistics().Attempts)

	// New records are appended after the last complete record
	_, err = s.RegisterAttempt(NewTestEntryHistoryId("b1", t2), passed(t2), "w1")
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	s, err = NewJournalStorage(fs)
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Statistics{Histories: 2, Attempts: 2}, s.Statistics())
}

// Writes half of the next buffer and fails, like a full disk.
type shortWriteFile struct {
	afero.File
	fail bool
}

func (f *shortWriteFile) Write(data []byte) (int, error) {
	if !f.fail {
		return f.File.Write(data)
	}
	f.fail = false
	n, _ := f.File.Write(data[:len(data)/2])
	return n, errors.New("no space left on device")
}

func TestJournalFailedWrite(t *testing.T) {
	fs := afero.NewMemMapFs()

	s, err := NewJournalStorage(fs)
	assert.NoError(t, err)
	_, err = s.RegisterAttempt(NewTestEntryHistoryId("b1", t1), failed(t1), "w1")
	assert.NoError(t, err)

	s.file = &shortWriteFile{File: s.file, fail: true}

	_, err = s.RegisterAttempt(NewTestEntryHistoryId("b1", t2), failed(t2), "w1")
	assert.Error(t, err)
	assert.Equal(t, Statistics{Histories: 1, Attempts: 1}, s.Statistics())

	_, err = s.RegisterAttempt(NewTestEntryHistoryId("b1", t2), passed(t2), "w2")
	assert.NoError(t, err)
	assert.NoError(t, s.Close())

	s, err = NewJournalStorage(fs)
	assert.NoError(t, err)
	defer s.Close()
	assert.Equal(t, Statistics{Histories: 2, Attempts: 2}, s.Statistics())
	assert.True(t, s.History(NewTestEntryHistoryId("b1", t2)).Attempts[0].Succeeded())
}

func TestJournalCorruption(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.NoError(t, afero.WriteFile(fs, journalFileName, []byte("{\"type\":\"bogus\"}\n"), 0644))

	_, err := NewJournalStorage(fs)
	assert.ErrorIs(t, err, utils.ErrHistoryCorruption)

	assert.NoError(t, afero.WriteFile(fs, journalFileName, []byte("not json\n"), 0644))
	_, err = NewJournalStorage(fs)
	assert.ErrorIs(t, err, utils.ErrHistoryCorruption)
}
