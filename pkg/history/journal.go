package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

const journalFileName = "history.jsonl"

const (
	recordAttempt = "attempt"
	recordLineage = "lineage"
)

// One line of the journal.
type journalRecord struct {
	Type     string                  `json:"type"`
	BucketId bucket.BucketId         `json:"bucketId"`
	Entry    string                  `json:"entry,omitempty"`
	WorkerId bucket.WorkerId         `json:"workerId,omitempty"`
	Result   *bucket.TestEntryResult `json:"result,omitempty"`
	Origin   bucket.BucketId         `json:"origin,omitempty"`
}

// A history storage that appends every committed update to a journal
// file before applying it in memory. The journal is replayed on creation,
// so histories survive a restart of the queue.
type journalStorage struct {
	*memoryStorage
	mu   sync.Mutex
	fs   utils.Fs
	file utils.File
	// Size of the journal up to the last complete record.
	size int64
}

// NewJournalStorage opens (or creates) the journal in the root of fs and replays it.
func NewJournalStorage(fs utils.Fs) (*journalStorage, error) {
	storage := &journalStorage{
		memoryStorage: NewMemoryStorage(),
		fs:            fs,
	}

	if err := storage.replay(); err != nil {
		return nil, err
	}

	file, err := fs.OpenFile(journalFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	storage.file = file

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	storage.size = info.Size()

	stats := storage.Statistics()
	log.Infof("Loaded %d test histories with %d attempts from journal", stats.Histories, stats.Attempts)

	return storage, nil
}

func (s *journalStorage) replay() error {
	file, err := s.fs.Open(journalFileName)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	var offset int64
	lineno := 0

	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			if len(line) > 0 {
				// A write was interrupted, drop the partial record.
				log.Warnf("Discarding truncated record at end of history journal (line %d)", lineno+1)
				return s.truncate(offset)
			}
			return nil
		}
		if err != nil {
			return err
		}
		lineno++

		record := journalRecord{}
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("%w: line %d: %v", utils.ErrHistoryCorruption, lineno, err)
		}

		update, err := record.update()
		if err != nil {
			return fmt.Errorf("%w: line %d: %v", utils.ErrHistoryCorruption, lineno, err)
		}

		s.memoryStorage.applyNoLock(update)
		offset += int64(len(line))
	}
}

func (s *journalStorage) truncate(size int64) error {
	file, err := s.fs.OpenFile(journalFileName, os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	return file.Truncate(size)
}

func (r *journalRecord) update() (Update, error) {
	switch r.Type {
	case recordAttempt:
		if r.Result == nil {
			return Update{}, fmt.Errorf("attempt record without result")
		}
		return Update{
			Attempts: []AttemptRecord{{
				Id:      TestEntryHistoryId{BucketId: r.BucketId, Entry: r.Entry},
				Attempt: Attempt{WorkerId: r.WorkerId, Result: *r.Result},
			}},
		}, nil

	case recordLineage:
		return Update{
			Lineage: map[bucket.BucketId]bucket.BucketId{r.BucketId: r.Origin},
		}, nil

	default:
		return Update{}, fmt.Errorf("unknown record type %q", r.Type)
	}
}

func encodeUpdate(update Update) ([]byte, error) {
	data := bytes.Buffer{}
	encoder := json.NewEncoder(&data)

	for retry, origin := range update.Lineage {
		record := journalRecord{Type: recordLineage, BucketId: retry, Origin: origin}
		if err := encoder.Encode(&record); err != nil {
			return nil, err
		}
	}

	for i := range update.Attempts {
		attempt := &update.Attempts[i]
		record := journalRecord{
			Type:     recordAttempt,
			BucketId: attempt.Id.BucketId,
			Entry:    attempt.Id.Entry,
			WorkerId: attempt.WorkerId,
			Result:   &attempt.Result,
		}
		if err := encoder.Encode(&record); err != nil {
			return nil, err
		}
	}

	return data.Bytes(), nil
}

func (s *journalStorage) Commit(update Update) error {
	if update.Empty() {
		return nil
	}

	data, err := encodeUpdate(update)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.file.Write(data)
	if err != nil {
		if n > 0 {
			s.rollbackNoLock()
		}
		return fmt.Errorf("failed to write history journal: %w", err)
	}
	s.size += int64(n)

	return s.memoryStorage.Commit(update)
}

// Drops a partially written update so later records follow the last
// complete one.
func (s *journalStorage) rollbackNoLock() {
	if err := s.file.Truncate(s.size); err != nil {
		log.Error("Failed to truncate history journal:", err)
		return
	}
	if _, err := s.file.Seek(s.size, io.SeekStart); err != nil {
		log.Error("Failed to rewind history journal:", err)
	}
}

func (s *journalStorage) RegisterAttempt(id TestEntryHistoryId, result bucket.TestEntryResult, workerId bucket.WorkerId) (TestEntryHistory, error) {
	err := s.Commit(Update{
		Attempts: []AttemptRecord{{Id: id, Attempt: Attempt{WorkerId: workerId, Result: result}}},
	})
	if err != nil {
		return TestEntryHistory{}, err
	}
	return s.History(id), nil
}

// Close the journal file.
func (s *journalStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.file.Sync(); err != nil {
		log.Debug("failed to sync history journal:", err)
	}
	return s.file.Close()
}
