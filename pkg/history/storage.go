package history

import (
	"sync"

	"github.com/srand/jolt/testqueue/pkg/bucket"
)

// A recorded attempt together with the history it belongs to.
type AttemptRecord struct {
	Id TestEntryHistoryId
	Attempt
}

// A set of changes committed to the storage as a unit.
type Update struct {
	// Attempts to append, in order.
	Attempts []AttemptRecord

	// Newly minted retry bucket ids mapped to the bucket that started their lineage.
	Lineage map[bucket.BucketId]bucket.BucketId
}

func (u *Update) Empty() bool {
	return len(u.Attempts) == 0 && len(u.Lineage) == 0
}

// Storage of test entry histories and bucket lineage.
type Storage interface {
	// Returns a copy of the history with the given id.
	// Unknown ids yield an empty history.
	History(id TestEntryHistoryId) TestEntryHistory

	// Appends an attempt and returns the updated history.
	RegisterAttempt(id TestEntryHistoryId, result bucket.TestEntryResult, workerId bucket.WorkerId) (TestEntryHistory, error)

	// Returns the id of the bucket that started the lineage of the given
	// bucket. Buckets that are not retries are their own origin.
	Origin(bucketId bucket.BucketId) bucket.BucketId

	// Applies all changes of the update, or none of them.
	Commit(update Update) error

	// Returns the number of histories and the total number of attempts.
	Statistics() Statistics
}

type Statistics struct {
	Histories int64
	Attempts  int64
}

type memoryStorage struct {
	sync.RWMutex
	histories map[TestEntryHistoryId][]Attempt
	origins   map[bucket.BucketId]bucket.BucketId
	attempts  int64
}

// Creates a new in-memory history storage.
func NewMemoryStorage() *memoryStorage {
	return &memoryStorage{
		histories: map[TestEntryHistoryId][]Attempt{},
		origins:   map[bucket.BucketId]bucket.BucketId{},
	}
}

func (s *memoryStorage) History(id TestEntryHistoryId) TestEntryHistory {
	s.RLock()
	defer s.RUnlock()
	return s.historyNoLock(id)
}

func (s *memoryStorage) historyNoLock(id TestEntryHistoryId) TestEntryHistory {
	return TestEntryHistory{
		Id:       id,
		Attempts: append([]Attempt{}, s.histories[id]...),
	}
}

func (s *memoryStorage) RegisterAttempt(id TestEntryHistoryId, result bucket.TestEntryResult, workerId bucket.WorkerId) (TestEntryHistory, error) {
	s.Lock()
	defer s.Unlock()

	s.applyNoLock(Update{
		Attempts: []AttemptRecord{{Id: id, Attempt: Attempt{WorkerId: workerId, Result: result}}},
	})
	return s.historyNoLock(id), nil
}

func (s *memoryStorage) Origin(bucketId bucket.BucketId) bucket.BucketId {
	s.RLock()
	defer s.RUnlock()

	if origin, ok := s.origins[bucketId]; ok {
		return origin
	}
	return bucketId
}

func (s *memoryStorage) Commit(update Update) error {
	s.Lock()
	defer s.Unlock()
	s.applyNoLock(update)
	return nil
}

func (s *memoryStorage) applyNoLock(update Update) {
	for _, record := range update.Attempts {
		s.histories[record.Id] = append(s.histories[record.Id], record.Attempt)
		s.attempts++
	}
	for retry, origin := range update.Lineage {
		s.origins[retry] = origin
	}
}

func (s *memoryStorage) Statistics() Statistics {
	s.RLock()
	defer s.RUnlock()
	return Statistics{
		Histories: int64(len(s.histories)),
		Attempts:  s.attempts,
	}
}
