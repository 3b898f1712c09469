package history

import (
	"github.com/srand/jolt/testqueue/pkg/bucket"
)

// Identifies the history of a test entry within a bucket lineage.
// BucketId is the id of the bucket that started the lineage, not the id of
// the retry bucket currently carrying the entry.
type TestEntryHistoryId struct {
	BucketId bucket.BucketId
	Entry    string
}

func NewTestEntryHistoryId(bucketId bucket.BucketId, entry bucket.TestEntry) TestEntryHistoryId {
	return TestEntryHistoryId{
		BucketId: bucketId,
		Entry:    entry.String(),
	}
}

func (id TestEntryHistoryId) String() string {
	return string(id.BucketId) + ":" + id.Entry
}

// One recorded attempt of a test entry.
type Attempt struct {
	WorkerId bucket.WorkerId        `json:"workerId"`
	Result   bucket.TestEntryResult `json:"result"`
}

func (a *Attempt) Succeeded() bool {
	return a.Result.Succeeded()
}

// Append-only list of attempts of a test entry.
type TestEntryHistory struct {
	Id       TestEntryHistoryId
	Attempts []Attempt
}

func (h TestEntryHistory) NumberOfAttempts() int {
	return len(h.Attempts)
}

// IsFailingOnWorker is true if the worker attempted the entry at least
// once and every one of its attempts failed.
func (h TestEntryHistory) IsFailingOnWorker(workerId bucket.WorkerId) bool {
	attempted := false
	for _, attempt := range h.Attempts {
		if attempt.WorkerId != workerId {
			continue
		}
		if attempt.Succeeded() {
			return false
		}
		attempted = true
	}
	return attempted
}

// Returns the workers that attempted the entry, in order of first attempt.
func (h TestEntryHistory) WorkerIds() []bucket.WorkerId {
	seen := map[bucket.WorkerId]bool{}
	workers := []bucket.WorkerId{}
	for _, attempt := range h.Attempts {
		if !seen[attempt.WorkerId] {
			seen[attempt.WorkerId] = true
			workers = append(workers, attempt.WorkerId)
		}
	}
	return workers
}
