package history

import (
	"fmt"

	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

// Generates ids for retry buckets.
type IdGenerator func() bucket.BucketId

// The outcome of classifying a testing result.
type Classification struct {
	// Successful and finally failed entries. Entries scheduled for retry
	// are not part of the result since they are not yet resolved.
	Result bucket.TestingResult

	// New buckets to enqueue, one per entry scheduled for retry.
	Retries []*bucket.Bucket

	update Update
}

// Tracks test entry histories to decide which bucket a worker should run
// next and whether a failed test entry is retried.
type Tracker struct {
	storage     Storage
	idGenerator IdGenerator
}

func NewTracker(storage Storage, idGenerator IdGenerator) *Tracker {
	if idGenerator == nil {
		idGenerator = bucket.NewBucketId
	}
	return &Tracker{
		storage:     storage,
		idGenerator: idGenerator,
	}
}

func (t *Tracker) Storage() Storage {
	return t.storage
}

// Returns true if any entry of the bucket has only failed on the worker.
func (t *Tracker) bucketIsFailingOnWorker(b *bucket.Bucket, workerId bucket.WorkerId) bool {
	origin := t.storage.Origin(b.Id)
	for _, entry := range b.Entries {
		history := t.storage.History(NewTestEntryHistoryId(origin, entry))
		if history.IsFailingOnWorker(workerId) {
			return true
		}
	}
	return false
}

func (t *Tracker) bucketIsFailingOnAllWorkers(b *bucket.Bucket, workerIds []bucket.WorkerId) bool {
	for _, workerId := range workerIds {
		if !t.bucketIsFailingOnWorker(b, workerId) {
			return false
		}
	}
	return true
}

// SelectDequeueCandidate returns the bucket the worker should run next, or nil.
//
// The first bucket in queue order that has not been failing on the worker
// is preferred. If every bucket has been failing on the worker, the first
// bucket that has been failing on all alive workers is returned so that
// work failing everywhere is not starved.
func (t *Tracker) SelectDequeueCandidate(workerId bucket.WorkerId, queue []*bucket.EnqueuedBucket, aliveWorkers []bucket.WorkerId) *bucket.EnqueuedBucket {
	candidates := t.DequeueCandidates(workerId, queue, aliveWorkers)
	if len(candidates) == 0 {
		return nil
	}
	return candidates[0]
}

// DequeueCandidates returns all buckets the worker may run, in order of
// preference: buckets not failing on the worker in queue order, followed
// by buckets failing on all alive workers in queue order.
func (t *Tracker) DequeueCandidates(workerId bucket.WorkerId, queue []*bucket.EnqueuedBucket, aliveWorkers []bucket.WorkerId) []*bucket.EnqueuedBucket {
	preferred := []*bucket.EnqueuedBucket{}
	fallback := []*bucket.EnqueuedBucket{}

	for _, enqueued := range queue {
		if !t.bucketIsFailingOnWorker(enqueued.Bucket, workerId) {
			preferred = append(preferred, enqueued)
		} else if t.bucketIsFailingOnAllWorkers(enqueued.Bucket, aliveWorkers) {
			fallback = append(fallback, enqueued)
		}
	}

	return append(preferred, fallback...)
}

// ClassifyResult records the attempts of a testing result reported by the
// worker and splits it into final results and buckets to retry.
//
// Entries of the original bucket missing from the result are recorded as
// lost. A result for another bucket, or containing entries that are not
// part of the bucket, is rejected without recording anything.
func (t *Tracker) ClassifyResult(result bucket.TestingResult, original *bucket.Bucket, numberOfRetries uint, workerId bucket.WorkerId) (*Classification, error) {
	classification, err := t.Classify(result, original, numberOfRetries, workerId)
	if err != nil {
		return nil, err
	}

	if err := t.Commit(classification); err != nil {
		return nil, err
	}

	return classification, nil
}

// Classify is ClassifyResult without recording the attempts. Attempts are
// counted against the current history, so commit or drop the
// classification before classifying another result.
func (t *Tracker) Classify(result bucket.TestingResult, original *bucket.Bucket, numberOfRetries uint, workerId bucket.WorkerId) (*Classification, error) {
	if result.BucketId != original.Id {
		return nil, fmt.Errorf("%w: result for %s, bucket %s", utils.ErrBucketIdMismatch, result.BucketId, original.Id)
	}

	results, err := completeResults(result.Results, original)
	if err != nil {
		return nil, err
	}

	origin := t.storage.Origin(original.Id)
	update := Update{Lineage: map[bucket.BucketId]bucket.BucketId{}}
	pending := map[TestEntryHistoryId]int{}

	classification := &Classification{
		Result: bucket.TestingResult{
			BucketId:        original.Id,
			TestDestination: result.TestDestination,
			Results:         []bucket.TestEntryResult{},
		},
	}

	for _, entryResult := range results {
		id := NewTestEntryHistoryId(origin, entryResult.Entry)
		history := t.storage.History(id)
		numberOfAttempts := history.NumberOfAttempts() + pending[id] + 1
		pending[id]++

		update.Attempts = append(update.Attempts, AttemptRecord{
			Id:      id,
			Attempt: Attempt{WorkerId: workerId, Result: entryResult},
		})

		switch {
		case entryResult.Succeeded():
			classification.Result.Results = append(classification.Result.Results, entryResult)

		case numberOfAttempts < 1+int(numberOfRetries):
			retry := original.Retry(t.idGenerator(), entryResult.Entry)
			update.Lineage[retry.Id] = origin
			classification.Retries = append(classification.Retries, retry)
			log.Debugf("rty - test - id: %s, attempt: %d/%d, bucket: %s", id, numberOfAttempts, 1+numberOfRetries, retry.Id)

		default:
			classification.Result.Results = append(classification.Result.Results, entryResult)
			log.Debugf("nok - test - id: %s, attempts: %d", id, numberOfAttempts)
		}
	}

	classification.update = update
	return classification, nil
}

// Commit records the attempts and retry lineage of a classification.
func (t *Tracker) Commit(classification *Classification) error {
	return t.storage.Commit(classification.update)
}

// Returns the results ordered as reported, followed by lost results for
// entries of the bucket the worker did not report on. An entry may be
// reported at most as many times as the bucket carries it.
func completeResults(results []bucket.TestEntryResult, original *bucket.Bucket) ([]bucket.TestEntryResult, error) {
	carried := map[string]int{}
	for _, entry := range original.Entries {
		carried[entry.String()]++
	}

	reported := map[string]int{}
	complete := make([]bucket.TestEntryResult, 0, len(original.Entries))

	for _, result := range results {
		name := result.Entry.String()
		switch {
		case carried[name] == 0:
			return nil, fmt.Errorf("%w: test %s is not part of bucket %s", utils.ErrBadRequest, name, original.Id)
		case reported[name] >= carried[name]:
			return nil, fmt.Errorf("%w: test %s reported %d times, bucket %s carries it %d times", utils.ErrBadRequest, name, reported[name]+1, original.Id, carried[name])
		}
		reported[name]++
		complete = append(complete, result)
	}

	for _, entry := range original.Entries {
		if reported[entry.String()] < carried[entry.String()] {
			log.Debugf("nok - test - lost, id: %s, bucket: %s", entry, original.Id)
			complete = append(complete, bucket.LostResult(entry))
			reported[entry.String()]++
		}
	}

	return complete, nil
}
