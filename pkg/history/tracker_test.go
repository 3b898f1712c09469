package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIds() IdGenerator {
	next := 0
	return func() bucket.BucketId {
		next++
		return bucket.BucketId(fmt.Sprintf("retry-%d", next))
	}
}

func newBucket(id bucket.BucketId, retries uint, entries ...bucket.TestEntry) *bucket.Bucket {
	return &bucket.Bucket{
		Id:            id,
		Entries:       entries,
		Configuration: bucket.Configuration{NumberOfRetries: retries, TestDestination: "iPhone 15"},
	}
}

func enqueued(buckets ...*bucket.Bucket) []*bucket.EnqueuedBucket {
	queue := []*bucket.EnqueuedBucket{}
	for _, b := range buckets {
		queue = append(queue, &bucket.EnqueuedBucket{Bucket: b, EnqueueTime: time.Now()})
	}
	return queue
}

func result(b *bucket.Bucket, results ...bucket.TestEntryResult) bucket.TestingResult {
	return bucket.TestingResult{BucketId: b.Id, TestDestination: b.Configuration.TestDestination, Results: results}
}

func TestSelectDequeueCandidateUntried(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 1, t1)
	queue := enqueued(b1)

	assert.Equal(t, b1, tracker.SelectDequeueCandidate("w1", queue, nil).Bucket)

	_, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 5, "w1")
	assert.NoError(t, err)

	// w1 has failed the bucket, w2 has not
	assert.Equal(t, b1, tracker.SelectDequeueCandidate("w2", queue, []bucket.WorkerId{"w1", "w2"}).Bucket)
	assert.Nil(t, tracker.SelectDequeueCandidate("w1", queue, []bucket.WorkerId{"w1", "w2"}))
}

func TestSelectDequeueCandidatePrefersUntried(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 1, t1)
	b2 := newBucket("b2", 1, t2)
	queue := enqueued(b1, b2)

	_, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 5, "w1")
	assert.NoError(t, err)

	// Skipped in favor of a later bucket, even if failing everywhere
	candidate := tracker.SelectDequeueCandidate("w1", queue, []bucket.WorkerId{"w1"})
	assert.Equal(t, b2, candidate.Bucket)

	candidates := tracker.DequeueCandidates("w1", queue, []bucket.WorkerId{"w1"})
	assert.Len(t, candidates, 2)
	assert.Equal(t, b2, candidates[0].Bucket)
	assert.Equal(t, b1, candidates[1].Bucket)
}

func TestSelectDequeueCandidateFallback(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 1, t1)
	queue := enqueued(b1)
	alive := []bucket.WorkerId{"w1", "w2"}

	_, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 5, "w1")
	assert.NoError(t, err)
	_, err = tracker.ClassifyResult(result(b1, failed(t1)), b1, 5, "w2")
	assert.NoError(t, err)

	assert.Equal(t, b1, tracker.SelectDequeueCandidate("w1", queue, alive).Bucket)
	assert.Equal(t, b1, tracker.SelectDequeueCandidate("w2", queue, alive).Bucket)

	// A third worker that has not failed keeps the bucket away from the others
	alive = append(alive, "w3")
	assert.Nil(t, tracker.SelectDequeueCandidate("w1", queue, alive))
	assert.Equal(t, b1, tracker.SelectDequeueCandidate("w3", queue, alive).Bucket)
}

func TestSelectDequeueCandidateEmptyQueue(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), nil)
	assert.Nil(t, tracker.SelectDequeueCandidate("w1", nil, []bucket.WorkerId{"w1"}))
}

func TestClassifyResultRetryThreshold(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	current := newBucket("b1", 2, t1)

	for attempt := 1; attempt <= 2; attempt++ {
		c, err := tracker.ClassifyResult(result(current, failed(t1)), current, 2, "w1")
		assert.NoError(t, err)
		assert.Empty(t, c.Result.Results, "attempt %d", attempt)
		assert.Len(t, c.Retries, 1, "attempt %d", attempt)
		current = c.Retries[0]
	}

	c, err := tracker.ClassifyResult(result(current, failed(t1)), current, 2, "w1")
	assert.NoError(t, err)
	assert.Empty(t, c.Retries)
	assert.Len(t, c.Result.FailedResults(), 1)
	assert.Equal(t, bucket.BucketId("retry-2"), c.Result.BucketId)

	h := tracker.Storage().History(NewTestEntryHistoryId("b1", t1))
	assert.Equal(t, 3, h.NumberOfAttempts())
}

func TestClassifyResultNoRetries(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 0, t1, t2)

	c, err := tracker.ClassifyResult(result(b1, failed(t1), passed(t2)), b1, 0, "w1")
	assert.NoError(t, err)
	assert.Empty(t, c.Retries)
	assert.Len(t, c.Result.Results, 2)
	assert.Len(t, c.Result.SuccessfulResults(), 1)
	assert.Len(t, c.Result.FailedResults(), 1)
}

func TestClassifyResultAppendOnly(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 10, t1)
	id := NewTestEntryHistoryId("b1", t1)

	_, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 10, "w1")
	assert.NoError(t, err)
	assert.Equal(t, 1, tracker.Storage().History(id).NumberOfAttempts())

	_, err = tracker.ClassifyResult(result(b1, failed(t1)), b1, 10, "w1")
	assert.NoError(t, err)
	assert.Equal(t, 2, tracker.Storage().History(id).NumberOfAttempts())
}

func TestClassifyResultRepeatedEntry(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 2, t1)
	id := NewTestEntryHistoryId("b1", t1)

	// Reporting a test more often than the bucket carries it is rejected
	_, err := tracker.ClassifyResult(result(b1, failed(t1), failed(t1)), b1, 2, "w1")
	assert.ErrorIs(t, err, utils.ErrBadRequest)
	assert.Equal(t, 0, tracker.Storage().History(id).NumberOfAttempts())

	// The retry limit holds across the whole lineage
	attempts := 0
	pending := []*bucket.Bucket{b1}
	for len(pending) > 0 {
		b := pending[0]
		pending = pending[1:]

		c, err := tracker.ClassifyResult(result(b, failed(t1)), b, 2, "w2")
		require.NoError(t, err)
		attempts++
		pending = append(pending, c.Retries...)
	}
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 3, tracker.Storage().History(id).NumberOfAttempts())
}

func TestClassifyResultEntryCarriedTwice(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 5, t1, t1)
	id := NewTestEntryHistoryId("b1", t1)

	c, err := tracker.ClassifyResult(result(b1, passed(t1)), b1, 5, "w1")
	require.NoError(t, err)
	assert.Len(t, c.Retries, 1)
	assert.Len(t, c.Result.Results, 1)
	assert.Equal(t, 2, tracker.Storage().History(id).NumberOfAttempts())
}

func TestClassifyResultLineage(t *testing.T) {
	storage := NewMemoryStorage()
	tracker := NewTracker(storage, sequentialIds())
	alive := []bucket.WorkerId{"w1", "w2"}

	b1 := newBucket("b1", 1, t1)
	c, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 1, "w1")
	assert.NoError(t, err)
	assert.Empty(t, c.Result.Results)
	assert.Len(t, c.Retries, 1)

	b2 := c.Retries[0]
	assert.Equal(t, bucket.BucketId("retry-1"), b2.Id)
	assert.Equal(t, []bucket.TestEntry{t1}, b2.Entries)
	assert.Equal(t, b1.Configuration, b2.Configuration)
	assert.Equal(t, bucket.BucketId("b1"), storage.Origin(b2.Id))

	// The retry carries the history of its origin
	queue := enqueued(b2)
	assert.Nil(t, tracker.SelectDequeueCandidate("w1", queue, alive))
	assert.Equal(t, b2, tracker.SelectDequeueCandidate("w2", queue, alive).Bucket)

	c, err = tracker.ClassifyResult(result(b2, passed(t1)), b2, 1, "w2")
	assert.NoError(t, err)
	assert.Empty(t, c.Retries)
	assert.Len(t, c.Result.SuccessfulResults(), 1)
	assert.Equal(t, b2.Id, c.Result.BucketId)

	h := storage.History(NewTestEntryHistoryId("b1", t1))
	assert.Equal(t, []bucket.WorkerId{"w1", "w2"}, h.WorkerIds())
}

func TestClassifyResultMultiHopLineage(t *testing.T) {
	storage := NewMemoryStorage()
	tracker := NewTracker(storage, sequentialIds())

	b1 := newBucket("b1", 5, t1)
	c, err := tracker.ClassifyResult(result(b1, failed(t1)), b1, 5, "w1")
	assert.NoError(t, err)
	b2 := c.Retries[0]

	c, err = tracker.ClassifyResult(result(b2, failed(t1)), b2, 5, "w2")
	assert.NoError(t, err)
	b3 := c.Retries[0]

	assert.Equal(t, bucket.BucketId("b1"), storage.Origin(b2.Id))
	assert.Equal(t, bucket.BucketId("b1"), storage.Origin(b3.Id))
	assert.Equal(t, 2, storage.History(NewTestEntryHistoryId("b1", t1)).NumberOfAttempts())
	assert.Equal(t, 0, storage.History(NewTestEntryHistoryId(b2.Id, t1)).NumberOfAttempts())
}

func TestClassifyResultLostEntries(t *testing.T) {
	tracker := NewTracker(NewMemoryStorage(), sequentialIds())
	b1 := newBucket("b1", 1, t1, t2)

	c, err := tracker.ClassifyResult(result(b1, passed(t1)), b1, 1, "w1")
	assert.NoError(t, err)
	assert.Len(t, c.Result.Results, 1)
	assert.Len(t, c.Retries, 1)
	assert.Equal(t, []bucket.TestEntry{t2}, c.Retries[0].Entries)

	h := tracker.Storage().History(NewTestEntryHistoryId("b1", t2))
	assert.Equal(t, 1, h.NumberOfAttempts())
	assert.True(t, h.Attempts[0].Result.IsLost())
	assert.True(t, h.IsFailingOnWorker("w1"))
}

func TestClassifyResultErrors(t *testing.T) {
	storage := NewMemoryStorage()
	tracker := NewTracker(storage, sequentialIds())
	b1 := newBucket("b1", 1, t1)
	b2 := newBucket("b2", 1, t1)

	_, err := tracker.ClassifyResult(result(b2, failed(t1)), b1, 1, "w1")
	assert.ErrorIs(t, err, utils.ErrBucketIdMismatch)

	_, err = tracker.ClassifyResult(result(b1, failed(t1), failed(t2)), b1, 1, "w1")
	assert.ErrorIs(t, err, utils.ErrBadRequest)

	assert.Equal(t, Statistics{}, storage.Statistics())
}
