package queue

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"github.com/stretchr/testify/assert"
)

var (
	t1 = bucket.TestEntry{ClassName: "CheckoutTests", MethodName: "testPay"}
	t2 = bucket.TestEntry{ClassName: "CheckoutTests", MethodName: "testRefund"}
)

func newBucket(id bucket.BucketId, retries uint, entries ...bucket.TestEntry) *bucket.Bucket {
	return &bucket.Bucket{
		Id:            id,
		Entries:       entries,
		Configuration: bucket.Configuration{NumberOfRetries: retries, TestDestination: "iPhone 15, iOS 17.2"},
	}
}

func bucketIds(enqueued []*bucket.EnqueuedBucket) []bucket.BucketId {
	ids := []bucket.BucketId{}
	for _, e := range enqueued {
		ids = append(ids, e.Bucket.Id)
	}
	return ids
}

func TestHolderEnqueue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewBucketQueueHolder(clock)

	enqueued, err := h.Enqueue(newBucket("b1", 0, t1), newBucket("b2", 0, t2))
	assert.NoError(t, err)
	assert.Len(t, enqueued, 2)
	assert.Equal(t, clock.Now(), enqueued[0].EnqueueTime)

	_, err = h.Enqueue(newBucket("b3", 0, t1))
	assert.NoError(t, err)
	assert.Equal(t, []bucket.BucketId{"b1", "b2", "b3"}, bucketIds(h.AllEnqueuedBuckets()))

	// All or nothing
	_, err = h.Enqueue(newBucket("b4", 0, t1), newBucket("b1", 0, t1))
	assert.ErrorIs(t, err, utils.ErrDuplicateBucket)
	_, err = h.Enqueue(newBucket("b5", 0, t1), newBucket("b5", 0, t1))
	assert.ErrorIs(t, err, utils.ErrDuplicateBucket)
	_, err = h.Enqueue(newBucket("b6", 0))
	assert.ErrorIs(t, err, utils.ErrBadRequest)
	assert.Len(t, h.AllEnqueuedBuckets(), 3)
}

func TestHolderDequeue(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewBucketQueueHolder(clock)

	_, err := h.Enqueue(newBucket("b1", 0, t1), newBucket("b2", 0, t2))
	assert.NoError(t, err)

	clock.Advance(time.Minute)

	d, err := h.MoveToDequeued("b2", "w1")
	assert.NoError(t, err)
	assert.Equal(t, bucket.BucketId("b2"), d.Id())
	assert.Equal(t, bucket.WorkerId("w1"), d.WorkerId)
	assert.Equal(t, clock.Now(), d.DequeueTime)
	assert.Equal(t, clock.Now().Add(-time.Minute), d.EnqueueTime)

	assert.Equal(t, []bucket.BucketId{"b1"}, bucketIds(h.AllEnqueuedBuckets()))
	assert.Len(t, h.AllDequeuedBuckets(), 1)

	_, err = h.MoveToDequeued("b2", "w2")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	// Dequeued buckets still count as duplicates
	_, err = h.Enqueue(newBucket("b2", 0, t2))
	assert.ErrorIs(t, err, utils.ErrDuplicateBucket)

	err = h.PerformWithExclusiveAccess(func(q *ExclusiveQueue) error {
		assert.NotNil(t, q.DequeuedBucket("b2", "w1"))
		assert.Nil(t, q.DequeuedBucket("b2", "w2"))
		assert.Nil(t, q.DequeuedBucket("b1", "w1"))
		return nil
	})
	assert.NoError(t, err)

	assert.NotNil(t, h.RemoveFromDequeued("b2"))
	assert.Nil(t, h.RemoveFromDequeued("b2"))
	assert.NotNil(t, h.RemoveFromEnqueued("b1"))
	assert.Nil(t, h.RemoveFromEnqueued("b1"))
	assert.Empty(t, h.AllEnqueuedBuckets())
	assert.Empty(t, h.AllDequeuedBuckets())
}

func TestHolderAcceptAllOrNothing(t *testing.T) {
	h := NewBucketQueueHolder(clockwork.NewFakeClock())
	storage := history.NewMemoryStorage()
	tracker := history.NewTracker(storage, func() bucket.BucketId { return "b2" })

	_, err := h.Enqueue(newBucket("b1", 1, t1), newBucket("b2", 0, t2))
	assert.NoError(t, err)
	_, err = h.MoveToDequeued("b1", "w1")
	assert.NoError(t, err)

	failed := bucket.TestingResult{
		BucketId: "b1",
		Results:  []bucket.TestEntryResult{{Entry: t1, Runs: []bucket.TestRunResult{{Succeeded: false}}}},
	}

	// The retry bucket id is already queued
	err = h.PerformWithExclusiveAccess(func(q *ExclusiveQueue) error {
		_, err := accept(q, tracker, q.DequeuedBucket("b1", "w1"), failed)
		return err
	})
	assert.ErrorIs(t, err, utils.ErrDuplicateBucket)

	assert.Len(t, h.AllDequeuedBuckets(), 1)
	assert.Equal(t, []bucket.BucketId{"b2"}, bucketIds(h.AllEnqueuedBuckets()))
	assert.Equal(t, 0, storage.History(history.NewTestEntryHistoryId("b1", t1)).NumberOfAttempts())
	assert.Equal(t, bucket.BucketId("b2"), storage.Origin("b2"))
}
