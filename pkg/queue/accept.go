package queue

import (
	"fmt"

	"github.com/srand/jolt/testqueue/pkg/aliveness"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

// The outcome of accepting the result of a dequeued bucket.
type Accepted struct {
	// The bucket the result was reported for. No longer in flight.
	DequeuedBucket *bucket.DequeuedBucket

	// Successful and finally failed test entries.
	Result bucket.TestingResult

	// Buckets enqueued to retry failed test entries.
	Retries []*bucket.EnqueuedBucket

	// True if the bucket was taken away from a silent or disabled worker
	// rather than reported on by the worker.
	Reclaimed bool
}

// Accepts testing results from workers.
type BucketResultAcceptor struct {
	holder    *BucketQueueHolder
	aliveness *aliveness.Provider
	tracker   *history.Tracker
}

func NewBucketResultAcceptor(holder *BucketQueueHolder, aliveness *aliveness.Provider, tracker *history.Tracker) *BucketResultAcceptor {
	return &BucketResultAcceptor{
		holder:    holder,
		aliveness: aliveness,
		tracker:   tracker,
	}
}

// Accept classifies the result of a bucket dequeued by the worker and
// enqueues retry buckets for failed test entries. Fails with
// ErrNoDequeuedBucket if the worker does not own the bucket, in which
// case neither the queue nor the test history is modified.
func (a *BucketResultAcceptor) Accept(bucketId bucket.BucketId, result bucket.TestingResult, workerId bucket.WorkerId) (*Accepted, error) {
	var accepted *Accepted

	err := a.holder.PerformWithExclusiveAccess(func(q *ExclusiveQueue) error {
		dequeued := q.DequeuedBucket(bucketId, workerId)
		if dequeued == nil {
			return fmt.Errorf("%w: bucket %s, worker %s", utils.ErrNoDequeuedBucket, bucketId, workerId)
		}

		var err error
		accepted, err = accept(q, a.tracker, dequeued, result)
		return err
	})
	if err != nil {
		log.Debugf("nok - result - id: %s, worker: %s: %v", bucketId, workerId, err)
		return nil, err
	}

	a.aliveness.DidProcessBucket(bucketId, workerId)

	log.Debugf("acc - result - id: %s, worker: %s, passed: %d, failed: %d, retries: %d",
		bucketId, workerId,
		len(accepted.Result.SuccessfulResults()),
		len(accepted.Result.FailedResults()),
		len(accepted.Retries))

	return accepted, nil
}

// Classifies the result and replaces the dequeued bucket with its retries.
// On error neither the queue nor the test history is modified.
func accept(q *ExclusiveQueue, tracker *history.Tracker, dequeued *bucket.DequeuedBucket, result bucket.TestingResult) (*Accepted, error) {
	numberOfRetries := dequeued.Bucket.Configuration.NumberOfRetries

	classification, err := tracker.Classify(result, dequeued.Bucket, numberOfRetries, dequeued.WorkerId)
	if err != nil {
		return nil, err
	}

	if err := q.CheckEnqueue(classification.Retries...); err != nil {
		return nil, err
	}

	if err := tracker.Commit(classification); err != nil {
		return nil, err
	}

	q.RemoveFromDequeued(dequeued.Id())

	retries, err := q.Enqueue(classification.Retries...)
	if err != nil {
		return nil, err
	}

	return &Accepted{
		DequeuedBucket: dequeued,
		Result:         classification.Result,
		Retries:        retries,
	}, nil
}
