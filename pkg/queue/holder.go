package queue

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

// Holds enqueued and dequeued buckets.
// Enqueued buckets are kept in insertion order.
type BucketQueueHolder struct {
	sync.Mutex
	clock    clockwork.Clock
	enqueued []*bucket.EnqueuedBucket
	dequeued []*bucket.DequeuedBucket
}

// The view of the holder available inside an exclusive access section.
type ExclusiveQueue struct {
	holder *BucketQueueHolder
}

func NewBucketQueueHolder(clock clockwork.Clock) *BucketQueueHolder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &BucketQueueHolder{
		clock:    clock,
		enqueued: []*bucket.EnqueuedBucket{},
		dequeued: []*bucket.DequeuedBucket{},
	}
}

// PerformWithExclusiveAccess runs fn while no other goroutine can access the holder.
func (h *BucketQueueHolder) PerformWithExclusiveAccess(fn func(q *ExclusiveQueue) error) error {
	h.Lock()
	defer h.Unlock()
	return fn(&ExclusiveQueue{holder: h})
}

func (h *BucketQueueHolder) AllEnqueuedBuckets() []*bucket.EnqueuedBucket {
	h.Lock()
	defer h.Unlock()
	return h.allEnqueuedBucketsNoLock()
}

func (h *BucketQueueHolder) AllDequeuedBuckets() []*bucket.DequeuedBucket {
	h.Lock()
	defer h.Unlock()
	return h.allDequeuedBucketsNoLock()
}

func (h *BucketQueueHolder) Enqueue(buckets ...*bucket.Bucket) ([]*bucket.EnqueuedBucket, error) {
	h.Lock()
	defer h.Unlock()
	return h.enqueueNoLock(buckets)
}

func (h *BucketQueueHolder) RemoveFromEnqueued(bucketId bucket.BucketId) *bucket.EnqueuedBucket {
	h.Lock()
	defer h.Unlock()
	return h.removeFromEnqueuedNoLock(bucketId)
}

func (h *BucketQueueHolder) MoveToDequeued(bucketId bucket.BucketId, workerId bucket.WorkerId) (*bucket.DequeuedBucket, error) {
	h.Lock()
	defer h.Unlock()
	return h.moveToDequeuedNoLock(bucketId, workerId)
}

func (h *BucketQueueHolder) RemoveFromDequeued(bucketId bucket.BucketId) *bucket.DequeuedBucket {
	h.Lock()
	defer h.Unlock()
	return h.removeFromDequeuedNoLock(bucketId)
}

func (h *BucketQueueHolder) allEnqueuedBucketsNoLock() []*bucket.EnqueuedBucket {
	return append([]*bucket.EnqueuedBucket{}, h.enqueued...)
}

func (h *BucketQueueHolder) allDequeuedBucketsNoLock() []*bucket.DequeuedBucket {
	return append([]*bucket.DequeuedBucket{}, h.dequeued...)
}

func (h *BucketQueueHolder) containsNoLock(bucketId bucket.BucketId) bool {
	for _, e := range h.enqueued {
		if e.Bucket.Id == bucketId {
			return true
		}
	}
	for _, d := range h.dequeued {
		if d.Id() == bucketId {
			return true
		}
	}
	return false
}

// Returns the error enqueueNoLock would fail with, without enqueuing.
func (h *BucketQueueHolder) checkEnqueueNoLock(buckets []*bucket.Bucket) error {
	seen := map[bucket.BucketId]bool{}
	for _, b := range buckets {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%w: %v", utils.ErrBadRequest, err)
		}
		if seen[b.Id] || h.containsNoLock(b.Id) {
			return fmt.Errorf("%w: %s", utils.ErrDuplicateBucket, b.Id)
		}
		seen[b.Id] = true
	}
	return nil
}

// Enqueues all buckets or none of them.
func (h *BucketQueueHolder) enqueueNoLock(buckets []*bucket.Bucket) ([]*bucket.EnqueuedBucket, error) {
	if err := h.checkEnqueueNoLock(buckets); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	enqueued := make([]*bucket.EnqueuedBucket, 0, len(buckets))
	for _, b := range buckets {
		e := &bucket.EnqueuedBucket{Bucket: b, EnqueueTime: now}
		h.enqueued = append(h.enqueued, e)
		enqueued = append(enqueued, e)
	}
	return enqueued, nil
}

func (h *BucketQueueHolder) removeFromEnqueuedNoLock(bucketId bucket.BucketId) *bucket.EnqueuedBucket {
	for i, e := range h.enqueued {
		if e.Bucket.Id == bucketId {
			h.enqueued = append(h.enqueued[:i], h.enqueued[i+1:]...)
			return e
		}
	}
	return nil
}

func (h *BucketQueueHolder) moveToDequeuedNoLock(bucketId bucket.BucketId, workerId bucket.WorkerId) (*bucket.DequeuedBucket, error) {
	e := h.removeFromEnqueuedNoLock(bucketId)
	if e == nil {
		return nil, fmt.Errorf("%w: bucket %s is not enqueued", utils.ErrNotFound, bucketId)
	}

	d := &bucket.DequeuedBucket{
		EnqueuedBucket: *e,
		WorkerId:       workerId,
		DequeueTime:    h.clock.Now(),
	}
	h.dequeued = append(h.dequeued, d)
	return d, nil
}

func (h *BucketQueueHolder) removeFromDequeuedNoLock(bucketId bucket.BucketId) *bucket.DequeuedBucket {
	for i, d := range h.dequeued {
		if d.Id() == bucketId {
			h.dequeued = append(h.dequeued[:i], h.dequeued[i+1:]...)
			return d
		}
	}
	return nil
}

func (h *BucketQueueHolder) dequeuedBucketNoLock(bucketId bucket.BucketId, workerId bucket.WorkerId) *bucket.DequeuedBucket {
	for _, d := range h.dequeued {
		if d.Id() == bucketId && d.WorkerId == workerId {
			return d
		}
	}
	return nil
}

func (q *ExclusiveQueue) AllEnqueuedBuckets() []*bucket.EnqueuedBucket {
	return q.holder.allEnqueuedBucketsNoLock()
}

func (q *ExclusiveQueue) AllDequeuedBuckets() []*bucket.DequeuedBucket {
	return q.holder.allDequeuedBucketsNoLock()
}

func (q *ExclusiveQueue) Enqueue(buckets ...*bucket.Bucket) ([]*bucket.EnqueuedBucket, error) {
	return q.holder.enqueueNoLock(buckets)
}

// CheckEnqueue reports whether Enqueue would accept the buckets.
func (q *ExclusiveQueue) CheckEnqueue(buckets ...*bucket.Bucket) error {
	return q.holder.checkEnqueueNoLock(buckets)
}

func (q *ExclusiveQueue) RemoveFromEnqueued(bucketId bucket.BucketId) *bucket.EnqueuedBucket {
	return q.holder.removeFromEnqueuedNoLock(bucketId)
}

func (q *ExclusiveQueue) MoveToDequeued(bucketId bucket.BucketId, workerId bucket.WorkerId) (*bucket.DequeuedBucket, error) {
	return q.holder.moveToDequeuedNoLock(bucketId, workerId)
}

func (q *ExclusiveQueue) RemoveFromDequeued(bucketId bucket.BucketId) *bucket.DequeuedBucket {
	return q.holder.removeFromDequeuedNoLock(bucketId)
}

// Returns the bucket dequeued by the worker, or nil.
func (q *ExclusiveQueue) DequeuedBucket(bucketId bucket.BucketId, workerId bucket.WorkerId) *bucket.DequeuedBucket {
	return q.holder.dequeuedBucketNoLock(bucketId, workerId)
}
