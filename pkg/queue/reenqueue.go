package queue

import (
	"github.com/srand/jolt/testqueue/pkg/aliveness"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/log"
)

// Takes dequeued buckets away from workers that are silent or disabled.
// Every test entry of a reclaimed bucket is recorded as lost on the worker
// and retried like any other failure, so lost attempts count toward the
// retry limit of the test entry.
type StuckBucketsReenqueuer struct {
	holder    *BucketQueueHolder
	aliveness *aliveness.Provider
	tracker   *history.Tracker
}

func NewStuckBucketsReenqueuer(holder *BucketQueueHolder, aliveness *aliveness.Provider, tracker *history.Tracker) *StuckBucketsReenqueuer {
	return &StuckBucketsReenqueuer{
		holder:    holder,
		aliveness: aliveness,
		tracker:   tracker,
	}
}

func (r *StuckBucketsReenqueuer) isStuck(d *bucket.DequeuedBucket) bool {
	return r.aliveness.IsSilent(d.WorkerId) || r.aliveness.IsDisabled(d.WorkerId)
}

// ReenqueueStuckBuckets reclaims all stuck buckets and returns them.
func (r *StuckBucketsReenqueuer) ReenqueueStuckBuckets() ([]*Accepted, error) {
	reclaimed := []*Accepted{}

	err := r.holder.PerformWithExclusiveAccess(func(q *ExclusiveQueue) error {
		for _, dequeued := range q.AllDequeuedBuckets() {
			if !r.isStuck(dequeued) {
				continue
			}

			accepted, err := accept(q, r.tracker, dequeued, bucket.LostTestingResult(dequeued.Bucket))
			if err != nil {
				return err
			}

			accepted.Reclaimed = true
			r.aliveness.BucketReclaimed(dequeued.Id(), dequeued.WorkerId)
			reclaimed = append(reclaimed, accepted)

			log.Infof("Reclaimed bucket %s from worker %s, %d tests retried", dequeued.Id(), dequeued.WorkerId, len(accepted.Retries))
		}
		return nil
	})

	return reclaimed, err
}
