package queue

import (
	"fmt"
	"strings"

	"github.com/srand/jolt/testqueue/pkg/aliveness"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

// How far a dequeue looks for a bucket the worker is capable of running.
type CandidateScan string

const (
	// Only the preferred candidate is considered. If the worker lacks the
	// capabilities it requires, nothing is dequeued.
	CandidateScanFirst CandidateScan = "first"

	// Candidates are considered in order of preference until one is found
	// that the worker is capable of running.
	CandidateScanAll CandidateScan = "all"
)

func ParseCandidateScan(str string) (CandidateScan, error) {
	switch scan := CandidateScan(strings.ToLower(str)); scan {
	case "":
		return CandidateScanFirst, nil
	case CandidateScanFirst, CandidateScanAll:
		return scan, nil
	default:
		return "", fmt.Errorf("%w: invalid candidate scan '%s', expected 'first' or 'all'", utils.ErrParse, str)
	}
}

// Hands enqueued buckets to workers.
type DequeueableBucketSource struct {
	holder       *BucketQueueHolder
	aliveness    *aliveness.Provider
	capabilities *capability.Storage
	tracker      *history.Tracker
	scan         CandidateScan
}

func NewDequeueableBucketSource(
	holder *BucketQueueHolder,
	aliveness *aliveness.Provider,
	capabilities *capability.Storage,
	tracker *history.Tracker,
	scan CandidateScan,
) *DequeueableBucketSource {
	if scan == "" {
		scan = CandidateScanFirst
	}
	return &DequeueableBucketSource{
		holder:       holder,
		aliveness:    aliveness,
		capabilities: capabilities,
		tracker:      tracker,
		scan:         scan,
	}
}

// DequeueBucket returns the next bucket for the worker, or nil if no
// bucket is currently suitable. Disabled workers are refused with
// ErrWorkerBlocked.
func (s *DequeueableBucketSource) DequeueBucket(capabilities capability.Capabilities, workerId bucket.WorkerId) (*bucket.DequeuedBucket, error) {
	s.aliveness.WillDequeueBucket(workerId)
	s.capabilities.Set(string(workerId), capabilities)

	if s.aliveness.IsDisabled(workerId) {
		log.Debugf("deq - bucket - refused, worker is disabled - worker: %s", workerId)
		return nil, fmt.Errorf("%w: %s", utils.ErrWorkerBlocked, workerId)
	}

	var dequeued *bucket.DequeuedBucket

	err := s.holder.PerformWithExclusiveAccess(func(q *ExclusiveQueue) error {
		candidates := s.tracker.DequeueCandidates(workerId, q.AllEnqueuedBuckets(), s.aliveness.WorkerIdsInWorkingCondition())
		if len(candidates) == 0 {
			return nil
		}

		if s.scan == CandidateScanFirst {
			candidates = candidates[:1]
		}

		for _, candidate := range candidates {
			requirements := candidate.Bucket.Configuration.Requirements
			if !capability.RequirementsSatisfied(requirements, capabilities) {
				log.Debugf("deq - bucket - worker lacks capabilities - id: %s, worker: %s, requirements: %v", candidate.Bucket.Id, workerId, requirements)
				continue
			}

			d, err := q.MoveToDequeued(candidate.Bucket.Id, workerId)
			if err != nil {
				return err
			}

			s.aliveness.DidDequeueBucket(d.Id(), workerId)
			dequeued = d
			return nil
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if dequeued != nil {
		log.Debugf("deq - bucket - id: %s, worker: %s, tests: %d", dequeued.Id(), workerId, len(dequeued.Bucket.Entries))
	}
	return dequeued, nil
}
