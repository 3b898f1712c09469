package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/srand/jolt/testqueue/pkg/aliveness"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
	"github.com/srand/jolt/testqueue/pkg/history"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/protocol"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

type QueueConfig interface {
	aliveness.SilenceDetectorConfig

	// How far a dequeue looks for a bucket the worker is capable of running.
	GetCandidateScan() CandidateScan
}

// Receives notifications about bucket state changes.
// Observers are called outside of any queue lock and must not block.
type QueueObserver interface {
	BucketEnqueued(*bucket.EnqueuedBucket)
	BucketDequeued(*bucket.DequeuedBucket)
	ResultAccepted(*Accepted)
}

// Queue statistics
type QueueStatistics struct {
	// Number of buckets waiting to be dequeued
	EnqueuedBuckets int64

	// Number of buckets being run by workers
	DequeuedBuckets int64

	// Number of known workers
	Workers int64

	// Number of workers by status
	AliveWorkers         int64
	SilentWorkers        int64
	BlockedWorkers       int64
	NotRegisteredWorkers int64

	// Total number of accepted results, reclaimed buckets included
	AcceptedResults int64

	// Total number of buckets taken away from silent or disabled workers
	ReclaimedBuckets int64

	// Total number of test entries reported as passed
	PassedTests int64

	// Total number of test entries reported as finally failed
	FailedTests int64

	// Total number of test entries scheduled for retry
	RetriedTests int64

	// Test history size
	TestHistories int64
	TestAttempts  int64
}

// The bucket queue.
type Queue struct {
	clock        clockwork.Clock
	holder       *BucketQueueHolder
	aliveness    *aliveness.Provider
	capabilities *capability.Storage
	tracker      *history.Tracker
	source       *DequeueableBucketSource
	acceptor     *BucketResultAcceptor
	reenqueuer   *StuckBucketsReenqueuer
	detector     *aliveness.SilenceDetector

	observersMu sync.RWMutex
	observers   []QueueObserver

	resultsMu sync.Mutex
	results   []bucket.AcceptedResult

	numAcceptedResults  int64
	numReclaimedBuckets int64
	numPassedTests      int64
	numFailedTests      int64
	numRetriedTests     int64
}

// Creates a new queue keeping test history in the given storage.
func NewQueue(config QueueConfig, storage history.Storage, clock clockwork.Clock) *Queue {
	return newQueue(config, history.NewTracker(storage, nil), clock)
}

func newQueue(config QueueConfig, tracker *history.Tracker, clock clockwork.Clock) *Queue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	q := &Queue{
		clock:        clock,
		holder:       NewBucketQueueHolder(clock),
		aliveness:    aliveness.NewProvider(clock),
		capabilities: capability.NewStorage(),
		tracker:      tracker,
	}

	q.source = NewDequeueableBucketSource(q.holder, q.aliveness, q.capabilities, q.tracker, config.GetCandidateScan())
	q.acceptor = NewBucketResultAcceptor(q.holder, q.aliveness, q.tracker)
	q.reenqueuer = NewStuckBucketsReenqueuer(q.holder, q.aliveness, q.tracker)
	q.detector = aliveness.NewSilenceDetector(q.aliveness, clock, config, func([]bucket.WorkerId) {
		if err := q.ReenqueueStuckBuckets(); err != nil {
			log.Error("Failed to reenqueue stuck buckets:", err)
		}
	})

	return q
}

func (q *Queue) AddObserver(observer QueueObserver) {
	q.observersMu.Lock()
	defer q.observersMu.Unlock()
	q.observers = append(q.observers, observer)
}

func (q *Queue) forEachObserver(fn func(QueueObserver)) {
	q.observersMu.RLock()
	defer q.observersMu.RUnlock()
	for _, observer := range q.observers {
		fn(observer)
	}
}

// EnqueueBuckets adds buckets to the end of the queue.
// Buckets without an id are assigned a new one.
func (q *Queue) EnqueueBuckets(buckets []*bucket.Bucket) ([]*bucket.EnqueuedBucket, error) {
	for _, b := range buckets {
		if b == nil {
			return nil, fmt.Errorf("%w: null bucket", utils.ErrBadRequest)
		}
		if b.Id == "" {
			b.Id = bucket.NewBucketId()
		}
	}

	enqueued, err := q.holder.Enqueue(buckets...)
	if err != nil {
		return nil, err
	}

	for _, e := range enqueued {
		log.Debugf("enq - bucket - id: %s, tests: %d", e.Bucket.Id, len(e.Bucket.Entries))
		q.notifyEnqueued(e)
	}

	return enqueued, nil
}

func (q *Queue) notifyEnqueued(e *bucket.EnqueuedBucket) {
	q.forEachObserver(func(o QueueObserver) { o.BucketEnqueued(e) })
}

// DequeueBucket hands the next suitable bucket to the worker.
// Returns nil without error when nothing is suitable.
func (q *Queue) DequeueBucket(capabilities capability.Capabilities, workerId bucket.WorkerId) (*bucket.DequeuedBucket, error) {
	if workerId == "" {
		return nil, fmt.Errorf("%w: missing worker id", utils.ErrBadRequest)
	}

	dequeued, err := q.source.DequeueBucket(capabilities, workerId)
	if err != nil || dequeued == nil {
		return nil, err
	}

	q.forEachObserver(func(o QueueObserver) { o.BucketDequeued(dequeued) })
	return dequeued, nil
}

// AcceptResult accepts the result of a bucket run by the worker.
func (q *Queue) AcceptResult(bucketId bucket.BucketId, result bucket.TestingResult, workerId bucket.WorkerId) (*Accepted, error) {
	accepted, err := q.acceptor.Accept(bucketId, result, workerId)
	if err != nil {
		return nil, err
	}

	q.collect(accepted)
	return accepted, nil
}

func (q *Queue) collect(accepted *Accepted) {
	atomic.AddInt64(&q.numAcceptedResults, 1)
	atomic.AddInt64(&q.numPassedTests, int64(len(accepted.Result.SuccessfulResults())))
	atomic.AddInt64(&q.numFailedTests, int64(len(accepted.Result.FailedResults())))
	atomic.AddInt64(&q.numRetriedTests, int64(len(accepted.Retries)))
	if accepted.Reclaimed {
		atomic.AddInt64(&q.numReclaimedBuckets, 1)
	}

	if len(accepted.Result.Results) > 0 {
		q.resultsMu.Lock()
		q.results = append(q.results, bucket.AcceptedResult{
			WorkerId:   accepted.DequeuedBucket.WorkerId,
			AcceptTime: q.clock.Now(),
			Result:     accepted.Result,
		})
		q.resultsMu.Unlock()
	}

	q.forEachObserver(func(o QueueObserver) { o.ResultAccepted(accepted) })

	for _, retry := range accepted.Retries {
		q.notifyEnqueued(retry)
	}
}

// Returns all final results accepted so far, in order of acceptance.
func (q *Queue) CollectedResults() []bucket.AcceptedResult {
	q.resultsMu.Lock()
	defer q.resultsMu.Unlock()
	return append([]bucket.AcceptedResult{}, q.results...)
}

func (q *Queue) RegisterWorker(workerId bucket.WorkerId, capabilities capability.Capabilities) error {
	if workerId == "" {
		return fmt.Errorf("%w: missing worker id", utils.ErrBadRequest)
	}

	q.capabilities.Set(string(workerId), capabilities)
	q.aliveness.MarkWorkerRegistered(workerId)
	return nil
}

// Heartbeat records contact from the worker and the buckets it is running.
func (q *Queue) Heartbeat(workerId bucket.WorkerId, bucketIds []bucket.BucketId) error {
	if workerId == "" {
		return fmt.Errorf("%w: missing worker id", utils.ErrBadRequest)
	}

	q.aliveness.SetBucketIdsBeingProcessed(workerId, bucketIds)
	log.Tracef("hbt - worker - id: %s, buckets: %d", workerId, len(bucketIds))
	return nil
}

// DisableWorker stops the worker from dequeuing buckets.
// Buckets it is running are reclaimed.
func (q *Queue) DisableWorker(workerId bucket.WorkerId) error {
	if !q.aliveness.IsKnown(workerId) {
		return fmt.Errorf("%w: %s", utils.ErrUnknownWorker, workerId)
	}

	q.aliveness.Disable(workerId)
	return q.ReenqueueStuckBuckets()
}

func (q *Queue) EnableWorker(workerId bucket.WorkerId) error {
	if !q.aliveness.IsKnown(workerId) {
		return fmt.Errorf("%w: %s", utils.ErrUnknownWorker, workerId)
	}

	q.aliveness.Enable(workerId)
	return nil
}

func (q *Queue) workerStatus(a aliveness.WorkerAliveness) *protocol.WorkerStatus {
	capabilities, _ := q.capabilities.Get(string(a.WorkerId))
	if capabilities == nil {
		capabilities = capability.Capabilities{}
	}
	return &protocol.WorkerStatus{
		WorkerAliveness: a,
		Capabilities:    capabilities,
	}
}

func (q *Queue) Worker(workerId bucket.WorkerId) (*protocol.WorkerStatus, error) {
	if !q.aliveness.IsKnown(workerId) {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnknownWorker, workerId)
	}
	return q.workerStatus(q.aliveness.AlivenessForWorker(workerId)), nil
}

// Returns all known workers, ordered by id.
func (q *Queue) Workers() []*protocol.WorkerStatus {
	workers := []*protocol.WorkerStatus{}
	for _, a := range q.aliveness.Workers() {
		workers = append(workers, q.workerStatus(a))
	}
	return workers
}

// Returns the workers eligible for the fallback dequeue rule.
func (q *Queue) WorkerIdsInWorkingCondition() []bucket.WorkerId {
	return q.aliveness.WorkerIdsInWorkingCondition()
}

// Returns the buckets currently being run by any worker.
func (q *Queue) BucketIdsBeingProcessed() []bucket.BucketId {
	return q.aliveness.BucketIdsBeingProcessed()
}

func (q *Queue) AllEnqueuedBuckets() []*bucket.EnqueuedBucket {
	return q.holder.AllEnqueuedBuckets()
}

func (q *Queue) AllDequeuedBuckets() []*bucket.DequeuedBucket {
	return q.holder.AllDequeuedBuckets()
}

// ReenqueueStuckBuckets reclaims the buckets of silent and disabled workers.
func (q *Queue) ReenqueueStuckBuckets() error {
	reclaimed, err := q.reenqueuer.ReenqueueStuckBuckets()
	for _, accepted := range reclaimed {
		q.collect(accepted)
	}
	return err
}

// Get queue statistics
func (q *Queue) Statistics() *QueueStatistics {
	stats := &QueueStatistics{
		EnqueuedBuckets:  int64(len(q.holder.AllEnqueuedBuckets())),
		DequeuedBuckets:  int64(len(q.holder.AllDequeuedBuckets())),
		AcceptedResults:  atomic.LoadInt64(&q.numAcceptedResults),
		ReclaimedBuckets: atomic.LoadInt64(&q.numReclaimedBuckets),
		PassedTests:      atomic.LoadInt64(&q.numPassedTests),
		FailedTests:      atomic.LoadInt64(&q.numFailedTests),
		RetriedTests:     atomic.LoadInt64(&q.numRetriedTests),
	}

	for _, worker := range q.aliveness.Workers() {
		stats.Workers++
		switch worker.Status {
		case aliveness.StatusAlive:
			stats.AliveWorkers++
		case aliveness.StatusSilent:
			stats.SilentWorkers++
		case aliveness.StatusBlocked:
			stats.BlockedWorkers++
		default:
			stats.NotRegisteredWorkers++
		}
	}

	historyStats := q.tracker.Storage().Statistics()
	stats.TestHistories = historyStats.Histories
	stats.TestAttempts = historyStats.Attempts

	return stats
}

// Run detects silent workers and reclaims their buckets until the
// context is cancelled.
func (q *Queue) Run(ctx context.Context) error {
	log.Info("Queue started")
	defer log.Info("Queue stopped")
	return q.detector.Run(ctx)
}
