package aliveness

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
)

type Status int

const (
	StatusNotRegistered Status = iota
	StatusAlive
	StatusSilent
	StatusBlocked
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "alive"
	case StatusSilent:
		return "silent"
	case StatusBlocked:
		return "blocked"
	default:
		return "notRegistered"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "alive":
		*s = StatusAlive
	case "silent":
		*s = StatusSilent
	case "blocked":
		*s = StatusBlocked
	case "notRegistered":
		*s = StatusNotRegistered
	default:
		return fmt.Errorf("unknown worker status '%s'", text)
	}
	return nil
}

// The derived liveness of a worker.
type WorkerAliveness struct {
	WorkerId bucket.WorkerId `json:"workerId"`
	Status   Status          `json:"status"`

	// Time of the last contact with the worker.
	// Zero if the worker never contacted the queue.
	LastResponse time.Time `json:"lastResponse"`

	// Buckets the worker is currently running.
	BucketIds []bucket.BucketId `json:"bucketIds"`
}

func (a WorkerAliveness) InWorkingCondition() bool {
	return a.Status == StatusAlive
}

type workerState struct {
	registered   bool
	disabled     bool
	silent       bool
	lastResponse time.Time
	bucketIds    map[bucket.BucketId]struct{}
}

func (w *workerState) status() Status {
	switch {
	case !w.registered:
		return StatusNotRegistered
	case w.disabled:
		return StatusBlocked
	case w.silent:
		return StatusSilent
	default:
		return StatusAlive
	}
}

// Tracks registration, administrative state, silence and in-flight
// buckets of every worker that contacted the queue.
type Provider struct {
	sync.RWMutex
	clock   clockwork.Clock
	workers map[bucket.WorkerId]*workerState
}

func NewProvider(clock clockwork.Clock) *Provider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Provider{
		clock:   clock,
		workers: map[bucket.WorkerId]*workerState{},
	}
}

func (p *Provider) workerNoLock(workerId bucket.WorkerId) *workerState {
	worker, ok := p.workers[workerId]
	if !ok {
		worker = &workerState{bucketIds: map[bucket.BucketId]struct{}{}}
		p.workers[workerId] = worker
		log.Debugf("new - worker - id: %s", workerId)
	}
	return worker
}

func (p *Provider) touchNoLock(workerId bucket.WorkerId) *workerState {
	worker := p.workerNoLock(workerId)
	if worker.silent {
		log.Infof("Worker %s is responding again", workerId)
	}
	worker.silent = false
	worker.lastResponse = p.clock.Now()
	return worker
}

// Records contact from a worker about to dequeue a bucket.
func (p *Provider) WillDequeueBucket(workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	p.touchNoLock(workerId)
}

// Records a bucket handed to the worker.
func (p *Provider) DidDequeueBucket(bucketId bucket.BucketId, workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	worker := p.touchNoLock(workerId)
	worker.bucketIds[bucketId] = struct{}{}
}

// Records contact from a worker reporting the result of a bucket.
func (p *Provider) DidProcessBucket(bucketId bucket.BucketId, workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	worker := p.touchNoLock(workerId)
	delete(worker.bucketIds, bucketId)
}

// Forgets a bucket without treating it as contact from the worker,
// e.g. when the bucket is taken away from a silent worker.
func (p *Provider) BucketReclaimed(bucketId bucket.BucketId, workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	if worker, ok := p.workers[workerId]; ok {
		delete(worker.bucketIds, bucketId)
	}
}

// Replaces the set of buckets the worker reports to be running.
func (p *Provider) SetBucketIdsBeingProcessed(workerId bucket.WorkerId, bucketIds []bucket.BucketId) {
	p.Lock()
	defer p.Unlock()
	worker := p.touchNoLock(workerId)
	worker.bucketIds = map[bucket.BucketId]struct{}{}
	for _, id := range bucketIds {
		worker.bucketIds[id] = struct{}{}
	}
}

func (p *Provider) MarkWorkerRegistered(workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	worker := p.touchNoLock(workerId)
	if !worker.registered {
		log.Infof("Worker %s registered", workerId)
	}
	worker.registered = true
}

func (p *Provider) Enable(workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	p.workerNoLock(workerId).disabled = false
	log.Infof("Worker %s enabled", workerId)
}

func (p *Provider) Disable(workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	p.workerNoLock(workerId).disabled = true
	log.Infof("Worker %s disabled", workerId)
}

func (p *Provider) IsDisabled(workerId bucket.WorkerId) bool {
	p.RLock()
	defer p.RUnlock()
	worker, ok := p.workers[workerId]
	return ok && worker.disabled
}

// IsSilent is true if the worker stopped responding, regardless of
// registration or administrative state.
func (p *Provider) IsSilent(workerId bucket.WorkerId) bool {
	p.RLock()
	defer p.RUnlock()
	worker, ok := p.workers[workerId]
	return ok && worker.silent
}

func (p *Provider) IsKnown(workerId bucket.WorkerId) bool {
	p.RLock()
	defer p.RUnlock()
	_, ok := p.workers[workerId]
	return ok
}

func (p *Provider) MarkSilent(workerId bucket.WorkerId) {
	p.Lock()
	defer p.Unlock()
	p.markSilentNoLock(workerId)
}

func (p *Provider) markSilentNoLock(workerId bucket.WorkerId) {
	worker := p.workerNoLock(workerId)
	if !worker.silent {
		log.Warnf("Worker %s is silent, last response at %s", workerId, worker.lastResponse.Format(time.RFC3339))
	}
	worker.silent = true
}

// Marks every worker whose last response is older than the timeout as
// silent. Returns the workers that became silent.
func (p *Provider) MarkSilentSince(timeout time.Duration) []bucket.WorkerId {
	p.Lock()
	defer p.Unlock()

	now := p.clock.Now()
	silenced := []bucket.WorkerId{}

	for workerId, worker := range p.workers {
		if worker.silent || worker.lastResponse.IsZero() {
			continue
		}
		if now.Sub(worker.lastResponse) > timeout {
			p.markSilentNoLock(workerId)
			silenced = append(silenced, workerId)
		}
	}

	sortWorkerIds(silenced)
	return silenced
}

func (p *Provider) AlivenessForWorker(workerId bucket.WorkerId) WorkerAliveness {
	p.RLock()
	defer p.RUnlock()

	worker, ok := p.workers[workerId]
	if !ok {
		return WorkerAliveness{WorkerId: workerId, Status: StatusNotRegistered, BucketIds: []bucket.BucketId{}}
	}
	return p.alivenessNoLock(workerId, worker)
}

func (p *Provider) alivenessNoLock(workerId bucket.WorkerId, worker *workerState) WorkerAliveness {
	bucketIds := make([]bucket.BucketId, 0, len(worker.bucketIds))
	for id := range worker.bucketIds {
		bucketIds = append(bucketIds, id)
	}
	sort.Slice(bucketIds, func(i, j int) bool { return bucketIds[i] < bucketIds[j] })

	return WorkerAliveness{
		WorkerId:     workerId,
		Status:       worker.status(),
		LastResponse: worker.lastResponse,
		BucketIds:    bucketIds,
	}
}

// Returns the aliveness of all known workers, ordered by worker id.
func (p *Provider) Workers() []WorkerAliveness {
	p.RLock()
	defer p.RUnlock()

	workers := make([]WorkerAliveness, 0, len(p.workers))
	for workerId, worker := range p.workers {
		workers = append(workers, p.alivenessNoLock(workerId, worker))
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].WorkerId < workers[j].WorkerId })
	return workers
}

// Returns the registered workers that are neither silent nor blocked,
// ordered by worker id.
func (p *Provider) WorkerIdsInWorkingCondition() []bucket.WorkerId {
	p.RLock()
	defer p.RUnlock()

	workerIds := []bucket.WorkerId{}
	for workerId, worker := range p.workers {
		if worker.status() == StatusAlive {
			workerIds = append(workerIds, workerId)
		}
	}
	sortWorkerIds(workerIds)
	return workerIds
}

// Returns the buckets being processed by any worker.
func (p *Provider) BucketIdsBeingProcessed() []bucket.BucketId {
	p.RLock()
	defer p.RUnlock()

	bucketIds := []bucket.BucketId{}
	for _, worker := range p.workers {
		for id := range worker.bucketIds {
			bucketIds = append(bucketIds, id)
		}
	}
	sort.Slice(bucketIds, func(i, j int) bool { return bucketIds[i] < bucketIds[j] })
	return bucketIds
}

func sortWorkerIds(workerIds []bucket.WorkerId) {
	sort.Slice(workerIds, func(i, j int) bool { return workerIds[i] < workerIds[j] })
}
