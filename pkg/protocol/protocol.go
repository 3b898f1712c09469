// Package protocol defines the JSON messages exchanged between workers,
// operators and the queue.
package protocol

import (
	"github.com/srand/jolt/testqueue/pkg/aliveness"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
)

type DequeueRequest struct {
	WorkerId     bucket.WorkerId         `json:"workerId"`
	Capabilities capability.Capabilities `json:"capabilities"`
}

// Bucket is null when no bucket is currently suitable for the worker.
type DequeueResponse struct {
	Bucket *bucket.DequeuedBucket `json:"bucket"`
}

type ResultRequest struct {
	WorkerId bucket.WorkerId      `json:"workerId"`
	BucketId bucket.BucketId      `json:"bucketId"`
	Result   bucket.TestingResult `json:"result"`
}

type ResultResponse struct {
	// Successful and finally failed test entries.
	Result bucket.TestingResult `json:"result"`

	// Buckets enqueued to retry failed test entries.
	RetryBucketIds []bucket.BucketId `json:"retryBucketIds"`
}

// Buckets without an id are assigned one.
type EnqueueRequest struct {
	Buckets []*bucket.Bucket `json:"buckets" yaml:"buckets"`
}

type EnqueueResponse struct {
	BucketIds []bucket.BucketId `json:"bucketIds"`
}

type RegisterWorkerRequest struct {
	WorkerId     bucket.WorkerId         `json:"workerId"`
	Capabilities capability.Capabilities `json:"capabilities"`
}

type HeartbeatRequest struct {
	WorkerId  bucket.WorkerId   `json:"workerId"`
	BucketIds []bucket.BucketId `json:"bucketIds"`
}

type WorkerStatus struct {
	aliveness.WorkerAliveness
	Capabilities capability.Capabilities `json:"capabilities"`
}

type WorkersResponse struct {
	Workers []*WorkerStatus `json:"workers"`
}

type ResultsResponse struct {
	Results []bucket.AcceptedResult `json:"results"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
