package bucket

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srand/jolt/testqueue/pkg/capability"
)

// Unique identifier of a bucket.
type BucketId string

// Stable identifier of a worker process or machine.
type WorkerId string

// NewBucketId mints a fresh random bucket id.
func NewBucketId() BucketId {
	id, _ := uuid.NewRandom()
	return BucketId(id.String())
}

// Identifies a single runnable test.
type TestEntry struct {
	ClassName  string   `json:"className" yaml:"className"`
	MethodName string   `json:"methodName" yaml:"methodName"`
	CaseId     *uint64  `json:"caseId,omitempty" yaml:"caseId,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Returns the identity of the test, class/method[#case].
// Tags are not part of the identity.
func (e TestEntry) String() string {
	if e.CaseId != nil {
		return fmt.Sprintf("%s/%s#%d", e.ClassName, e.MethodName, *e.CaseId)
	}
	return e.ClassName + "/" + e.MethodName
}

// Execution configuration shared by all test entries of a bucket.
type Configuration struct {
	// Number of times a failing test entry is retried before it is
	// reported as failed.
	NumberOfRetries uint `json:"numberOfRetries" yaml:"numberOfRetries"`

	// Where the tests run, e.g. a simulator device type and runtime.
	TestDestination string `json:"testDestination" yaml:"testDestination"`

	// Locations of the build artifacts, keyed by artifact kind.
	BuildArtifacts map[string]string `json:"buildArtifacts,omitempty" yaml:"buildArtifacts,omitempty"`

	// Environment variables passed to the test runner.
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`

	// Capabilities a worker must have to run the bucket.
	Requirements capability.Requirements `json:"requirements,omitempty" yaml:"requirements,omitempty"`
}

// A unit of test work. Immutable once created.
type Bucket struct {
	Id            BucketId      `json:"id" yaml:"id"`
	Entries       []TestEntry   `json:"entries" yaml:"entries"`
	Configuration Configuration `json:"configuration" yaml:"configuration"`
}

// NewBucket creates a bucket with a fresh id.
func NewBucket(entries []TestEntry, configuration Configuration) *Bucket {
	return &Bucket{
		Id:            NewBucketId(),
		Entries:       append([]TestEntry{}, entries...),
		Configuration: configuration,
	}
}

// Retry creates a new bucket with the given id, carrying the given entries
// and the configuration of this bucket.
func (b *Bucket) Retry(id BucketId, entries ...TestEntry) *Bucket {
	return &Bucket{
		Id:            id,
		Entries:       append([]TestEntry{}, entries...),
		Configuration: b.Configuration,
	}
}

func (b *Bucket) Validate() error {
	if b.Id == "" {
		return fmt.Errorf("bucket has no id")
	}
	if len(b.Entries) == 0 {
		return fmt.Errorf("bucket %s has no test entries", b.Id)
	}
	return nil
}

// A bucket waiting in the queue.
type EnqueuedBucket struct {
	Bucket      *Bucket   `json:"bucket"`
	EnqueueTime time.Time `json:"enqueueTime"`
}

// A bucket handed to a worker.
type DequeuedBucket struct {
	EnqueuedBucket
	WorkerId    WorkerId  `json:"workerId"`
	DequeueTime time.Time `json:"dequeueTime"`
}

func (d *DequeuedBucket) Id() BucketId {
	return d.Bucket.Id
}
