package bucket

import (
	"time"
)

type TestException struct {
	Reason   string `json:"reason"`
	FilePath string `json:"filePath,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// One attempt to run a test entry.
type TestRunResult struct {
	Succeeded  bool            `json:"succeeded"`
	Exceptions []TestException `json:"exceptions,omitempty"`
	StartTime  time.Time       `json:"startTime"`
	Duration   time.Duration   `json:"duration"`
	Host       string          `json:"host,omitempty"`
}

// The runs of a test entry within one bucket execution.
// No runs means the test was lost, e.g. the worker died before reporting.
type TestEntryResult struct {
	Entry TestEntry       `json:"entry"`
	Runs  []TestRunResult `json:"runs"`
}

// Succeeded is true if any of the runs succeeded.
func (r *TestEntryResult) Succeeded() bool {
	for _, run := range r.Runs {
		if run.Succeeded {
			return true
		}
	}
	return false
}

func (r *TestEntryResult) IsLost() bool {
	return len(r.Runs) == 0
}

// LostResult creates a result without runs for the entry.
func LostResult(entry TestEntry) TestEntryResult {
	return TestEntryResult{Entry: entry, Runs: []TestRunResult{}}
}

// The outcome of running one bucket.
type TestingResult struct {
	BucketId        BucketId          `json:"bucketId"`
	TestDestination string            `json:"testDestination"`
	Results         []TestEntryResult `json:"results"`
}

// LostTestingResult creates a result reporting every entry of the bucket as lost.
func LostTestingResult(b *Bucket) TestingResult {
	results := make([]TestEntryResult, 0, len(b.Entries))
	for _, entry := range b.Entries {
		results = append(results, LostResult(entry))
	}
	return TestingResult{
		BucketId:        b.Id,
		TestDestination: b.Configuration.TestDestination,
		Results:         results,
	}
}

func (r *TestingResult) SuccessfulResults() []TestEntryResult {
	var results []TestEntryResult
	for _, result := range r.Results {
		if result.Succeeded() {
			results = append(results, result)
		}
	}
	return results
}

func (r *TestingResult) FailedResults() []TestEntryResult {
	var results []TestEntryResult
	for _, result := range r.Results {
		if !result.Succeeded() {
			results = append(results, result)
		}
	}
	return results
}

// A final testing result accepted from a worker.
type AcceptedResult struct {
	WorkerId   WorkerId      `json:"workerId"`
	AcceptTime time.Time     `json:"acceptTime"`
	Result     TestingResult `json:"result"`
}
