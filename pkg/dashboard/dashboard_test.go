package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
	"github.com/srand/jolt/testqueue/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDashboardConfig struct {
	mock.Mock
}

// The URI of the Dashboard web service
func (m *MockDashboardConfig) GetDashboardUri() string {
	return m.Called().String(0)
}

func TestDashboard(t *testing.T) {
	event := map[string]interface{}{}
	ch := make(chan bool, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/buckets", r.URL.Path)
		event = map[string]interface{}{}
		decoder := json.NewDecoder(r.Body)
		err := decoder.Decode(&event)
		assert.NoError(t, err)
		ch <- true
	}))
	defer ts.Close()

	c := &MockDashboardConfig{}
	c.On("GetDashboardUri").Return(ts.URL)

	entry := bucket.TestEntry{ClassName: "LoginTests", MethodName: "testLogin"}
	b := &bucket.Bucket{
		Id:      "b1",
		Entries: []bucket.TestEntry{entry},
		Configuration: bucket.Configuration{
			TestDestination: "iPhone 15",
			Requirements: capability.Requirements{
				capability.Require("os.major", capability.Equal("14")),
			},
		},
	}
	enqueued := &bucket.EnqueuedBucket{Bucket: b}
	dequeued := &bucket.DequeuedBucket{EnqueuedBucket: *enqueued, WorkerId: "w1"}

	d := NewDashboardTelemetryHook(c)
	defer d.Close()

	d.BucketEnqueued(enqueued)
	<-ch
	assert.Equal(t, "queued", event["Event"])
	assert.Equal(t, "b1", event["BucketId"])
	assert.Equal(t, "iPhone 15", event["TestDestination"])
	assert.Equal(t, float64(1), event["Tests"])
	assert.Equal(t, `os.major == "14"`, event["Requirements"])
	assert.Equal(t, "queue", event["Role"])
	assert.Nil(t, event["WorkerId"])

	d.BucketDequeued(dequeued)
	<-ch
	assert.Equal(t, "started", event["Event"])
	assert.Equal(t, "w1", event["WorkerId"])

	d.ResultAccepted(&queue.Accepted{
		DequeuedBucket: dequeued,
		Result: bucket.TestingResult{
			BucketId: "b1",
			Results:  []bucket.TestEntryResult{{Entry: entry, Runs: []bucket.TestRunResult{{Succeeded: true}}}},
		},
	})
	<-ch
	assert.Equal(t, "finished", event["Event"])
	assert.Equal(t, float64(1), event["Passed"])

	d.ResultAccepted(&queue.Accepted{
		DequeuedBucket: dequeued,
		Retries:        []*bucket.EnqueuedBucket{enqueued},
	})
	<-ch
	assert.Equal(t, "retried", event["Event"])
	assert.Equal(t, float64(1), event["Retried"])

	d.ResultAccepted(&queue.Accepted{
		DequeuedBucket: dequeued,
		Result: bucket.TestingResult{
			BucketId: "b1",
			Results:  []bucket.TestEntryResult{bucket.LostResult(entry)},
		},
	})
	<-ch
	assert.Equal(t, "failed", event["Event"])
	assert.Equal(t, float64(1), event["Failed"])
}
