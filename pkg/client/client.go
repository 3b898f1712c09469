// Package client implements an HTTP client for the queue API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/capability"
	"github.com/srand/jolt/testqueue/pkg/protocol"
	"github.com/srand/jolt/testqueue/pkg/utils"
)

type Client struct {
	baseUrl string
	client  *http.Client
}

// Creates a client for the queue at the given URL, e.g. tcp://localhost:8080.
func NewClient(uri string) (*Client, error) {
	baseUrl, err := utils.HttpBaseUrl(uri)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseUrl: baseUrl,
		client:  &http.Client{Timeout: time.Minute},
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, request, response interface{}) error {
	var body io.Reader
	if request != nil {
		data, err := json.Marshal(request)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl+path, body)
	if err != nil {
		return err
	}
	if request != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		errorResponse := protocol.ErrorResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil || errorResponse.Error == "" {
			errorResponse.Error = resp.Status
		}
		return utils.HttpError(resp.StatusCode, errorResponse.Error)
	}

	if response == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil {
		return fmt.Errorf("%w: invalid response from %s: %v", utils.ErrParse, path, err)
	}
	return nil
}

// Dequeue returns the next bucket for the worker, or nil if none is suitable.
func (c *Client) Dequeue(ctx context.Context, workerId bucket.WorkerId, capabilities capability.Capabilities) (*bucket.DequeuedBucket, error) {
	response := protocol.DequeueResponse{}
	request := &protocol.DequeueRequest{WorkerId: workerId, Capabilities: capabilities}
	if err := c.do(ctx, http.MethodPost, "/v1/dequeue", request, &response); err != nil {
		return nil, err
	}
	return response.Bucket, nil
}

func (c *Client) SubmitResult(ctx context.Context, workerId bucket.WorkerId, result bucket.TestingResult) (*protocol.ResultResponse, error) {
	response := &protocol.ResultResponse{}
	request := &protocol.ResultRequest{WorkerId: workerId, BucketId: result.BucketId, Result: result}
	if err := c.do(ctx, http.MethodPost, "/v1/result", request, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) Enqueue(ctx context.Context, buckets []*bucket.Bucket) ([]bucket.BucketId, error) {
	response := protocol.EnqueueResponse{}
	request := &protocol.EnqueueRequest{Buckets: buckets}
	if err := c.do(ctx, http.MethodPost, "/v1/enqueue", request, &response); err != nil {
		return nil, err
	}
	return response.BucketIds, nil
}

func (c *Client) RegisterWorker(ctx context.Context, workerId bucket.WorkerId, capabilities capability.Capabilities) error {
	request := &protocol.RegisterWorkerRequest{WorkerId: workerId, Capabilities: capabilities}
	return c.do(ctx, http.MethodPost, "/v1/workers/register", request, nil)
}

func (c *Client) Heartbeat(ctx context.Context, workerId bucket.WorkerId, bucketIds []bucket.BucketId) error {
	request := &protocol.HeartbeatRequest{WorkerId: workerId, BucketIds: bucketIds}
	return c.do(ctx, http.MethodPost, "/v1/workers/heartbeat", request, nil)
}

func (c *Client) Workers(ctx context.Context) ([]*protocol.WorkerStatus, error) {
	response := protocol.WorkersResponse{}
	if err := c.do(ctx, http.MethodGet, "/v1/workers", nil, &response); err != nil {
		return nil, err
	}
	return response.Workers, nil
}

func (c *Client) Worker(ctx context.Context, workerId bucket.WorkerId) (*protocol.WorkerStatus, error) {
	response := &protocol.WorkerStatus{}
	if err := c.do(ctx, http.MethodGet, "/v1/workers/"+url.PathEscape(string(workerId)), nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (c *Client) DisableWorker(ctx context.Context, workerId bucket.WorkerId) error {
	return c.do(ctx, http.MethodPost, "/v1/workers/"+url.PathEscape(string(workerId))+"/disable", nil, nil)
}

func (c *Client) EnableWorker(ctx context.Context, workerId bucket.WorkerId) error {
	return c.do(ctx, http.MethodPost, "/v1/workers/"+url.PathEscape(string(workerId))+"/enable", nil, nil)
}

func (c *Client) Results(ctx context.Context) ([]bucket.AcceptedResult, error) {
	response := protocol.ResultsResponse{}
	if err := c.do(ctx, http.MethodGet, "/v1/results", nil, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}
