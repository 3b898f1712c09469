package utils

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHttpStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HttpStatus(nil))
	assert.Equal(t, http.StatusConflict, HttpStatus(fmt.Errorf("x: %w", ErrBucketIdMismatch)))
	assert.Equal(t, http.StatusBadRequest, HttpStatus(ErrBadRequest))
	assert.Equal(t, http.StatusNotFound, HttpStatus(ErrUnknownWorker))
	assert.Equal(t, http.StatusInternalServerError, HttpStatus(fmt.Errorf("boom")))
}

func TestHttpError(t *testing.T) {
	err := HttpError(http.StatusConflict, fmt.Errorf("%w: bucket b1, worker w1", ErrNoDequeuedBucket).Error())
	assert.ErrorIs(t, err, ErrNoDequeuedBucket)
	assert.Equal(t, "No such dequeued bucket for this worker: bucket b1, worker w1", err.Error())

	assert.ErrorIs(t, HttpError(http.StatusNotFound, "gone"), ErrNotFound)
	assert.ErrorIs(t, HttpError(http.StatusForbidden, "nope"), ErrWorkerBlocked)
	assert.EqualError(t, HttpError(http.StatusBadGateway, "proxy"), "HTTP 502: proxy")
}
