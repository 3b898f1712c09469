package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrBadRequest        = fmt.Errorf("Bad request")
	ErrNotFound          = fmt.Errorf("Not found")
	ErrParse             = fmt.Errorf("Parse error")
	ErrNoDequeuedBucket  = fmt.Errorf("No such dequeued bucket for this worker")
	ErrBucketIdMismatch  = fmt.Errorf("Testing result does not belong to bucket")
	ErrDuplicateBucket   = fmt.Errorf("Bucket is already queued")
	ErrWorkerBlocked     = fmt.Errorf("Worker is disabled")
	ErrUnknownWorker     = fmt.Errorf("Worker is not known to the queue")
	ErrHistoryCorruption = fmt.Errorf("Test history journal is corrupt")
)

// Convert errors to HTTP status codes
func HttpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownWorker):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoDequeuedBucket), errors.Is(err, ErrBucketIdMismatch), errors.Is(err, ErrDuplicateBucket):
		return http.StatusConflict
	case errors.Is(err, ErrWorkerBlocked):
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

var sentinels = []error{
	ErrBadRequest,
	ErrNotFound,
	ErrParse,
	ErrNoDequeuedBucket,
	ErrBucketIdMismatch,
	ErrDuplicateBucket,
	ErrWorkerBlocked,
	ErrUnknownWorker,
	ErrHistoryCorruption,
}

// Convert an HTTP error response back into an error.
// The sentinel error is recovered from the message if possible,
// otherwise from the status code.
func HttpError(status int, message string) error {
	for _, sentinel := range sentinels {
		if strings.HasPrefix(message, sentinel.Error()) {
			return fmt.Errorf("%w%s", sentinel, strings.TrimPrefix(message, sentinel.Error()))
		}
	}

	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrWorkerBlocked, message)
	}
	return fmt.Errorf("HTTP %d: %s", status, message)
}
