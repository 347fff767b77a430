package network

import (
	"errors"
	"fmt"
)

// ErrMissingConfirmationToken means a segment transfer got a 2xx response
// without an ETag header. Such a part cannot be referenced in the completion
// manifest, so it counts as a failure.
var ErrMissingConfirmationToken = errors.New("storage backend returned no confirmation token (ETag) for the segment")

// CoordinatorError is a non-success response from a coordinator handshake call.
type CoordinatorError struct {
	StatusCode int
	Message    string
}

func (e *CoordinatorError) Error() string {
	return fmt.Sprintf("coordinator responded with HTTP %d: %s", e.StatusCode, e.Message)
}

// ForbiddenTransferError is a 403 from the storage backend. The dominant
// cause is an expired or invalidated presigned URL.
type ForbiddenTransferError struct {
	URL string
}

func (e *ForbiddenTransferError) Error() string {
	return "storage backend rejected the transfer (HTTP 403): regenerate the upload URL and retry"
}

// TransferError is any other non-2xx response from the storage backend.
type TransferError struct {
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer failed with status %d: %s", e.StatusCode, e.Body)
}

// NetworkError wraps a request that got no response at all, whether to the
// coordinator or to the storage backend. These are transient by nature and
// safe to retry, unlike most 4xx responses.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("no response received: %s", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
