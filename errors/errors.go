// Package errors provides error types and handling for Omics transfer operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a transfer operation error with context about the operation
// that failed. It wraps the underlying AWS SDK error with additional context
// for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "download", "uploadReadSet")
	Op string

	// StoreID is the sequence store or reference store ID (if applicable)
	StoreID string

	// ResourceID is the read set or reference ID (if applicable)
	ResourceID string

	// Err is the underlying error from the AWS SDK or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.StoreID != "" && e.ResourceID != "" {
		return fmt.Sprintf("omics.%s %s/%s: %v", e.Op, e.StoreID, e.ResourceID, e.Err)
	}
	if e.StoreID != "" {
		return fmt.Sprintf("omics.%s store %s: %v", e.Op, e.StoreID, e.Err)
	}
	return fmt.Sprintf("omics.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithStore adds store context to an existing error.
func (e *Error) WithStore(storeID string) *Error {
	e.StoreID = storeID
	return e
}

// WithResource adds resource context to an existing error.
func (e *Error) WithResource(resourceID string) *Error {
	e.ResourceID = resourceID
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// RetriesExceededError is returned when a part download keeps failing with
// transient network errors until its attempt budget is exhausted.
// It wraps the last underlying error.
type RetriesExceededError struct {
	// Err is the error raised by the final attempt
	Err error
}

// Error implements the error interface.
func (e *RetriesExceededError) Error() string {
	return fmt.Sprintf("max download attempts exceeded: %v", e.Err)
}

// Unwrap returns the error raised by the final attempt.
func (e *RetriesExceededError) Unwrap() error {
	return e.Err
}

// CancelledError is the terminal failure of a transfer that was cancelled by
// the caller, either through TransferFuture.Cancel or a manager shutdown with
// cancellation requested.
type CancelledError struct {
	// Reason is the cancellation message supplied by the caller
	Reason string
}

// Error implements the error interface.
func (e *CancelledError) Error() string {
	if e.Reason == "" {
		return "transfer cancelled"
	}
	return fmt.Sprintf("transfer cancelled: %s", e.Reason)
}

// FatalError is the terminal failure of a transfer that was cancelled because
// the manager itself is going down abnormally (an error escaped a guarded Run
// block, or the shutdown context was interrupted). It is distinct from
// CancelledError so callers can tell a user-initiated cancel from a crash.
type FatalError struct {
	// Reason describes the manager-level failure
	Reason string
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	if e.Reason == "" {
		return "transfer manager shut down abnormally"
	}
	return fmt.Sprintf("transfer manager shut down abnormally: %s", e.Reason)
}

// Sentinel errors for transfer configuration failures. These are raised
// synchronously at submission time, before any task is queued, and can be
// checked with errors.Is().
var (
	// ErrUnsupportedDestination indicates the download destination is neither
	// a file path, an io.WriterAt, an io.WriteSeeker nor an io.Writer
	ErrUnsupportedDestination = errors.New("omics: unsupported download destination")

	// ErrUnsupportedSource indicates the upload source is neither a file path,
	// an io.ReadSeeker nor an io.Reader
	ErrUnsupportedSource = errors.New("omics: unsupported upload source")

	// ErrFileNotFound indicates the requested file selector is not present in
	// the resource metadata
	ErrFileNotFound = errors.New("omics: file not found in store")

	// ErrMissingFileSelector indicates a download request without a file
	// selector
	ErrMissingFileSelector = errors.New("omics: file selector is required")

	// ErrMissingSource indicates an upload request without a primary read
	// source
	ErrMissingSource = errors.New("omics: upload requires a primary read source")

	// ErrMissingReferenceArn indicates an upload of a reference-linked file
	// type without a reference ARN
	ErrMissingReferenceArn = errors.New("omics: unlinked read set file types must specify a reference ARN")

	// ErrQueueClosed indicates a task was submitted to a pool that has already
	// been shut down
	ErrQueueClosed = errors.New("omics: executor has been shut down")
)

// IsRetriesExceeded checks if an error indicates a part ran out of download
// attempts. This is a convenience function that handles wrapped errors.
func IsRetriesExceeded(err error) bool {
	var re *RetriesExceededError
	return errors.As(err, &re)
}

// IsCancelled checks if an error indicates a user-initiated cancellation.
// This is a convenience function that handles wrapped errors.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// IsFatal checks if an error indicates an abnormal manager shutdown.
// This is a convenience function that handles wrapped errors.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
