// Package errors provides error types and classification for blob transfer runs.
//
// Every failure surfaced by the library is an *Error carrying the operation,
// the bucket and key involved, and a Kind describing which stage of a run
// failed. Sentinel errors can be matched with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a failed storage operation with context about where it happened.
type Error struct {
	// Op is the operation that failed (e.g., "provision", "upload", "listObjects")
	Op string

	// Kind classifies the failure; empty means unclassified
	Kind Kind

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key or local path (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("blobperf.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("blobperf.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("blobperf.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("blobperf.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithKind classifies the error.
func (e *Error) WithKind(kind Kind) *Error {
	e.Kind = kind
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewKindError creates a new classified Error.
func NewKindError(op string, kind Kind, err error) *Error {
	return &Error{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// NewBucketError creates a new Error with bucket context.
func NewBucketError(op, bucket string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Err:    err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("blobperf: object not found")

	// ErrBucketNotFound indicates that the requested bucket does not exist
	ErrBucketNotFound = errors.New("blobperf: bucket not found")

	// ErrAccessDenied indicates that access to the resource is denied
	ErrAccessDenied = errors.New("blobperf: access denied")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("blobperf: invalid input")

	// ErrBucketAlreadyExists indicates that the bucket name is taken by another account
	ErrBucketAlreadyExists = errors.New("blobperf: bucket already exists")

	// ErrBucketAlreadyOwned indicates that the caller already owns the bucket
	ErrBucketAlreadyOwned = errors.New("blobperf: bucket already owned by you")

	// ErrBucketNotEmpty indicates that the bucket is not empty and cannot be deleted
	ErrBucketNotEmpty = errors.New("blobperf: bucket not empty")

	// ErrInvalidBucketName indicates that the bucket name is invalid
	ErrInvalidBucketName = errors.New("blobperf: invalid bucket name")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("blobperf: invalid object key")

	// ErrTooManyRequests indicates that the request rate is too high
	ErrTooManyRequests = errors.New("blobperf: too many requests")

	// ErrMissingCredential indicates that no connection string was supplied
	ErrMissingCredential = errors.New("blobperf: missing connection string")

	// ErrInvalidConnectionString indicates that the connection string could not be parsed
	ErrInvalidConnectionString = errors.New("blobperf: invalid connection string")

	// ErrDirectoryNotFound indicates that a local directory does not exist
	ErrDirectoryNotFound = errors.New("blobperf: directory not found")

	// ErrPoolClosed indicates a task was submitted to a closed pool
	ErrPoolClosed = errors.New("blobperf: pool closed")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsBucketNotFound checks if an error indicates that a bucket was not found.
func IsBucketNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound)
}

// IsAccessDenied checks if an error indicates access was denied.
func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsBucketAlreadyOwned checks if an error indicates the bucket is already owned by the caller.
func IsBucketAlreadyOwned(err error) bool {
	return errors.Is(err, ErrBucketAlreadyOwned)
}
