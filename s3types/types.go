// Package s3types provides shared type definitions for blob transfer runs.
package s3types

import (
	"log/slog"
	"time"

	"github.com/go-git/go-billy/v5"
)

// Direction is the direction of a single transfer.
type Direction string

const (
	// DirectionUpload copies a local file into a bucket
	DirectionUpload Direction = "upload"

	// DirectionDownload copies an object into a local file
	DirectionDownload Direction = "download"
)

// ObjectKind distinguishes plain data objects from hierarchical entries.
type ObjectKind string

const (
	// ObjectKindPrimitive is a plain data object that can be transferred
	ObjectKindPrimitive ObjectKind = "primitive"

	// ObjectKindComposite is a directory marker or common prefix; never transferred
	ObjectKindComposite ObjectKind = "composite"
)

// PoolBackend selects the admission mechanism of the task pool.
type PoolBackend string

const (
	// PoolBackendSemaphore admits tasks through a weighted semaphore (default)
	PoolBackendSemaphore PoolBackend = "semaphore"

	// PoolBackendWorkers admits tasks through a fixed-size worker pool
	PoolBackendWorkers PoolBackend = "workers"
)

// Bucket is a named container of objects.
type Bucket struct {
	// Name is the globally unique bucket name
	Name string

	// CreationDate is when the bucket was created, if known
	CreationDate time.Time
}

// Object represents a listed object with its basic metadata.
type Object struct {
	// Key is the object key
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the entity tag reported by the store
	ETag string

	// Kind reports whether the entry is transferable
	Kind ObjectKind

	// Metadata holds provider specific attributes such as the storage class
	Metadata map[string]string
}

// IsComposite reports whether the object is a directory marker or prefix entry.
func (o Object) IsComposite() bool {
	return o.Kind == ObjectKindComposite
}

// TransferOptions tune a single transfer.
type TransferOptions struct {
	// DisableContentHashValidation skips content checksums on upload and download
	DisableContentHashValidation bool

	// ParallelBlockCount is how many blocks of one object move at once
	ParallelBlockCount int
}

// TransferTask describes one upload or download.
type TransferTask struct {
	// Direction is upload or download
	Direction Direction

	// Bucket is the remote bucket
	Bucket string

	// Key is the remote object key
	Key string

	// LocalPath is the file path on the local filesystem
	LocalPath string

	// BlockSize is the block (part) size hint in bytes
	BlockSize int64

	// Options tune the transfer
	Options TransferOptions

	// Index is the position of the task in its enumeration order
	Index int
}

// Outcome is the recorded result of one finished task.
type Outcome struct {
	Task     TransferTask
	Err      error
	Duration time.Duration
}

// Failed reports whether the task ended with an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// BatchResult contains the aggregate result of a drained batch.
type BatchResult struct {
	// Outcomes holds one entry per started task, in completion order
	Outcomes []Outcome

	// Completed is the value of the completion counter after the drain
	Completed int64

	// Elapsed spans first enumeration through the end of the drain
	Elapsed time.Duration
}

// Failed returns the outcomes that ended with an error.
func (r *BatchResult) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Failed() {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded returns the number of outcomes without an error.
func (r *BatchResult) Succeeded() int {
	return len(r.Outcomes) - len(r.Failed())
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	// ConnectionString overrides the storageconnectionstring environment variable
	ConnectionString string

	// Region overrides the region from the connection string
	Region string

	// Endpoint overrides the endpoint from the connection string
	Endpoint string

	// ForcePathStyle forces path-style addressing
	ForcePathStyle bool

	// MaxRetries is the maximum number of attempts per request
	MaxRetries int

	// Filesystem is the local filesystem used for reading and writing files
	Filesystem billy.Filesystem

	// Logger receives structured logs
	Logger *slog.Logger

	// PoolCapacity is the maximum number of concurrently running transfers
	PoolCapacity int

	// PoolBackend selects the admission mechanism
	PoolBackend PoolBackend

	// RateLimit caps task starts per second; zero disables limiting
	RateLimit float64

	// RateBurst is the limiter burst size
	RateBurst int

	// BlockSize is the block size used for every transfer
	BlockSize int64

	// Transfer holds the per-transfer tuning applied to every task
	Transfer TransferOptions

	// PageSize is the object listing page size
	PageSize int32

	// BucketCount is the number of buckets created by a run
	BucketCount int

	// BucketPrefix is prepended to generated bucket names
	BucketPrefix string

	// TeardownPrefix restricts teardown to buckets with this prefix; empty means all
	TeardownPrefix string
}

// Option is a functional option for configuring the client.
type Option func(*ClientConfig)
