// Package store defines the object store collaborator used by every
// orchestrator, independent of the backend that implements it.
package store

import (
	"context"

	"github.com/input-output-hk/blobperf/s3types"
)

// BucketPage is one page of a bucket listing.
type BucketPage struct {
	Buckets []s3types.Bucket

	// Next is the cursor for the following page; empty when the listing is exhausted
	Next string
}

// ObjectPage is one page of an object listing.
type ObjectPage struct {
	Objects []s3types.Object

	// Next is the cursor for the following page; empty when the listing is exhausted
	Next string
}

// Store is an S3-compatible object store.
// Implementations must be safe for concurrent use by transfer tasks.
type Store interface {
	// CreateBucketIfAbsent creates the bucket. A bucket already owned by the
	// caller is not an error.
	CreateBucketIfAbsent(ctx context.Context, name string) (s3types.Bucket, error)

	// ListBuckets returns the page of buckets at cursor. An empty cursor
	// starts a new listing.
	ListBuckets(ctx context.Context, cursor string) (BucketPage, error)

	// ListObjects returns up to pageSize top-level entries of bucket at cursor.
	ListObjects(ctx context.Context, bucket, cursor string, pageSize int32) (ObjectPage, error)

	// UploadObject copies task.LocalPath into task.Bucket under task.Key.
	UploadObject(ctx context.Context, task s3types.TransferTask) error

	// DownloadObject copies task.Bucket/task.Key into task.LocalPath.
	DownloadObject(ctx context.Context, task s3types.TransferTask) error

	// DeleteBucketIfPresent empties and deletes the bucket. A missing bucket
	// is not an error.
	DeleteBucketIfPresent(ctx context.Context, bucket string) error
}
