package list

import (
	"context"
	"iter"
	"strings"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/s3types"
)

// DefaultPageSize is the object page size used when none is given.
const DefaultPageSize int32 = 10

// BucketLister is the part of store.Store needed to list buckets.
type BucketLister interface {
	ListBuckets(ctx context.Context, cursor string) (store.BucketPage, error)
}

// ObjectLister is the part of store.Store needed to list objects.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucket, cursor string, pageSize int32) (store.ObjectPage, error)
}

// BucketPages yields every bucket page, following cursors to exhaustion.
func BucketPages(ctx context.Context, l BucketLister) iter.Seq2[store.BucketPage, error] {
	return func(yield func(store.BucketPage, error) bool) {
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(store.BucketPage{}, enumerationError("listBuckets", "", err))
				return
			}

			page, err := l.ListBuckets(ctx, cursor)
			if err != nil {
				yield(store.BucketPage{}, enumerationError("listBuckets", "", err))
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.Next == "" || page.Next == cursor {
				return
			}
			cursor = page.Next
		}
	}
}

// Buckets yields every bucket whose name starts with prefix.
// An empty prefix matches all buckets.
func Buckets(ctx context.Context, l BucketLister, prefix string) iter.Seq2[s3types.Bucket, error] {
	return func(yield func(s3types.Bucket, error) bool) {
		for page, err := range BucketPages(ctx, l) {
			if err != nil {
				yield(s3types.Bucket{}, err)
				return
			}
			for _, b := range page.Buckets {
				if !strings.HasPrefix(b.Name, prefix) {
					continue
				}
				if !yield(b, nil) {
					return
				}
			}
		}
	}
}

// ObjectPages yields every object page of bucket in pages of pageSize.
func ObjectPages(ctx context.Context, l ObjectLister, bucket string, pageSize int32) iter.Seq2[store.ObjectPage, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return func(yield func(store.ObjectPage, error) bool) {
		cursor := ""
		for {
			if err := ctx.Err(); err != nil {
				yield(store.ObjectPage{}, enumerationError("listObjects", bucket, err))
				return
			}

			page, err := l.ListObjects(ctx, bucket, cursor, pageSize)
			if err != nil {
				yield(store.ObjectPage{}, enumerationError("listObjects", bucket, err))
				return
			}
			if !yield(page, nil) {
				return
			}
			if page.Next == "" || page.Next == cursor {
				return
			}
			cursor = page.Next
		}
	}
}

// Objects yields the primitive objects of bucket, skipping composite
// entries such as directory markers and common prefixes.
func Objects(ctx context.Context, l ObjectLister, bucket string, pageSize int32) iter.Seq2[s3types.Object, error] {
	return func(yield func(s3types.Object, error) bool) {
		for page, err := range ObjectPages(ctx, l, bucket, pageSize) {
			if err != nil {
				yield(s3types.Object{}, err)
				return
			}
			for _, obj := range page.Objects {
				if obj.IsComposite() {
					continue
				}
				if !yield(obj, nil) {
					return
				}
			}
		}
	}
}

func enumerationError(op, bucket string, err error) error {
	if errors.IsKind(err, errors.KindEnumeration) {
		return err
	}
	return errors.NewKindError(op, errors.KindEnumeration, err).WithBucket(bucket)
}
