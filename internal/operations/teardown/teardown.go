// Package teardown removes the buckets left behind by a run.
package teardown

import (
	"context"
	"log/slog"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/operations/list"
	"github.com/input-output-hk/blobperf/internal/store"
)

// Remover is the part of store.Store needed to remove buckets.
type Remover interface {
	ListBuckets(ctx context.Context, cursor string) (store.BucketPage, error)
	DeleteBucketIfPresent(ctx context.Context, bucket string) error
}

// Teardown deletes buckets, optionally only those with a name prefix.
type Teardown struct {
	store  Remover
	prefix string
	logger *slog.Logger
}

// New creates a Teardown. An empty prefix removes every bucket visible to
// the credential.
func New(store Remover, prefix string, logger *slog.Logger) *Teardown {
	if logger == nil {
		logger = slog.Default()
	}
	return &Teardown{store: store, prefix: prefix, logger: logger}
}

// Run enumerates matching buckets, then deletes them one at a time. A
// bucket that disappeared in the meantime is not an error. The first
// deletion failure stops the run; the names deleted so far are returned.
func (t *Teardown) Run(ctx context.Context) ([]string, error) {
	var names []string
	for b, err := range list.Buckets(ctx, t.store, t.prefix) {
		if err != nil {
			return nil, err
		}
		names = append(names, b.Name)
	}

	deleted := make([]string, 0, len(names))
	for _, name := range names {
		t.logger.Info("deleting bucket", "bucket", name)
		if err := t.store.DeleteBucketIfPresent(ctx, name); err != nil {
			if errors.IsBucketNotFound(err) {
				continue
			}
			t.logger.Error("bucket deletion failed", "bucket", name, "error", err)
			return deleted, errors.NewKindError("teardown", errors.KindTeardown, err).WithBucket(name)
		}
		deleted = append(deleted, name)
	}

	t.logger.Info("teardown finished", "deleted", len(deleted))
	return deleted, nil
}
