// Package provision creates the buckets a run uploads into.
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/validation"
	"github.com/input-output-hk/blobperf/s3types"
)

// BucketCreator is the part of store.Store needed to create buckets.
type BucketCreator interface {
	CreateBucketIfAbsent(ctx context.Context, name string) (s3types.Bucket, error)
}

// Provisioner creates uniquely named buckets one at a time.
type Provisioner struct {
	store  BucketCreator
	prefix string
	logger *slog.Logger

	// newName is swapped in tests for deterministic names
	newName func(prefix string) (string, error)
}

// New creates a Provisioner that names buckets prefix followed by a UUID.
func New(store BucketCreator, prefix string, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{
		store:   store,
		prefix:  prefix,
		logger:  logger,
		newName: validation.NewBucketName,
	}
}

// Provision creates n buckets sequentially. On the first failure it stops and
// returns the buckets created so far together with a provisioning error.
// Buckets created before the failure are not removed.
func (p *Provisioner) Provision(ctx context.Context, n int) ([]s3types.Bucket, error) {
	if n <= 0 {
		return nil, errors.NewKindError("provision", errors.KindProvisioning, errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("bucket count must be positive, got %d", n))
	}

	buckets := make([]s3types.Bucket, 0, n)
	for i := 0; i < n; i++ {
		name, err := p.newName(p.prefix)
		if err != nil {
			return buckets, errors.NewKindError("provision", errors.KindProvisioning, err)
		}

		p.logger.Info("creating bucket", "bucket", name, "index", i)
		bucket, err := p.store.CreateBucketIfAbsent(ctx, name)
		if err != nil {
			p.logger.Error("bucket creation failed", "bucket", name, "created", len(buckets), "error", err)
			return buckets, errors.NewKindError("provision", errors.KindProvisioning, err).WithBucket(name)
		}
		buckets = append(buckets, bucket)
	}

	p.logger.Info("buckets provisioned", "count", len(buckets))
	return buckets, nil
}
