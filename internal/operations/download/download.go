// Package download enumerates every bucket and object in the store and
// copies each primitive object into a local directory under the
// admission-controlled pool.
package download

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/operations/list"
	"github.com/input-output-hk/blobperf/internal/pool"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/internal/validation"
	"github.com/input-output-hk/blobperf/s3types"
)

// Source is the part of store.Store needed to enumerate and download objects.
type Source interface {
	ListBuckets(ctx context.Context, cursor string) (store.BucketPage, error)
	ListObjects(ctx context.Context, bucket, cursor string, pageSize int32) (store.ObjectPage, error)
	DownloadObject(ctx context.Context, task s3types.TransferTask) error
}

// Config holds the settings applied to every download of a batch.
type Config struct {
	// Capacity is the admission capacity of the batch pool
	Capacity int

	// PoolOptions are passed to the batch pool
	PoolOptions []pool.Option

	// PageSize is the object listing page size
	PageSize int32

	// BucketPrefix restricts enumeration to matching buckets; empty means all
	BucketPrefix string

	// BlockSize is the block size hint for every task
	BlockSize int64

	// Transfer tunes every task
	Transfer s3types.TransferOptions
}

// Orchestrator downloads every object of every bucket.
type Orchestrator struct {
	store  Source
	fs     billy.Filesystem
	cfg    Config
	logger *slog.Logger
}

// New creates a download Orchestrator writing files to fs.
func New(store Source, fs billy.Filesystem, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, fs: fs, cfg: cfg, logger: logger}
}

// Run downloads every primitive object of every bucket into outDir, one file
// per object named after its key.
//
// Enumeration is fail-fast: the first listing error stops enumeration, the
// tasks already submitted are drained, and the partial result is returned
// together with an enumeration error.
func (o *Orchestrator) Run(ctx context.Context, outDir string) (*s3types.BatchResult, error) {
	start := time.Now()

	if err := o.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.NewKindError("download", errors.KindLocalFS, err).WithKey(outDir)
	}

	p, err := pool.New(o.cfg.Capacity, append([]pool.Option{pool.WithLogger(o.logger)}, o.cfg.PoolOptions...)...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	runErr := o.enumerate(ctx, p, outDir)

	result := &s3types.BatchResult{Outcomes: p.Drain(), Completed: p.Completed()}
	result.Elapsed = time.Since(start)

	o.logger.Info("download batch finished",
		"objects", len(result.Outcomes),
		"completed", result.Completed,
		"failed", len(result.Failed()),
		"elapsed_seconds", result.Elapsed.Seconds())

	if runErr != nil {
		return result, runErr
	}
	return result, nil
}

// enumerate walks buckets and objects, submitting one task per primitive object.
func (o *Orchestrator) enumerate(ctx context.Context, p *pool.Pool, outDir string) error {
	index := 0
	for bucket, err := range list.Buckets(ctx, o.store, o.cfg.BucketPrefix) {
		if err != nil {
			o.logger.Error("bucket enumeration failed", "error", err)
			return err
		}

		for obj, err := range list.Objects(ctx, o.store, bucket.Name, o.cfg.PageSize) {
			if err != nil {
				o.logger.Error("object enumeration failed", "bucket", bucket.Name, "error", err)
				return err
			}

			task := s3types.TransferTask{
				Direction: s3types.DirectionDownload,
				Bucket:    bucket.Name,
				Key:       obj.Key,
				LocalPath: o.fs.Join(outDir, filepath.FromSlash(obj.Key)),
				BlockSize: o.cfg.BlockSize,
				Options:   o.cfg.Transfer,
				Index:     index,
			}
			index++

			o.logger.Debug("downloading", "key", obj.Key, "bucket", bucket.Name)
			if _, err := p.Submit(ctx, task, o.transfer(task)); err != nil {
				return errors.NewError("download", err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) transfer(task s3types.TransferTask) pool.Func {
	return func(ctx context.Context) error {
		if err := validation.ValidateObjectKey(task.Key); err != nil {
			return errors.NewKindError("download", errors.KindTransfer, err).
				WithBucket(task.Bucket).
				WithKey(task.Key)
		}
		if err := o.store.DownloadObject(ctx, task); err != nil {
			return errors.NewKindError("download", errors.KindTransfer, err).
				WithBucket(task.Bucket).
				WithKey(task.Key)
		}
		return nil
	}
}
