// Package upload fans the files of a local directory out to a set of
// buckets under the admission-controlled pool.
package upload

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/pool"
	"github.com/input-output-hk/blobperf/s3types"
)

// Uploader is the part of store.Store needed to upload objects.
type Uploader interface {
	UploadObject(ctx context.Context, task s3types.TransferTask) error
}

// Config holds the settings applied to every upload of a batch.
type Config struct {
	// Capacity is the admission capacity of the batch pool
	Capacity int

	// PoolOptions are passed to the batch pool
	PoolOptions []pool.Option

	// BlockSize is the block size hint for every task
	BlockSize int64

	// Transfer tunes every task
	Transfer s3types.TransferOptions
}

// Orchestrator uploads directories.
type Orchestrator struct {
	store  Uploader
	fs     billy.Filesystem
	cfg    Config
	logger *slog.Logger
}

// New creates an upload Orchestrator reading files from fs.
func New(store Uploader, fs billy.Filesystem, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, fs: fs, cfg: cfg, logger: logger}
}

// Run uploads every regular file directly inside dir. File i goes to
// buckets[i % len(buckets)] under its base name. Per-file failures are
// reported in the result; the returned error is reserved for batch-level
// failures such as a missing directory.
func (o *Orchestrator) Run(ctx context.Context, dir string, buckets []s3types.Bucket) (*s3types.BatchResult, error) {
	if len(buckets) == 0 {
		return nil, errors.NewError("upload", errors.ErrInvalidInput).
			WithMessage("at least one bucket is required")
	}

	start := time.Now()
	tasks, err := o.plan(dir, buckets)
	if err != nil {
		return nil, err
	}
	o.logger.Info("found files", "count", len(tasks), "dir", dir, "buckets", len(buckets))

	p, err := pool.New(o.cfg.Capacity, append([]pool.Option{pool.WithLogger(o.logger)}, o.cfg.PoolOptions...)...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	var submitErr error
	for _, task := range tasks {
		o.logger.Debug("uploading", "file", task.LocalPath, "bucket", task.Bucket)
		_, err := p.Submit(ctx, task, func(ctx context.Context) error {
			if err := o.store.UploadObject(ctx, task); err != nil {
				return errors.NewKindError("upload", errors.KindTransfer, err).
					WithBucket(task.Bucket).
					WithKey(task.Key)
			}
			return nil
		})
		if err != nil {
			submitErr = err
			break
		}
	}

	result := &s3types.BatchResult{Outcomes: p.Drain(), Completed: p.Completed()}
	result.Elapsed = time.Since(start)

	o.logger.Info("upload batch finished",
		"files", len(tasks),
		"completed", result.Completed,
		"failed", len(result.Failed()),
		"elapsed_seconds", result.Elapsed.Seconds())

	if submitErr != nil {
		return result, errors.NewError("upload", submitErr)
	}
	return result, nil
}

// plan enumerates dir and assigns buckets round-robin.
func (o *Orchestrator) plan(dir string, buckets []s3types.Bucket) ([]s3types.TransferTask, error) {
	info, err := o.fs.Stat(dir)
	if err != nil || !info.IsDir() {
		if err == nil || os.IsNotExist(err) {
			err = errors.ErrDirectoryNotFound
		}
		return nil, errors.NewKindError("upload", errors.KindLocalFS, err).WithKey(dir)
	}

	entries, err := o.fs.ReadDir(dir)
	if err != nil {
		return nil, errors.NewKindError("upload", errors.KindLocalFS, err).WithKey(dir)
	}

	var files []os.FileInfo
	for _, e := range entries {
		if e.Mode().IsRegular() {
			files = append(files, e)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	tasks := make([]s3types.TransferTask, 0, len(files))
	for i, f := range files {
		tasks = append(tasks, s3types.TransferTask{
			Direction: s3types.DirectionUpload,
			Bucket:    buckets[i%len(buckets)].Name,
			Key:       f.Name(),
			LocalPath: o.fs.Join(dir, f.Name()),
			BlockSize: o.cfg.BlockSize,
			Options:   o.cfg.Transfer,
			Index:     i,
		})
	}
	return tasks, nil
}

