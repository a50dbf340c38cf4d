package blobperf

import (
	"context"
	"time"

	"github.com/input-output-hk/blobperf/internal/operations/download"
	"github.com/input-output-hk/blobperf/internal/operations/provision"
	"github.com/input-output-hk/blobperf/internal/operations/teardown"
	"github.com/input-output-hk/blobperf/internal/operations/upload"
	"github.com/input-output-hk/blobperf/s3types"
)

// RunPlan selects the stages of a run.
type RunPlan struct {
	// UploadDir is the directory whose files are uploaded; empty skips the upload
	UploadDir string

	// DownloadDir is where objects are downloaded; empty skips the download
	DownloadDir string

	// Teardown deletes buckets at the end of a successful run
	Teardown bool
}

// RunReport describes a finished run.
type RunReport struct {
	// Buckets are the buckets created by the run
	Buckets []s3types.Bucket

	// Upload is the upload batch result, if the upload ran
	Upload *s3types.BatchResult

	// Download is the download batch result, if the download ran
	Download *s3types.BatchResult

	// Deleted lists the buckets removed by teardown
	Deleted []string

	// TeardownSkipped is set when teardown was requested but an earlier stage failed
	TeardownSkipped bool

	// Err is the batch-level error that ended the run early, if any
	Err error

	// Elapsed is the duration of the whole run
	Elapsed time.Duration
}

// ProvisionBuckets creates n uniquely named buckets, one at a time. On the
// first failure the buckets created so far are returned with the error.
func (c *Client) ProvisionBuckets(ctx context.Context, n int) ([]s3types.Bucket, error) {
	return provision.New(c.store, c.cfg.BucketPrefix, c.logger).Provision(ctx, n)
}

// UploadDirectory uploads the regular files directly inside dir, assigning
// file i to buckets[i % len(buckets)]. Individual file failures are
// reported in the result, never as the returned error.
func (c *Client) UploadDirectory(ctx context.Context, dir string, buckets []s3types.Bucket) (*s3types.BatchResult, error) {
	o := upload.New(c.store, c.filesystem(), upload.Config{
		Capacity:    c.cfg.PoolCapacity,
		PoolOptions: c.poolOptions(),
		BlockSize:   c.cfg.BlockSize,
		Transfer:    c.cfg.Transfer,
	}, c.logger)
	return o.Run(ctx, dir, buckets)
}

// DownloadAll downloads every primitive object of every bucket into dir.
func (c *Client) DownloadAll(ctx context.Context, dir string) (*s3types.BatchResult, error) {
	o := download.New(c.store, c.filesystem(), download.Config{
		Capacity:    c.cfg.PoolCapacity,
		PoolOptions: c.poolOptions(),
		PageSize:    c.cfg.PageSize,
		BlockSize:   c.cfg.BlockSize,
		Transfer:    c.cfg.Transfer,
	}, c.logger)
	return o.Run(ctx, dir)
}

// Teardown deletes every bucket matching the configured teardown prefix
// and returns the names deleted.
func (c *Client) Teardown(ctx context.Context) ([]string, error) {
	return teardown.New(c.store, c.cfg.TeardownPrefix, c.logger).Run(ctx)
}

// Run provisions buckets, then runs the stages selected by plan in order:
// upload, download, teardown. The first batch-level error ends the run;
// teardown is skipped when any earlier stage failed. The report is always
// returned, with the error also recorded in it.
func (c *Client) Run(ctx context.Context, plan RunPlan) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}
	defer func() { report.Elapsed = time.Since(start) }()

	fail := func(err error) (*RunReport, error) {
		report.Err = err
		report.TeardownSkipped = plan.Teardown
		if plan.Teardown {
			c.logger.Warn("teardown skipped after failure", "error", err)
		}
		return report, err
	}

	buckets, err := c.ProvisionBuckets(ctx, c.cfg.BucketCount)
	report.Buckets = buckets
	if err != nil {
		return fail(err)
	}

	if plan.UploadDir != "" {
		result, err := c.UploadDirectory(ctx, plan.UploadDir, buckets)
		report.Upload = result
		if err != nil {
			return fail(err)
		}
	}

	if plan.DownloadDir != "" {
		result, err := c.DownloadAll(ctx, plan.DownloadDir)
		report.Download = result
		if err != nil {
			return fail(err)
		}
	}

	if plan.Teardown {
		deleted, err := c.Teardown(ctx)
		report.Deleted = deleted
		if err != nil {
			report.Err = err
			return report, err
		}
	}

	return report, nil
}
