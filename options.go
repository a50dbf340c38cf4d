package blobperf

import (
	"log/slog"

	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/blobperf/s3types"
)

// WithConnectionString sets the store connection string.
// If not specified, the storageconnectionstring environment variable is used.
func WithConnectionString(conn string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ConnectionString = conn
	}
}

// WithRegion overrides the region from the connection string.
func WithRegion(region string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if region != "" {
			c.Region = region
		}
	}
}

// WithEndpoint overrides the endpoint from the connection string.
// This is useful for S3-compatible services or local testing with LocalStack.
func WithEndpoint(endpoint string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if endpoint != "" {
			c.Endpoint = endpoint
		}
	}
}

// WithForcePathStyle forces path-style URLs instead of virtual-hosted style.
func WithForcePathStyle(forcePathStyle bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.ForcePathStyle = forcePathStyle
	}
}

// WithMaxRetries sets the maximum number of attempts per request.
// Default is 10.
func WithMaxRetries(maxRetries int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if maxRetries > 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithFilesystem sets the local filesystem used to read uploads and write
// downloads. Default is the OS filesystem rooted at the working directory.
func WithFilesystem(fs billy.Filesystem) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Filesystem = fs
	}
}

// WithLogger sets the structured logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Logger = logger
	}
}

// WithPoolCapacity sets the maximum number of concurrently running transfers.
// Default is 100.
func WithPoolCapacity(capacity int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if capacity > 0 {
			c.PoolCapacity = capacity
		}
	}
}

// WithPoolBackend selects the admission mechanism. Default is the semaphore backend.
func WithPoolBackend(backend s3types.PoolBackend) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if backend != "" {
			c.PoolBackend = backend
		}
	}
}

// WithRateLimit caps transfer starts per second. Zero disables limiting.
func WithRateLimit(rps float64, burst int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.RateLimit = rps
		c.RateBurst = burst
	}
}

// WithBlockSize sets the block size of every transfer.
// Default is 100MiB. Uploads use at least 5MiB.
func WithBlockSize(size int64) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if size > 0 {
			c.BlockSize = size
		}
	}
}

// WithParallelBlockCount sets how many blocks of one object move at once.
// Default is 8.
func WithParallelBlockCount(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.Transfer.ParallelBlockCount = n
		}
	}
}

// WithDisableContentHashValidation skips content checksums on transfers.
// Default is true.
func WithDisableContentHashValidation(disable bool) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.Transfer.DisableContentHashValidation = disable
	}
}

// WithPageSize sets the object listing page size. Default is 10.
func WithPageSize(size int32) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if size > 0 {
			c.PageSize = size
		}
	}
}

// WithBucketCount sets how many buckets a run creates. Default is 5.
func WithBucketCount(n int) s3types.Option {
	return func(c *s3types.ClientConfig) {
		if n > 0 {
			c.BucketCount = n
		}
	}
}

// WithBucketPrefix sets the prefix of generated bucket names. Default is "blobperf-".
func WithBucketPrefix(prefix string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.BucketPrefix = prefix
	}
}

// WithTeardownPrefix restricts teardown to buckets with this prefix.
// Default is empty, which matches every bucket.
func WithTeardownPrefix(prefix string) s3types.Option {
	return func(c *s3types.ClientConfig) {
		c.TeardownPrefix = prefix
	}
}
