package blobperf

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/connstr"
	"github.com/input-output-hk/blobperf/internal/testutil"
	"github.com/input-output-hk/blobperf/s3types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		opts     []s3types.Option
		wantErr  bool
		wantIs   error
		wantKind errors.Kind
	}{
		{
			name:     "missing connection string",
			wantErr:  true,
			wantIs:   errors.ErrMissingCredential,
			wantKind: errors.KindConfig,
		},
		{
			name:     "malformed connection string",
			env:      "this is not a connection string",
			wantErr:  true,
			wantIs:   errors.ErrInvalidConnectionString,
			wantKind: errors.KindConfig,
		},
		{
			name: "s3 from environment",
			env:  "Backend=s3;Region=eu-west-1;AccessKeyId=AK;SecretAccessKey=SK",
		},
		{
			name: "minio from option",
			opts: []s3types.Option{
				WithConnectionString("Backend=minio;Endpoint=localhost:9000;AccessKeyId=a;SecretAccessKey=b;UseSSL=false"),
			},
		},
		{
			name:     "option overrides environment",
			env:      "Backend=s3",
			opts:     []s3types.Option{WithConnectionString("Backend=minio")},
			wantErr:  true,
			wantIs:   errors.ErrInvalidConnectionString,
			wantKind: errors.KindConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(connstr.EnvVar, tt.env)

			client, err := New(context.Background(), append(tt.opts, WithFilesystem(memfs.New()))...)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantIs)
				assert.Equal(t, tt.wantKind, errors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client.store)
		})
	}
}

func TestResolveDefaults(t *testing.T) {
	c := NewWithStore(testutil.NewFakeStore())
	cfg := c.Config()

	assert.Equal(t, 100, cfg.PoolCapacity)
	assert.Equal(t, int64(100*1024*1024), cfg.BlockSize)
	assert.Equal(t, 8, cfg.Transfer.ParallelBlockCount)
	assert.True(t, cfg.Transfer.DisableContentHashValidation)
	assert.Equal(t, int32(10), cfg.PageSize)
	assert.Equal(t, 5, cfg.BucketCount)
	assert.Equal(t, "blobperf-", cfg.BucketPrefix)
	assert.Equal(t, s3types.PoolBackendSemaphore, cfg.PoolBackend)
	assert.NotNil(t, cfg.Logger)
	assert.NotNil(t, cfg.Filesystem)
}

func TestOptions(t *testing.T) {
	fs := memfs.New()
	c := NewWithStore(testutil.NewFakeStore(),
		WithPoolCapacity(7),
		WithPoolBackend(s3types.PoolBackendWorkers),
		WithRateLimit(20, 5),
		WithBlockSize(8<<20),
		WithParallelBlockCount(2),
		WithDisableContentHashValidation(false),
		WithPageSize(50),
		WithBucketCount(3),
		WithBucketPrefix("perf-"),
		WithTeardownPrefix("perf-"),
		WithMaxRetries(4),
		WithRegion("eu-central-1"),
		WithEndpoint("http://localhost:4566"),
		WithForcePathStyle(true),
		WithFilesystem(fs),
		WithPoolCapacity(0),
	)
	cfg := c.Config()

	assert.Equal(t, 7, cfg.PoolCapacity, "non-positive values keep the previous setting")
	assert.Equal(t, s3types.PoolBackendWorkers, cfg.PoolBackend)
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 5, cfg.RateBurst)
	assert.Equal(t, int64(8<<20), cfg.BlockSize)
	assert.Equal(t, 2, cfg.Transfer.ParallelBlockCount)
	assert.False(t, cfg.Transfer.DisableContentHashValidation)
	assert.Equal(t, int32(50), cfg.PageSize)
	assert.Equal(t, 3, cfg.BucketCount)
	assert.Equal(t, "perf-", cfg.BucketPrefix)
	assert.Equal(t, "perf-", cfg.TeardownPrefix)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, "http://localhost:4566", cfg.Endpoint)
	assert.True(t, cfg.ForcePathStyle)
	assert.Same(t, fs, c.filesystem())
}
