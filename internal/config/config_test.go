package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/s3types"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "upload", cfg.Upload.Dir)
	assert.Equal(t, 5, cfg.Buckets.Count)
	assert.Equal(t, "blobperf-", cfg.Buckets.Prefix)
	assert.Equal(t, 100, cfg.Pool.Capacity)
	assert.Equal(t, "semaphore", cfg.Pool.Backend)
	assert.Equal(t, int64(100*1024*1024), cfg.Transfer.BlockSize)
	assert.Equal(t, 8, cfg.Transfer.ParallelBlocks)
	assert.True(t, cfg.Transfer.DisableContentHashValidation)
	assert.Equal(t, int32(10), cfg.List.PageSize)
	assert.True(t, cfg.Run.Upload)
	assert.False(t, cfg.Run.Download)
	assert.False(t, cfg.Run.Teardown)
	assert.Equal(t, 10, cfg.Store.MaxRetries)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("BLOBPERF_POOL_CAPACITY", "7")
	t.Setenv("BLOBPERF_POOL_BACKEND", "workers")
	t.Setenv("BLOBPERF_RUN_TEARDOWN", "true")
	t.Setenv("BLOBPERF_LIST_PAGE_SIZE", "25")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Pool.Capacity)
	assert.Equal(t, "workers", cfg.Pool.Backend)
	assert.True(t, cfg.Run.Teardown)
	assert.Equal(t, int32(25), cfg.List.PageSize)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobperf.yaml")
	content := `
upload:
  dir: /data/in
buckets:
  count: 2
  prefix: perf-
run:
  download: true
download:
  dir: /data/out
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Run("file values", func(t *testing.T) {
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/data/in", cfg.Upload.Dir)
		assert.Equal(t, 2, cfg.Buckets.Count)
		assert.Equal(t, "perf-", cfg.Buckets.Prefix)
		assert.True(t, cfg.Run.Download)
		assert.Equal(t, "/data/out", cfg.Download.Dir)
		assert.Equal(t, "json", cfg.Log.Format)
		assert.Equal(t, 100, cfg.Pool.Capacity)
	})

	t.Run("environment beats file", func(t *testing.T) {
		t.Setenv("BLOBPERF_BUCKETS_COUNT", "9")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Buckets.Count)
	})

	t.Run("explicit missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.True(t, perrors.IsKind(err, perrors.KindConfig))
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Upload:   UploadConfig{Dir: "upload"},
			Buckets:  BucketsConfig{Count: 5},
			Pool:     PoolConfig{Capacity: 10, Backend: "semaphore"},
			Transfer: TransferConfig{BlockSize: 1024, ParallelBlocks: 1},
			List:     ListConfig{PageSize: 10},
			Run:      RunConfig{Upload: true},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero buckets", mutate: func(c *Config) { c.Buckets.Count = 0 }, wantErr: "buckets.count"},
		{name: "zero capacity", mutate: func(c *Config) { c.Pool.Capacity = 0 }, wantErr: "pool.capacity"},
		{name: "unknown backend", mutate: func(c *Config) { c.Pool.Backend = "threads" }, wantErr: "pool.backend"},
		{name: "negative rate", mutate: func(c *Config) { c.Pool.RateLimit = -1 }, wantErr: "pool.rate_limit"},
		{name: "zero block size", mutate: func(c *Config) { c.Transfer.BlockSize = 0 }, wantErr: "transfer.block_size"},
		{name: "zero parallel blocks", mutate: func(c *Config) { c.Transfer.ParallelBlocks = 0 }, wantErr: "transfer.parallel_blocks"},
		{name: "page too large", mutate: func(c *Config) { c.List.PageSize = 1001 }, wantErr: "list.page_size"},
		{name: "upload without dir", mutate: func(c *Config) { c.Upload.Dir = "" }, wantErr: "upload.dir"},
		{name: "download without dir", mutate: func(c *Config) { c.Run.Download = true }, wantErr: "download.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, perrors.ErrInvalidInput)
			assert.True(t, perrors.IsKind(err, perrors.KindConfig))
		})
	}
}

func TestOptionsAndPlan(t *testing.T) {
	cfg := &Config{
		Upload:   UploadConfig{Dir: "in"},
		Download: DownloadConfig{Dir: "out"},
		Buckets:  BucketsConfig{Count: 3, Prefix: "perf-"},
		Pool:     PoolConfig{Capacity: 4, Backend: "workers", RateLimit: 2, RateBurst: 1},
		Transfer: TransferConfig{BlockSize: 1 << 20, ParallelBlocks: 2},
		List:     ListConfig{PageSize: 5},
		Run:      RunConfig{Upload: true, Teardown: true},
		Teardown: TeardownConfig{Prefix: "perf-"},
		Store:    StoreConfig{Region: "eu-west-1", PathStyle: true, MaxRetries: 3},
	}

	var cc s3types.ClientConfig
	for _, opt := range cfg.Options() {
		opt(&cc)
	}
	assert.Equal(t, "eu-west-1", cc.Region)
	assert.True(t, cc.ForcePathStyle)
	assert.Equal(t, 3, cc.MaxRetries)
	assert.Equal(t, 4, cc.PoolCapacity)
	assert.Equal(t, s3types.PoolBackendWorkers, cc.PoolBackend)
	assert.Equal(t, 2.0, cc.RateLimit)
	assert.Equal(t, int64(1<<20), cc.BlockSize)
	assert.Equal(t, 2, cc.Transfer.ParallelBlockCount)
	assert.False(t, cc.Transfer.DisableContentHashValidation)
	assert.Equal(t, int32(5), cc.PageSize)
	assert.Equal(t, 3, cc.BucketCount)
	assert.Equal(t, "perf-", cc.BucketPrefix)
	assert.Equal(t, "perf-", cc.TeardownPrefix)

	plan := cfg.Plan()
	assert.Equal(t, "in", plan.UploadDir)
	assert.Empty(t, plan.DownloadDir, "download stage is disabled")
	assert.True(t, plan.Teardown)
}
