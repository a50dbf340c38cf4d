// Package config loads CLI settings from defaults, an optional config file,
// a .env file and BLOBPERF_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/input-output-hk/blobperf"
	perrors "github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/logging"
	"github.com/input-output-hk/blobperf/s3types"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BLOBPERF"

// Config is the full CLI configuration.
type Config struct {
	Upload   UploadConfig   `mapstructure:"upload"`
	Download DownloadConfig `mapstructure:"download"`
	Buckets  BucketsConfig  `mapstructure:"buckets"`
	Pool     PoolConfig     `mapstructure:"pool"`
	Transfer TransferConfig `mapstructure:"transfer"`
	List     ListConfig     `mapstructure:"list"`
	Run      RunConfig      `mapstructure:"run"`
	Teardown TeardownConfig `mapstructure:"teardown"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
}

type UploadConfig struct {
	Dir string `mapstructure:"dir"`
}

type DownloadConfig struct {
	Dir string `mapstructure:"dir"`
}

type BucketsConfig struct {
	Count  int    `mapstructure:"count"`
	Prefix string `mapstructure:"prefix"`
}

type PoolConfig struct {
	Capacity  int     `mapstructure:"capacity"`
	Backend   string  `mapstructure:"backend"`
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type TransferConfig struct {
	BlockSize                    int64 `mapstructure:"block_size"`
	ParallelBlocks               int   `mapstructure:"parallel_blocks"`
	DisableContentHashValidation bool  `mapstructure:"disable_content_hash_validation"`
}

type ListConfig struct {
	PageSize int32 `mapstructure:"page_size"`
}

// RunConfig selects the stages of a run.
type RunConfig struct {
	Upload   bool `mapstructure:"upload"`
	Download bool `mapstructure:"download"`
	Teardown bool `mapstructure:"teardown"`
}

type TeardownConfig struct {
	Prefix string `mapstructure:"prefix"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Logging converts the log section for logging.New.
func (l LogConfig) Logging() logging.Config {
	return logging.Config{
		Level:      l.Level,
		Format:     l.Format,
		File:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
	}
}

// StoreConfig overrides parts of the connection string.
type StoreConfig struct {
	Region     string `mapstructure:"region"`
	Endpoint   string `mapstructure:"endpoint"`
	PathStyle  bool   `mapstructure:"path_style"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("upload.dir", "upload")
	v.SetDefault("download.dir", "download")
	v.SetDefault("buckets.count", 5)
	v.SetDefault("buckets.prefix", "blobperf-")
	v.SetDefault("pool.capacity", 100)
	v.SetDefault("pool.backend", string(s3types.PoolBackendSemaphore))
	v.SetDefault("pool.rate_limit", 0.0)
	v.SetDefault("pool.rate_burst", 1)
	v.SetDefault("transfer.block_size", int64(100*1024*1024))
	v.SetDefault("transfer.parallel_blocks", 8)
	v.SetDefault("transfer.disable_content_hash_validation", true)
	v.SetDefault("list.page_size", 10)
	v.SetDefault("run.upload", true)
	v.SetDefault("run.download", false)
	v.SetDefault("run.teardown", false)
	v.SetDefault("teardown.prefix", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("store.region", "")
	v.SetDefault("store.endpoint", "")
	v.SetDefault("store.path_style", false)
	v.SetDefault("store.max_retries", 10)
}

// New returns a viper instance with defaults and environment binding.
// configFile may be empty, in which case blobperf.yaml is looked up in the
// working directory and ignored when absent.
func New(configFile string) (*viper.Viper, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("blobperf")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, perrors.NewKindError("loadConfig", perrors.KindConfig, err)
		}
	}
	return v, nil
}

// Decode unmarshals v into a Config and validates it.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, perrors.NewKindError("loadConfig", perrors.KindConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is New followed by Decode.
func Load(configFile string) (*Config, error) {
	v, err := New(configFile)
	if err != nil {
		return nil, err
	}
	return Decode(v)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	if c.Buckets.Count <= 0 {
		problems = append(problems, "buckets.count must be positive")
	}
	if c.Pool.Capacity <= 0 {
		problems = append(problems, "pool.capacity must be positive")
	}
	switch s3types.PoolBackend(c.Pool.Backend) {
	case s3types.PoolBackendSemaphore, s3types.PoolBackendWorkers:
	default:
		problems = append(problems, fmt.Sprintf("pool.backend %q is not one of semaphore, workers", c.Pool.Backend))
	}
	if c.Pool.RateLimit < 0 {
		problems = append(problems, "pool.rate_limit cannot be negative")
	}
	if c.Transfer.BlockSize <= 0 {
		problems = append(problems, "transfer.block_size must be positive")
	}
	if c.Transfer.ParallelBlocks <= 0 {
		problems = append(problems, "transfer.parallel_blocks must be positive")
	}
	if c.List.PageSize <= 0 || c.List.PageSize > 1000 {
		problems = append(problems, "list.page_size must be between 1 and 1000")
	}
	if c.Run.Upload && c.Upload.Dir == "" {
		problems = append(problems, "upload.dir is required when uploading")
	}
	if c.Run.Download && c.Download.Dir == "" {
		problems = append(problems, "download.dir is required when downloading")
	}

	if len(problems) > 0 {
		return perrors.NewKindError("validateConfig", perrors.KindConfig, perrors.ErrInvalidInput).
			WithMessage(strings.Join(problems, "; "))
	}
	return nil
}

// Options converts the configuration into client options.
func (c *Config) Options() []s3types.Option {
	return []s3types.Option{
		blobperf.WithRegion(c.Store.Region),
		blobperf.WithEndpoint(c.Store.Endpoint),
		blobperf.WithForcePathStyle(c.Store.PathStyle),
		blobperf.WithMaxRetries(c.Store.MaxRetries),
		blobperf.WithPoolCapacity(c.Pool.Capacity),
		blobperf.WithPoolBackend(s3types.PoolBackend(c.Pool.Backend)),
		blobperf.WithRateLimit(c.Pool.RateLimit, c.Pool.RateBurst),
		blobperf.WithBlockSize(c.Transfer.BlockSize),
		blobperf.WithParallelBlockCount(c.Transfer.ParallelBlocks),
		blobperf.WithDisableContentHashValidation(c.Transfer.DisableContentHashValidation),
		blobperf.WithPageSize(c.List.PageSize),
		blobperf.WithBucketCount(c.Buckets.Count),
		blobperf.WithBucketPrefix(c.Buckets.Prefix),
		blobperf.WithTeardownPrefix(c.Teardown.Prefix),
	}
}

// Plan returns the stages enabled by the run section.
func (c *Config) Plan() blobperf.RunPlan {
	var plan blobperf.RunPlan
	if c.Run.Upload {
		plan.UploadDir = c.Upload.Dir
	}
	if c.Run.Download {
		plan.DownloadDir = c.Download.Dir
	}
	plan.Teardown = c.Run.Teardown
	return plan
}
