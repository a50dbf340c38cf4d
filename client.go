package blobperf

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/connstr"
	"github.com/input-output-hk/blobperf/internal/pool"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/internal/store/miniostore"
	"github.com/input-output-hk/blobperf/internal/store/s3store"
	"github.com/input-output-hk/blobperf/internal/validation"
	"github.com/input-output-hk/blobperf/s3types"
)

// Client runs transfer batches against one object store.
// It is safe for concurrent use, although batches of one run are sequential.
type Client struct {
	// store is the object store collaborator
	store store.Store

	// cfg holds the resolved configuration
	cfg s3types.ClientConfig

	// mu protects concurrent access to fs
	mu sync.RWMutex

	// fs is the local filesystem
	fs billy.Filesystem

	logger *slog.Logger
}

func defaultConfig() s3types.ClientConfig {
	return s3types.ClientConfig{
		MaxRetries:   10,
		PoolCapacity: pool.DefaultCapacity,
		PoolBackend:  s3types.PoolBackendSemaphore,
		BlockSize:    100 * 1024 * 1024,
		Transfer: s3types.TransferOptions{
			DisableContentHashValidation: true,
			ParallelBlockCount:           8,
		},
		PageSize:     10,
		BucketCount:  5,
		BucketPrefix: validation.DefaultBucketPrefix,
	}
}

func resolve(opts []s3types.Option) s3types.ClientConfig {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New(".")
	}
	return cfg
}

// New creates a client from the connection string and options.
// A missing or malformed connection string is a configuration error and is
// reported before any remote call.
//
// Example:
//
//	client, err := blobperf.New(ctx,
//	    blobperf.WithConnectionString("Backend=s3;Region=eu-west-1"),
//	    blobperf.WithPoolCapacity(50),
//	)
func New(ctx context.Context, opts ...s3types.Option) (*Client, error) {
	cfg := resolve(opts)

	var settings connstr.Settings
	var err error
	if cfg.ConnectionString != "" {
		settings, err = connstr.Parse(cfg.ConnectionString)
	} else {
		settings, err = connstr.FromEnv()
	}
	if err != nil {
		return nil, err
	}

	if cfg.Region != "" {
		settings.Region = cfg.Region
	}
	if cfg.Endpoint != "" {
		settings.Endpoint = cfg.Endpoint
	}
	if cfg.ForcePathStyle {
		settings.ForcePathStyle = true
	}

	var st store.Store
	switch settings.Backend {
	case connstr.BackendMinio:
		st, err = miniostore.New(miniostore.Config{
			Endpoint:        settings.Endpoint,
			Region:          settings.Region,
			AccessKeyID:     settings.AccessKeyID,
			SecretAccessKey: settings.SecretAccessKey,
			SessionToken:    settings.SessionToken,
			UseSSL:          settings.UseSSL,
			MaxRetries:      cfg.MaxRetries,
		}, cfg.Filesystem, cfg.Logger)
	default:
		st, err = s3store.New(ctx, s3store.Config{
			Region:                       settings.Region,
			Endpoint:                     settings.Endpoint,
			AccessKeyID:                  settings.AccessKeyID,
			SecretAccessKey:              settings.SecretAccessKey,
			SessionToken:                 settings.SessionToken,
			ForcePathStyle:               settings.ForcePathStyle,
			MaxRetries:                   cfg.MaxRetries,
			MaxConnsPerHost:              cfg.PoolCapacity,
			DisableContentHashValidation: cfg.Transfer.DisableContentHashValidation,
		}, cfg.Filesystem, cfg.Logger)
	}
	if err != nil {
		return nil, errors.NewKindError("client initialization", errors.KindConfig, err)
	}

	cfg.Logger.Debug("client initialized", "backend", settings.Backend, "region", settings.Region)
	return &Client{store: st, cfg: cfg, fs: cfg.Filesystem, logger: cfg.Logger}, nil
}

// NewWithStore creates a client around an existing store.
// This is primarily used for testing with fake stores.
func NewWithStore(st store.Store, opts ...s3types.Option) *Client {
	cfg := resolve(opts)
	return &Client{store: st, cfg: cfg, fs: cfg.Filesystem, logger: cfg.Logger}
}

// SetFilesystem replaces the local filesystem.
func (c *Client) SetFilesystem(fs billy.Filesystem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fs = fs
}

func (c *Client) filesystem() billy.Filesystem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fs
}

// Config returns a copy of the resolved configuration.
func (c *Client) Config() s3types.ClientConfig {
	return c.cfg
}

func (c *Client) poolOptions() []pool.Option {
	return []pool.Option{
		pool.WithBackend(c.cfg.PoolBackend),
		pool.WithRateLimit(c.cfg.RateLimit, c.cfg.RateBurst),
	}
}
