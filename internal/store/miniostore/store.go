// Package miniostore implements store.Store with the MinIO client, for
// S3-compatible servers that the AWS SDK does not handle well.
package miniostore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/internal/validation"
	"github.com/input-output-hk/blobperf/s3types"
)

// Config configures the MinIO client built by New.
type Config struct {
	// Endpoint is host:port, or a URL whose scheme decides UseSSL
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	UseSSL          bool

	// MaxRetries is the maximum number of attempts per request
	MaxRetries int
}

// Store is a MinIO-backed store.Store.
type Store struct {
	core   *minio.Core
	fs     billy.Filesystem
	region string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New creates a Store connected to cfg.Endpoint.
func New(cfg Config, fs billy.Filesystem, logger *slog.Logger) (*Store, error) {
	endpoint, secure, err := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, errors.NewKindError("client initialization", errors.KindConfig, err)
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		Secure: secure,
		Region: cfg.Region,
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}

	core, err := minio.NewCore(endpoint, opts)
	if err != nil {
		return nil, errors.NewKindError("client initialization", errors.KindConfig, err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{core: core, fs: fs, region: cfg.Region, logger: logger}, nil
}

// splitEndpoint accepts either host:port or a full URL.
func splitEndpoint(raw string, useSSL bool) (string, bool, error) {
	if raw == "" {
		return "", false, errors.NewError("endpoint", errors.ErrInvalidConnectionString).
			WithMessage("endpoint is required")
	}
	if !strings.Contains(raw, "://") {
		return raw, useSSL, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, err
	}
	switch u.Scheme {
	case "http":
		return u.Host, false, nil
	case "https":
		return u.Host, true, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

// CreateBucketIfAbsent implements store.Store.
func (s *Store) CreateBucketIfAbsent(ctx context.Context, name string) (s3types.Bucket, error) {
	if err := validation.ValidateBucketName(name); err != nil {
		return s3types.Bucket{}, err
	}

	err := s.core.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region})
	if err != nil {
		err = translateError("createBucket", name, "", err)
		if !errors.IsBucketAlreadyOwned(err) {
			return s3types.Bucket{}, err
		}
		s.logger.Debug("bucket already owned", "bucket", name)
	}
	return s3types.Bucket{Name: name, CreationDate: time.Now()}, nil
}

// ListBuckets implements store.Store. MinIO returns every bucket in a
// single response, so the page never carries a cursor.
func (s *Store) ListBuckets(ctx context.Context, _ string) (store.BucketPage, error) {
	infos, err := s.core.ListBuckets(ctx)
	if err != nil {
		return store.BucketPage{}, translateError("listBuckets", "", "", err)
	}

	page := store.BucketPage{Buckets: make([]s3types.Bucket, 0, len(infos))}
	for _, b := range infos {
		page.Buckets = append(page.Buckets, s3types.Bucket{Name: b.Name, CreationDate: b.CreationDate})
	}
	return page, nil
}

// ListObjects implements store.Store using flat ListObjectsV2 pages.
func (s *Store) ListObjects(_ context.Context, bucket, cursor string, pageSize int32) (store.ObjectPage, error) {
	res, err := s.core.ListObjectsV2(bucket, "", "", cursor, "", int(pageSize))
	if err != nil {
		return store.ObjectPage{}, translateError("listObjects", bucket, "", err)
	}

	page := store.ObjectPage{Objects: make([]s3types.Object, 0, len(res.Contents))}
	for _, obj := range res.Contents {
		page.Objects = append(page.Objects, convertObject(obj))
	}
	if res.IsTruncated {
		page.Next = res.NextContinuationToken
	}
	return page, nil
}

// UploadObject implements store.Store.
func (s *Store) UploadObject(ctx context.Context, task s3types.TransferTask) error {
	file, err := s.fs.Open(task.LocalPath)
	if err != nil {
		return errors.NewKindError("upload", errors.KindLocalFS, err).WithKey(task.LocalPath)
	}
	defer file.Close()

	info, err := s.fs.Stat(task.LocalPath)
	if err != nil {
		return errors.NewKindError("upload", errors.KindLocalFS, err).WithKey(task.LocalPath)
	}

	opts := minio.PutObjectOptions{
		DisableContentSha256: task.Options.DisableContentHashValidation,
		SendContentMd5:       !task.Options.DisableContentHashValidation,
	}
	if task.BlockSize > 0 {
		opts.PartSize = uint64(task.BlockSize)
	}
	if task.Options.ParallelBlockCount > 0 {
		opts.NumThreads = uint(task.Options.ParallelBlockCount)
	}

	if _, err := s.core.Client.PutObject(ctx, task.Bucket, task.Key, file, info.Size(), opts); err != nil {
		return translateError("upload", task.Bucket, task.Key, err)
	}
	return nil
}

// DownloadObject implements store.Store.
func (s *Store) DownloadObject(ctx context.Context, task s3types.TransferTask) error {
	obj, err := s.core.Client.GetObject(ctx, task.Bucket, task.Key, minio.GetObjectOptions{
		Checksum: !task.Options.DisableContentHashValidation,
	})
	if err != nil {
		return translateError("download", task.Bucket, task.Key, err)
	}
	defer obj.Close()

	file, err := s.fs.Create(task.LocalPath)
	if err != nil {
		return errors.NewKindError("download", errors.KindLocalFS, err).WithKey(task.LocalPath)
	}

	_, err = io.Copy(file, obj)
	closeErr := file.Close()
	if err != nil {
		_ = s.fs.Remove(task.LocalPath)
		return translateError("download", task.Bucket, task.Key, err)
	}
	if closeErr != nil {
		return errors.NewKindError("download", errors.KindLocalFS, closeErr).WithKey(task.LocalPath)
	}
	return nil
}

// DeleteBucketIfPresent implements store.Store.
func (s *Store) DeleteBucketIfPresent(ctx context.Context, bucket string) error {
	if err := s.emptyBucket(ctx, bucket); err != nil {
		if errors.IsBucketNotFound(err) {
			return nil
		}
		return err
	}

	if err := s.core.RemoveBucket(ctx, bucket); err != nil {
		err = translateError("deleteBucket", bucket, "", err)
		if errors.IsBucketNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) emptyBucket(ctx context.Context, bucket string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var listErr error
	objects := make(chan minio.ObjectInfo)
	listed := make(chan struct{})
	go func() {
		defer close(listed)
		defer close(objects)
		for obj := range s.core.Client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				listErr = obj.Err
				return
			}
			select {
			case objects <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var removeErr error
	for rerr := range s.core.Client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil && removeErr == nil {
			removeErr = translateError("deleteObjects", bucket, rerr.ObjectName, rerr.Err)
			cancel()
		}
	}
	cancel()
	<-listed

	if removeErr != nil {
		return removeErr
	}

	if listErr != nil {
		return translateError("emptyBucket", bucket, "", listErr)
	}
	return nil
}

func convertObject(obj minio.ObjectInfo) s3types.Object {
	kind := s3types.ObjectKindPrimitive
	if strings.HasSuffix(obj.Key, "/") {
		kind = s3types.ObjectKindComposite
	}

	o := s3types.Object{
		Key:          obj.Key,
		Size:         obj.Size,
		LastModified: obj.LastModified,
		ETag:         obj.ETag,
		Kind:         kind,
	}
	if obj.StorageClass != "" {
		o.Metadata = map[string]string{"storage-class": obj.StorageClass}
	}
	return o
}

// translateError converts a MinIO error into an *errors.Error, attaching the
// matching sentinel when the error code is recognised.
func translateError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		sentinel = errors.ErrBucketNotFound
	case "NoSuchKey", "NotFound":
		sentinel = errors.ErrObjectNotFound
	case "AccessDenied":
		sentinel = errors.ErrAccessDenied
	case "BucketAlreadyExists":
		sentinel = errors.ErrBucketAlreadyExists
	case "BucketAlreadyOwnedByYou":
		sentinel = errors.ErrBucketAlreadyOwned
	case "BucketNotEmpty":
		sentinel = errors.ErrBucketNotEmpty
	case "SlowDown", "SlowDownRead", "SlowDownWrite":
		sentinel = errors.ErrTooManyRequests
	}

	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return errors.NewObjectError(op, bucket, key, err)
}
