// Package s3store implements store.Store on top of the AWS SDK for Go v2.
//
// Uploads and downloads go through the S3 transfer manager, which splits
// objects into blocks of the task's BlockSize and moves up to
// ParallelBlockCount blocks at once.
package s3store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-git/go-billy/v5"

	"github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/s3api"
	"github.com/input-output-hk/blobperf/internal/store"
	"github.com/input-output-hk/blobperf/internal/validation"
	"github.com/input-output-hk/blobperf/s3types"
)

const (
	defaultRegion = "us-east-1"

	// maxDeleteBatch is the DeleteObjects request limit
	maxDeleteBatch = 1000

	// maxBucketPage is the ListBuckets page size
	maxBucketPage = 1000
)

// Config configures the SDK client built by New.
type Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool

	// MaxRetries is the maximum number of attempts per request
	MaxRetries int

	// MaxConnsPerHost raises the HTTP connection limit; it should match the pool capacity
	MaxConnsPerHost int

	// DisableContentHashValidation only computes and validates checksums when the service requires it
	DisableContentHashValidation bool
}

// Store is an S3-backed store.Store.
type Store struct {
	api    s3api.S3API
	fs     billy.Filesystem
	region string
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New builds an SDK client from cfg and wraps it in a Store.
func New(ctx context.Context, cfg Config, fs billy.Filesystem, logger *slog.Logger) (*Store, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				if cfg.MaxRetries > 0 {
					o.MaxAttempts = cfg.MaxRetries
				}
				o.MaxBackoff = 2 * time.Second
			})
		}),
		config.WithHTTPClient(awshttp.NewBuildableClient().WithTransportOptions(func(t *http.Transport) {
			if cfg.MaxConnsPerHost > 0 {
				t.MaxIdleConnsPerHost = cfg.MaxConnsPerHost
				t.MaxConnsPerHost = cfg.MaxConnsPerHost
			}
		})),
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewKindError("client initialization", errors.KindConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.DisableContentHashValidation {
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})

	return NewWithClient(client, region, fs, logger), nil
}

// NewWithClient wraps an existing S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(api s3api.S3API, region string, fs billy.Filesystem, logger *slog.Logger) *Store {
	if region == "" {
		region = defaultRegion
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{api: api, fs: fs, region: region, logger: logger}
}

// CreateBucketIfAbsent implements store.Store.
func (s *Store) CreateBucketIfAbsent(ctx context.Context, name string) (s3types.Bucket, error) {
	if err := validation.ValidateBucketName(name); err != nil {
		return s3types.Bucket{}, err
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if s.region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.api.CreateBucket(ctx, input); err != nil {
		err = translateError("createBucket", name, "", err)
		if !errors.IsBucketAlreadyOwned(err) {
			return s3types.Bucket{}, err
		}
		s.logger.Debug("bucket already owned", "bucket", name)
	}

	return s3types.Bucket{Name: name, CreationDate: time.Now()}, nil
}

// ListBuckets implements store.Store.
func (s *Store) ListBuckets(ctx context.Context, cursor string) (store.BucketPage, error) {
	input := &s3.ListBucketsInput{MaxBuckets: aws.Int32(maxBucketPage)}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}

	out, err := s.api.ListBuckets(ctx, input)
	if err != nil {
		return store.BucketPage{}, translateError("listBuckets", "", "", err)
	}

	page := store.BucketPage{
		Buckets: make([]s3types.Bucket, 0, len(out.Buckets)),
		Next:    aws.ToString(out.ContinuationToken),
	}
	for _, b := range out.Buckets {
		page.Buckets = append(page.Buckets, s3types.Bucket{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}
	return page, nil
}

// ListObjects implements store.Store. The listing is flat: nested keys are
// returned as ordinary objects and only "/"-terminated directory markers
// are composite.
func (s *Store) ListObjects(ctx context.Context, bucket, cursor string, pageSize int32) (store.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(pageSize),
	}
	if cursor != "" {
		input.ContinuationToken = aws.String(cursor)
	}

	out, err := s.api.ListObjectsV2(ctx, input)
	if err != nil {
		return store.ObjectPage{}, translateError("listObjects", bucket, "", err)
	}

	page := store.ObjectPage{Objects: make([]s3types.Object, 0, len(out.Contents))}
	for _, obj := range out.Contents {
		page.Objects = append(page.Objects, convertObject(obj))
	}
	if aws.ToBool(out.IsTruncated) {
		page.Next = aws.ToString(out.NextContinuationToken)
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

	contentType, err := detectContentType(file, task.LocalPath)
	if err != nil {
		return errors.NewKindError("upload", errors.KindLocalFS, err).WithKey(task.LocalPath)
	}

	uploader := manager.NewUploader(s.api, func(u *manager.Uploader) {
		u.PartSize = max(task.BlockSize, manager.MinUploadPartSize)
		if task.Options.ParallelBlockCount > 0 {
			u.Concurrency = task.Options.ParallelBlockCount
		}
		if task.Options.DisableContentHashValidation {
			u.ClientOptions = append(u.ClientOptions, func(o *s3.Options) {
				o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			})
		}
	})

	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(task.Bucket),
		Key:         aws.String(task.Key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return translateError("upload", task.Bucket, task.Key, err)
	}
	return nil
}

// DownloadObject implements store.Store.
func (s *Store) DownloadObject(ctx context.Context, task s3types.TransferTask) error {
	file, err := s.fs.Create(task.LocalPath)
	if err != nil {
		return errors.NewKindError("download", errors.KindLocalFS, err).WithKey(task.LocalPath)
	}

	downloader := manager.NewDownloader(s.api, func(d *manager.Downloader) {
		if task.BlockSize > 0 {
			d.PartSize = task.BlockSize
		}
		if task.Options.ParallelBlockCount > 0 {
			d.Concurrency = task.Options.ParallelBlockCount
		}
		if task.Options.DisableContentHashValidation {
			d.ClientOptions = append(d.ClientOptions, func(o *s3.Options) {
				o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
			})
		}
	})

	_, err = downloader.Download(ctx, newFileWriterAt(file), &s3.GetObjectInput{
		Bucket: aws.String(task.Bucket),
		Key:    aws.String(task.Key),
	})
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

// DeleteBucketIfPresent implements store.Store. Objects are removed in
// batches of up to 1000 keys before the bucket itself is deleted.
func (s *Store) DeleteBucketIfPresent(ctx context.Context, bucket string) error {
	if err := s.emptyBucket(ctx, bucket); err != nil {
		if errors.IsBucketNotFound(err) {
			return nil
		}
		return err
	}

	if _, err := s.api.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)}); err != nil {
		err = translateError("deleteBucket", bucket, "", err)
		if errors.IsBucketNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) emptyBucket(ctx context.Context, bucket string) error {
	var token *string
	for {
		out, err := s.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
			MaxKeys:           aws.Int32(maxDeleteBatch),
		})
		if err != nil {
			return translateError("emptyBucket", bucket, "", err)
		}

		if len(out.Contents) > 0 {
			ids := make([]types.ObjectIdentifier, 0, len(out.Contents))
			for _, obj := range out.Contents {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
			if err := s.deleteBatch(ctx, bucket, ids); err != nil {
				return err
			}
		}

		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		token = out.NextContinuationToken
	}
}

func (s *Store) deleteBatch(ctx context.Context, bucket string, ids []types.ObjectIdentifier) error {
	out, err := s.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return translateError("deleteObjects", bucket, "", err)
	}
	if len(out.Errors) > 0 {
		first := out.Errors[0]
		return errors.NewObjectError("deleteObjects", bucket, aws.ToString(first.Key),
			fmt.Errorf("%s: %s", aws.ToString(first.Code), aws.ToString(first.Message)))
	}
	s.logger.Debug("deleted objects", "bucket", bucket, "count", len(ids))
	return nil
}

func convertObject(obj types.Object) s3types.Object {
	key := aws.ToString(obj.Key)
	kind := s3types.ObjectKindPrimitive
	if len(key) > 0 && key[len(key)-1] == '/' {
		kind = s3types.ObjectKindComposite
	}

	o := s3types.Object{
		Key:          key,
		Size:         aws.ToInt64(obj.Size),
		LastModified: aws.ToTime(obj.LastModified),
		ETag:         aws.ToString(obj.ETag),
		Kind:         kind,
	}
	if obj.StorageClass != "" {
		o.Metadata = map[string]string{"storage-class": string(obj.StorageClass)}
	}
	return o
}

// detectContentType sniffs the first 512 bytes of r, falling back to the
// file extension, then rewinds r.
func detectContentType(r io.ReadSeeker, path string) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	contentType := mimetype.Detect(buf[:n]).String()
	if contentType == "application/octet-stream" || contentType == "text/plain; charset=utf-8" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			contentType = byExt
		}
	}
	if validation.ValidateContentType(contentType) != nil {
		contentType = "application/octet-stream"
	}
	return contentType, nil
}
