package s3store

import (
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/input-output-hk/blobperf/errors"
)

// apiErrorSentinels maps S3 error codes onto sentinel errors.
var apiErrorSentinels = map[string]error{
	"NoSuchBucket":            errors.ErrBucketNotFound,
	"NoSuchKey":               errors.ErrObjectNotFound,
	"NotFound":                errors.ErrObjectNotFound,
	"AccessDenied":            errors.ErrAccessDenied,
	"Forbidden":               errors.ErrAccessDenied,
	"BucketAlreadyExists":     errors.ErrBucketAlreadyExists,
	"BucketAlreadyOwnedByYou": errors.ErrBucketAlreadyOwned,
	"BucketNotEmpty":          errors.ErrBucketNotEmpty,
	"InvalidBucketName":       errors.ErrInvalidBucketName,
	"SlowDown":                errors.ErrTooManyRequests,
	"TooManyRequests":         errors.ErrTooManyRequests,
}

// translateError converts an SDK error into an *errors.Error, attaching the
// matching sentinel when the S3 error code is recognised.
func translateError(op, bucket, key string, err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	var owned *types.BucketAlreadyOwnedByYou
	var exists *types.BucketAlreadyExists
	var noBucket *types.NoSuchBucket
	var noKey *types.NoSuchKey
	var apiErr smithy.APIError

	switch {
	case stderrors.As(err, &owned):
		sentinel = errors.ErrBucketAlreadyOwned
	case stderrors.As(err, &exists):
		sentinel = errors.ErrBucketAlreadyExists
	case stderrors.As(err, &noBucket):
		sentinel = errors.ErrBucketNotFound
	case stderrors.As(err, &noKey):
		sentinel = errors.ErrObjectNotFound
	case stderrors.As(err, &apiErr):
		sentinel = apiErrorSentinels[apiErr.ErrorCode()]
	}

	if sentinel != nil {
		err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return errors.NewObjectError(op, bucket, key, err)
}
