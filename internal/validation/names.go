package validation

import (
	"github.com/google/uuid"

	"github.com/input-output-hk/blobperf/errors"
)

// DefaultBucketPrefix is prepended to generated bucket names.
const DefaultBucketPrefix = "blobperf-"

// NewBucketName returns prefix followed by a random UUID.
// The result is checked with ValidateBucketName so a bad prefix is reported
// before any remote call.
func NewBucketName(prefix string) (string, error) {
	name := prefix + uuid.NewString()
	if err := ValidateBucketName(name); err != nil {
		return "", errors.NewError("newBucketName", err).
			WithMessage("prefix " + prefix + " produces an invalid bucket name")
	}
	return name, nil
}
