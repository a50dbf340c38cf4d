package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/input-output-hk/blobperf/errors"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name      string
		bucket    string
		wantError bool
		errMsg    string
	}{
		{"valid_simple", "my-bucket", false, ""},
		{"valid_with_numbers", "my-bucket123", false, ""},
		{"valid_with_dots", "my.bucket", false, ""},
		{"valid_min_length", "abc", false, ""},
		{"valid_max_length", strings.Repeat("a", 63), false, ""},
		{"valid_generated", "blobperf-0f8fad5b-d9cb-469f-a165-70867728950e", false, ""},

		{"empty", "", true, "bucket name cannot be empty"},
		{"too_short", "ab", true, "bucket name must be between 3 and 63 characters long"},
		{"too_long", strings.Repeat("a", 64), true, "bucket name must be between 3 and 63 characters long"},
		{"starts_with_hyphen", "-bucket", true, "bucket name cannot start or end with a hyphen or dot"},
		{"ends_with_dot", "bucket.", true, "bucket name cannot start or end with a hyphen or dot"},
		{
			"contains_uppercase",
			"MyBucket",
			true,
			"bucket name can only contain lowercase letters, numbers, dots, and hyphens",
		},
		{
			"contains_underscore",
			"my_bucket",
			true,
			"bucket name can only contain lowercase letters, numbers, dots, and hyphens",
		},
		{"valid_starts_with_number", "1bucket", false, ""},
		{"ip_address", "192.168.1.1", true, "bucket name cannot be formatted as an IP address"},
		{"localhost", "localhost", true, "bucket name cannot be a reserved word"},
		{"double_dots", "my..bucket", true, "bucket name cannot contain two adjacent periods or hyphens"},
		{"double_hyphens", "my--bucket", true, "bucket name cannot contain two adjacent periods or hyphens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if !tt.wantError {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, perrors.ErrInvalidBucketName))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		wantError bool
	}{
		{"simple", "file.txt", false},
		{"nested", "dir/file.txt", false},
		{"unicode", "données.bin", false},
		{"empty", "", true},
		{"parent traversal", "../etc/passwd", true},
		{"embedded traversal", "a/../../b", true},
		{"absolute", "/etc/passwd", true},
		{"windows drive", "C:/Windows/system.ini", true},
		{"too long", strings.Repeat("k", 1025), true},
		{"control character", "file\x00.txt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantError {
				require.Error(t, err)
				assert.ErrorIs(t, err, perrors.ErrInvalidObjectKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateContentType(t *testing.T) {
	assert.NoError(t, ValidateContentType(""))
	assert.NoError(t, ValidateContentType("text/plain; charset=utf-8"))
	assert.NoError(t, ValidateContentType("application/vnd.ms-excel"))
	assert.ErrorIs(t, ValidateContentType("not a mime"), perrors.ErrInvalidInput)
}

func TestNewBucketName(t *testing.T) {
	name, err := NewBucketName(DefaultBucketPrefix)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, DefaultBucketPrefix))
	assert.NoError(t, ValidateBucketName(name))

	other, err := NewBucketName(DefaultBucketPrefix)
	require.NoError(t, err)
	assert.NotEqual(t, name, other)

	// a bare UUID starts with a hex digit most of the time
	for i := 0; i < 200; i++ {
		bare, err := NewBucketName("")
		require.NoError(t, err)
		require.Len(t, bare, 36)
	}

	_, err = NewBucketName("Upper-")
	assert.ErrorIs(t, err, perrors.ErrInvalidBucketName)

	_, err = NewBucketName(strings.Repeat("p", 40))
	assert.ErrorIs(t, err, perrors.ErrInvalidBucketName)
}
