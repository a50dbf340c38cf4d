package teardown

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/testutil"
)

func TestTeardown_Run(t *testing.T) {
	tests := []struct {
		name        string
		prefix      string
		hook        func(string) error
		wantDeleted []string
		wantLeft    []string
		wantKind    perrors.Kind
	}{
		{
			name:        "deletes every bucket",
			wantDeleted: []string{"blobperf-a", "blobperf-b", "other"},
		},
		{
			name:        "prefix filter",
			prefix:      "blobperf-",
			wantDeleted: []string{"blobperf-a", "blobperf-b"},
			wantLeft:    []string{"other"},
		},
		{
			name:   "missing bucket is ignored",
			prefix: "blobperf-",
			hook: func(b string) error {
				if b == "blobperf-a" {
					return perrors.NewBucketError("deleteBucket", b, perrors.ErrBucketNotFound)
				}
				return nil
			},
			wantDeleted: []string{"blobperf-b"},
			wantLeft:    []string{"blobperf-a", "other"},
		},
		{
			name: "stops at first failure",
			hook: func(b string) error {
				if b == "blobperf-b" {
					return errors.New("bucket locked")
				}
				return nil
			},
			wantDeleted: []string{"blobperf-a"},
			wantLeft:    []string{"blobperf-b", "other"},
			wantKind:    perrors.KindTeardown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeStore()
			fake.BucketPageSize = 1
			fake.PutObject("blobperf-a", "x", []byte("x"))
			fake.AddBucket("blobperf-b")
			fake.AddBucket("other")
			fake.DeleteBucketHook = tt.hook

			deleted, err := New(fake, tt.prefix, nil).Run(context.Background())
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.True(t, perrors.IsKind(err, tt.wantKind))
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantDeleted, deleted)
			assert.ElementsMatch(t, tt.wantLeft, fake.BucketNames())
		})
	}
}

func TestTeardown_EnumerationFailure(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.AddBucket("blobperf-a")
	fake.ListBucketsHook = func(string, int) error { return errors.New("network down") }

	deleted, err := New(fake, "", nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindEnumeration))
	assert.Empty(t, deleted)
	assert.Equal(t, 0, fake.Calls("DeleteBucket"))
}
