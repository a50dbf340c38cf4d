package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/testutil"
	"github.com/input-output-hk/blobperf/internal/validation"
)

func TestProvisioner_Provision(t *testing.T) {
	tests := []struct {
		name        string
		count       int
		failOnCall  int
		wantCreated int
		wantErr     bool
	}{
		{name: "creates all buckets", count: 5, failOnCall: -1, wantCreated: 5},
		{name: "single bucket", count: 1, failOnCall: -1, wantCreated: 1},
		{name: "third creation fails", count: 5, failOnCall: 2, wantCreated: 2, wantErr: true},
		{name: "first creation fails", count: 3, failOnCall: 0, wantCreated: 0, wantErr: true},
		{name: "zero count", count: 0, failOnCall: -1, wantCreated: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeStore()
			fake.CreateBucketHook = func(name string, call int) error {
				if call == tt.failOnCall {
					return errors.New("quota exceeded")
				}
				return nil
			}

			p := New(fake, validation.DefaultBucketPrefix, nil)
			buckets, err := p.Provision(context.Background(), tt.count)

			assert.Len(t, buckets, tt.wantCreated)
			assert.Len(t, fake.BucketNames(), tt.wantCreated)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, perrors.IsKind(err, perrors.KindProvisioning))
				return
			}
			require.NoError(t, err)

			seen := make(map[string]bool)
			for _, b := range buckets {
				assert.True(t, strings.HasPrefix(b.Name, validation.DefaultBucketPrefix))
				assert.NoError(t, validation.ValidateBucketName(b.Name))
				assert.False(t, seen[b.Name], "bucket names must be unique")
				seen[b.Name] = true
			}
		})
	}
}

func TestProvisioner_StopsAfterFirstFailure(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.CreateBucketHook = func(_ string, call int) error {
		if call == 1 {
			return perrors.ErrAccessDenied
		}
		return nil
	}

	p := New(fake, "perf-", nil)
	n := 0
	p.newName = func(prefix string) (string, error) {
		n++
		return fmt.Sprintf("%sbucket-%d", prefix, n), nil
	}

	buckets, err := p.Provision(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, perrors.IsAccessDenied(err))
	assert.Contains(t, err.Error(), "perf-bucket-2")
	require.Len(t, buckets, 1)
	assert.Equal(t, "perf-bucket-1", buckets[0].Name)
	assert.Equal(t, 2, fake.Calls("CreateBucket"))
}

func TestProvisioner_InvalidPrefix(t *testing.T) {
	fake := testutil.NewFakeStore()
	p := New(fake, "Not_Valid-", nil)

	_, err := p.Provision(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrInvalidBucketName)
	assert.Equal(t, 0, fake.Calls("CreateBucket"))
}
