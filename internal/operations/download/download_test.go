package download

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/input-output-hk/blobperf/errors"
	"github.com/input-output-hk/blobperf/internal/testutil"
	"github.com/input-output-hk/blobperf/s3types"
)

func TestOrchestrator_SkipsCompositeObjects(t *testing.T) {
	fs := memfs.New()
	fake := testutil.NewFakeStore()
	fake.FS = fs
	fake.PutObject("bucket-a", "alpha.txt", []byte("alpha"))
	fake.PutComposite("bucket-a", "logs/")
	fake.PutObject("bucket-b", "beta.txt", []byte("beta"))
	fake.PutComposite("bucket-b", "archive/")

	o := New(fake, fs, Config{Capacity: 4, PageSize: 10}, nil)
	result, err := o.Run(context.Background(), "download")
	require.NoError(t, err)

	assert.Len(t, result.Outcomes, 2)
	assert.Equal(t, int64(2), result.Completed)
	assert.Empty(t, result.Failed())

	var keys []string
	for _, task := range fake.Downloads() {
		keys = append(keys, task.Bucket+"/"+task.Key)
		assert.Equal(t, s3types.DirectionDownload, task.Direction)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"bucket-a/alpha.txt", "bucket-b/beta.txt"}, keys)

	data, err := util.ReadFile(fs, "download/alpha.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
	data, err = util.ReadFile(fs, "download/beta.txt")
	require.NoError(t, err)
	assert.Equal(t, "beta", string(data))
}

func TestOrchestrator_PaginatesEveryBucket(t *testing.T) {
	fs := memfs.New()
	fake := testutil.NewFakeStore()
	fake.BucketPageSize = 2
	for b := 0; b < 3; b++ {
		for i := 0; i < 25; i++ {
			fake.PutObject(fmt.Sprintf("bucket-%d", b), fmt.Sprintf("b%d-obj-%02d", b, i), nil)
		}
	}

	o := New(fake, fs, Config{Capacity: 8, PageSize: 10}, nil)
	result, err := o.Run(context.Background(), "out")
	require.NoError(t, err)

	assert.Len(t, result.Outcomes, 75)
	assert.Equal(t, 2, fake.Calls("ListBuckets"))
	assert.Equal(t, 9, fake.Calls("ListObjects"))
	assert.LessOrEqual(t, fake.PeakConcurrency(), int64(8))
}

func TestOrchestrator_EnumerationFailFast(t *testing.T) {
	fs := memfs.New()
	fake := testutil.NewFakeStore()
	for i := 0; i < 15; i++ {
		fake.PutObject("bucket-a", fmt.Sprintf("a-%02d", i), nil)
		fake.PutObject("bucket-b", fmt.Sprintf("b-%02d", i), nil)
	}
	fake.ListObjectsHook = func(bucket, cursor string, _ int) error {
		if bucket == "bucket-a" && cursor == "10" {
			return errors.New("listing throttled")
		}
		return nil
	}

	o := New(fake, fs, Config{Capacity: 4, PageSize: 10}, nil)
	result, err := o.Run(context.Background(), "download")
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindEnumeration))

	require.NotNil(t, result)
	assert.Len(t, result.Outcomes, 10, "tasks submitted before the failure are drained")
	for _, task := range fake.Downloads() {
		assert.Equal(t, "bucket-a", task.Bucket, "no bucket after the failure is enumerated")
	}
}

func TestOrchestrator_BucketListingFailure(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.AddBucket("bucket-a")
	fake.ListBucketsHook = func(string, int) error { return perrors.ErrAccessDenied }

	o := New(fake, memfs.New(), Config{Capacity: 1}, nil)
	result, err := o.Run(context.Background(), "download")
	require.Error(t, err)
	assert.True(t, perrors.IsKind(err, perrors.KindEnumeration))
	assert.True(t, perrors.IsAccessDenied(err))
	assert.Empty(t, result.Outcomes)
}

func TestOrchestrator_PerObjectFailures(t *testing.T) {
	fs := memfs.New()
	fake := testutil.NewFakeStore()
	fake.FS = fs
	fake.PutObject("bucket-a", "good.txt", []byte("ok"))
	fake.PutObject("bucket-a", "bad.txt", []byte("nope"))
	fake.PutObject("bucket-a", "../escape.txt", []byte("evil"))
	fake.DownloadHook = func(task s3types.TransferTask) error {
		if task.Key == "bad.txt" {
			return errors.New("checksum mismatch")
		}
		return nil
	}

	o := New(fake, fs, Config{Capacity: 2}, nil)
	result, err := o.Run(context.Background(), "download")
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Completed)
	failed := result.Failed()
	require.Len(t, failed, 2)
	for _, f := range failed {
		assert.True(t, perrors.IsKind(f.Err, perrors.KindTransfer))
	}

	var traversal error
	for _, f := range failed {
		if f.Task.Key == "../escape.txt" {
			traversal = f.Err
		}
	}
	assert.ErrorIs(t, traversal, perrors.ErrInvalidObjectKey)

	_, err = fs.Stat("escape.txt")
	assert.Error(t, err, "a traversal key must never be written")
}

func TestOrchestrator_BucketPrefix(t *testing.T) {
	fake := testutil.NewFakeStore()
	fake.PutObject("blobperf-1", "a", nil)
	fake.PutObject("unrelated", "b", nil)

	o := New(fake, memfs.New(), Config{Capacity: 2, BucketPrefix: "blobperf-"}, nil)
	result, err := o.Run(context.Background(), "download")
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "blobperf-1", result.Outcomes[0].Task.Bucket)
}
