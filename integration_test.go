//go:build integration
// +build integration

package blobperf_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/input-output-hk/blobperf"
	"github.com/input-output-hk/blobperf/internal/testutil"
)

// TestIntegrationRun runs a full cycle against LocalStack.
func TestIntegrationRun(t *testing.T) {
	container := testutil.SetupLocalStackTest(t)
	ctx := context.Background()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "in"), 0o755))
	for i := 0; i < 6; i++ {
		name := filepath.Join(root, "in", fmt.Sprintf("file-%d.txt", i))
		require.NoError(t, os.WriteFile(name, []byte(fmt.Sprintf("integration %d", i)), 0o644))
	}

	client, err := blobperf.New(ctx,
		blobperf.WithConnectionString(container.ConnectionString()),
		blobperf.WithFilesystem(osfs.New(root)),
		blobperf.WithPoolCapacity(3),
		blobperf.WithBucketCount(3),
		blobperf.WithPageSize(2),
		blobperf.WithBlockSize(5*1024*1024),
		blobperf.WithTeardownPrefix("blobperf-"),
	)
	require.NoError(t, err)

	report, err := client.Run(ctx, blobperf.RunPlan{UploadDir: "in", DownloadDir: "out", Teardown: true})
	require.NoError(t, err)

	require.Len(t, report.Buckets, 3)
	assert.Equal(t, int64(6), report.Upload.Completed)
	assert.Empty(t, report.Upload.Failed())
	assert.Equal(t, int64(6), report.Download.Completed)
	assert.Empty(t, report.Download.Failed())
	assert.Len(t, report.Deleted, 3)

	for i := 0; i < 6; i++ {
		data, err := os.ReadFile(filepath.Join(root, "out", fmt.Sprintf("file-%d.txt", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("integration %d", i), string(data))
	}
}

// TestIntegrationProvisionIdempotent checks that teardown of an empty
// account and repeated provisioning both succeed.
func TestIntegrationProvisionIdempotent(t *testing.T) {
	container := testutil.SetupLocalStackTest(t)
	ctx := context.Background()

	client, err := blobperf.New(ctx,
		blobperf.WithConnectionString(container.ConnectionString()),
		blobperf.WithFilesystem(osfs.New(t.TempDir())),
		blobperf.WithBucketPrefix("idem-"),
		blobperf.WithTeardownPrefix("idem-"),
	)
	require.NoError(t, err)

	buckets, err := client.ProvisionBuckets(ctx, 2)
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	deleted, err := client.Teardown(ctx)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)

	deleted, err = client.Teardown(ctx)
	require.NoError(t, err)
	assert.Empty(t, deleted)
}
