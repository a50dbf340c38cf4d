package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/input-output-hk/blobperf"
	"github.com/input-output-hk/blobperf/s3types"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true

	report := &blobperf.RunReport{
		Buckets: []s3types.Bucket{{Name: "a"}, {Name: "b"}},
		Upload: &s3types.BatchResult{
			Outcomes: []s3types.Outcome{
				{Task: s3types.TransferTask{Bucket: "a", Key: "one"}},
				{Task: s3types.TransferTask{Bucket: "b", Key: "two"}, Err: errors.New("boom")},
			},
			Completed: 2,
			Elapsed:   1500 * time.Millisecond,
		},
		TeardownSkipped: true,
		Elapsed:         2 * time.Second,
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "Buckets created: 2")
	assert.Contains(t, out, "Upload: 2 of 2 completed (1 failed) in 1.50s")
	assert.Contains(t, out, "b/two: boom")
	assert.NotContains(t, out, "Download")
	assert.Contains(t, out, "Teardown skipped")
	assert.Contains(t, out, "Total time: 2.00s")
}

func TestPrintReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, nil)
	assert.Empty(t, buf.String())
}
