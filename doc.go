// Package blobperf moves large numbers of files between a local filesystem
// and an S3-compatible object store as fast as the store allows.
//
// A run provisions a set of uniquely named buckets, uploads every file of a
// directory to them round-robin, optionally downloads every object back, and
// optionally tears the buckets down again. Transfers run concurrently under
// an admission gate that bounds the number of in-flight operations; each
// batch ends with a barrier that waits for every transfer and reports one
// outcome per file.
//
// Basic usage:
//
//	client, err := blobperf.New(ctx,
//	    blobperf.WithPoolCapacity(100),
//	    blobperf.WithBlockSize(100*1024*1024),
//	)
//	if err != nil {
//	    return err
//	}
//	report, err := client.Run(ctx, blobperf.RunPlan{
//	    UploadDir: "upload",
//	    Teardown:  true,
//	})
//
// The store credential is read from the storageconnectionstring environment
// variable unless WithConnectionString is given.
package blobperf
