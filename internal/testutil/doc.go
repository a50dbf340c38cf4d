// Package testutil provides test doubles shared by the package tests:
// a function-field mock of the S3 SDK client, an in-memory store with
// failure injection, and LocalStack helpers for integration tests.
package testutil
