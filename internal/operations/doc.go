// Package operations contains the orchestrators that make up a transfer run:
// bucket provisioning, listing, upload, download and teardown.
package operations
