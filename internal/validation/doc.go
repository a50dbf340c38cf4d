// Package validation provides centralized input validation logic.
// This includes bucket name generation and validation, object key validation,
// and content type checks.
package validation
