package errors

import "errors"

// Kind classifies a failure by the stage of a run that produced it.
// Kinds are string-based so they read naturally in logs and reports.
type Kind string

const (
	// KindUnknown is reported for errors that carry no classification.
	KindUnknown Kind = "UNKNOWN"

	// KindConfig indicates a missing or malformed credential or setting.
	// Configuration errors are raised before any remote call is made.
	KindConfig Kind = "CONFIGURATION"

	// KindProvisioning indicates a bucket could not be created.
	KindProvisioning Kind = "PROVISIONING"

	// KindEnumeration indicates a bucket or object listing call failed.
	KindEnumeration Kind = "ENUMERATION"

	// KindTransfer indicates a single upload or download failed.
	// Transfer errors are recorded per task and never abort a batch.
	KindTransfer Kind = "TRANSFER"

	// KindLocalFS indicates a local filesystem precondition was not met.
	KindLocalFS Kind = "LOCAL_FILESYSTEM"

	// KindTeardown indicates a bucket could not be removed.
	KindTeardown Kind = "TEARDOWN"
)

// String returns the kind as a string.
func (k Kind) String() string {
	return string(k)
}

// KindOf returns the kind of the first classified Error in err's chain.
// It returns KindUnknown when err is nil or unclassified.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return KindUnknown
		}
		if e.Kind != "" {
			return e.Kind
		}
		err = e.Err
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
