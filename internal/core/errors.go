package core

import "errors"

// Error taxonomy for the extraction pipeline. Handlers map these onto HTTP
// status codes; everything else surfaces as a 500.
var (
	// ErrAccessDenied is returned when the caller has no access to the project.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound is returned for a missing reference, job or project.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedJobType is returned for a job type with no registered strategy.
	ErrUnsupportedJobType = errors.New("unknown job type")
	// ErrDownloadFailure is returned when the stored blob cannot be read.
	ErrDownloadFailure = errors.New("download failed")
	// ErrProviderFailure is returned when the generative backend errors or
	// returns an empty/blocked response.
	ErrProviderFailure = errors.New("provider failure")
	// ErrNetworkFailure is returned when a raw URL fetch fails.
	ErrNetworkFailure = errors.New("network failure")
	// ErrNoReferences is returned when consolidation is invoked with nothing extracted.
	ErrNoReferences = errors.New("no references with extracted text")
	// ErrRetryLimit is returned when a reference has exhausted its extraction attempts.
	ErrRetryLimit = errors.New("retry limit reached")
	// ErrInvalidURL is returned when a pasted link fails syntactic validation.
	ErrInvalidURL = errors.New("invalid URL")
)
