package scanning

import "errors"

// Sentinel errors used to classify per-invoice failures. The batch runner
// checks these with errors.Is to decide how to record a failed item.
var (
	// ErrRateLimited marks a rate-limit rejection from the extraction
	// service after all retry attempts were exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTransport marks any other failure talking to the service
	// (timeout, connection error, malformed response envelope).
	ErrTransport = errors.New("transport error")

	// ErrParse marks a service response that could not be turned into
	// invoice data.
	ErrParse = errors.New("parse error")
)
