package models

import "errors"

// Domain errors, mapped to HTTP status codes at the server boundary.
var (
	// ErrInvalidInput indicates missing or malformed request fields
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionRejected indicates the URL is not a usable article
	ErrExtractionRejected = errors.New("extraction rejected")

	// ErrNoRelevantContext indicates search returned no chunks for a question
	ErrNoRelevantContext = errors.New("no relevant context found")

	// ErrUpstream indicates an embedding or language model call failed
	ErrUpstream = errors.New("upstream failure")

	// ErrStoreUnavailable indicates the vector store call failed
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrMalformedModelOutput indicates model output failed validation
	ErrMalformedModelOutput = errors.New("malformed model output")
)
