package ytdlp

import "errors"

var (
	// ErrMediaUnavailable means the extraction tool could not produce the
	// requested media; shown to the user as a generic failure.
	ErrMediaUnavailable = errors.New("media unavailable")

	// ErrSourceRefused means the source platform rejected the request
	// (HTTP 403 signature in the tool output); the user gets a specific
	// "retry later" message for this one.
	ErrSourceRefused = errors.New("source refused connection")
)
