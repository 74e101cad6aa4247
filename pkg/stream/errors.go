package stream

import "errors"

var (
	ErrNotFound       = errors.New("stream: not found")
	ErrMissingBaseURL = errors.New("stream: service base URL is required")
	ErrRequestFailed  = errors.New("stream: service request failed")
	ErrBadResponse    = errors.New("stream: unexpected service response")
)
