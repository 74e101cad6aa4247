package readapi

import "errors"

var (
	ErrMissingBaseURL = errors.New("readapi: base URL is required")
	ErrRequestFailed  = errors.New("readapi: request failed")
	ErrBadResponse    = errors.New("readapi: unexpected response")
)

// Error codes carried in error bodies.
const (
	CodeNotFound       = "not_found"
	CodeInvalidRequest = "invalid_request"
	CodeUpstream       = "upstream_unavailable"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
