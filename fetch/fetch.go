// Package fetch performs single GETs against the remote origin.
//
// A Fetcher returns the parsed body, raw headers and status of a successful
// response. Everything else, transport failures, timeouts and non-2xx
// statuses, surfaces as *Error. The one exception is 304 Not Modified in
// answer to a conditional request, which is a normal Response.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/unkn0wn-root/fetchcache/payload"
)

const (
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
)

type Fetcher interface {
	Get(ctx context.Context, endpoint string, header http.Header) (*Response, error)
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       payload.Value
}

func (r *Response) NotModified() bool { return r.StatusCode == http.StatusNotModified }

// Error is a failed fetch. StatusCode is 0 for transport failures and timeouts.
type Error struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: API error: %d: %v", e.Endpoint, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: API error: %d", e.Endpoint, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
	default:
		return fmt.Sprintf("fetch %s: failed", e.Endpoint)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsError reports whether err is, or wraps, a fetch failure.
func IsError(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

// Conditional reports whether header carries a revalidation precondition.
func Conditional(header http.Header) bool {
	return header.Get(HeaderIfNoneMatch) != "" || header.Get(HeaderIfModifiedSince) != ""
}

// CheckStatus applies the status contract shared by every Fetcher.
func CheckStatus(endpoint string, status int, conditional bool) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusNotModified && conditional {
		return nil
	}
	return &Error{Endpoint: endpoint, StatusCode: status}
}
