// Package fetchtest provides an in-memory fetch.Fetcher for tests.
package fetchtest

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/unkn0wn-root/fetchcache/fetch"
	"github.com/unkn0wn-root/fetchcache/payload"
)

// Handler answers one fetch. A response with a failing status and a nil
// error is turned into *fetch.Error the same way the HTTP fetcher does.
type Handler func(ctx context.Context, header http.Header) (*fetch.Response, error)

type Call struct {
	Endpoint string
	Header   http.Header
}

type Fake struct {
	mu     sync.Mutex
	routes map[string]Handler
	calls  []Call
}

var _ fetch.Fetcher = (*Fake)(nil)

func New() *Fake {
	return &Fake{routes: make(map[string]Handler)}
}

func (f *Fake) Handle(endpoint string, h Handler) {
	f.mu.Lock()
	f.routes[endpoint] = h
	f.mu.Unlock()
}

// JSON answers endpoint with 200 and body.
func (f *Fake) JSON(endpoint string, body payload.Value) {
	f.Respond(endpoint, OK(body, nil))
}

// Respond answers endpoint with a fixed response.
func (f *Fake) Respond(endpoint string, resp *fetch.Response) {
	f.Handle(endpoint, func(context.Context, http.Header) (*fetch.Response, error) {
		return clone(resp), nil
	})
}

// Fail answers endpoint with status.
func (f *Fake) Fail(endpoint string, status int) {
	f.Respond(endpoint, &fetch.Response{StatusCode: status, Header: http.Header{}})
}

// FailWith answers endpoint with a transport-level failure wrapping err.
func (f *Fake) FailWith(endpoint string, err error) {
	f.Handle(endpoint, func(context.Context, http.Header) (*fetch.Response, error) {
		return nil, &fetch.Error{Endpoint: endpoint, Err: err}
	})
}

func (f *Fake) Get(ctx context.Context, endpoint string, header http.Header) (*fetch.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Endpoint: endpoint, Header: header.Clone()})
	h, ok := f.routes[endpoint]
	f.mu.Unlock()

	if !ok {
		return nil, &fetch.Error{Endpoint: endpoint, StatusCode: http.StatusNotFound}
	}
	if err := ctx.Err(); err != nil {
		return nil, &fetch.Error{Endpoint: endpoint, Err: err}
	}
	resp, err := h(ctx, header)
	if err != nil {
		return nil, err
	}
	if err := fetch.CheckStatus(endpoint, resp.StatusCode, fetch.Conditional(header)); err != nil {
		return nil, err
	}
	return resp, nil
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count is the number of fetches issued for endpoint.
func (f *Fake) Count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Endpoint == endpoint {
			n++
		}
	}
	return n
}

func (f *Fake) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Endpoints lists the distinct endpoints fetched, sorted.
func (f *Fake) Endpoints() []string {
	f.mu.Lock()
	seen := make(map[string]struct{}, len(f.calls))
	for _, c := range f.calls {
		seen[c.Endpoint] = struct{}{}
	}
	f.mu.Unlock()
	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// OK builds a 200 response.
func OK(body payload.Value, header http.Header) *fetch.Response {
	if header == nil {
		header = http.Header{}
	}
	return &fetch.Response{StatusCode: http.StatusOK, Header: header, Body: body}
}

// NotModified builds a 304 response.
func NotModified() *fetch.Response {
	return &fetch.Response{StatusCode: http.StatusNotModified, Header: http.Header{}}
}

func clone(r *fetch.Response) *fetch.Response {
	cp := *r
	cp.Header = r.Header.Clone()
	if cp.Header == nil {
		cp.Header = http.Header{}
	}
	return &cp
}
