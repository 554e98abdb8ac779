package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/unkn0wn-root/fetchcache/payload"
)

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxBodyBytes = 10 << 20

	tracerName = "github.com/unkn0wn-root/fetchcache/fetch"
)

var errBodyTooLarge = errors.New("response body too large")

// Config tunes the HTTP fetcher. Zero values get defaults.
type Config struct {
	// BaseURL is prefixed to endpoints that are not absolute URLs.
	BaseURL string
	Client  *http.Client
	// Timeout bounds every request. Exceeding it is an ordinary *Error.
	Timeout time.Duration
	// Header is sent with every request; per-call headers win.
	Header         http.Header
	MaxBodyBytes   int64
	TracerProvider trace.TracerProvider // nil => otel global
}

type HTTP struct {
	client  *http.Client
	baseURL string
	header  http.Header
	timeout time.Duration
	maxBody int64
	tracer  trace.Tracer
}

var _ Fetcher = (*HTTP)(nil)

func NewHTTP(cfg Config) *HTTP {
	h := &HTTP{
		client:  cfg.Client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		header:  cfg.Header.Clone(),
		timeout: cfg.Timeout,
		maxBody: cfg.MaxBodyBytes,
	}
	if h.client == nil {
		h.client = &http.Client{}
	}
	if h.timeout <= 0 {
		h.timeout = DefaultTimeout
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	h.tracer = tp.Tracer(tracerName)
	return h
}

func (h *HTTP) url(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if h.baseURL == "" {
		return endpoint
	}
	return h.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func (h *HTTP) Get(ctx context.Context, endpoint string, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	u := h.url(endpoint)
	ctx, span := h.tracer.Start(ctx, "fetch GET",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", http.MethodGet),
			attribute.String("url.full", u),
		))
	defer span.End()

	resp, err := h.do(ctx, endpoint, u, header)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (h *HTTP) do(ctx context.Context, endpoint, u string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Err: err}
	}
	for k, vs := range h.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	res, err := h.client.Do(req)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Err: err}
	}
	defer res.Body.Close()

	if err := CheckStatus(endpoint, res.StatusCode, Conditional(req.Header)); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, h.maxBody))
		return nil, err
	}
	out := &Response{StatusCode: res.StatusCode, Header: res.Header}
	if res.StatusCode == http.StatusNotModified {
		return out, nil
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, h.maxBody+1))
	if err != nil {
		return nil, &Error{Endpoint: endpoint, StatusCode: res.StatusCode, Err: err}
	}
	if int64(len(raw)) > h.maxBody {
		return nil, &Error{Endpoint: endpoint, StatusCode: res.StatusCode, Err: errBodyTooLarge}
	}
	body, err := parseBody(res.Header.Get("Content-Type"), raw)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, StatusCode: res.StatusCode, Err: err}
	}
	out.Body = body
	return out, nil
}

// parseBody decodes JSON bodies; anything else is kept as a string.
func parseBody(contentType string, raw []byte) (payload.Value, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return payload.Null(), nil
	}
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/json" || strings.HasSuffix(mt, "+json") {
		v, err := payload.Parse(raw)
		if err != nil {
			return payload.Value{}, fmt.Errorf("decode body: %w", err)
		}
		return v, nil
	}
	if mt == "" {
		// no declared type: take JSON when it parses
		if v, err := payload.Parse(raw); err == nil {
			return v, nil
		}
	}
	return payload.String(string(raw)), nil
}
